package service

import "testing"

func TestGetTierStatus(t *testing.T) {
	cases := []struct {
		points   int64
		tier     string
		next     string
		progress float64
	}{
		{-15, "Rookie", "Hustler", 0},
		{0, "Rookie", "Hustler", 0},
		{50, "Rookie", "Hustler", 50},
		{100, "Hustler", "Shark", 10},
		{1000, "Shark", "Pro", 20},
		{4999, "Shark", "Pro", 99.98},
		{5000, "Pro", "Legend", 25},
		{20000, "Legend", maxTier, 100},
		{99999, "Legend", maxTier, 100},
	}

	for _, tc := range cases {
		got := GetTierStatus(tc.points)
		if got.Tier != tc.tier || got.NextTier != tc.next || got.Progress != tc.progress {
			t.Fatalf("GetTierStatus(%d) = %+v, want tier=%s next=%s progress=%v", tc.points, got, tc.tier, tc.next, tc.progress)
		}
	}
}
