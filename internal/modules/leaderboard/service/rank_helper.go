package service

import "math"

// TierStatus describes where an all-time score sits on the tier ladder.
// Tiers never demote: they are computed from the lifetime total only.
type TierStatus struct {
	Tier         string  `json:"tier"`
	NextTier     string  `json:"next_tier"`
	Points       int64   `json:"points"`
	TargetPoints int64   `json:"target_points"`
	Progress     float64 `json:"progress"`
}

const (
	PointsLegend  = 20000
	PointsPro     = 5000
	PointsShark   = 1000
	PointsHustler = 100
	PointsRookie  = 0

	maxTier = "Max Level"
)

var ladder = []struct {
	name string
	min  int64
}{
	{"Legend", PointsLegend},
	{"Pro", PointsPro},
	{"Shark", PointsShark},
	{"Hustler", PointsHustler},
	{"Rookie", PointsRookie},
}

// GetTierStatus maps an all-time score to its tier. Negative totals are Rookie.
func GetTierStatus(points int64) TierStatus {
	status := TierStatus{Points: points}

	for i, step := range ladder {
		if points < step.min && i < len(ladder)-1 {
			continue
		}
		status.Tier = step.name
		if i == 0 {
			status.NextTier = maxTier
			status.TargetPoints = step.min
			status.Progress = 100
			return status
		}
		status.NextTier = ladder[i-1].name
		status.TargetPoints = ladder[i-1].min
		break
	}

	if points > 0 {
		status.Progress = math.Round(float64(points)/float64(status.TargetPoints)*10000) / 100
	}
	return status
}
