package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	leaderboardDto "pooltap.app/earnhub/internal/modules/leaderboard/dto"
	leaderboardRepo "pooltap.app/earnhub/internal/modules/leaderboard/repository"
	"pooltap.app/earnhub/internal/testutil"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

func newTestService(t *testing.T, rdb *redis.Client) (*leaderboardService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	svc := NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), leaderboardRepo.NewScoreCache(rdb), logger.Nop()).(*leaderboardService)
	return svc, db
}

func TestAllTimeFromDatabase(t *testing.T) {
	svc, db := newTestService(t, nil)
	testutil.CreateUserWithScore(t, db, "a", "ann", 150)
	testutil.CreateUserWithScore(t, db, "b", "bob", 25000)
	testutil.CreateUserWithScore(t, db, "c", "cat", 5)

	resp, err := svc.GetLeaderboard(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if resp.Timeframe != leaderboardDto.TimeframeAllTime || len(resp.Data) != 2 {
		t.Fatalf("unexpected %+v", resp)
	}
	if resp.Data[0].Identifier != "b" || resp.Data[0].Tier != "Legend" || resp.Data[0].Position != 1 {
		t.Fatalf("unexpected first %+v", resp.Data[0])
	}
	if resp.Data[1].Identifier != "a" || resp.Data[1].Tier != "Hustler" {
		t.Fatalf("unexpected second %+v", resp.Data[1])
	}
}

func TestWeeklyIgnoresStaleWindow(t *testing.T) {
	svc, db := newTestService(t, nil)
	testutil.CreateUserWithScore(t, db, "a", "ann", 40)
	stale := testutil.CreateUserWithScore(t, db, "b", "bob", 90)
	db.Model(stale).Update("week_start", entity.WeekWindowStart(time.Now()).AddDate(0, 0, -7))

	resp, err := svc.GetLeaderboard(context.Background(), leaderboardDto.TimeframeWeekly, 0)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Identifier != "a" || resp.Data[0].Score != 40 {
		t.Fatalf("unexpected weekly %+v", resp.Data)
	}
}

func TestWeeklyLimitIsCapped(t *testing.T) {
	svc, db := newTestService(t, nil)
	for i := 0; i < 25; i++ {
		testutil.CreateUserWithScore(t, db, fmt.Sprintf("u%02d", i), "p", int64(i+1))
	}

	entries, err := svc.Weekly(context.Background(), 100)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if len(entries) != leaderboardDto.MaxWeekly || entries[0].Score != 25 {
		t.Fatalf("len=%d first=%+v", len(entries), entries[0])
	}
}

func TestReferrals(t *testing.T) {
	svc, db := newTestService(t, nil)
	a := testutil.CreateUser(t, db, "a", "ann")
	b := testutil.CreateUser(t, db, "b", "bob")
	testutil.CreateUser(t, db, "c", "cat")
	db.Model(a).Updates(map[string]interface{}{"weekly_referrals": 2, "referral_count": 5})
	db.Model(b).Updates(map[string]interface{}{"weekly_referrals": 4, "referral_count": 4})

	entries, err := svc.Referrals(context.Background(), 0)
	if err != nil {
		t.Fatalf("Referrals: %v", err)
	}
	if len(entries) != 2 || entries[0].Identifier != "b" || entries[1].ReferralCount != 5 {
		t.Fatalf("unexpected %+v", entries)
	}
}

func TestUnknownTimeframe(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.GetLeaderboard(context.Background(), "monthly", 10); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAllTimeFromRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	t.Cleanup(func() {
		rdb.Del(context.Background(), leaderboardRepo.AllTimeKey, leaderboardRepo.VersionsKey)
		_ = rdb.Close()
	})
	rdb.Del(context.Background(), leaderboardRepo.AllTimeKey, leaderboardRepo.VersionsKey)

	svc, db := newTestService(t, rdb)
	ctx := context.Background()
	testutil.CreateUserWithScore(t, db, "a", "ann", 10)
	testutil.CreateUserWithScore(t, db, "b", "bob", 30)

	// cold cache is rebuilt from the database
	entries, err := svc.AllTime(ctx, 10)
	if err != nil {
		t.Fatalf("AllTime: %v", err)
	}
	if len(entries) != 2 || entries[0].Identifier != "b" {
		t.Fatalf("unexpected %+v", entries)
	}

	if err := svc.cache.SetScore(ctx, "a", 99, 5); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	entries, _ = svc.AllTime(ctx, 10)
	if entries[0].Identifier != "a" || entries[0].Score != 99 {
		t.Fatalf("cache update not reflected %+v", entries)
	}

	// a sync that lost the race carries an older version and is dropped
	if err := svc.cache.SetScore(ctx, "a", 40, 4); err != nil {
		t.Fatalf("stale SetScore: %v", err)
	}
	entries, _ = svc.AllTime(ctx, 10)
	if entries[0].Identifier != "a" || entries[0].Score != 99 {
		t.Fatalf("stale write overwrote newer score %+v", entries)
	}

	// members missing from the database are dropped
	db.Where("identifier = ?", "b").Delete(&entity.User{})
	entries, _ = svc.AllTime(ctx, 10)
	if len(entries) != 1 {
		t.Fatalf("deleted user still ranked %+v", entries)
	}
}
