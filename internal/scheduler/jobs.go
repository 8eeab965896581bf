package scheduler

import "context"

const (
	JobWeeklyReset        = "weekly_reset"
	JobRebuildLeaderboard = "rebuild_leaderboard"
)

type WeeklyResetter interface {
	ResetWeekly(ctx context.Context) (int64, error)
}

type LeaderboardRebuilder interface {
	RebuildCache(ctx context.Context) (int, error)
}

// WeeklyResetJob clears weekly scores and referral counts when a new window opens.
func WeeklyResetJob(spec string, ledger WeeklyResetter) Job {
	return Job{
		Name:     JobWeeklyReset,
		Schedule: spec,
		Run: func(ctx context.Context) error {
			_, err := ledger.ResetWeekly(ctx)
			return err
		},
	}
}

func RebuildLeaderboardJob(leaderboard LeaderboardRebuilder) Job {
	return Job{
		Name: JobRebuildLeaderboard,
		Run: func(ctx context.Context) error {
			_, err := leaderboard.RebuildCache(ctx)
			return err
		},
	}
}
