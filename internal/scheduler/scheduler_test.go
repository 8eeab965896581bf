package scheduler

import (
	"context"
	"errors"
	"testing"

	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

type resetter struct{ calls int }

func (r *resetter) ResetWeekly(ctx context.Context) (int64, error) {
	r.calls++
	return 3, nil
}

func TestRegisterAndRunByName(t *testing.T) {
	s := New(logger.Nop())
	r := &resetter{}

	if err := s.Register(WeeklyResetJob("0 12 * * 0", r)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.RunJobByName(context.Background(), JobWeeklyReset); err != nil {
		t.Fatalf("RunJobByName: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("calls=%d", r.calls)
	}

	if err := s.RunJobByName(context.Background(), "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	s := New(logger.Nop())

	if err := s.Register(Job{Name: "bad", Schedule: "every tuesday", Run: func(context.Context) error { return nil }}); err == nil {
		t.Fatalf("invalid cron spec should fail")
	}
	if err := s.Register(Job{Name: "x", Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(Job{Name: "x", Run: func(context.Context) error { return nil }}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := s.Jobs(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("jobs=%v", got)
	}
}

func TestRunReturnsJobError(t *testing.T) {
	s := New(logger.Nop())
	boom := errors.New("boom")
	s.Register(Job{Name: "fail", Run: func(context.Context) error { return boom }})

	if err := s.RunJobByName(context.Background(), "fail"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
