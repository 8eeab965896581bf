package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

// Job is a named unit of background work. An empty Schedule registers it
// for manual runs only.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger

	mu   sync.RWMutex
	jobs map[string]Job
}

// New builds a scheduler that evaluates cron specs in UTC.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log.With("component", "scheduler"),
		jobs: make(map[string]Job),
	}
}

func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run func: %w", apperror.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %s already registered: %w", job.Name, apperror.ErrConflict)
	}

	if job.Schedule != "" {
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.execute(context.Background(), job) }); err != nil {
			return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
		}
		s.log.Info("job scheduled", "job", job.Name, "cron", job.Schedule)
	} else {
		s.log.Info("job registered for manual runs", "job", job.Name)
	}

	s.jobs[job.Name] = job
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.Jobs()))
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// RunJobByName runs a job now, outside its schedule.
func (s *Scheduler) RunJobByName(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s: %w", name, apperror.ErrNotFound)
	}

	s.log.Info("running job on demand", "job", name)
	return s.execute(ctx, job)
}

func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("job failed", "job", job.Name, "error", err)
		return err
	}
	s.log.Info("job completed", "job", job.Name, "duration", time.Since(start))
	return nil
}
