// Package scheduler runs deferred follow-ups and periodic housekeeping.
//
// Follow-ups are persisted before they are due, so a restart does not lose
// them. A poll loop marks each due row executing, runs the job, then marks it
// done or failed with the error text.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/store"
)

// ErrMissingDueTime is returned when a follow-up has no due time.
var ErrMissingDueTime = errors.New("follow-up due time is required")

// Store is the persistence the scheduler needs. *store.Store satisfies it.
type Store interface {
	AddFollowUp(ctx context.Context, f *store.FollowUp) error
	DueFollowUps(ctx context.Context, now time.Time) ([]*store.FollowUp, error)
	ClaimFollowUp(ctx context.Context, id string) (bool, error)
	UpdateFollowUpStatus(ctx context.Context, id, status, errMsg string) error
}

// Job delivers a due follow-up.
type Job func(ctx context.Context, f *store.FollowUp) error

// Scheduler polls the store for due follow-ups.
type Scheduler struct {
	store    Store
	job      Job
	interval time.Duration
	now      func() time.Time
	log      *log.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the poll interval. Default: 30s.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithJob sets the function run for each due follow-up.
func WithJob(job Job) Option {
	return func(s *Scheduler) {
		s.job = job
	}
}

// WithClock sets the clock used to decide what is due.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a scheduler over st. Without WithJob, due follow-ups are
// only logged.
func New(st Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    st,
		interval: 30 * time.Second,
		now:      time.Now,
		log:      log.Default().WithPrefix("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.job == nil {
		s.job = s.logJob
	}
	return s
}

// Schedule persists a pending follow-up.
func (s *Scheduler) Schedule(ctx context.Context, f *store.FollowUp) error {
	if f.DueAt.IsZero() {
		return ErrMissingDueTime
	}
	f.Status = store.StatusPending
	if err := s.store.AddFollowUp(ctx, f); err != nil {
		return fmt.Errorf("schedule follow-up: %w", err)
	}
	s.log.Info("follow-up scheduled", "id", f.ID, "lead_id", f.LeadID, "due_at", f.DueAt.UTC().Format(time.RFC3339))
	return nil
}

// Run polls until ctx is cancelled. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "interval", s.interval)
	return Every(ctx, s.interval, func(ctx context.Context) {
		if _, err := s.RunDue(ctx); err != nil {
			s.log.Warn("failed to get due follow-ups", "error", err)
		}
	})
}

// RunDue executes every follow-up due now and returns how many ran.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	due, err := s.store.DueFollowUps(ctx, s.now())
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, f := range due {
		// Claiming prevents double execution when pollers overlap.
		ok, err := s.store.ClaimFollowUp(ctx, f.ID)
		if err != nil {
			s.log.Warn("failed to mark follow-up executing", "id", f.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		ran++
		status, errMsg := store.StatusDone, ""
		if err := s.runJob(ctx, f); err != nil {
			status, errMsg = store.StatusFailed, err.Error()
			s.log.Error("follow-up failed", "id", f.ID, "error", err)
		} else {
			s.log.Info("follow-up executed", "id", f.ID, "lead_id", f.LeadID)
		}

		if err := s.store.UpdateFollowUpStatus(context.WithoutCancel(ctx), f.ID, status, errMsg); err != nil {
			s.log.Error("failed to record follow-up status", "id", f.ID, "status", status, "error", err)
		}
	}
	return ran, nil
}

func (s *Scheduler) runJob(ctx context.Context, f *store.FollowUp) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	return s.job(ctx, f)
}

func (s *Scheduler) logJob(_ context.Context, f *store.FollowUp) error {
	s.log.Info("follow-up due", "id", f.ID, "lead_id", f.LeadID, "message", f.Message)
	return nil
}

// Every calls fn immediately and then every interval until ctx is
// cancelled. It returns ctx.Err().
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
