package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// DailyScheduler fires a job once a day at a wall-clock time in a fixed
// timezone.
type DailyScheduler struct {
	hour, minute int
	loc          *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler parses runAt as HH:MM.
func NewDailyScheduler(runAt string, loc *time.Location) (*DailyScheduler, error) {
	t, err := time.Parse("15:04", runAt)
	if err != nil {
		return nil, domain.ConfigError("scheduler.run_at %q: want HH:MM", runAt)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{
		hour:   t.Hour(),
		minute: t.Minute(),
		loc:    loc,
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Next returns the first trigger strictly after now.
func (s *DailyScheduler) Next(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.loc)
	}
	return next
}

// Start runs job at every trigger until ctx ends or Stop is called. Jobs run
// on the scheduler goroutine, so a slow run delays the next trigger instead
// of overlapping it.
func (s *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, job, s.stop, s.done)
	return nil
}

func (s *DailyScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)
	for {
		next := s.Next(s.now())
		select {
		case <-s.after(next.Sub(s.now())):
			job(next)
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// Stop halts the loop and waits for a running job to return or ctx to end.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
