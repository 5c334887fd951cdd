package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler paces the poll loop. It answers "when is the next cycle" from a
// cron spec; "@every 600s" reproduces a fixed sleep between cycles.
type Scheduler struct {
	schedule cron.Schedule
	location *time.Location
	now      func() time.Time
}

// EverySpec returns the cron descriptor for a fixed interval.
func EverySpec(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// NewScheduler parses spec (standard five-field cron or a descriptor such as
// "@every 10m") and evaluates it in the given timezone.
func NewScheduler(spec, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if schedule.Next(time.Now().In(loc)).IsZero() {
		return nil, fmt.Errorf("schedule %q never fires", spec)
	}

	return &Scheduler{
		schedule: schedule,
		location: loc,
		now:      time.Now,
	}, nil
}

// Next returns the first activation strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Wait blocks until the next activation or until ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	now := s.now()
	delay := s.Next(now).Sub(now)
	if delay < 0 {
		delay = 0
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay reports how long Wait would block if called now.
func (s *Scheduler) Delay() time.Duration {
	now := s.now()
	return s.Next(now).Sub(now)
}
