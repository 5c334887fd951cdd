package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler("@every 10m", "America/New_York")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	if s.location.String() != "America/New_York" {
		t.Errorf("location = %q, want 'America/New_York'", s.location.String())
	}
}

func TestNewSchedulerInvalidTimezone(t *testing.T) {
	if _, err := NewScheduler("@every 10m", "Invalid/Zone"); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestNewSchedulerInvalidSpec(t *testing.T) {
	tests := []string{
		"",
		"invalid",
		"61 * * * *",
		"* * * *",
		"@every nonsense",
		"0 0 30 2 *", // February 30th
	}

	for _, tt := range tests {
		if _, err := NewScheduler(tt, "UTC"); err == nil {
			t.Errorf("expected error for spec %q", tt)
		}
	}
}

func TestEverySpec(t *testing.T) {
	if got := EverySpec(600 * time.Second); got != "@every 10m0s" {
		t.Errorf("EverySpec(600s) = %q, want '@every 10m0s'", got)
	}
}

func TestNextFixedInterval(t *testing.T) {
	s, err := NewScheduler(EverySpec(600*time.Second), "UTC")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	next := s.Next(start)
	if got := next.Sub(start); got != 600*time.Second {
		t.Errorf("interval = %v, want 10m", got)
	}
}

func TestNextCronSpec(t *testing.T) {
	s, err := NewScheduler("*/15 * * * *", "UTC")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	start := time.Date(2024, 3, 1, 12, 7, 30, 0, time.UTC)
	want := time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC)
	if next := s.Next(start); !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}
}

func TestNextUsesTimezone(t *testing.T) {
	s, err := NewScheduler("0 9 * * *", "Asia/Taipei")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	// 00:30 UTC is 08:30 in Taipei, so the next 09:00 Taipei is 01:00 UTC.
	start := time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC)
	want := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	if next := s.Next(start); !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}
}

func TestWaitReturnsAfterDelay(t *testing.T) {
	s, err := NewScheduler("@every 1s", "UTC")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	// Pin the clock to a whole second so the delay is exactly one second.
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	if d := s.Delay(); d != time.Second {
		t.Errorf("Delay = %v, want 1s", d)
	}

	start := time.Now()
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("Wait returned after %v, want about 1s", elapsed)
	}
}

func TestWaitCancelled(t *testing.T) {
	s, err := NewScheduler("@every 1h", "UTC")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err = s.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait should return promptly on cancellation")
	}
}
