package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("cron is nil")
	}
}

func TestSchedule(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	// Valid cron expression
	if err := s.Schedule("0 2 * * *"); err != nil {
		t.Errorf("Schedule() with valid cron = %v, want nil", err)
	}

	s.mu.RLock()
	schedule := s.schedule
	s.mu.RUnlock()

	if schedule != "0 2 * * *" {
		t.Errorf("schedule = %q, want %q", schedule, "0 2 * * *")
	}
}

func TestScheduleInvalidCron(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	if err := s.Schedule("invalid cron"); err == nil {
		t.Error("Schedule() with invalid cron = nil, want error")
	}
}

func TestScheduleReplacesExisting(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	if err := s.Schedule("0 2 * * *"); err != nil {
		t.Fatalf("Schedule() = %v", err)
	}

	s.mu.RLock()
	firstID := s.entryID
	s.mu.RUnlock()

	if err := s.Schedule("0 3 * * *"); err != nil {
		t.Fatalf("Schedule() replacement = %v", err)
	}

	s.mu.RLock()
	secondID := s.entryID
	s.mu.RUnlock()

	if firstID == secondID {
		t.Error("entry ID was not updated after replacement")
	}
}

func TestStartStop(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	s.Start()
	ctx := s.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("Stop() did not complete in time")
	}
}

func TestIsRunning(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	if s.IsRunning() {
		t.Error("IsRunning() = true before Start()")
	}

	s.Start()

	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}

	ctx := s.Stop()

	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("Stop() did not complete in time")
	}
}

func TestStopCancelsRunningRefresh(t *testing.T) {
	refreshStarted := make(chan struct{})
	s := New(func(ctx context.Context) error {
		close(refreshStarted)
		<-ctx.Done()
		return ctx.Err()
	})

	if err := s.TriggerRefresh(); err != nil {
		t.Fatalf("TriggerRefresh: %v", err)
	}

	select {
	case <-refreshStarted:
	case <-time.After(time.Second):
		t.Fatal("refresh did not start")
	}

	ctx := s.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Error("Stop() did not complete after cancelling refresh")
	}

	if s.Status().LastError == "" {
		t.Error("expected error after cancelled refresh")
	}
}

func TestTriggerRefresh(t *testing.T) {
	var called atomic.Int32
	s := New(func(ctx context.Context) error {
		called.Add(1)
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	if err := s.TriggerRefresh(); err != nil {
		t.Errorf("TriggerRefresh() = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	// Second trigger should fail (already running)
	if err := s.TriggerRefresh(); err == nil {
		t.Error("TriggerRefresh() while running = nil, want error")
	}

	time.Sleep(100 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("refreshFunc called %d times, want 1", called.Load())
	}
}

func TestRefreshPreventsDoubleRun(t *testing.T) {
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	s := New(func(ctx context.Context) error {
		c := concurrent.Add(1)
		if c > maxConcurrent.Load() {
			maxConcurrent.Store(c)
		}
		time.Sleep(50 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	})

	for i := 0; i < 5; i++ {
		_ = s.TriggerRefresh()
	}

	time.Sleep(200 * time.Millisecond)

	if maxConcurrent.Load() > 1 {
		t.Errorf("max concurrent = %d, want 1", maxConcurrent.Load())
	}
}

func TestStatus(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	if err := s.Schedule("0 2 * * *"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Start()
	defer s.Stop()

	status := s.Status()

	if status.Running {
		t.Error("status.Running = true, want false")
	}
	if status.Schedule != "0 2 * * *" {
		t.Errorf("status.Schedule = %q", status.Schedule)
	}
	if status.NextRun.IsZero() {
		t.Error("status.NextRun is zero")
	}
}

func TestStatusAfterRefreshSuccess(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	if err := s.TriggerRefresh(); err != nil {
		t.Fatalf("TriggerRefresh: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	status := s.Status()
	if status.LastRun.IsZero() {
		t.Error("LastRun should be set after successful refresh")
	}
	if status.LastError != "" {
		t.Errorf("LastError = %q, want empty", status.LastError)
	}
}

func TestStatusAfterRefreshError(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return errors.New("refresh failed")
	})

	if err := s.TriggerRefresh(); err != nil {
		t.Fatalf("TriggerRefresh: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if s.Status().LastError == "" {
		t.Error("LastError should be set after failed refresh")
	}
}

func TestTriggerRefreshAfterStop(t *testing.T) {
	s := New(func(ctx context.Context) error {
		return nil
	})

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop() did not complete in time")
	}

	if err := s.TriggerRefresh(); err == nil {
		t.Error("TriggerRefresh() after Stop() = nil, want error")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 2 * * *", false},    // 2am daily
		{"*/15 * * * *", false}, // Every 15 minutes
		{"0 0 1 * *", false},    // Monthly on 1st
		{"0 0 * * 0", false},    // Weekly on Sunday
		{"invalid", true},
		{"* * * * * *", true}, // Too many fields
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr = %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
