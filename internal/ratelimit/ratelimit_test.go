package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitWithinQuotaDoesNotBlock(t *testing.T) {
	lim := New(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := lim.Wait(ctx); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected no blocking within quota, waited %s", elapsed)
	}
	if got := lim.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
}

func TestWaitDelaysOverQuotaUntilWindowBoundary(t *testing.T) {
	lim := New(2, time.Minute)

	base := time.Unix(1000, 0)
	clock := base
	lim.now = func() time.Time { return clock }

	var slept time.Duration
	lim.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		clock = clock.Add(d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := lim.Wait(ctx); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if slept != 0 {
		t.Fatalf("expected no sleep within quota, slept %s", slept)
	}

	clock = base.Add(20 * time.Second)
	if err := lim.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if slept != 40*time.Second {
		t.Fatalf("expected 40s delay to window boundary, got %s", slept)
	}
	if got := lim.Remaining(); got != 1 {
		t.Fatalf("expected fresh window with 1 used, remaining %d", got)
	}
}

func TestWaitResetsAfterWindowElapsed(t *testing.T) {
	lim := New(1, time.Minute)

	clock := time.Unix(2000, 0)
	lim.now = func() time.Time { return clock }
	lim.sleep = func(_ context.Context, d time.Duration) error {
		t.Fatalf("unexpected sleep of %s", d)
		return nil
	}

	ctx := context.Background()
	if err := lim.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	clock = clock.Add(61 * time.Second)
	if err := lim.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestWaitCancellable(t *testing.T) {
	lim := New(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	if err := lim.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	cancel()
	if err := lim.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
