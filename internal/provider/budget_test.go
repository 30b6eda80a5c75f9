package provider

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBudget(t *testing.T) {
	t.Run("AllowsRequestsWithinLimit", func(t *testing.T) {
		b := NewBudget(5, 1*time.Second)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := b.Wait(context.Background()); err != nil {
				t.Errorf("Wait() request %d error = %v, want nil", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("5 requests under limit took %v, expected < 100ms", elapsed)
		}
		if got := b.Usage(); got != 1 {
			t.Errorf("Usage() = %v, want 1", got)
		}
	})

	t.Run("BlocksExcessRequests", func(t *testing.T) {
		b := NewBudget(2, 300*time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := b.Wait(context.Background()); err != nil {
				t.Errorf("Wait() request %d error = %v, want nil", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
			t.Errorf("3rd request took %v, expected at least 300ms delay", elapsed)
		}
	})

	t.Run("HonorsContext", func(t *testing.T) {
		b := NewBudget(1, time.Hour)
		if err := b.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Wait(ctx); err == nil {
			t.Error("Wait() expected context error")
		}
	})

	t.Run("UsageDecaysWithWindow", func(t *testing.T) {
		now := time.Unix(1000, 0)
		b := NewBudget(4, time.Minute)
		b.now = func() time.Time { return now }
		for i := 0; i < 2; i++ {
			_ = b.Wait(context.Background())
		}
		if got := b.Usage(); got != 0.5 {
			t.Errorf("Usage() = %v, want 0.5", got)
		}
		now = now.Add(2 * time.Minute)
		if got := b.Usage(); got != 0 {
			t.Errorf("Usage() after window = %v, want 0", got)
		}
	})

	t.Run("ConcurrentRequests", func(t *testing.T) {
		b := NewBudget(10, 1*time.Second)
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := b.Wait(context.Background()); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("concurrent Wait() error = %v", err)
		}
	})
}
