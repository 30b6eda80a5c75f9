package concurrency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Digital-Shane/metaweave/internal/media"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max holders = %d, want 1", maxInside)
	}
	if km.Len() != 0 {
		t.Errorf("Len() = %d after release, want 0", km.Len())
	}
}

func TestKeyedMutexDifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	base := media.Ref{Kind: media.KindSeason, IDs: media.IDs{IMDb: "tt1"}, Season: 2}
	same := base
	same.Title = "ignored when ids present"
	if Fingerprint(base) != Fingerprint(same) {
		t.Error("title changed fingerprint despite ids")
	}

	other := base
	other.Season = 3
	if Fingerprint(base) == Fingerprint(other) {
		t.Error("season did not change fingerprint")
	}

	movie := media.Ref{Kind: media.KindMovie, IDs: media.IDs{IMDb: "tt1"}, Season: 2}
	movie2 := movie
	movie2.Season = 5
	if Fingerprint(movie) != Fingerprint(movie2) {
		t.Error("season changed movie fingerprint")
	}

	titled := media.Ref{Kind: media.KindMovie, Title: "Heat", Year: 1995}
	titled2 := media.Ref{Kind: media.KindMovie, Title: "heat ", Year: 1995}
	if Fingerprint(titled) != Fingerprint(titled2) {
		t.Error("title normalization missing")
	}
}

func TestParallelism(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		rating float64
		nested bool
		want   int
	}{
		"weak":          {rating: 0, want: 2},
		"strong":        {rating: 1, want: 10},
		"strong nested": {rating: 1, nested: true, want: 5},
		"weak nested":   {rating: 0, nested: true, want: 1},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Parallelism(tc.rating, tc.nested); got != tc.want {
				t.Errorf("Parallelism(%v, %v) = %d, want %d", tc.rating, tc.nested, got, tc.want)
			}
		})
	}
}

func TestSemaphoreHonorsContext(t *testing.T) {
	t.Parallel()

	s := NewSemaphore(1)
	release, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Acquire(ctx); err == nil {
		t.Fatal("expected second Acquire to fail")
	}
}

func TestEachLimitsAndReportsErrors(t *testing.T) {
	t.Parallel()

	var inFlight, peak int32
	var ran int32
	boom := errors.New("boom")
	err := Each(context.Background(), 20, 3, func(ctx context.Context, i int) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&ran, 1)
		if i == 7 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("Each() error = %v, want boom", err)
	}
	if peak > 3 {
		t.Errorf("peak in flight = %d, want <= 3", peak)
	}
	if ran != 20 {
		t.Errorf("ran = %d, want 20", ran)
	}
}
