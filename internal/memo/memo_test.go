package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoComputesOnce(t *testing.T) {
	t.Parallel()

	m := New[int]()
	var calls int32
	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.Do("k", func() (int, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(5 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			results[i] = v
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d, want 42", i, v)
		}
	}
}

func TestNotFoundIsRemembered(t *testing.T) {
	t.Parallel()

	m := New[string]()
	calls := 0
	fn := func() (string, error) {
		calls++
		return "", ErrNotFound
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Do("missing", fn); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Do() error = %v, want ErrNotFound", err)
		}
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if _, ok, err := m.Get("missing"); !ok || !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = ok %v err %v, want present not found", ok, err)
	}
}

func TestOtherErrorsAreRetried(t *testing.T) {
	t.Parallel()

	m := New[int]()
	calls := 0
	fn := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 7, nil
	}
	if _, err := m.Do("k", fn); err == nil {
		t.Fatal("expected first call to fail")
	}
	v, err := m.Do("k", fn)
	if err != nil || v != 7 {
		t.Errorf("Do() = %d, %v; want 7, nil", v, err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
