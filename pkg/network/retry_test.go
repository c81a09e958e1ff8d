package network

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryBackoff(t *testing.T) {
	r := NewRetry(time.Second, 5*time.Second)
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, r.Fail())
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pause #%v = %v, want %v", i, got[i], want[i])
		}
	}
	r.Success()
	if r.Time() != time.Second {
		t.Errorf("not reset: %v", r.Time())
	}
}

func TestRetryWait(t *testing.T) {
	r := NewRetry(time.Millisecond, time.Millisecond)
	if err := r.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v", err)
	}

	r = NewRetry(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v", err)
	}
}
