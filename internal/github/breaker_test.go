package github

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute, Timeout: time.Second})
	b.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }

	for i := 0; i < 2; i++ {
		if err := b.Do(context.Background(), fail); !errors.Is(err, boom) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
	if b.State() != stateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	err := b.Do(context.Background(), func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit should fail fast, err=%v called=%v", err, called)
	}

	now = now.Add(time.Minute)
	if err := b.Do(context.Background(), ok); err != nil {
		t.Fatalf("half-open trial: %v", err)
	}
	if b.State() != stateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	_ = b.Do(context.Background(), func(context.Context) error { return errors.New("down") })
	now = now.Add(2 * time.Second)
	_ = b.Do(context.Background(), func(context.Context) error { return errors.New("still down") })

	if b.State() != stateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}
