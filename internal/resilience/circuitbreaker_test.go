package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterTrip(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 3, CoolDown: time.Minute})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("err = %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 2})
	boom := errors.New("boom")

	b.Do(func() error { return boom })
	b.Do(func() error { return nil })
	b.Do(func() error { return boom })

	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, CoolDown: time.Millisecond, Probes: 2})
	b.Do(func() error { return errors.New("boom") })
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(5 * time.Millisecond)
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}

	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: unexpected error %v", i, err)
		}
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenfailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, CoolDown: time.Millisecond, Probes: 3})
	b.Do(func() error { return errors.New("boom") })
	time.Sleep(5 * time.Millisecond)

	if err := b.Do(func() error { return errors.New("still down") }); err == nil {
		t.Fatal("expected probe error")
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("err = %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, CoolDown: time.Hour})
	b.Do(func() error { return errors.New("boom") })
	b.Reset()

	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}
