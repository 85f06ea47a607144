package resilience

import (
	"errors"
	"testing"
	"time"
)

type fakeBackend struct {
	name  string
	err   error
	calls int
}

func TestFallbackGroup_PrimaryWins(t *testing.T) {
	a := &fakeBackend{name: "a"}
	b := &fakeBackend{name: "b"}
	g := NewFallbackGroup(a, "a", FallbackConfig{})
	g.AddFallback("b", b)

	got, err := Run(g, func(fb *fakeBackend) (string, error) {
		fb.calls++
		return fb.name, fb.err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a" {
		t.Fatalf("result = %q, want a", got)
	}
	if b.calls != 0 {
		t.Fatalf("fallback called %d times, want 0", b.calls)
	}
}

func TestFallbackGroup_FailsOver(t *testing.T) {
	a := &fakeBackend{name: "a", err: errors.New("down")}
	b := &fakeBackend{name: "b"}
	g := NewFallbackGroup(a, "a", FallbackConfig{})
	g.AddFallback("b", b)

	got, err := Run(g, func(fb *fakeBackend) (string, error) {
		fb.calls++
		return fb.name, fb.err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "b" {
		t.Fatalf("result = %q, want b", got)
	}
	if a.calls != 1 {
		t.Fatalf("primary called %d times, want 1", a.calls)
	}
}

func TestFallbackGroup_AllFailed(t *testing.T) {
	a := &fakeBackend{name: "a", err: errors.New("down")}
	g := NewFallbackGroup(a, "a", FallbackConfig{})

	_, err := Run(g, func(fb *fakeBackend) (string, error) {
		return "", fb.err
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	a := &fakeBackend{name: "a", err: errors.New("down")}
	b := &fakeBackend{name: "b"}
	g := NewFallbackGroup(a, "a", FallbackConfig{
		Breaker: BreakerConfig{Trip: 1, CoolDown: time.Hour},
	})
	g.AddFallback("b", b)

	for i := 0; i < 2; i++ {
		if err := g.Execute(func(fb *fakeBackend) error {
			fb.calls++
			return fb.err
		}); err != nil {
			t.Fatalf("round %d: unexpected error %v", i, err)
		}
	}
	// The breaker opened after the first failure, so round two never
	// touched the primary.
	if a.calls != 1 {
		t.Fatalf("primary called %d times, want 1", a.calls)
	}
	if b.calls != 2 {
		t.Fatalf("fallback called %d times, want 2", b.calls)
	}
}

func TestFallbackGroup_Names(t *testing.T) {
	g := NewFallbackGroup(&fakeBackend{}, "first", FallbackConfig{})
	g.AddFallback("second", &fakeBackend{})
	names := g.Names()
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Fatalf("names = %v, want [first second]", names)
	}
}
