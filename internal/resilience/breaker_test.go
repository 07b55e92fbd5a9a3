package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker() (*Breaker, *fakeClock) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return New(Config{Name: "test", MaxFailures: 2, ResetTimeout: time.Minute, Now: clk.Now}), clk
}

func fail() error { return errBoom }
func ok() error   { return nil }

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker()

	if err := b.Do(fail); !errors.Is(err, errBoom) {
		t.Fatalf("first call err = %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after 1 failure = %s, want closed", got)
	}
	_ = b.Do(fail)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after 2 failures = %s, want open", got)
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn called while open")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker()

	_ = b.Do(fail)
	_ = b.Do(ok)
	_ = b.Do(fail)
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		probe func() error
		want  State
	}{
		{name: "success closes", probe: ok, want: StateClosed},
		{name: "failure reopens", probe: fail, want: StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, clk := newTestBreaker()
			_ = b.Do(fail)
			_ = b.Do(fail)

			clk.Advance(time.Minute)
			if got := b.State(); got != StateHalfOpen {
				t.Fatalf("state = %s, want half-open", got)
			}
			_ = b.Do(tt.probe)
			if got := b.State(); got != tt.want {
				t.Errorf("state = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBreaker_SingleProbe(t *testing.T) {
	t.Parallel()
	b, clk := newTestBreaker()
	_ = b.Do(fail)
	_ = b.Do(fail)
	clk.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Do(ok); !errors.Is(err, ErrOpen) {
		t.Errorf("concurrent call during probe err = %v, want ErrOpen", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker()
	_ = b.Do(fail)
	_ = b.Do(fail)
	b.Reset()
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
	if err := b.Do(ok); err != nil {
		t.Errorf("Do after reset = %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	for s, want := range map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(9):      "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
