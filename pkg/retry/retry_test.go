package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reportforge/reportforge/pkg/reporterr"
)

// fakeSleeper records delays without actually sleeping.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.delays = append(f.delays, d)
	return nil
}

func fixedConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitDelay: time.Second, MaxDelay: 10 * time.Second, Strategy: Exponential}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	v, err := doWithSleeper(context.Background(), DefaultConfig(), func(context.Context) (string, error) {
		return "doc.pdf", nil
	}, s)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if v != "doc.pdf" {
		t.Fatalf("expected doc.pdf, got %q", v)
	}
	if len(s.delays) != 0 {
		t.Fatalf("expected 0 sleeps, got %d", len(s.delays))
	}
}

func TestDo_RetriesRenderFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	var retried []int
	s := &fakeSleeper{}
	cfg := fixedConfig(3)
	cfg.Retryable = reporterr.IsRetryable
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	_, err := doWithSleeper(context.Background(), cfg, func(context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, &reporterr.RenderError{Phase: "idle", Cause: errors.New("timeout")}
		}
		return 1, nil
	}, s)

	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; len(s.delays) != 2 || s.delays[0] != want[0] || s.delays[1] != want[1] {
		t.Fatalf("expected delays %v, got %v", want, s.delays)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Fatalf("unexpected OnRetry attempts %v", retried)
	}
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	s := &fakeSleeper{}
	cfg := fixedConfig(5)
	cfg.Retryable = reporterr.IsRetryable

	_, err := doWithSleeper(context.Background(), cfg, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, reporterr.MissingData("engagement", "")
	}, s)

	if !errors.Is(err, reporterr.ErrMissingData) {
		t.Fatalf("expected missing data error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	sentinel := errors.New("still failing")

	_, err := doWithSleeper(context.Background(), fixedConfig(3), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, sentinel
	}, &fakeSleeper{})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestDo_StopError(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	permanent := errors.New("permanent")

	_, err := doWithSleeper(context.Background(), fixedConfig(3), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, Stop(permanent)
	}, &fakeSleeper{})

	if err != permanent {
		t.Fatalf("expected unwrapped permanent error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	err := Do(context.Background(), Config{}, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fixedConfig(3), func(context.Context) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo_CancelDuringSleep(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 3, InitDelay: time.Hour, MaxDelay: time.Hour, Strategy: Constant}

	var calls atomic.Int32
	err := Do(ctx, cfg, func(context.Context) error {
		calls.Add(1)
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestCalcDelay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		strategy Strategy
		attempt  int
		want     time.Duration
	}{
		{"exponential 0", Exponential, 0, time.Second},
		{"exponential 2", Exponential, 2, 4 * time.Second},
		{"exponential capped", Exponential, 6, 10 * time.Second},
		{"linear 1", Linear, 1, 2 * time.Second},
		{"constant 4", Constant, 4, time.Second},
	}
	for _, tt := range tests {
		cfg := Config{InitDelay: time.Second, MaxDelay: 10 * time.Second, Strategy: tt.strategy}
		if got := CalcDelay(cfg, tt.attempt); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCalcDelay_JitterBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{InitDelay: 4 * time.Second, MaxDelay: time.Minute, Strategy: Constant, Jitter: true}
	for range 200 {
		d := CalcDelay(cfg, 0)
		if d < 3*time.Second || d > 5*time.Second {
			t.Fatalf("jittered delay %v outside ±25%%", d)
		}
	}
}
