package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
)

func testConfig(p Policy) *Config {
	return &Config{
		Policy:  p,
		RetryIf: errs.IsRetryable,
		Logger:  logger.NewNop(),
	}
}

func TestDelayWithoutJitter(t *testing.T) {
	p := Policy{
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{5, 10 * time.Second}, // still capped
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayJitterBounds(t *testing.T) {
	p := Policy{
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
		Jitter:       true,
	}

	for attempt := 0; attempt < 6; attempt++ {
		base := Policy{
			InitialDelay: p.InitialDelay,
			Multiplier:   p.Multiplier,
			MaxDelay:     p.MaxDelay,
		}.Delay(attempt)

		for i := 0; i < 200; i++ {
			d := p.Delay(attempt)
			if d < base/2 || d >= base+base/2 {
				t.Fatalf("Delay(%d) = %v outside [%v, %v)", attempt, d, base/2, base+base/2)
			}
		}
	}
}

func TestRetryBound(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	original := errs.New(errs.KindRateLimit, "slow down", 429)

	cfg := testConfig(Policy{
		MaxRetries:   3,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     100 * time.Millisecond,
	})
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	err := Do(context.Background(), func() error {
		attempts++
		return original
	}, cfg)

	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
	if !errors.Is(err, error(original)) {
		t.Errorf("expected original error back, got %v", err)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d delays, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestNonRetryableShortCircuit(t *testing.T) {
	attempts := 0
	original := errs.New(errs.KindProfileNotFound, "gone", 404)

	start := time.Now()
	err := Do(context.Background(), func() error {
		attempts++
		return original
	}, testConfig(Policy{
		MaxRetries:   10,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
	}))

	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, error(original)) {
		t.Errorf("expected original error back, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("terminal failure must not incur a delay, took %v", elapsed)
	}
}

func TestSuccessNoDelay(t *testing.T) {
	start := time.Now()
	err := Do(context.Background(), func() error { return nil }, testConfig(Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("success path must not incur a delay, took %v", elapsed)
	}
}

func TestSuccessAfterRetries(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errs.New(errs.KindConnectionError, "reset", 0)
		}
		return "loaded", nil
	}, testConfig(Policy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Millisecond,
	}))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "loaded" {
		t.Errorf("result = %q, want %q", result, "loaded")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Wait(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait did not honour cancellation, took %v", elapsed)
	}
}
