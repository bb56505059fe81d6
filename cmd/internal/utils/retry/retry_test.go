package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestPolicy_Delay(t *testing.T) {
	p := Exponential(3, 2*time.Second)

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}

func TestPolicy_DelayFlatMultiplier(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Second}

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(4))
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(3, time.Millisecond), func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	var retries []int
	calls := 0
	err := Do(context.Background(), Exponential(3, time.Millisecond), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	}, func(retry int, delay time.Duration, err error) {
		retries = append(retries, retry)
		assert.ErrorIs(t, err, errBoom)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_Exhausted(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), Exponential(3, time.Millisecond), func(context.Context) error {
		calls++
		return errBoom
	}, func(_ int, delay time.Duration, _ error) {
		delays = append(delays, delay)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 4, calls, "one attempt plus three retries")
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
}

func TestDo_ZeroRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(0, time.Second), func(context.Context) error {
		calls++
		return errBoom
	}, nil)

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, Exponential(3, time.Hour), func(context.Context) error {
			calls.Add(1)
			return errBoom
		}, nil)
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Exponential(3, time.Millisecond), func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
