package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Factor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Duration(0), p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(5), "delay is capped at the ceiling")
}

func TestPolicy_Do_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := DefaultPolicy().Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Do_RetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) bool { return true })

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Do_ExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: 5 * time.Millisecond}
	boom := errors.New("still down")

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return boom
	}, func(error) bool { return true })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Do_PermanentErrorStopsEarly(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: 5 * time.Millisecond}
	fatal := errors.New("fatal")

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	}, func(err error) bool { return !errors.Is(err, fatal) })

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Do_CancellationDoesNotRetry(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, Factor: 2, MaxDelay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Do(ctx, func(ctx context.Context, attempt int) error {
			calls++
			return errors.New("transient")
		}, func(error) bool { return true })
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff must not start another attempt")
}

func TestPolicy_Do_AttemptNumbersArePassed(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: time.Millisecond}

	var seen []int
	_ = p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		return errors.New("transient")
	}, func(error) bool { return true })

	assert.Equal(t, []int{1, 2, 3}, seen)
}
