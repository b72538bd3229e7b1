package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"engage_go/pkg/forum"
)

var fastPolicy = Policy{Attempts: 3, Base: time.Millisecond, Max: 5 * time.Millisecond, Jitter: 0.25}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := fastPolicy.Retry(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("временная ошибка")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterThreeAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("сбой")
	err := fastPolicy.Retry(context.Background(), "test", func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRepeatPermanentErrors(t *testing.T) {
	cases := []error{
		&forum.RateLimitError{Wait: time.Second},
		forum.ErrAuthFailed,
		&forum.StatusError{Code: 403},
		Permanent(errors.New("явно")),
	}
	for _, cause := range cases {
		calls := 0
		err := fastPolicy.Retry(context.Background(), "test", func() error {
			calls++
			return cause
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls, "%v", cause)
	}

	var rl *forum.RateLimitError
	err := fastPolicy.Retry(context.Background(), "test", func() error { return &forum.RateLimitError{Wait: 5 * time.Second} })
	assert.ErrorAs(t, err, &rl)
}

func TestRetryRepeatsServerErrors(t *testing.T) {
	calls := 0
	_ = fastPolicy.Retry(context.Background(), "test", func() error {
		calls++
		return &forum.StatusError{Code: 502}
	})
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Policy{Attempts: 3, Base: time.Second, Max: time.Second}.Retry(ctx, "test", func() error {
		calls++
		return errors.New("сбой")
	})
	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
