package backoff

import (
	"context"
	"errors"
	"net/http"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"engage_go/pkg/forum"
)

// Policy — параметры повтора одного сетевого действия.
type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
	Jitter   float64
}

// DefaultPolicy: три попытки, 2s, 4s, разброс ±25%.
var DefaultPolicy = Policy{
	Attempts: 3,
	Base:     2 * time.Second,
	Max:      30 * time.Second,
	Jitter:   0.25,
}

// Permanent помечает ошибку как неповторяемую.
func Permanent(err error) error {
	return cbackoff.Permanent(err)
}

// isPermanent — ошибки, которые повтор не исправит.
func isPermanent(err error) bool {
	if _, ok := forum.AsRateLimit(err); ok {
		return true
	}
	if errors.Is(err, forum.ErrAuthFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *forum.StatusError
	if errors.As(err, &se) && se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError {
		return true
	}
	return false
}

func (p Policy) backOff(ctx context.Context) cbackoff.BackOff {
	b := cbackoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.MaxInterval = p.Max
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return cbackoff.WithContext(cbackoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Retry выполняет op с политикой DefaultPolicy.
func Retry(ctx context.Context, name string, op func() error) error {
	return DefaultPolicy.Retry(ctx, name, op)
}

// Retry выполняет op до p.Attempts раз с экспоненциальной паузой.
// Лимит запросов, отказ авторизации и 4xx не повторяются.
func (p Policy) Retry(ctx context.Context, name string, op func() error) error {
	wrapped := func() error {
		err := op()
		if err != nil && isPermanent(err) {
			return cbackoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Str("action", name).Dur("next", next).Msg("[RETRY] действие не удалось, повтор")
	}
	return cbackoff.RetryNotify(wrapped, p.backOff(ctx), notify)
}
