// Package backoff содержит контроллер лимита запросов для одного воркера и
// повтор отдельных сетевых действий.
package backoff

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"engage_go/internal/common"
	"engage_go/models"
	"engage_go/pkg/forum"
)

// State — состояние аккаунта в контроллере.
type State string

const (
	StateRunning      State = "running"
	StateRateLimited  State = "rate_limited"
	StateWaiting      State = "waiting"
	StateRetryPending State = "retry_pending"
	StateFailed       State = "failed"
	StateDone         State = "done"
)

const (
	// CooldownBuffer добавляется к рекомендованному сервером ожиданию.
	CooldownBuffer = 30 * time.Second
	// MaxCooldown ограничивает худший простой воркера.
	MaxCooldown = 35 * time.Minute
)

// CooldownFor возвращает фактическую паузу min(wait+30s, 35m).
// Нулевое или отрицательное wait заменяется на значение по умолчанию.
func CooldownFor(wait time.Duration) time.Duration {
	if wait <= 0 {
		wait = forum.DefaultRateLimitWait
	}
	d := wait + CooldownBuffer
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}

// RetryEntry — аккаунт, отложенный до прохода повторов.
type RetryEntry struct {
	Account  models.Account
	Wait     time.Duration
	QueuedAt time.Time
}

// Outcome — итог одной попытки обработки аккаунта.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Queued
)

// Controller оборачивает полную последовательность действий аккаунта.
// Сигнал лимита останавливает весь воркер: ограничивается общий ресурс (IP).
type Controller struct {
	sleeper common.Sleeper
	now     func() time.Time

	mu      sync.Mutex
	queue   []RetryEntry
	drained bool
	states  map[string]State
	stalled time.Duration
}

// NewController создаёт контроллер с заданным способом ожидания.
func NewController(s common.Sleeper) *Controller {
	return &Controller{
		sleeper: s,
		now:     time.Now,
		states:  make(map[string]State),
	}
}

func (c *Controller) set(username string, s State) {
	c.mu.Lock()
	c.states[username] = s
	c.mu.Unlock()
}

// State возвращает последнее состояние аккаунта.
func (c *Controller) State(username string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[username]
}

// Stalled — суммарное время простоя воркера по лимитам.
func (c *Controller) Stalled() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stalled
}

// Pending — текущая длина очереди повторов.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Attempt выполняет fn в основном проходе. При сигнале лимита аккаунт
// попадает в очередь, а воркер спит CooldownFor(wait). Ошибка возвращается
// только при отмене контекста во время паузы.
func (c *Controller) Attempt(ctx context.Context, acc models.Account, fn func(ctx context.Context) error) (Outcome, error) {
	c.set(acc.Username, StateRunning)
	err := fn(ctx)
	if err == nil {
		c.set(acc.Username, StateDone)
		return Succeeded, nil
	}

	rl, ok := forum.AsRateLimit(err)
	if !ok {
		c.set(acc.Username, StateFailed)
		return Failed, nil
	}

	c.set(acc.Username, StateRateLimited)
	c.mu.Lock()
	c.queue = append(c.queue, RetryEntry{Account: acc, Wait: rl.Wait, QueuedAt: c.now()})
	c.mu.Unlock()

	cooldown := CooldownFor(rl.Wait)
	log.Warn().
		Str("account", acc.Username).
		Dur("wait", rl.Wait).
		Dur("cooldown", cooldown).
		Msg("[BACKOFF] лимит запросов, аккаунт отложен, воркер приостановлен")

	c.set(acc.Username, StateWaiting)
	if err := c.sleeper.Sleep(ctx, cooldown); err != nil {
		return Queued, err
	}
	c.mu.Lock()
	c.stalled += cooldown
	c.mu.Unlock()
	c.set(acc.Username, StateRetryPending)
	return Queued, nil
}

// TakeQueue отдаёт очередь повторов ровно один раз и очищает её.
// Повторный вызов возвращает nil.
func (c *Controller) TakeQueue() []RetryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drained {
		return nil
	}
	c.drained = true
	q := c.queue
	c.queue = nil
	return q
}

// Retry выполняет fn для отложенного аккаунта. Восстановления после лимита
// здесь нет: повторный сигнал означает окончательную неудачу.
func (c *Controller) Retry(ctx context.Context, entry RetryEntry, fn func(ctx context.Context) error) Outcome {
	username := entry.Account.Username
	c.set(username, StateRunning)
	if err := fn(ctx); err != nil {
		if _, ok := forum.AsRateLimit(err); ok {
			log.Error().Str("account", username).Msg("[BACKOFF] повторный лимит при повторе, аккаунт не обработан")
		}
		c.set(username, StateFailed)
		return Failed
	}
	c.set(username, StateDone)
	return Succeeded
}
