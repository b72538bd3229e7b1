// Package orchestrator проводит аккаунты своей части ростера через фазы
// логин, просмотр, дополнительные действия и ответ.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"engage_go/internal/backoff"
	"engage_go/internal/browse"
	"engage_go/internal/common"
	"engage_go/internal/metrics"
	"engage_go/internal/reply"
	"engage_go/internal/runstate"
	"engage_go/internal/schedule"
	"engage_go/internal/selection"
	"engage_go/models"
	"engage_go/pkg/forum"
)

const (
	// DefaultAccountDelay — пауза между аккаунтами, если не задана.
	DefaultAccountDelay = 60 * time.Second
	accountDelaySpread  = 15 * time.Second

	staggerPerJob = 30 * time.Second
	staggerSpread = 45

	browseSkipChance = 0.15
)

// Config — параметры одного запуска.
type Config struct {
	JobIndex      int
	JobTotal      int
	AccountDelay  time.Duration
	BrowseEnabled bool
	ReplyEnabled  bool
	ForceReply    bool
	ResultsDir    string
}

// Runner — один воркер. Аккаунты обрабатываются строго последовательно.
type Runner struct {
	Config

	Dial      Dialer
	Generator *reply.Generator
	State     *runstate.Run
	History   selection.ReplyHistory
	Store     Store
	Notifier  Notifier
	Sleeper   common.Sleeper
	Rand      *rand.Rand
	Now       func() time.Time
	// Roster — весь ростер, а не только своя часть: чужие аккаунты тоже
	// считаются своими авторами при выборе темы.
	Roster []models.Account
	RunID  string
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) delay(ctx context.Context, reason string) error {
	base := r.AccountDelay
	if base <= 0 {
		base = DefaultAccountDelay
	}
	d, err := common.WaitWithCancellation(ctx, r.Sleeper, r.Rand, base, base+accountDelaySpread)
	log.Info().Dur("delay", d).Msgf("[RUN] пауза перед %s", reason)
	return err
}

// Stagger разносит старт воркеров: воркер с индексом > 0 ждёт
// jobIndex*30s плюс до 45s.
func (r *Runner) Stagger(ctx context.Context) error {
	if r.JobIndex <= 0 {
		return nil
	}
	d := time.Duration(r.JobIndex)*staggerPerJob + time.Duration(r.Rand.Intn(staggerSpread+1))*time.Second
	log.Info().Int("job", r.JobIndex).Dur("delay", d).Msg("[RUN] отложенный старт воркера")
	return r.Sleeper.Sleep(ctx, d)
}

// Run обрабатывает accounts и записывает файл результата. Ошибка возвращается
// при отмене контекста или если результат не удалось сохранить.
func (r *Runner) Run(ctx context.Context, accounts []models.Account) (models.RunResult, error) {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.State == nil {
		r.State = runstate.NewMemoryRun()
	}
	res := models.RunResult{
		JobIndex: r.JobIndex,
		RunID:    r.RunID,
		Total:    len(accounts),
		Success:  []string{},
		Fail:     []string{},
		Replies:  []models.ReplyRecord{},
	}
	logger := log.With().Int("job", r.JobIndex).Str("run", r.RunID).Logger()
	logger.Info().Int("accounts", len(accounts)).Int("roster", len(r.Roster)).Msg("[RUN] старт")

	if err := r.Stagger(ctx); err != nil {
		return res, err
	}

	coord := &selection.Coordinator{
		Run:     r.State,
		History: r.History,
		Busy:    selection.BusyAuthors(append(append([]models.Account{}, r.Roster...), accounts...)),
		Rand:    r.Rand,
		Now:     r.Now,
	}
	ctl := backoff.NewController(r.Sleeper)

	record := func(username string, outcome backoff.Outcome, rec *models.ReplyRecord) {
		switch outcome {
		case backoff.Succeeded:
			res.Success = append(res.Success, username)
			metrics.AccountsProcessed.WithLabelValues("success").Inc()
			if rec != nil {
				res.Replies = append(res.Replies, *rec)
			}
		case backoff.Failed:
			res.Fail = append(res.Fail, username)
			metrics.AccountsProcessed.WithLabelValues("fail").Inc()
		}
	}

	for i, acc := range accounts {
		pos := fmt.Sprintf("%d/%d", i+1, len(accounts))
		if !acc.Valid() {
			name := acc.Username
			if name == "" {
				name = fmt.Sprintf("account_%d", i+1)
			}
			logger.Warn().Str("account", name).Msgf("[RUN] [%s] нет имени или пароля, пропуск", pos)
			record(name, backoff.Failed, nil)
			continue
		}

		logger.Info().Str("account", acc.Username).Msgf("[RUN] [%s] обработка", pos)
		var rec *models.ReplyRecord
		var perr error
		outcome, err := ctl.Attempt(ctx, acc, func(ctx context.Context) error {
			rec, perr = r.processAccount(ctx, acc, coord)
			return perr
		})
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err != nil {
			return res, err
		}
		record(acc.Username, outcome, rec)

		if outcome == backoff.Queued {
			r.noteRateLimit(ctx, acc.Username, perr)
			continue
		}
		if i < len(accounts)-1 {
			if err := r.delay(ctx, "следующим аккаунтом"); err != nil {
				return res, err
			}
		}
	}

	queue := ctl.TakeQueue()
	if len(queue) > 0 {
		logger.Info().Int("queued", len(queue)).Msg("[RUN] повтор аккаунтов, упёршихся в лимит")
	}
	for j, entry := range queue {
		var rec *models.ReplyRecord
		outcome := ctl.Retry(ctx, entry, func(ctx context.Context) error {
			var perr error
			rec, perr = r.processAccount(ctx, entry.Account, coord)
			return perr
		})
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		record(entry.Account.Username, outcome, rec)
		if j < len(queue)-1 {
			if err := r.delay(ctx, "следующим повтором"); err != nil {
				return res, err
			}
		}
	}
	metrics.CooldownSeconds.Add(ctl.Stalled().Seconds())

	logger.Info().
		Int("total", res.Total).
		Int("success", len(res.Success)).
		Int("fail", len(res.Fail)).
		Int("replies", len(res.Replies)).
		Msg("[RUN] итог")

	if err := r.persist(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Runner) noteRateLimit(ctx context.Context, username string, cause error) {
	metrics.RateLimits.WithLabelValues("account").Inc()
	if r.Store == nil {
		return
	}
	wait := forum.DefaultRateLimitWait
	if rl, ok := forum.AsRateLimit(cause); ok {
		wait = rl.Wait
	}
	until := r.now().Add(backoff.CooldownFor(wait))
	if err := r.Store.MarkRateLimited(ctx, username, wait, until); err != nil {
		log.Warn().Err(err).Str("account", username).Msg("[DB] не удалось отметить лимит")
	}
}

// ErrPersist — не удалось сохранить результат запуска.
var ErrPersist = errors.New("не удалось сохранить результат запуска")

func (r *Runner) persist(ctx context.Context, res models.RunResult) error {
	path, err := WriteResult(r.ResultsDir, res)
	if err != nil {
		log.Error().Err(err).Str("dir", r.ResultsDir).Int("job", res.JobIndex).Msg("[RUN] файл результата не записан")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	log.Info().Str("file", path).Msg("[RUN] результат сохранён")

	if r.Store != nil {
		err := backoff.Retry(ctx, "save-run-result", func() error { return r.Store.SaveRunResult(ctx, res) })
		if err != nil {
			log.Warn().Err(err).Msg("[DB] результат запуска не сохранён в базе")
		}
	}
	return nil
}

func (r *Runner) notify(ctx context.Context, text string) {
	if r.Notifier == nil {
		return
	}
	err := backoff.Retry(ctx, "notify", func() error { return r.Notifier.Notify(ctx, text) })
	if err != nil {
		log.Warn().Err(err).Msg("[NOTIFY] уведомление не отправлено")
	}
}

// processAccount проводит аккаунт через все фазы. Возвращает запись об
// ответе, если он опубликован. Ошибка означает, что аккаунт не обработан:
// отказ логина или лимит запросов.
func (r *Runner) processAccount(ctx context.Context, acc models.Account, coord *selection.Coordinator) (*models.ReplyRecord, error) {
	username := acc.Username
	sess, err := r.Dial()
	if err != nil {
		return nil, fmt.Errorf("сессия %s: %w", username, err)
	}

	if err := sess.Login(ctx, username, acc.Password); err != nil {
		log.Error().Err(err).Str("account", username).Msg("[LOGIN] вход не выполнен")
		return nil, err
	}

	p := common.NewPersonality(rand.New(rand.NewSource(r.Rand.Int63())), r.Sleeper)
	b := &browse.Browser{Forum: sess, P: p, Username: username}
	now := r.now()
	status := fmt.Sprintf("✅ %s: вход выполнен", username)

	if r.BrowseEnabled {
		if p.Chance(browseSkipChance) {
			log.Info().Str("account", username).Msg("[BROWSE] только вход, просмотр пропущен")
		} else {
			st, err := b.Browse(ctx)
			metrics.TopicsRead.Add(float64(st.Read))
			metrics.Likes.Add(float64(st.Liked))
			if err != nil {
				return nil, err
			}
			status += fmt.Sprintf(", прочитано тем: %d", st.Read)
		}
	}

	if decision := schedule.ExtrasDecision(username, now); decision.Active {
		st, err := b.Extras(ctx)
		if err != nil {
			return nil, err
		}
		log.Info().Str("account", username).Int("revisited", st.Revisited).Int("bookmarked", st.Bookmarked).Msg("[EXTRAS] выполнено")
	} else {
		log.Debug().Str("account", username).Str("reason", decision.Reason()).Msg("[EXTRAS] не сегодня")
	}

	var rec *models.ReplyRecord
	if r.ReplyEnabled {
		rec, err = r.replyPhase(ctx, sess, p, username, now, coord)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			status += fmt.Sprintf(", ответ в теме %d", rec.TopicID)
		}
	}

	r.notify(ctx, status)
	return rec, nil
}
