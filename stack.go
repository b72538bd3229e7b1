package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"engage_go/internal/common"
	"engage_go/internal/config"
	"engage_go/internal/metrics"
	"engage_go/internal/orchestrator"
	"engage_go/internal/partition"
	"engage_go/internal/reply"
	"engage_go/internal/runstate"
	"engage_go/models"
	"engage_go/pkg/forum"
	"engage_go/pkg/gemini"
	"engage_go/pkg/storage"
	"engage_go/pkg/telegram/notify"
)

// stack — внешние зависимости процесса. Всё, кроме ростера, необязательно.
type stack struct {
	roster   []models.Account
	forumURL string
	timezone string
	pushURL  string

	db       *storage.DB
	rdb      *redis.Client
	model    reply.TextModel
	notifier orchestrator.Notifier
}

func openDB(ctx context.Context, c *cli.Context) (*storage.DB, error) {
	dsn := c.String("database-url")
	if dsn == "" {
		return nil, nil
	}
	db, err := storage.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("[DB] хранилище подключено")
	return db, nil
}

func openNotifier(c *cli.Context, db *storage.DB) orchestrator.Notifier {
	cfg := notify.Config{
		AppID:    c.Int("telegram-app-id"),
		AppHash:  c.String("telegram-app-hash"),
		BotToken: c.String("telegram-bot-token"),
		Chat:     c.String("telegram-chat"),
	}
	if !cfg.Enabled() {
		log.Info().Msg("[NOTIFY] уведомления выключены")
		return nil
	}
	var n *notify.Notifier
	var err error
	if db != nil {
		n, err = notify.New(cfg, db)
	} else {
		n, err = notify.New(cfg, nil)
	}
	if err != nil {
		log.Warn().Err(err).Msg("[NOTIFY] уведомления выключены")
		return nil
	}
	return n
}

func openStack(c *cli.Context) (*stack, error) {
	ctx := c.Context
	roster, err := config.Roster(c.String("accounts-json"), c.String("username"), c.String("password"))
	if err != nil {
		return nil, err
	}
	s := &stack{roster: roster, forumURL: c.String("forum-url"), timezone: c.String("forum-timezone"), pushURL: c.String("pushgateway-url")}

	if s.db, err = openDB(ctx, c); err != nil {
		return nil, err
	}
	if url := c.String("redis-url"); url != "" {
		if s.rdb, err = runstate.NewRedisClient(ctx, url); err != nil {
			s.Close()
			return nil, err
		}
		log.Info().Msg("[RUN] общий для воркеров учёт тем и фраз через redis")
	}
	if key := c.String("gemini-api-key"); key != "" {
		m, err := gemini.New(ctx, key, c.String("gemini-model"), c.Int("gemini-rpm"))
		if err != nil {
			log.Warn().Err(err).Msg("[REPLY] модель недоступна, только запасные фразы")
		} else {
			log.Info().Str("model", m.Model()).Msg("[REPLY] модель подключена")
			s.model = m
		}
	}
	s.notifier = openNotifier(c, s.db)
	return s, nil
}

func (s *stack) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// runWorker разбивает ростер на сегодня и прогоняет свою часть.
func (s *stack) runWorker(ctx context.Context, cfg orchestrator.Config) (models.RunResult, error) {
	if err := (config.Worker{Index: cfg.JobIndex, Total: cfg.JobTotal}).Validate(); err != nil {
		return models.RunResult{}, err
	}
	now := time.Now()
	day := partition.DailySeed(now)
	part, err := partition.Partition(s.roster, cfg.JobIndex, cfg.JobTotal, day)
	if err != nil {
		return models.RunResult{}, err
	}
	log.Info().
		Int("job", cfg.JobIndex).
		Int("total", cfg.JobTotal).
		Int("roster", len(s.roster)).
		Int("accounts", len(part)).
		Msg("[RUN] разбиение ростера")

	rnd := rand.New(rand.NewSource(now.UnixNano()))
	r := &orchestrator.Runner{
		Config:    cfg,
		Dial:      orchestrator.ForumDialer(s.forumURL, forum.WithTimezone(s.timezone)),
		Generator: reply.NewGenerator(s.model, rnd),
		State:     runstate.NewMemoryRun(),
		Sleeper:   common.RealSleeper,
		Rand:      rnd,
		Roster:    s.roster,
		Notifier:  s.notifier,
	}
	if s.rdb != nil {
		r.State = runstate.NewRedisRun(s.rdb, day)
	}
	if s.db != nil {
		r.Store = s.db
		r.History = s.db
	}

	res, err := r.Run(ctx, part)
	if s.pushURL != "" {
		if perr := metrics.Push(s.pushURL, cfg.JobIndex); perr != nil {
			log.Warn().Err(perr).Msg("[RUN] метрики не отправлены")
		}
	}
	if err != nil {
		return res, fmt.Errorf("воркер %d: %w", cfg.JobIndex, err)
	}
	return res, nil
}

func workerConfig(c *cli.Context) orchestrator.Config {
	return orchestrator.Config{
		JobIndex:      c.Int("job-index"),
		JobTotal:      c.Int("job-total"),
		AccountDelay:  time.Duration(c.Int("account-delay")) * time.Second,
		BrowseEnabled: c.Bool("browse"),
		ReplyEnabled:  c.Bool("reply"),
		ForceReply:    c.Bool("force-reply"),
		ResultsDir:    c.String("results-dir"),
	}
}
