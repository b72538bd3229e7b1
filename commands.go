package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"engage_go/internal/jobs"
	"engage_go/internal/schedule"
	"engage_go/internal/schedules"
	"engage_go/internal/summary"
	"engage_go/models"
	"engage_go/pkg/forum"
	"engage_go/pkg/gemini"
)

var rosterFlags = []cli.Flag{
	&cli.StringFlag{Name: "accounts-json", Usage: `JSON-список [{"username":..,"password":..}]`, EnvVars: []string{"ACCOUNTS_JSON"}},
	&cli.StringFlag{Name: "username", EnvVars: []string{"LINUXDO_USERNAME", "USERNAME"}},
	&cli.StringFlag{Name: "password", EnvVars: []string{"LINUXDO_PASSWORD", "PASSWORD"}},
}

var forumFlags = []cli.Flag{
	&cli.StringFlag{Name: "forum-url", Value: forum.DefaultBaseURL, EnvVars: []string{"FORUM_BASE_URL"}},
	&cli.StringFlag{Name: "forum-timezone", Usage: "часовой пояс, сообщаемый при логине", Value: "Asia/Shanghai", EnvVars: []string{"FORUM_TIMEZONE"}},
	&cli.StringFlag{Name: "results-dir", Value: ".", EnvVars: []string{"RESULTS_DIR"}},
	&cli.StringFlag{Name: "database-url", Usage: "postgres DSN, история ответов и сессия бота", EnvVars: []string{"DATABASE_URL"}},
}

var telegramFlags = []cli.Flag{
	&cli.IntFlag{Name: "telegram-app-id", EnvVars: []string{"TELEGRAM_APP_ID"}},
	&cli.StringFlag{Name: "telegram-app-hash", EnvVars: []string{"TELEGRAM_APP_HASH"}},
	&cli.StringFlag{Name: "telegram-bot-token", EnvVars: []string{"TELEGRAM_BOT_TOKEN"}},
	&cli.StringFlag{Name: "telegram-chat", EnvVars: []string{"TELEGRAM_CHAT"}},
}

var workerFlags = []cli.Flag{
	&cli.IntFlag{Name: "job-index", EnvVars: []string{"JOB_INDEX"}},
	&cli.IntFlag{Name: "job-total", Value: 1, EnvVars: []string{"JOB_TOTAL"}},
	&cli.IntFlag{Name: "account-delay", Usage: "секунды между аккаунтами", Value: 60, EnvVars: []string{"ACCOUNT_DELAY"}},
	&cli.BoolFlag{Name: "browse", Value: true, EnvVars: []string{"BROWSE_ENABLED"}},
	&cli.BoolFlag{Name: "reply", Value: true, EnvVars: []string{"REPLY_ENABLED"}},
	&cli.BoolFlag{Name: "force-reply", EnvVars: []string{"FORCE_REPLY_ALL"}},
	&cli.StringFlag{Name: "gemini-api-key", EnvVars: []string{"GEMINI_API_KEY"}},
	&cli.StringFlag{Name: "gemini-model", Value: gemini.DefaultModel, EnvVars: []string{"GEMINI_MODEL"}},
	&cli.IntFlag{Name: "gemini-rpm", Value: gemini.DefaultRPM, EnvVars: []string{"GEMINI_RPM"}},
	&cli.StringFlag{Name: "redis-url", Usage: "общий для воркеров учёт занятых тем", EnvVars: []string{"REDIS_URL"}},
	&cli.StringFlag{Name: "pushgateway-url", EnvVars: []string{"PUSHGATEWAY_URL"}},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "обработать свою часть ростера и записать results_job_<idx>.json",
	Flags: flags(rosterFlags, forumFlags, telegramFlags, workerFlags),
	Action: func(c *cli.Context) error {
		s, err := openStack(c)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.runWorker(c.Context, workerConfig(c))
		if err != nil {
			return err
		}
		log.Info().Int("success", len(res.Success)).Int("fail", len(res.Fail)).Msg("[MAIN] воркер завершён")
		return nil
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "HTTP-сервер управления запусками",
	Flags: flags(rosterFlags, forumFlags, telegramFlags, workerFlags, []cli.Flag{
		&cli.StringFlag{Name: "port", Value: getPort()},
		&cli.StringFlag{Name: "api-token", Usage: "Bearer-токен для POST /run", EnvVars: []string{"API_TOKEN"}},
	}),
	Action: func(c *cli.Context) error {
		s, err := openStack(c)
		if err != nil {
			return err
		}
		defer s.Close()

		base := workerConfig(c)
		h := jobs.NewHandler(c.Context, func(ctx context.Context, req jobs.RunRequest) (models.RunResult, error) {
			cfg := base
			cfg.JobIndex = req.JobIndex
			cfg.JobTotal = req.JobTotal
			cfg.ForceReply = cfg.ForceReply || req.ForceReply
			return s.runWorker(ctx, cfg)
		})
		if s.db != nil {
			h.WithHistory(s.db)
		}
		token := c.String("api-token")
		if token == "" {
			log.Warn().Msg("[ROUTER] API_TOKEN не задан, запуск через HTTP закрыт")
		}

		srv := &http.Server{
			Addr:              ":" + c.String("port"),
			Handler:           setupRouter(h, &schedules.Handler{Roster: s.roster}, token),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		log.Info().Str("addr", srv.Addr).Msg("[ROUTER] сервер запущен")

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-c.Context.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("[ROUTER] остановка сервера")
		}
		h.Wait()
		return nil
	},
}

var summaryCommand = &cli.Command{
	Name:  "summary",
	Usage: "собрать результаты всех воркеров и отправить отчёт",
	Flags: flags(forumFlags, telegramFlags),
	Action: func(c *cli.Context) error {
		db, err := openDB(c.Context, c)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		var n summary.Notifier
		if on := openNotifier(c, db); on != nil {
			n = on
		}
		_, text, err := summary.Send(c.Context, c.String("results-dir"), c.String("forum-url"), n)
		if text != "" {
			fmt.Println(text)
		}
		return err
	},
}

var scheduleCommand = &cli.Command{
	Name:      "schedule",
	Usage:     "показать дни ответов и дополнительных действий аккаунта",
	ArgsUsage: "<username>",
	Flags: []cli.Flag{
		&cli.TimestampFlag{Name: "at", Layout: time.RFC3339, Usage: "момент проверки, по умолчанию сейчас"},
	},
	Action: func(c *cli.Context) error {
		username := c.Args().First()
		if username == "" {
			return errors.New("нужно имя аккаунта")
		}
		now := time.Now()
		if at := c.Timestamp("at"); at != nil {
			now = *at
		}
		fmt.Print(describeSchedule(username, now))
		return nil
	},
}

var weekdayNames = []string{"пн", "вт", "ср", "чт", "пт", "сб", "вс"}

func describeSchedule(username string, now time.Time) string {
	var b strings.Builder
	reply := schedule.ReplyDecision(username, now)
	extras := schedule.ExtrasDecision(username, now)
	fmt.Fprintf(&b, "%s: слот %s, неделя %d, сегодня %s, сейчас %s\n",
		username, reply.AssignedSlot, reply.Week, weekdayNames[reply.Weekday], reply.CurrentSlot)
	fmt.Fprintf(&b, "ответы:     %s (%s)\n", dayList(reply.Days), reply.Reason())
	fmt.Fprintf(&b, "дополнения: %s (%s)\n", dayList(extras.Days), extras.Reason())
	return b.String()
}

func dayList(days []int) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = weekdayNames[d]
	}
	return strings.Join(names, ", ")
}
