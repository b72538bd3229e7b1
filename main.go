package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"engage_go/internal/jobs"
	"engage_go/internal/schedules"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "engage",
		Usage: "сценарии активности нескольких аккаунтов на форуме",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
			&cli.BoolFlag{Name: "log-json", EnvVars: []string{"LOG_JSON"}},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			runCommand,
			serveCommand,
			summaryCommand,
			scheduleCommand,
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("[MAIN] завершение с ошибкой")
		stop()
		os.Exit(1)
	}
}

// setupLogging настраивает глобальный логгер: консоль по умолчанию, JSON по флагу.
func setupLogging(c *cli.Context) error {
	level, err := zerolog.ParseLevel(strings.ToLower(c.String("log-level")))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !c.Bool("log-json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	return nil
}

// Функция получения порта из переменных окружения
func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

// Настройка маршрутов
func setupRouter(jobsHandler *jobs.Handler, scheduleHandler *schedules.Handler, token string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// Группа роутов запуска воркеров
	jobs.SetupRoutes(r.Group("/run"), jobsHandler, token)

	// Просмотр расписания и разбиения
	schedules.SetupRoutes(r, scheduleHandler)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for _, route := range r.Routes() {
		log.Debug().Msgf("[ROUTER] %s %s", route.Method, route.Path)
	}
	return r
}

// requestLogger пишет каждый запрос в zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("[ROUTER] запрос")
	}
}
