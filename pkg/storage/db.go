// Package storage хранит в Postgres историю ответов, результаты запусков,
// отметки лимитов и сессию Telegram-бота.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type DB struct {
	Conn *sql.DB
}

func NewDB(conn *sql.DB) *DB {
	return &DB{Conn: conn}
}

// Open подключается к Postgres и проверяет соединение.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres недоступен: %w", err)
	}
	return NewDB(conn), nil
}

func (db *DB) Close() error {
	return db.Conn.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS replies (
		id          SERIAL PRIMARY KEY,
		username    TEXT NOT NULL,
		topic_id    INTEGER NOT NULL,
		topic_title TEXT NOT NULL DEFAULT '',
		reply_text  TEXT NOT NULL,
		source      TEXT NOT NULL DEFAULT '',
		run_id      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (username, topic_id)
	)`,
	`CREATE TABLE IF NOT EXISTS run_results (
		run_id     TEXT PRIMARY KEY,
		job_index  INTEGER NOT NULL,
		total      INTEGER NOT NULL,
		success    TEXT[] NOT NULL DEFAULT '{}',
		fail       TEXT[] NOT NULL DEFAULT '{}',
		replies    JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		id           SERIAL PRIMARY KEY,
		username     TEXT NOT NULL,
		wait_seconds INTEGER NOT NULL,
		until        TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bot_session (
		bot_key    TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// InitSchema создаёт таблицы, если их ещё нет.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Conn.ExecContext(ctx, stmt); err != nil {
			log.Error().Err(err).Msg("[DB] не удалось создать схему")
			return err
		}
	}
	return nil
}
