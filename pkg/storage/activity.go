package storage

import (
	"context"

	"engage_go/models"
)

// SaveReply сохраняет опубликованный ответ. Повторная запись для той же пары
// (аккаунт, тема) игнорируется.
func (db *DB) SaveReply(ctx context.Context, runID string, rec models.ReplyRecord) error {
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO replies (username, topic_id, topic_title, reply_text, source, run_id)
		 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
		rec.Username, rec.TopicID, rec.TopicTitle, rec.ReplyText, rec.Source, runID,
	)
	return err
}

// HasReply проверяет, отвечал ли аккаунт в теме в любом из прошлых запусков.
func (db *DB) HasReply(ctx context.Context, username string, topicID int) (bool, error) {
	var exists bool
	err := db.Conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM replies WHERE lower(username) = lower($1) AND topic_id = $2)`,
		username, topicID,
	).Scan(&exists)
	return exists, err
}
