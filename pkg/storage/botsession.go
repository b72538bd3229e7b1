package storage

import (
	"context"
	"database/sql"
	"errors"
)

// LoadBotSession возвращает сохранённую MTProto-сессию бота по ключу.
// found=false, если бот ещё не авторизовывался.
func (db *DB) LoadBotSession(ctx context.Context, botKey string) (data []byte, found bool, err error) {
	err = db.Conn.QueryRowContext(ctx, `SELECT data FROM bot_session WHERE bot_key = $1`, botKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// StoreBotSession перезаписывает сессию бота.
func (db *DB) StoreBotSession(ctx context.Context, botKey string, data []byte) error {
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO bot_session (bot_key, data) VALUES ($1, $2)
		ON CONFLICT (bot_key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		botKey, data,
	)
	return err
}
