package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gotd/td/session"
	"github.com/rs/zerolog/log"
)

// SessionStore — постоянное хранилище сессий ботов.
type SessionStore interface {
	LoadBotSession(ctx context.Context, botKey string) ([]byte, bool, error)
	StoreBotSession(ctx context.Context, botKey string, data []byte) error
}

// BotKey — ключ сессии для токена. Сам токен в БД не попадает,
// а смена токена даёт новый ключ и новую авторизацию.
func BotKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// botSession привязывает session.Storage к одному боту.
type botSession struct {
	store SessionStore
	key   string
}

func (s *botSession) LoadSession(ctx context.Context) ([]byte, error) {
	data, found, err := s.store.LoadBotSession(ctx, s.key)
	if err != nil {
		log.Error().Err(err).Str("bot", s.key).Msg("[NOTIFY] ошибка чтения сессии")
		return nil, err
	}
	if !found {
		return nil, session.ErrNotFound
	}
	return data, nil
}

func (s *botSession) StoreSession(ctx context.Context, data []byte) error {
	if err := s.store.StoreBotSession(ctx, s.key, data); err != nil {
		log.Error().Err(err).Str("bot", s.key).Msg("[NOTIFY] ошибка сохранения сессии")
		return err
	}
	return nil
}
