// Package notify отправляет статусы запуска в Telegram от имени бота.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog/log"
)

// Config — параметры приложения и бота.
type Config struct {
	AppID    int
	AppHash  string
	BotToken string
	// Chat — @username канала или чата либо ссылка t.me.
	Chat string
}

// Enabled сообщает, заданы ли все параметры.
func (c Config) Enabled() bool {
	return c.AppID != 0 && c.AppHash != "" && c.BotToken != "" && c.Chat != ""
}

// Notifier открывает MTProto-соединение на каждое сообщение: сообщения
// редкие, держать соединение весь запуск незачем.
type Notifier struct {
	cfg     Config
	session session.Storage
}

// New создаёт отправителя. Без store сессия живёт в памяти процесса.
func New(cfg Config, store SessionStore) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("telegram: не заданы app id, app hash, токен бота или чат")
	}
	var st session.Storage = &session.StorageMemory{}
	if store != nil {
		st = &botSession{store: store, key: BotKey(cfg.BotToken)}
	}
	return &Notifier{cfg: cfg, session: st}, nil
}

func (n *Notifier) client() *telegram.Client {
	return telegram.NewClient(n.cfg.AppID, n.cfg.AppHash, telegram.Options{
		SessionStorage: n.session,
		NoUpdates:      true,
	})
}

// Notify отправляет текст в настроенный чат.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	client := n.client()
	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("статус авторизации: %w", err)
		}
		if !status.Authorized {
			if _, err := client.Auth().Bot(ctx, n.cfg.BotToken); err != nil {
				return fmt.Errorf("авторизация бота: %w", err)
			}
		}
		sender := message.NewSender(tg.NewClient(client))
		if _, err := sender.Resolve(n.cfg.Chat).Text(ctx, text); err != nil {
			return fmt.Errorf("отправка в %s: %w", n.cfg.Chat, err)
		}
		log.Debug().Str("chat", n.cfg.Chat).Msg("[NOTIFY] сообщение отправлено")
		return nil
	})
}
