package orchestrator

import (
	"context"
	"time"

	"engage_go/internal/browse"
	"engage_go/models"
	"engage_go/pkg/forum"
)

// Session — сессия одного аккаунта на форуме.
type Session interface {
	browse.Forum
	Login(ctx context.Context, username, password string) error
	RefreshCSRF(ctx context.Context) (string, error)
	CreatePost(ctx context.Context, topicID int, raw string, opts forum.PostOptions) (int, error)
}

// Dialer создаёт новую сессию для каждого аккаунта.
type Dialer func() (Session, error)

// ForumDialer создаёт сессии через forum.Client.
func ForumDialer(baseURL string, opts ...forum.Option) Dialer {
	return func() (Session, error) {
		c, err := forum.New(baseURL, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Notifier доставляет текстовые статусы.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Store — необязательное постоянное хранилище.
type Store interface {
	SaveReply(ctx context.Context, runID string, rec models.ReplyRecord) error
	MarkRateLimited(ctx context.Context, username string, wait time.Duration, until time.Time) error
	SaveRunResult(ctx context.Context, res models.RunResult) error
}
