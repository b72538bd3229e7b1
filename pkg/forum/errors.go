package forum

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRateLimitWait используется, когда сервер не сообщил время ожидания.
const DefaultRateLimitWait = 60 * time.Second

// ErrAuthFailed — логин отклонён или не подтвердился. Для аккаунта это конец запуска.
var ErrAuthFailed = errors.New("авторизация не удалась")

// RateLimitError — ответ 429. Wait — рекомендованное сервером время ожидания.
type RateLimitError struct {
	Wait time.Duration
	Path string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("превышен лимит запросов на %s, ожидание %s", e.Path, e.Wait)
}

// AsRateLimit извлекает RateLimitError из цепочки ошибок.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// StatusError — неожиданный код ответа.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: статус %d: %s", e.Method, e.Path, e.Code, e.Body)
}
