package forum

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const loginVerifyAttempts = 3

// RefreshCSRF получает свежий CSRF-токен. Токен после логина может устареть
// за время долгого просмотра.
func (c *Client) RefreshCSRF(ctx context.Context) (string, error) {
	var payload struct {
		CSRF string `json:"csrf"`
	}
	if err := c.getJSON(ctx, "/session/csrf", &payload); err != nil {
		return "", fmt.Errorf("получение csrf: %w", err)
	}
	if payload.CSRF == "" {
		return "", errors.New("получение csrf: пустой токен")
	}
	c.csrf = payload.CSRF
	return payload.CSRF, nil
}

// Login выполняет вход: CSRF, POST /session и подтверждение через текущего пользователя.
// Отказ сервера возвращает ErrAuthFailed, 429 даёт RateLimitError.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if _, err := c.RefreshCSRF(ctx); err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	form := url.Values{}
	form.Set("login", username)
	form.Set("password", password)
	form.Set("second_factor_method", "1")
	form.Set("timezone", c.timezone)

	var resp struct {
		Error string `json:"error"`
	}
	err := c.postForm(ctx, "/session", form, &resp)
	if err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			log.Warn().Str("account", username).Dur("wait", rl.Wait).Msg("[LOGIN] превышен лимит запросов")
			return err
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return fmt.Errorf("логин %s: %w", username, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.Error)
	}

	for attempt := 1; attempt <= loginVerifyAttempts; attempt++ {
		if err := sleep(ctx, c.verifyDelay); err != nil {
			return err
		}
		current, err := c.CurrentUser(ctx)
		if err == nil && strings.EqualFold(current, username) {
			c.username = current
			log.Info().Str("account", username).Msg("[LOGIN] вход подтверждён")
			return nil
		}
		if _, ok := AsRateLimit(err); ok {
			return err
		}
		log.Warn().Str("account", username).Int("attempt", attempt).Err(err).Msg("[LOGIN] вход не подтверждён")
	}
	return fmt.Errorf("%w: вход не подтвердился после %d попыток", ErrAuthFailed, loginVerifyAttempts)
}

// CurrentUser возвращает имя пользователя текущей сессии.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var payload struct {
		CurrentUser *struct {
			Username string `json:"username"`
		} `json:"current_user"`
	}
	if err := c.getJSON(ctx, "/session/current.json", &payload); err != nil {
		return "", err
	}
	if payload.CurrentUser == nil || payload.CurrentUser.Username == "" {
		return "", errors.New("сессия без пользователя")
	}
	return payload.CurrentUser.Username, nil
}
