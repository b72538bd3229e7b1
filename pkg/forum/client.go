// Package forum реализует клиент JSON-эндпоинтов форума на движке Discourse.
// Один Client соответствует одной сессии одного аккаунта.
package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL — форум по умолчанию.
const DefaultBaseURL = "https://linux.do"

const maxErrorBody = 200

// Client хранит cookie-сессию и CSRF-токен аккаунта.
type Client struct {
	base        *url.URL
	http        *http.Client
	csrf        string
	username    string
	verifyDelay time.Duration
	timezone    string
}

// Option настраивает Client.
type Option func(*config)

type config struct {
	retries     int
	verifyDelay time.Duration
	timezone    string
	httpClient  *http.Client
}

// WithRetries задаёт число повторов транспорта при 5xx и сетевых ошибках.
// По умолчанию 2, то есть три попытки на действие.
func WithRetries(n int) Option { return func(c *config) { c.retries = n } }

// WithVerifyDelay задаёт паузу между попытками подтверждения логина.
func WithVerifyDelay(d time.Duration) Option { return func(c *config) { c.verifyDelay = d } }

// WithTimezone задаёт часовой пояс, который сообщается при логине.
func WithTimezone(tz string) Option { return func(c *config) { c.timezone = tz } }

// WithHTTPClient подменяет транспорт целиком. Cookie jar всё равно создаётся свой.
func WithHTTPClient(hc *http.Client) Option { return func(c *config) { c.httpClient = hc } }

// New создаёт клиента для baseURL с пустой сессией.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("некорректный адрес форума %q: %w", baseURL, err)
	}
	cfg := config{retries: 2, verifyDelay: 3 * time.Second, timezone: "Asia/Shanghai"}
	for _, o := range opts {
		o(&cfg)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = newHTTPClient(cfg.retries, jar)
	} else {
		clone := *hc
		clone.Jar = jar
		hc = &clone
	}
	return &Client{
		base:        base,
		http:        hc,
		verifyDelay: cfg.verifyDelay,
		timezone:    cfg.timezone,
	}, nil
}

// Username — имя, под которым выполнен вход.
func (c *Client) Username() string { return c.username }

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	return req, nil
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
// 429 превращается в RateLimitError, прочие не-2xx в StatusError.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: чтение ответа: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{Wait: parseWait(data), Path: req.URL.Path}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: req.Method, Path: req.URL.Path, Code: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: разбор ответа: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// parseWait достаёт extras.wait_seconds из тела 429.
func parseWait(body []byte) time.Duration {
	var payload struct {
		Extras struct {
			WaitSeconds *float64 `json:"wait_seconds"`
		} `json:"extras"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Extras.WaitSeconds == nil || *payload.Extras.WaitSeconds <= 0 {
		return DefaultRateLimitWait
	}
	return time.Duration(*payload.Extras.WaitSeconds * float64(time.Second))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
