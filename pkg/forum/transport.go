package forum

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// leveledZerolog пишет журнал retryablehttp через глобальный zerolog.
// Ошибки промежуточных попыток понижаются до WARN: за ними будут повторы.
type leveledZerolog struct{}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			out[k] = keysAndValues[i+1]
		}
	}
	return out
}

func (leveledZerolog) Error(msg string, kv ...interface{}) {
	log.Warn().Str("subsystem", "forum-http").Fields(fields(kv)).Msg(msg)
}

func (leveledZerolog) Warn(msg string, kv ...interface{}) {
	log.Warn().Str("subsystem", "forum-http").Fields(fields(kv)).Msg(msg)
}

func (leveledZerolog) Info(msg string, kv ...interface{}) {
	log.Debug().Str("subsystem", "forum-http").Fields(fields(kv)).Msg(msg)
}

func (leveledZerolog) Debug(msg string, kv ...interface{}) {
	log.Trace().Str("subsystem", "forum-http").Fields(fields(kv)).Msg(msg)
}

type noRetryKey struct{}

// withoutRetry помечает запрос как однократный. Публикация не повторяется:
// первая попытка могла дойти до форума, даже если ответ потерян.
func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

// RetryPolicy повторяет запросы при сетевых ошибках и 5xx, но 429 отдаёт
// вызывающему коду: ожиданием по лимиту управляет контроллер запуска.
// Запросы с контекстом withoutRetry не повторяются никогда.
func RetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if once, _ := ctx.Value(noRetryKey{}).(bool); once {
		return false, err
	}
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	if err == nil {
		// последний 5xx отдаётся как ответ, код разбирает Client.do
		return retry, nil
	}
	return retry, checkErr
}

// jitter — разброс паузы между повторами, чтобы аккаунты не повторяли синхронно.
const jitter = 0.25

// JitterBackoff: min * 2^attempt, не больше max, затем ±25%.
func JitterBackoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	d := time.Duration(float64(min) * math.Pow(2, float64(attemptNum)))
	if d > max || d <= 0 {
		d = max
	}
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(delta)
}

// newHTTPClient собирает http.Client поверх retryablehttp.
func newHTTPClient(retries int, jar http.CookieJar) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	rc.RetryMax = retries
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledZerolog{})
	rc.CheckRetry = RetryPolicy
	rc.Backoff = JitterBackoff
	// после исчерпания повторов отдаём последний ответ как есть
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := rc.StandardClient()
	client.Timeout = 30 * time.Second
	client.Jar = jar
	return client
}
