package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"engage_go/models"
)

// dummyDriver предоставляет минимальную реализацию драйвера SQL
// для перехвата выполняемых запросов без реальной БД.
type dummyDriver struct{}

type dummyConn struct{}

type dummyResult struct{}

type execCall struct {
	query string
	args  []driver.Value
}

// executedQueries хранит все запросы Exec, чтобы проверять их содержимое.
var executedQueries []execCall

// nextRows — строки, которые вернёт следующий Query.
var (
	nextColumns []string
	nextRows    [][]driver.Value
)

func (d *dummyDriver) Open(name string) (driver.Conn, error) { return &dummyConn{}, nil }

func (c *dummyConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not implemented")
}
func (c *dummyConn) Close() error              { return nil }
func (c *dummyConn) Begin() (driver.Tx, error) { return nil, errors.New("not implemented") }

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

// ExecContext сохраняет текст запроса и всегда успешно завершается.
func (c *dummyConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	executedQueries = append(executedQueries, execCall{query: query, args: values(args)})
	return dummyResult{}, nil
}

func (c *dummyConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	executedQueries = append(executedQueries, execCall{query: query, args: values(args)})
	return &dummyRows{cols: nextColumns, rows: nextRows}, nil
}

func (dummyResult) LastInsertId() (int64, error) { return 0, nil }
func (dummyResult) RowsAffected() (int64, error) { return 1, nil }

type dummyRows struct {
	cols []string
	rows [][]driver.Value
	pos  int
}

func (r *dummyRows) Columns() []string { return r.cols }
func (r *dummyRows) Close() error      { return nil }
func (r *dummyRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

func init() {
	sql.Register("dummy", &dummyDriver{})
}

func openDummy(t *testing.T) *DB {
	t.Helper()
	executedQueries = nil
	nextColumns, nextRows = nil, nil
	conn, err := sql.Open("dummy", "")
	if err != nil {
		t.Fatalf("не удалось открыть фейковую БД: %v", err)
	}
	return NewDB(conn)
}

// TestSaveReplyDuplicate проверяет, что повторная вставка ответа не вызывает
// ошибку и запрос содержит ON CONFLICT DO NOTHING.
func TestSaveReplyDuplicate(t *testing.T) {
	db := openDummy(t)
	rec := models.ReplyRecord{Username: "alice", TopicID: 42, TopicTitle: "t", ReplyText: "спасибо", Source: models.ReplySourcePool}

	for i := 0; i < 2; i++ {
		if err := db.SaveReply(context.Background(), "run-1", rec); err != nil {
			t.Fatalf("вставка %d завершилась ошибкой: %v", i+1, err)
		}
	}
	if len(executedQueries) != 2 {
		t.Fatalf("ожидалось 2 запроса, получено %d", len(executedQueries))
	}
	for _, q := range executedQueries {
		if !strings.Contains(q.query, "ON CONFLICT DO NOTHING") {
			t.Fatalf("в запросе отсутствует ON CONFLICT DO NOTHING: %s", q.query)
		}
	}
	if got := executedQueries[0].args[5]; got != "run-1" {
		t.Fatalf("ожидался run_id run-1, получено %v", got)
	}
}

func TestHasReply(t *testing.T) {
	db := openDummy(t)
	nextColumns = []string{"exists"}
	nextRows = [][]driver.Value{{true}}

	ok, err := db.HasReply(context.Background(), "Alice", 42)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !ok {
		t.Fatal("ожидалось true")
	}
	if !strings.Contains(executedQueries[0].query, "lower(username)") {
		t.Fatalf("сравнение имени должно быть без учёта регистра: %s", executedQueries[0].query)
	}
}

func TestSaveRunResult(t *testing.T) {
	db := openDummy(t)
	res := models.RunResult{
		JobIndex: 1, RunID: "r", Total: 2,
		Success: []string{"a"}, Fail: []string{"b"},
		Replies: []models.ReplyRecord{{Username: "a", TopicID: 1, ReplyText: "x"}},
	}
	if err := db.SaveRunResult(context.Background(), res); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	args := executedQueries[0].args
	if args[3] != `{"a"}` {
		t.Fatalf("success сериализован неверно: %v", args[3])
	}
	if !strings.Contains(args[5].(string), `"topic_id":1`) {
		t.Fatalf("ответы сериализованы неверно: %v", args[5])
	}
}

func TestRecentRunResults(t *testing.T) {
	db := openDummy(t)
	nextColumns = []string{"run_id", "job_index", "total", "success", "fail", "replies"}
	nextRows = [][]driver.Value{
		{"r2", int64(0), int64(3), []byte(`{alice,bob}`), []byte(`{carol}`), []byte(`[{"username":"alice","topic_id":7,"topic_title":"t","reply_text":"x"}]`)},
	}

	out, err := db.RecentRunResults(context.Background(), 5)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("ожидалась 1 запись, получено %d", len(out))
	}
	got := out[0]
	if got.Total != 3 || len(got.Success) != 2 || got.Fail[0] != "carol" || got.Replies[0].TopicID != 7 {
		t.Fatalf("запись разобрана неверно: %+v", got)
	}
}

func TestMarkRateLimited(t *testing.T) {
	db := openDummy(t)
	until := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	if err := db.MarkRateLimited(context.Background(), "alice", 50*time.Second, until); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if executedQueries[0].args[1] != int64(50) {
		t.Fatalf("ожидалось 50 секунд, получено %v", executedQueries[0].args[1])
	}
}

func TestInitSchema(t *testing.T) {
	db := openDummy(t)
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(executedQueries) != len(schema) {
		t.Fatalf("ожидалось %d запросов, получено %d", len(schema), len(executedQueries))
	}
}

func TestBotSessionMissing(t *testing.T) {
	db := openDummy(t)
	nextColumns = []string{"data"}

	data, found, err := db.LoadBotSession(context.Background(), "k1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if found || data != nil {
		t.Fatalf("сессии быть не должно: %v %q", found, data)
	}
	if executedQueries[0].args[0] != "k1" {
		t.Fatalf("ожидался ключ k1, получено %v", executedQueries[0].args[0])
	}
}

func TestBotSessionRoundTrip(t *testing.T) {
	db := openDummy(t)
	if err := db.StoreBotSession(context.Background(), "k1", []byte(`{"dc":2}`)); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !strings.Contains(executedQueries[0].query, "ON CONFLICT (bot_key)") {
		t.Fatalf("сессия должна перезаписываться: %s", executedQueries[0].query)
	}

	nextColumns = []string{"data"}
	nextRows = [][]driver.Value{{[]byte(`{"dc":2}`)}}
	data, found, err := db.LoadBotSession(context.Background(), "k1")
	if err != nil || !found {
		t.Fatalf("сессия не прочитана: %v %v", found, err)
	}
	if string(data) != `{"dc":2}` {
		t.Fatalf("получено %q", data)
	}
}
