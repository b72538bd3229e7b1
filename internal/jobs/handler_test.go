package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engage_go/models"
)

const token = "t0ken"

func setup(run RunFunc) (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(context.Background(), run)
	r := gin.New()
	SetupRoutes(r.Group("/run"), h, token)
	return r, h
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func statuses(t *testing.T, r http.Handler) []Status {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/run/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out []Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestStartRunsToCompletion(t *testing.T) {
	r, h := setup(func(ctx context.Context, req RunRequest) (models.RunResult, error) {
		return models.RunResult{JobIndex: req.JobIndex, Total: 2, Success: []string{"a", "b"}}, nil
	})

	w := post(r, "/run", `{"job_index":1,"job_total":2}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	h.Wait()

	st := statuses(t, r)
	require.Len(t, st, 1)
	assert.Equal(t, StateDone, st[0].State)
	require.NotNil(t, st[0].Result)
	assert.Equal(t, 2, st[0].Result.Total)
	assert.NotNil(t, st[0].FinishedAt)
}

func TestSameJobIndexIsExclusive(t *testing.T) {
	started := make(chan struct{}, 2)
	r, h := setup(func(ctx context.Context, req RunRequest) (models.RunResult, error) {
		started <- struct{}{}
		<-ctx.Done()
		return models.RunResult{}, ctx.Err()
	})

	require.Equal(t, http.StatusAccepted, post(r, "/run", `{"job_index":0,"job_total":2}`).Code)
	<-started
	assert.Equal(t, http.StatusConflict, post(r, "/run", `{"job_index":0,"job_total":2}`).Code)
	require.Equal(t, http.StatusAccepted, post(r, "/run", `{"job_index":1,"job_total":2}`).Code)
	<-started

	w := post(r, "/run/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled":2`)
	h.Wait()

	for _, st := range statuses(t, r) {
		assert.Equal(t, StateCancelled, st.State)
	}
	// после завершения индекс снова свободен
	assert.Equal(t, http.StatusAccepted, post(r, "/run", `{"job_index":0,"job_total":2}`).Code)
	post(r, "/run/cancel", "")
	h.Wait()
}

func TestStartValidation(t *testing.T) {
	r, _ := setup(func(ctx context.Context, req RunRequest) (models.RunResult, error) {
		t.Fatal("воркер не должен запускаться")
		return models.RunResult{}, nil
	})
	assert.Equal(t, http.StatusBadRequest, post(r, "/run", `{"job_index":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/run", `{"job_index":3,"job_total":2}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/run", `not json`).Code)
}

func TestFailedRunRecordsError(t *testing.T) {
	r, h := setup(func(ctx context.Context, req RunRequest) (models.RunResult, error) {
		return models.RunResult{}, assert.AnError
	})
	require.Equal(t, http.StatusAccepted, post(r, "/run", `{"job_index":0,"job_total":1}`).Code)
	h.Wait()
	st := statuses(t, r)
	require.Len(t, st, 1)
	assert.Equal(t, StateFailed, st[0].State)
	assert.Equal(t, assert.AnError.Error(), st[0].Error)
}

func TestMutatingRoutesNeedToken(t *testing.T) {
	r, _ := setup(nil)
	req := httptest.NewRequest(http.MethodPost, "/run/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLocks(t *testing.T) {
	l := NewLocks()
	require.NoError(t, l.Lock(1))
	assert.Error(t, l.Lock(1))
	assert.NoError(t, l.Lock(2))
	l.Unlock(1)
	assert.NoError(t, l.Lock(1))
	l.Unlock(3)
}

type fakeHistory struct {
	results []models.RunResult
	limit   int
	err     error
}

func (f *fakeHistory) RecentRunResults(ctx context.Context, limit int) ([]models.RunResult, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHistoryWithoutStore(t *testing.T) {
	r, _ := setup(nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/run/history").Code)
}

func TestHistoryReturnsRecentResults(t *testing.T) {
	store := &fakeHistory{results: []models.RunResult{
		{JobIndex: 1, Total: 3, Success: []string{"alice"}},
		{JobIndex: 0, Total: 2},
	}}
	r, h := setup(nil)
	h.WithHistory(store)

	w := get(r, "/run/history?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var out []models.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].JobIndex)
	assert.Equal(t, 1, store.limit)

	require.Equal(t, http.StatusOK, get(r, "/run/history").Code)
	assert.Equal(t, defaultHistoryLimit, store.limit)

	require.Equal(t, http.StatusOK, get(r, "/run/history?limit=100000").Code)
	assert.Equal(t, maxHistoryLimit, store.limit)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	r, h := setup(nil)
	h.WithHistory(&fakeHistory{})
	assert.Equal(t, http.StatusBadRequest, get(r, "/run/history?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/run/history?limit=abc").Code)
}

func TestHistoryStoreError(t *testing.T) {
	r, h := setup(nil)
	h.WithHistory(&fakeHistory{err: errors.New("db down")})
	w := get(r, "/run/history")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	r, h := setup(nil)
	h.WithHistory(&fakeHistory{})
	w := get(r, "/run/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
