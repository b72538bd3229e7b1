// Package jobs запускает и отменяет воркеры через HTTP.
package jobs

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"engage_go/internal/config"
	"engage_go/internal/httputil"
	"engage_go/models"
)

// Состояния запуска.
const (
	StateRunning   = "running"
	StateDone      = "done"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// RunRequest — тело POST /run.
type RunRequest struct {
	JobIndex   int  `json:"job_index"`
	JobTotal   int  `json:"job_total" binding:"required"`
	ForceReply bool `json:"force_reply"`
}

// History — сохранённые результаты прошлых запусков.
type History interface {
	RecentRunResults(ctx context.Context, limit int) ([]models.RunResult, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// RunFunc выполняет один воркер до конца.
type RunFunc func(ctx context.Context, req RunRequest) (models.RunResult, error)

// Status — последнее известное состояние воркера.
type Status struct {
	JobIndex   int               `json:"job_index"`
	JobTotal   int               `json:"job_total"`
	State      string            `json:"state"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Result     *models.RunResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type Handler struct {
	base    context.Context
	run     RunFunc
	locks   *Locks
	history History

	mu     sync.Mutex
	tasks  map[int]context.CancelFunc
	status map[int]*Status
	wg     sync.WaitGroup
}

// NewHandler создаёт обработчик. base отменяется при остановке сервера
// и отменяет все запущенные воркеры.
func NewHandler(base context.Context, run RunFunc) *Handler {
	return &Handler{
		base:   base,
		run:    run,
		locks:  NewLocks(),
		tasks:  make(map[int]context.CancelFunc),
		status: make(map[int]*Status),
	}
}

// WithHistory подключает хранилище для GET /run/history.
func (h *Handler) WithHistory(store History) *Handler {
	h.history = store
	return h
}

// Start запускает воркер в отдельной горутине.
func (h *Handler) Start(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := (config.Worker{Index: req.JobIndex, Total: req.JobTotal}).Validate(); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.locks.Lock(req.JobIndex); err != nil {
		httputil.RespondError(c, http.StatusConflict, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(h.base)
	st := &Status{JobIndex: req.JobIndex, JobTotal: req.JobTotal, State: StateRunning, StartedAt: time.Now().UTC()}
	h.mu.Lock()
	h.tasks[req.JobIndex] = cancel
	h.status[req.JobIndex] = st
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.locks.Unlock(req.JobIndex)
		defer cancel()

		res, err := h.run(ctx, req)
		h.finish(req.JobIndex, res, err)
	}()

	log.Info().Int("job", req.JobIndex).Int("total", req.JobTotal).Msg("[ROUTER] воркер запущен")
	c.JSON(http.StatusAccepted, gin.H{"status": "запущено", "job_index": req.JobIndex})
}

func (h *Handler) finish(jobIndex int, res models.RunResult, err error) {
	now := time.Now().UTC()
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tasks, jobIndex)
	st := h.status[jobIndex]
	st.FinishedAt = &now
	switch {
	case err == nil:
		st.State = StateDone
		st.Result = &res
	case errors.Is(err, context.Canceled):
		st.State = StateCancelled
	default:
		st.State = StateFailed
		st.Error = err.Error()
	}
	log.Info().Int("job", jobIndex).Str("state", st.State).Msg("[ROUTER] воркер завершён")
}

// CancelAll отменяет все запущенные воркеры.
func (h *Handler) CancelAll(c *gin.Context) {
	h.mu.Lock()
	n := len(h.tasks)
	for id, cancel := range h.tasks {
		cancel()
		delete(h.tasks, id)
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "все воркеры остановлены", "cancelled": n})
}

// Statuses отдаёт состояния всех воркеров, запускавшихся через сервер.
func (h *Handler) Statuses(c *gin.Context) {
	c.JSON(http.StatusOK, h.Snapshot())
}

// RecentResults отдаёт последние сохранённые результаты, новые первыми.
// Без хранилища маршрут недоступен.
func (h *Handler) RecentResults(c *gin.Context) {
	if h.history == nil {
		httputil.RespondError(c, http.StatusServiceUnavailable, "история запусков не настроена")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 {
		httputil.RespondError(c, http.StatusBadRequest, "limit должен быть положительным целым")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	results, err := h.history.RecentRunResults(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondErr(c, http.StatusInternalServerError, "не удалось прочитать историю", err)
		return
	}
	if results == nil {
		results = []models.RunResult{}
	}
	c.JSON(http.StatusOK, results)
}

// Snapshot — копия состояний, упорядоченная по индексу.
func (h *Handler) Snapshot() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Status, 0, len(h.status))
	for _, st := range h.status {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobIndex < out[j].JobIndex })
	return out
}

// Wait ждёт завершения всех запущенных горутин.
func (h *Handler) Wait() {
	h.wg.Wait()
}
