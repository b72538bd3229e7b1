// Package schedules отдаёт по HTTP расписание аккаунта и разбиение ростера.
package schedules

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"engage_go/internal/config"
	"engage_go/internal/httputil"
	"engage_go/internal/partition"
	"engage_go/internal/schedule"
	"engage_go/models"
)

type Handler struct {
	Roster []models.Account
	Now    func() time.Time
}

// moment берёт время из ?at=RFC3339, иначе текущее.
func (h *Handler) moment(c *gin.Context) (time.Time, bool) {
	if at := c.Query("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			httputil.RespondError(c, http.StatusBadRequest, "параметр at должен быть в формате RFC3339")
			return time.Time{}, false
		}
		return t, true
	}
	if h.Now != nil {
		return h.Now(), true
	}
	return time.Now(), true
}

// Schedule — GET /schedule/:username.
func (h *Handler) Schedule(c *gin.Context) {
	now, ok := h.moment(c)
	if !ok {
		return
	}
	username := c.Param("username")
	c.JSON(http.StatusOK, gin.H{
		"username":      username,
		"assigned_slot": schedule.AssignedSlot(username),
		"reply":         withReason(schedule.ReplyDecision(username, now)),
		"extras":        withReason(schedule.ExtrasDecision(username, now)),
	})
}

func withReason(d schedule.Decision) gin.H {
	return gin.H{
		"week":         d.Week,
		"weekday":      d.Weekday,
		"days":         d.Days,
		"current_slot": d.CurrentSlot,
		"active":       d.Active,
		"reason":       d.Reason(),
	}
}

// Partition — GET /partition?job_index=&job_total=. Отдаёт только имена.
func (h *Handler) Partition(c *gin.Context) {
	now, ok := h.moment(c)
	if !ok {
		return
	}
	idx, err1 := strconv.Atoi(c.DefaultQuery("job_index", "0"))
	total, err2 := strconv.Atoi(c.DefaultQuery("job_total", "1"))
	if err1 != nil || err2 != nil {
		httputil.RespondError(c, http.StatusBadRequest, "job_index и job_total должны быть целыми")
		return
	}
	if err := (config.Worker{Index: idx, Total: total}).Validate(); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	seed := partition.DailySeed(now)
	part, err := partition.Partition(h.Roster, idx, total, seed)
	if err != nil {
		httputil.RespondErr(c, http.StatusInternalServerError, "разбиение не удалось", err)
		return
	}
	names := make([]string, len(part))
	for i, a := range part {
		names[i] = a.Username
	}
	c.JSON(http.StatusOK, gin.H{
		"job_index": idx,
		"job_total": total,
		"seed":      seed,
		"roster":    len(h.Roster),
		"accounts":  names,
	})
}

// SetupRoutes регистрирует маршруты только для чтения.
func SetupRoutes(r gin.IRoutes, h *Handler) {
	r.GET("/schedule/:username", h.Schedule)
	r.GET("/partition", h.Partition)
}
