package jobs

import (
	"github.com/gin-gonic/gin"

	"engage_go/internal/middleware"
)

// SetupRoutes регистрирует маршруты управления запусками.
// Запуск и отмена требуют токен.
func SetupRoutes(r *gin.RouterGroup, h *Handler, token string) {
	auth := middleware.AuthRequired(token)
	r.POST("", auth, h.Start)
	r.POST("/cancel", auth, h.CancelAll)
	r.GET("/status", h.Statuses)
	r.GET("/history", h.RecentResults)
}
