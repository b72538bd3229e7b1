package httputil

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RespondError отвечает {"error": msg} и прерывает цепочку обработчиков.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// RespondErr пишет err в журнал с маршрутом запроса и отдаёт клиенту только msg.
func RespondErr(c *gin.Context, status int, msg string, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Int("status", status).Msg("[ROUTER] " + msg)
	RespondError(c, status, msg)
}
