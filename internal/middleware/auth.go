package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"engage_go/internal/httputil"
)

// AuthRequired пропускает запрос только с заголовком "Authorization: Bearer <token>".
// Пустой token закрывает маршрут полностью.
func AuthRequired(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			httputil.RespondError(c, http.StatusServiceUnavailable, "токен API не настроен")
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
