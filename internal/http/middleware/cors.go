package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
)

// CORS is permissive by default and configurable via CORS_ALLOWED_ORIGINS
// (comma-separated), since the webhook endpoints are server-to-server but
// the read-only introspection endpoints may be called from a dashboard.
func CORS() gin.HandlerFunc {
	raw := envutil.String("CORS_ALLOWED_ORIGINS", "*")
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
	}
	if raw == "*" {
		cfg.AllowAllOrigins = true
	} else {
		origins := strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
