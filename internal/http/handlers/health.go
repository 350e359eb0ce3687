package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/redis"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/data/db"
)

type HealthHandler struct {
	db    *db.PostgresService
	redis *redis.Client
}

func NewHealthHandler(postgres *db.PostgresService, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: postgres, redis: redisClient}
}

// HealthCheck reports 200 only when both the database and Redis answer; a
// deployment orchestrator uses this to decide whether to route traffic in.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB().DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "component": "postgres"})
		return
	}
	if err := h.redis.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "component": "redis"})
		return
	}
	c.String(http.StatusOK, "ok")
}
