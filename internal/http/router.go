package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/http/handlers"
	httpMW "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/http/middleware"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type RouterConfig struct {
	WebhookHandler       *httpH.WebhookHandler
	HealthHandler        *httpH.HealthHandler
	IntrospectionHandler *httpH.IntrospectionHandler
}

func NewRouter(cfg RouterConfig, baseLog *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(baseLog))
	r.Use(httpMW.CORS())
	r.Use(httpMW.Tracing())

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.WebhookHandler != nil {
			api.POST("/waha/webhook", cfg.WebhookHandler.WAHA)
			api.POST("/telegram/webhook", cfg.WebhookHandler.Telegram)
		}

		if cfg.IntrospectionHandler != nil {
			api.GET("/leads/:lead_id", cfg.IntrospectionHandler.GetLead)
			api.GET("/jobs/:job_id", cfg.IntrospectionHandler.GetJob)
		}
	}

	return r
}
