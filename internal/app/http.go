package app

import (
	"github.com/gin-gonic/gin"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/data/db"
	httpserver "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/http"
	httpH "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/http/handlers"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Handlers struct {
	Webhook       *httpH.WebhookHandler
	Health        *httpH.HealthHandler
	Introspection *httpH.IntrospectionHandler
}

func wireHandlers(log *logger.Logger, pg *db.PostgresService, reposet Repos, services Services, clients Clients) Handlers {
	log.Info("wiring handlers...")
	return Handlers{
		Webhook:       httpH.NewWebhookHandler(services.Pipeline, clients.Sender, log),
		Health:        httpH.NewHealthHandler(pg, clients.Redis),
		Introspection: httpH.NewIntrospectionHandler(reposet.Lead, reposet.JobRun),
	}
}

func wireRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	return httpserver.NewRouter(httpserver.RouterConfig{
		WebhookHandler:       handlers.Webhook,
		HealthHandler:        handlers.Health,
		IntrospectionHandler: handlers.Introspection,
	}, log)
}
