package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/data/db"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/observability"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("loading configuration...")
	cfg := LoadConfig(log)

	otelShutdown := observability.Init(context.Background(), log, observability.Config{
		ServiceName: "chatbot-leads-startfranchise",
		Environment: os.Getenv("APP_ENV"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire clients: %w", err)
	}

	reposet := wireRepos(theDB, log)
	services := wireServices(theDB, log, cfg, reposet, clients)
	handlers := wireHandlers(log, pg, reposet, services, clients)
	router := wireRouter(handlers, log)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     services,
		Clients:      clients,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background publisher and worker pool. The HTTP server
// is started separately by Run so cmd/server can choose when to accept
// traffic relative to background processing coming up.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		a.Services.Publisher.Run(ctx)
	}()
	go func() {
		if err := a.Services.Workers.Run(ctx); err != nil && ctx.Err() == nil {
			a.Log.Error("worker pool exited", "error", err)
		}
	}()
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	// Every request runs under a 30 s deadline carried by its context, so an
	// expired deadline rolls back the handler's in-flight transaction.
	srv := &http.Server{
		Addr:        a.Cfg.HTTPAddr,
		ReadTimeout: 30 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			defer cancel()
			a.Router.ServeHTTP(w, r.WithContext(ctx))
		}),
	}
	return srv.ListenAndServe()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
