package app

import (
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/cooldown"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/fsm"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/handler"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/identity"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/idempotency"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/lock"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/templates"
)

type Services struct {
	Idempotency *idempotency.Store
	Mutex       *lock.Mutex
	Cooldown    *cooldown.Store
	Templates   *templates.Map
	Resolver    *identity.Resolver
	Dispatcher  *jobs.Dispatcher
	Pipeline    *handler.Handler
	Publisher   *jobs.Publisher
	Workers     *jobs.WorkerPool
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("wiring services...")

	// internal/repos validates state transitions through this injected
	// function and does not import internal/fsm itself; until this call
	// runs, UpdateState accepts every transition.
	repos.SetTransitionValidator(fsm.ValidTransition)

	idem := idempotency.NewStore(clients.Redis, log)
	mutex := lock.NewMutex(clients.Redis, log)
	cd := cooldown.NewStore(clients.Redis, log)
	tmpl := templates.NewMap(db, log)

	resolver := identity.NewResolver(reposet.Lead, log)
	dispatcher := jobs.NewDispatcher(reposet.JobRun)

	pipeline := handler.New(db, idem, mutex, cd, reposet.Lead, resolver, dispatcher, tmpl, cfg.MarkBeforeCommit, cfg.MaxWarnings, log)

	publisher := jobs.NewPublisher(db, reposet.JobRun, clients.Redis, log)
	workers := jobs.NewWorkerPool(db, reposet.JobRun, clients.Redis, log)
	registerJobHandlers(workers, log)

	return Services{
		Idempotency: idem,
		Mutex:       mutex,
		Cooldown:    cd,
		Templates:   tmpl,
		Resolver:    resolver,
		Dispatcher:  dispatcher,
		Pipeline:    pipeline,
		Publisher:   publisher,
		Workers:     workers,
	}
}
