package app

import (
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

type Repos struct {
	Lead   repos.LeadRepo
	JobRun repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repos...")
	return Repos{
		Lead:   repos.NewLeadRepo(db, log),
		JobRun: repos.NewJobRunRepo(db, log),
	}
}
