package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.Lead{},
		&domain.Interaction{},
		&domain.FormFragment{},
		&domain.JobRun{},
	)
}

// EnsureLeadIndexes adds the invariants AutoMigrate's column tags can't
// express directly: partial uniqueness on alt_id (many leads legitimately
// have none) and a fast lookup path for the identity resolver (§4.F).
func EnsureLeadIndexes(gdb *gorm.DB) error {
	if err := gdb.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_alt_id
		ON leads (alt_id)
		WHERE alt_id IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_leads_alt_id: %w", err)
	}
	if err := gdb.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lead_interactions_lead_created
		ON lead_interactions (lead_id, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_lead_interactions_lead_created: %w", err)
	}
	if err := gdb.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_status_queue
		ON job_run (status, queue, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_status_queue: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureLeadIndexes(s.db); err != nil {
		s.log.Error("Lead index migration failed", "error", err)
		return err
	}
	return nil
}
