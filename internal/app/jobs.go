package app

import (
	"encoding/json"
	"fmt"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// registerJobHandlers installs the two built-in job handlers. Neither one
// actually talks to a spreadsheet API or a notification channel — that
// delivery leg is out of scope here — so each just validates the payload
// shape the dispatcher produced and lets the worker pool's retry/backoff
// bookkeeping take over on a mismatch.
func registerJobHandlers(workers *jobs.WorkerPool, log *logger.Logger) {
	jobLog := log.With("component", "JobHandlers")

	workers.Register(domain.QueueSpreadsheetSync, jobs.ValidatingHandler(func(payload []byte) error {
		var p jobs.SpreadsheetSyncPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode spreadsheet-sync payload: %w", err)
		}
		if p.LeadID == "" {
			return fmt.Errorf("spreadsheet-sync payload missing lead_id")
		}
		jobLog.Info("spreadsheet-sync job processed", "lead_id", p.LeadID, "transport", p.Transport)
		return nil
	}))

	workers.Register(domain.QueueOperatorNotify, jobs.ValidatingHandler(func(payload []byte) error {
		var p jobs.OperatorNotifyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode operator-notify payload: %w", err)
		}
		if p.Kind == "" {
			return fmt.Errorf("operator-notify payload missing kind")
		}
		jobLog.Info("operator-notify job processed", "kind", p.Kind)
		return nil
	}))
}
