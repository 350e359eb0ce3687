// Package jobs implements §4.J: the transactional-outbox job dispatcher, a
// background publisher that drains committed rows into Redis list queues,
// and a worker pool that claims and runs them.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

// RetryPolicy holds the per-queue attempt limit from §4.J; the backoff
// schedule is backoffSchedule in worker.go.
type RetryPolicy struct {
	MaxAttempts int
}

// Dispatcher writes JobRun rows inside the caller's transaction. The row
// becomes visible to the publisher only once that transaction commits.
type Dispatcher struct {
	jobRuns  repos.JobRunRepo
	policies map[domain.JobQueue]RetryPolicy
}

func NewDispatcher(jobRuns repos.JobRunRepo) *Dispatcher {
	return &Dispatcher{
		jobRuns: jobRuns,
		policies: map[domain.JobQueue]RetryPolicy{
			domain.QueueSpreadsheetSync: {MaxAttempts: envutil.Int("SPREADSHEET_SYNC_MAX_ATTEMPTS", 5)},
			domain.QueueOperatorNotify:  {MaxAttempts: envutil.Int("OPERATOR_NOTIFY_MAX_ATTEMPTS", 3)},
		},
	}
}

// Enqueue marshals payload and inserts a pending JobRun row using tx.
func (d *Dispatcher) Enqueue(ctx context.Context, tx *gorm.DB, queue domain.JobQueue, payload interface{}) (*domain.JobRun, error) {
	policy, ok := d.policies[queue]
	if !ok {
		return nil, fmt.Errorf("unknown queue %q", queue)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", domainerrors.ErrQueueEnqueueFailure, err)
	}
	job, err := d.jobRuns.Enqueue(ctx, tx, queue, datatypes.JSON(raw), policy.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrQueueEnqueueFailure, err)
	}
	return job, nil
}

// SpreadsheetSyncPayload is the payload shape for the spreadsheet-sync
// queue.
type SpreadsheetSyncPayload struct {
	LeadID    string              `json:"lead_id"`
	UserID    string              `json:"user_id"`
	Transport domain.Transport    `json:"transport"`
	Form      domain.FormFragment `json:"form"`
}

// OperatorNotifyKind enumerates the operator-notify payload shapes.
type OperatorNotifyKind string

const (
	NotifyEscalation          OperatorNotifyKind = "escalation"
	NotifyNewLead             OperatorNotifyKind = "new_lead"
	NotifyFormCompleted       OperatorNotifyKind = "form_completed"
	NotifyPartnershipInterest OperatorNotifyKind = "partnership_interest"
	NotifyOtherNeeds          OperatorNotifyKind = "other_needs"
	NotifyGeneralInquiry      OperatorNotifyKind = "general_inquiry"
)

// OperatorNotifyPayload is the payload shape for the operator-notify queue.
type OperatorNotifyPayload struct {
	Kind OperatorNotifyKind      `json:"kind"`
	Data map[string]interface{} `json:"data"`
}
