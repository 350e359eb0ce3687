package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// JobRunRepo is the gorm-backed transactional outbox table. Rows are
// written inside the caller's transaction (Enqueue) and later claimed by
// the publisher and by workers via row-locking selects.
type JobRunRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, queue domain.JobQueue, payload datatypes.JSON, maxAttempts int) (*domain.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error)
	ClaimPendingForPublish(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.JobRun, error)
	MarkDispatched(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	ClaimNextForWorker(ctx context.Context, tx *gorm.DB, queue domain.JobQueue) (*domain.JobRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

// Enqueue inserts a pending JobRun row. Visible to the publisher only once
// the caller's transaction commits.
func (r *jobRunRepo) Enqueue(ctx context.Context, tx *gorm.DB, queue domain.JobQueue, payload datatypes.JSON, maxAttempts int) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	job := &domain.JobRun{
		Queue:       queue,
		Status:      domain.JobStatusPending,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job domain.JobRun
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimPendingForPublish row-locks up to limit pending rows so the publisher
// can RPUSH their payload onto the Redis queue and flip them to dispatched.
// SKIP LOCKED lets multiple publisher instances run without blocking each
// other.
func (r *jobRunRepo) ClaimPendingForPublish(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var jobs []*domain.JobRun
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND (dispatched_at IS NULL OR dispatched_at <= ?)", domain.JobStatusPending, time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRunRepo) MarkDispatched(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusDispatched,
			"dispatched_at": now,
			"updated_at":    now,
		}).Error
}

// ClaimNextForWorker is used by the worker pool after a BLPOP to pick up the
// row matching the payload it just received, transitioning it to running.
func (r *jobRunRepo) ClaimNextForWorker(ctx context.Context, tx *gorm.DB, queue domain.JobQueue) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	var claimed *domain.JobRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job domain.JobRun
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ? AND status IN ?", queue, []domain.JobStatus{domain.JobStatusDispatched, domain.JobStatusPending}).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&domain.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       domain.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ? AND status = ?", id, domain.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
