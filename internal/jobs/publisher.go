package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/redis"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

func queueName(queue string) string {
	return "queue:" + queue
}

// Publisher is the single background goroutine that drains pending JobRun
// rows into their Redis list queue after the owning transaction has
// committed. A crash between RPUSH and the status flip is tolerated —
// downstream workers are required to be idempotent, so at-least-once
// publish is acceptable.
type Publisher struct {
	db      *gorm.DB
	jobRuns repos.JobRunRepo
	redis   *redis.Client
	log     *logger.Logger

	interval  time.Duration
	batchSize int
}

func NewPublisher(db *gorm.DB, jobRuns repos.JobRunRepo, rdb *redis.Client, baseLog *logger.Logger) *Publisher {
	return &Publisher{
		db:        db,
		jobRuns:   jobRuns,
		redis:     rdb,
		log:       baseLog.With("component", "Publisher"),
		interval:  time.Duration(envutil.Int("PUBLISHER_POLL_MS", 500)) * time.Millisecond,
		batchSize: envutil.Int("PUBLISHER_BATCH_SIZE", 50),
	}
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx); err != nil {
				p.log.Warn("publish batch failed", "error", err)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := p.jobRuns.ClaimPendingForPublish(ctx, tx, p.batchSize)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := p.redis.RPush(ctx, queueName(string(row.Queue)), string(row.Payload)); err != nil {
				p.log.Error("rpush failed, leaving row pending for retry", "job_id", row.ID, "error", err)
				continue
			}
			if err := p.jobRuns.MarkDispatched(ctx, tx, row.ID); err != nil {
				return err
			}
			p.log.Debug("published job", "job_id", row.ID, "queue", row.Queue)
		}
		return nil
	})
}
