package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/redis"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

// Handler processes one job's payload for a given queue. In this core the
// two built-in handlers only validate the payload and mark the row
// succeeded/failed — actually delivering to the spreadsheet API or the
// notification channel is the out-of-scope worker responsibility.
type Handler func(ctx context.Context, payload []byte) error

// backoffSchedule mirrors §4.J: spreadsheet-sync starts at 1s and doubles,
// operator-notify starts at 0.5s and doubles.
var backoffSchedule = map[domain.JobQueue][]time.Duration{
	domain.QueueSpreadsheetSync: {1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second},
	domain.QueueOperatorNotify:  {500 * time.Millisecond, 1 * time.Second, 2 * time.Second},
}

// WorkerPool BLPOPs each configured queue and hands payloads to the
// registered Handler, using golang.org/x/sync/errgroup to supervise a fixed
// number of goroutines per queue.
type WorkerPool struct {
	db      *gorm.DB
	jobRuns repos.JobRunRepo
	redis   *redis.Client
	log     *logger.Logger

	concurrency int
	blpopWait   time.Duration
	handlers    map[domain.JobQueue]Handler
}

func NewWorkerPool(db *gorm.DB, jobRuns repos.JobRunRepo, rdb *redis.Client, baseLog *logger.Logger) *WorkerPool {
	return &WorkerPool{
		db:          db,
		jobRuns:     jobRuns,
		redis:       rdb,
		log:         baseLog.With("component", "WorkerPool"),
		concurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		blpopWait:   5 * time.Second,
		handlers:    map[domain.JobQueue]Handler{},
	}
}

// Register installs the handler for a queue. Must be called before Run.
func (w *WorkerPool) Register(queue domain.JobQueue, h Handler) {
	w.handlers[queue] = h
}

// Run blocks until ctx is cancelled, supervising concurrency goroutines per
// registered queue.
func (w *WorkerPool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for queue, handler := range w.handlers {
		queue, handler := queue, handler
		for i := 0; i < w.concurrency; i++ {
			g.Go(func() error {
				w.loop(gctx, queue, handler)
				return nil
			})
		}
	}
	return g.Wait()
}

func (w *WorkerPool) loop(ctx context.Context, queue domain.JobQueue, handler Handler) {
	key := queueName(string(queue))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		raw, err := w.redis.BLPop(ctx, key, w.blpopWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("blpop failed", "queue", queue, "error", err)
			continue
		}
		if raw == "" {
			continue // timeout, loop to re-check ctx
		}
		w.process(ctx, queue, handler, []byte(raw))
	}
}

func (w *WorkerPool) process(ctx context.Context, queue domain.JobQueue, handler Handler, payload []byte) {
	row, err := w.jobRuns.ClaimNextForWorker(ctx, nil, queue)
	if err != nil {
		w.log.Error("claim for worker failed", "queue", queue, "error", err)
		return
	}
	if row == nil {
		// Row already claimed by another instance or not yet visible; the
		// payload is still processed so at-least-once delivery holds even
		// without a matching row (downstream handlers are idempotent).
		if err := handler(ctx, payload); err != nil {
			w.log.Error("handler failed for untracked payload", "queue", queue, "error", err)
		}
		return
	}

	handlerErr := handler(ctx, payload)
	if handlerErr == nil {
		if err := w.jobRuns.UpdateFields(ctx, nil, row.ID, map[string]interface{}{
			"status": domain.JobStatusSucceeded,
		}); err != nil {
			w.log.Error("failed to mark job succeeded", "job_id", row.ID, "error", err)
		}
		return
	}

	w.log.Error("job handler failed", "job_id", row.ID, "queue", queue, "error", handlerErr)
	schedule := backoffSchedule[queue]
	attempts := row.Attempts
	if attempts < row.MaxAttempts {
		delay := 0 * time.Second
		if attempts-1 >= 0 && attempts-1 < len(schedule) {
			delay = schedule[attempts-1]
		} else if len(schedule) > 0 {
			delay = schedule[len(schedule)-1]
		}
		dispatchedAt := time.Now().Add(delay)
		if err := w.jobRuns.UpdateFields(ctx, nil, row.ID, map[string]interface{}{
			"status":        domain.JobStatusPending,
			"last_error":    handlerErr.Error(),
			"dispatched_at": dispatchedAt,
		}); err != nil {
			w.log.Error("failed to reschedule job", "job_id", row.ID, "error", err)
		}
		return
	}

	if err := w.jobRuns.UpdateFields(ctx, nil, row.ID, map[string]interface{}{
		"status":     domain.JobStatusFailed,
		"last_error": handlerErr.Error(),
	}); err != nil {
		w.log.Error("failed to mark job failed", "job_id", row.ID, "error", err)
	}
}

// ValidatingHandler builds the built-in handler shape described in §4.J:
// reject a payload that is not valid JSON, run validate, and report any error so the
// worker pool's retry/backoff bookkeeping takes over.
func ValidatingHandler(validate func(payload []byte) error) Handler {
	return func(_ context.Context, payload []byte) error {
		if !json.Valid(payload) {
			return errInvalidPayload
		}
		return validate(payload)
	}
}

var errInvalidPayload = errors.New("job payload is not valid JSON")
