// Package idempotency implements §4.A: a Redis-backed record of
// (transport, message_id) pairs already processed, so a webhook redelivery
// does not re-run the handler pipeline.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/redis"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Store struct {
	client *redis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewStore(client *redis.Client, baseLog *logger.Logger) *Store {
	return &Store{
		client: client,
		log:    baseLog.With("component", "IdempotencyStore"),
		ttl:    envutil.Seconds("IDEMPOTENCY_TTL_SECONDS", 24*60*60),
	}
}

func key(transport, messageID string) string {
	return fmt.Sprintf("processed:%s:%s", transport, messageID)
}

// Seen reports whether (transport, messageID) was already marked processed.
// On backing-store failure it returns (false, err); callers treat this
// permissively — proceed and log at warn rather than stall the pipeline.
func (s *Store) Seen(ctx context.Context, transport, messageID string) (bool, error) {
	exists, err := s.client.Exists(ctx, key(transport, messageID))
	if err != nil {
		s.log.Warn("idempotency check failed, proceeding permissively", "error", err)
		return false, err
	}
	return exists, nil
}

// Mark records (transport, messageID) as processed for the configured TTL.
// Errors are logged and returned; the handler ignores them — a failed mark
// means a possible duplicate later, which is preferable to failing the
// request here.
func (s *Store) Mark(ctx context.Context, transport, messageID string) error {
	if err := s.client.Set(ctx, key(transport, messageID), "1", s.ttl); err != nil {
		s.log.Warn("idempotency mark failed", "error", err)
		return err
	}
	return nil
}
