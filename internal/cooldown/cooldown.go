// Package cooldown implements §4.C: a short per-user silence window after a
// bot reply, independent of the per-user mutex. Messages received during
// cooldown are still persisted; they just never generate a reply.
package cooldown

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
		log:    baseLog.With("component", "CooldownStore"),
		ttl:    envutil.Seconds("USER_COOLDOWN_SECONDS", 2),
	}
}

func key(userID string) string {
	return fmt.Sprintf("cooldown:user:%s", userID)
}

func (s *Store) InCooldown(ctx context.Context, userID string) (bool, error) {
	exists, err := s.client.Exists(ctx, key(userID))
	if err != nil {
		s.log.Warn("cooldown check failed, proceeding permissively", "error", err)
		return false, err
	}
	return exists, nil
}

func (s *Store) SetCooldown(ctx context.Context, userID string) error {
	return s.client.Set(ctx, key(userID), "1", s.ttl)
}
