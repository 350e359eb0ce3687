// Package lock implements §4.B: a Redis-backed, fencing-tokened mutex
// keyed by user id, so concurrent webhook deliveries for the same user
// never run the handler pipeline concurrently.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/redis"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Mutex struct {
	client *redis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewMutex(client *redis.Client, baseLog *logger.Logger) *Mutex {
	return &Mutex{
		client: client,
		log:    baseLog.With("component", "PerUserMutex"),
		ttl:    envutil.Seconds("LOCK_TTL_SECONDS", 10),
	}
}

func key(userID string) string {
	return fmt.Sprintf("lock:user:%s", userID)
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Acquire attempts a single SET NX EX, returning a fencing token on success.
func (m *Mutex) Acquire(ctx context.Context, userID string) (token string, ok bool, err error) {
	token, err = newToken()
	if err != nil {
		return "", false, err
	}
	ok, err = m.client.SetNX(ctx, key(userID), token, m.ttl)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the lock only if it still holds token, via a Lua
// compare-and-delete, so a lock that expired and was reacquired by another
// worker is never released out from under them.
func (m *Mutex) Release(ctx context.Context, userID, token string) error {
	_, err := m.client.CompareAndDelete(ctx, key(userID), token)
	return err
}

// AcquireWithRetry makes up to maxAttempts tries with linearly increasing
// backoff (100ms * attempt). ok=false on exhaustion is plain contention,
// never reported as an error.
func (m *Mutex) AcquireWithRetry(ctx context.Context, userID string, maxAttempts int) (token string, ok bool, err error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, ok, err = m.Acquire(ctx, userID)
		if err != nil {
			return "", false, err
		}
		if ok {
			return token, true, nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return "", false, nil
}
