// Package redis wraps go-redis/v9 with the handful of primitives the
// admission-control layer (idempotency, lock, cooldown) and the job queue
// need: NX-with-TTL sets, a compare-and-delete release, and list push/pop.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// compareAndDeleteScript deletes key only if its current value equals the
// provided token, so an expired lock reacquired by someone else is never
// released out from under them.
const compareAndDeleteScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`

type Client struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewClient(baseLog *logger.Logger) (*Client, error) {
	addr := envutil.String("REDIS_ADDR", "localhost:6379")
	password := envutil.String("REDIS_PASSWORD", "")
	db := envutil.Int("REDIS_DB", 0)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{
		rdb: rdb,
		log: baseLog.With("client", "RedisClient"),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// SetNX sets key to value with the given ttl iff it does not already exist,
// reporting whether this call was the one that set it.
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Get returns the value at key, "" and no error when it does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return v, err
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Set unconditionally sets key to value with the given ttl.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// CompareAndDelete removes key only if its current value equals token.
func (c *Client) CompareAndDelete(ctx context.Context, key, token string) (bool, error) {
	res, err := c.rdb.Eval(ctx, compareAndDeleteScript, []string{key}, token).Result()
	if err != nil {
		return false, err
	}
	n, _ := res.(int64)
	return n > 0, nil
}

// RPush appends value to the tail of the list at key.
func (c *Client) RPush(ctx context.Context, key string, value string) error {
	return c.rdb.RPush(ctx, key, value).Err()
}

// BLPop blocks up to timeout for an element at the head of key, returning
// ("", nil) on timeout.
func (c *Client) BLPop(ctx context.Context, key string, timeout time.Duration) (string, error) {
	res, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// BLPOP replies [key, value]; index 1 is the payload.
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// LRem removes up to count occurrences of value from the list at key.
func (c *Client) LRem(ctx context.Context, key string, count int64, value string) error {
	return c.rdb.LRem(ctx, key, count, value).Err()
}

// Ping checks reachability, used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
