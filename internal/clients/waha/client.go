// Package waha is a thin outbound client for the WAHA WhatsApp HTTP
// gateway's send-text endpoint (§4.L), used by the webhook handler to
// deliver the reply the core hands back.
package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/ctxutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/httpx"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Client interface {
	SendText(ctx context.Context, chatID, text string) error
}

type Config struct {
	BaseURL    string
	Session    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    envutil.String("WAHA_BASE_URL", "http://localhost:3000"),
		Session:    envutil.String("WAHA_SESSION", "default"),
		APIKey:     envutil.String("WAHA_API_KEY", ""),
		Timeout:    time.Duration(envutil.Int("WAHA_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxRetries: envutil.Int("WAHA_MAX_RETRIES", 3),
	}
}

func New(log *logger.Logger, cfg Config) Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "WAHAClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func NewFromEnv(log *logger.Logger) Client {
	return New(log, ConfigFromEnv())
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

func (c *client) SendText(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendTextRequest{Session: c.cfg.Session, ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/sendText", c.cfg.BaseURL)
	return c.doWithRetry(ctx, endpoint, body)
}

func (c *client) doWithRetry(ctx context.Context, endpoint string, body []byte) error {
	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, err := c.doOnce(ctx, endpoint, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("WAHA send retrying", "attempt", attempt+1, "max_retries", c.cfg.MaxRetries, "sleep", sleepFor.String(), "error", err)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return lastErr
}

func (c *client) doOnce(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpError{statusCode: resp.StatusCode, body: string(raw)}
	}
	return resp, nil
}

type httpError struct {
	statusCode int
	body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("waha http %d: %s", e.statusCode, e.body)
}

func (e *httpError) HTTPStatusCode() int { return e.statusCode }
