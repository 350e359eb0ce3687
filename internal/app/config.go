package app

import (
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// Config holds the handful of top-level knobs that don't belong to any one
// component's own env-sourced defaults.
type Config struct {
	HTTPAddr           string
	MarkBeforeCommit   bool
	MaxWarnings        int
	TemplateRefreshSec int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:           envutil.String("HTTP_ADDR", ":8080"),
		MarkBeforeCommit:   envutil.Bool("MARK_PROCESSED_BEFORE_COMMIT", true),
		MaxWarnings:        envutil.Int("MAX_WARNINGS", 3),
		TemplateRefreshSec: envutil.Int("TEMPLATE_REFRESH_SECONDS", 60),
	}
	log.Info("config loaded", "http_addr", cfg.HTTPAddr, "mark_before_commit", cfg.MarkBeforeCommit, "max_warnings", cfg.MaxWarnings)
	return cfg
}
