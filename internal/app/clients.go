package app

import (
	"fmt"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/redis"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/sender"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/telegram"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/waha"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Clients struct {
	Redis    *redis.Client
	WAHA     waha.Client
	Telegram telegram.Client
	Sender   *sender.Sender
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("wiring clients...")

	rdb, err := redis.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis client: %w", err)
	}

	wahaClient := waha.NewFromEnv(log)
	telegramClient := telegram.NewFromEnv(log)
	replySender := sender.New(wahaClient, telegramClient, log)

	return Clients{
		Redis:    rdb,
		WAHA:     wahaClient,
		Telegram: telegramClient,
		Sender:   replySender,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
