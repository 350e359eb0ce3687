// Package sender picks the outbound transport client matching an inbound
// message's origin and delivers the reply the handler pipeline produced,
// including the settle delay between a primary and secondary message
// (§4.K/§4.L).
package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/telegram"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/waha"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/envutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Sender struct {
	waha           waha.Client
	telegram       telegram.Client
	log            *logger.Logger
	secondaryDelay time.Duration
}

func New(wahaClient waha.Client, telegramClient telegram.Client, baseLog *logger.Logger) *Sender {
	return &Sender{
		waha:           wahaClient,
		telegram:       telegramClient,
		log:            baseLog.With("component", "Sender"),
		secondaryDelay: time.Duration(envutil.Int("SECONDARY_MESSAGE_SETTLE_MS", 500)) * time.Millisecond,
	}
}

// Deliver sends replyText to chatID over transport, then secondaryText (if
// non-empty) after a short settle delay so the two messages land as two
// separate chat bubbles instead of racing each other.
func (s *Sender) Deliver(ctx context.Context, transport, chatID, replyText, secondaryText string) error {
	if replyText == "" && secondaryText == "" {
		return nil
	}
	if replyText != "" {
		if err := s.send(ctx, transport, chatID, replyText); err != nil {
			return fmt.Errorf("sender: deliver primary message: %w", err)
		}
	}
	if secondaryText == "" {
		return nil
	}
	if s.secondaryDelay > 0 {
		select {
		case <-time.After(s.secondaryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.send(ctx, transport, chatID, secondaryText); err != nil {
		return fmt.Errorf("sender: deliver secondary message: %w", err)
	}
	return nil
}

func (s *Sender) send(ctx context.Context, transport, chatID, text string) error {
	switch transport {
	case "whatsapp":
		return s.waha.SendText(ctx, chatID, text)
	case "telegram":
		return s.telegram.SendMessage(ctx, chatID, text)
	default:
		return fmt.Errorf("sender: unknown transport %q", transport)
	}
}
