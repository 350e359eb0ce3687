package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/clients/sender"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/handler"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// WebhookHandler exposes the two transport-specific inbound endpoints.
// Both always answer 200 per §6 — the transport gateways treat non-2xx as
// "retry this delivery", which would only amplify load during an outage.
// Reply delivery to the chat happens out-of-band via sender once the
// pipeline has decided what to say; the response body also echoes the
// reply text back for callers (tests, dashboards) that want it directly.
type WebhookHandler struct {
	pipeline *handler.Handler
	sender   *sender.Sender
	log      *logger.Logger
}

func NewWebhookHandler(pipeline *handler.Handler, replySender *sender.Sender, baseLog *logger.Logger) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline, sender: replySender, log: baseLog.With("handler", "WebhookHandler")}
}

// POST /{base}/waha/webhook
func (h *WebhookHandler) WAHA(c *gin.Context) {
	var payload parser.WAHAPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "type": "bad_payload"})
		return
	}
	if !payload.IsMessageEvent() {
		c.JSON(http.StatusOK, gin.H{"success": true, "type": "ignored"})
		return
	}
	msg := parser.ParseWhatsApp(payload)
	h.handle(c, msg)
}

// POST /{base}/telegram/webhook
func (h *WebhookHandler) Telegram(c *gin.Context) {
	var update parser.TelegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "type": "bad_payload"})
		return
	}
	if !update.HasText() || update.Message.From.IsBot {
		c.JSON(http.StatusOK, gin.H{"success": true, "type": "ignored_update"})
		return
	}
	msg := parser.ParseTelegram(update)
	h.handle(c, msg)
}

func (h *WebhookHandler) handle(c *gin.Context, msg parser.InboundMessage) {
	c.Set("transport", msg.Transport)
	c.Set("message_id", msg.MessageID)

	if err := parser.Validate(msg); err != nil && !errors.Is(err, domainerrors.ErrFromMe) {
		// Missing ids, group/broadcast traffic, and empty text never reach
		// the handler pipeline at all — just acknowledged silently.
		h.log.Debug("webhook message ignored", "reason", err, "transport", msg.Transport)
		ignoredType := "ignored"
		switch {
		case errors.Is(err, domainerrors.ErrGroupIgnored):
			ignoredType = "group_ignored"
		case errors.Is(err, domainerrors.ErrBroadcastIgnored):
			ignoredType = "broadcast_ignored"
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "type": ignoredType})
		return
	}

	result, err := h.pipeline.Handle(c.Request.Context(), msg)
	if err != nil {
		h.log.Error("handler pipeline error", "error", err, "transport", msg.Transport, "message_id", msg.MessageID)
		c.JSON(http.StatusOK, gin.H{"success": false, "type": "internal_error"})
		return
	}
	if !result.Success {
		h.log.Error("handler pipeline reported failure", "error", result.Error, "transport", msg.Transport, "message_id", msg.MessageID)
		c.JSON(http.StatusOK, gin.H{"success": false, "type": "processing_error"})
		return
	}

	if result.ShouldReply {
		if err := h.sender.Deliver(c.Request.Context(), msg.Transport, msg.UserID, result.ReplyText, result.SecondaryText); err != nil {
			h.log.Error("reply delivery failed", "error", err, "transport", msg.Transport, "message_id", msg.MessageID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"type":           "processed",
		"should_reply":   result.ShouldReply,
		"reply_text":     result.ReplyText,
		"secondary_text": result.SecondaryText,
	})
}
