package parser

import (
	"strconv"
	"strings"
	"time"
)

// TelegramUpdate is the subset of the Telegram Bot API update shape the
// core consumes.
type TelegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		MessageID int64  `json:"message_id"`
		From      struct {
			ID        int64  `json:"id"`
			IsBot     bool   `json:"is_bot"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Chat struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
		Date int64  `json:"date"`
		Text string `json:"text"`
	} `json:"message"`
}

// HasText reports whether the update carries a text message at all; other
// update shapes (edited messages, callback queries, etc.) are acknowledged
// with no effect upstream without reaching the parser.
func (u TelegramUpdate) HasText() bool {
	return strings.TrimSpace(u.Message.Text) != ""
}

// ParseTelegram normalizes a Telegram Bot API update into an InboundMessage.
// Only private chats are accepted; bot-author messages and non-private chat
// types are rejected by the caller before a reply is ever attempted, per
// §4.G.
func ParseTelegram(u TelegramUpdate) InboundMessage {
	isPrivate := u.Message.Chat.Type == "private"

	var ts time.Time
	if u.Message.Date > 0 {
		ts = time.Unix(u.Message.Date, 0)
	} else {
		ts = time.Now()
	}

	return InboundMessage{
		Transport: "telegram",
		MessageID: strconv.FormatInt(u.Message.MessageID, 10),
		UserID:    strconv.FormatInt(u.Message.Chat.ID, 10),
		Text:      strings.TrimSpace(u.Message.Text),
		FromMe:    u.Message.From.IsBot,
		// Telegram has no native group/broadcast distinction in the fields
		// the core reads; "group" stands in for any non-private chat type
		// so the handler pipeline's admission rules apply uniformly.
		IsGroup:     !isPrivate,
		IsBroadcast: false,
		Timestamp:   ts,
		Metadata: Metadata{
			PushName: u.Message.From.FirstName,
		},
	}
}
