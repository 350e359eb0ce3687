package parser

import (
	"strings"
	"time"
)

// WAHAPayload is the subset of a WAHA webhook body the core consumes. Field
// names mirror the wire JSON; unknown fields are ignored by the adapter
// layer's decoder, not by this package.
type WAHAPayload struct {
	Event   string `json:"event"`
	Session string `json:"session"`
	Payload struct {
		ID          string `json:"id"`
		From        string `json:"from"`
		To          string `json:"to"`
		ChatID      string `json:"chatId"`
		Body        string `json:"body"`
		FromMe      bool   `json:"fromMe"`
		IsGroup     bool   `json:"isGroup"`
		Timestamp   int64  `json:"timestamp"`
		Participant string `json:"participant"`
		Data        struct {
			Key struct {
				RemoteJID    string `json:"remoteJid"`
				RemoteJIDAlt string `json:"remoteJidAlt"`
				FromMe       bool   `json:"fromMe"`
			} `json:"key"`
			PushName string `json:"pushName"`
		} `json:"_data"`
	} `json:"payload"`
}

// IsMessageEvent reports whether the webhook's event name carries an inbound
// message at all; other events (e.g. presence, ack) return 200 "ignored"
// upstream without reaching the parser.
func (p WAHAPayload) IsMessageEvent() bool {
	return p.Event == "message" || p.Event == "message.any"
}

// ParseWhatsApp normalizes a WAHA webhook payload into an InboundMessage,
// applying the JID normalization and group/broadcast detection rules of
// §4.G.
func ParseWhatsApp(p WAHAPayload) InboundMessage {
	chatID := firstNonEmpty(p.Payload.ChatID, p.Payload.Data.Key.RemoteJID, p.Payload.From)
	remoteJID := firstNonEmpty(p.Payload.Data.Key.RemoteJID, p.Payload.From, chatID)
	remoteJIDAlt := p.Payload.Data.Key.RemoteJIDAlt

	fromMe := p.Payload.FromMe || p.Payload.Data.Key.FromMe

	isGroup := p.Payload.IsGroup ||
		strings.HasSuffix(chatID, "@g.us") ||
		strings.HasSuffix(remoteJID, "@g.us") ||
		p.Payload.Participant != ""

	isBroadcast := strings.Contains(chatID, "status@broadcast") ||
		strings.HasSuffix(chatID, "@broadcast") ||
		strings.Contains(remoteJID, "status@broadcast") ||
		strings.HasSuffix(remoteJID, "@broadcast")

	userID := normalizeWhatsAppJID(remoteJID)

	var altID, phone string
	if remoteJIDAlt != "" {
		altID = normalizeWhatsAppJID(remoteJIDAlt)
	}
	if digits := digitsOf(userID); len(digits) >= 10 {
		phone = digits
	} else if digits := digitsOf(altID); altID != "" && len(digits) >= 10 {
		phone = digits
	}

	var ts time.Time
	if p.Payload.Timestamp > 0 {
		ts = time.Unix(p.Payload.Timestamp, 0)
	} else {
		ts = time.Now()
	}

	return InboundMessage{
		Transport:   "whatsapp",
		MessageID:   p.Payload.ID,
		UserID:      userID,
		Text:        strings.TrimSpace(p.Payload.Body),
		FromMe:      fromMe,
		IsGroup:     isGroup,
		IsBroadcast: isBroadcast,
		Timestamp:   ts,
		Metadata: Metadata{
			AltID:    altID,
			Phone:    phone,
			PushName: p.Payload.Data.PushName,
		},
	}
}

// normalizeWhatsAppJID applies the rules of §4.G: @lid and @s.whatsapp.net
// forms pass through unchanged, @c.us becomes @s.whatsapp.net, and bare
// digit strings of length >= 10 become a @s.whatsapp.net JID.
func normalizeWhatsAppJID(jid string) string {
	jid = strings.TrimSpace(jid)
	if jid == "" {
		return jid
	}
	switch {
	case strings.HasSuffix(jid, "@lid"):
		return jid
	case strings.HasSuffix(jid, "@s.whatsapp.net"):
		return jid
	case strings.HasSuffix(jid, "@c.us"):
		return strings.TrimSuffix(jid, "@c.us") + "@s.whatsapp.net"
	}
	if digits := digitsOf(jid); digits == jid && len(digits) >= 10 {
		return digits + "@s.whatsapp.net"
	}
	return jid
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
