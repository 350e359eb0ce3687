package parser

import "testing"

func TestNormalizeWhatsAppJID(t *testing.T) {
	cases := map[string]string{
		"628123456789@lid":            "628123456789@lid",
		"628123456789@s.whatsapp.net": "628123456789@s.whatsapp.net",
		"628123456789@c.us":           "628123456789@s.whatsapp.net",
		"628123456789":                "628123456789@s.whatsapp.net",
		"123":                         "123", // too short to qualify as a phone-style id
	}
	for in, want := range cases {
		if got := normalizeWhatsAppJID(in); got != want {
			t.Errorf("normalizeWhatsAppJID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseWhatsAppGroupAndBroadcast(t *testing.T) {
	var group WAHAPayload
	group.Event = "message"
	group.Payload.ChatID = "12345-6789@g.us"
	group.Payload.Body = "hi"
	msg := ParseWhatsApp(group)
	if !msg.IsGroup {
		t.Error("expected group message to be detected")
	}

	var broadcast WAHAPayload
	broadcast.Event = "message"
	broadcast.Payload.ChatID = "status@broadcast"
	broadcast.Payload.Body = "hi"
	msg = ParseWhatsApp(broadcast)
	if !msg.IsBroadcast {
		t.Error("expected broadcast message to be detected")
	}
}

func TestParseWhatsAppFreshGreeting(t *testing.T) {
	var p WAHAPayload
	p.Event = "message"
	p.Payload.ID = "m1"
	p.Payload.From = "628123456789@s.whatsapp.net"
	p.Payload.Body = "Halo"
	p.Payload.Data.PushName = "Budi"

	msg := ParseWhatsApp(p)
	if msg.UserID != "628123456789@s.whatsapp.net" {
		t.Errorf("unexpected user id: %q", msg.UserID)
	}
	if msg.MessageID != "m1" || msg.Text != "Halo" {
		t.Errorf("unexpected msg: %+v", msg)
	}
	if msg.Metadata.PushName != "Budi" {
		t.Errorf("unexpected push name: %q", msg.Metadata.PushName)
	}
}

func TestParseWhatsAppCapturesAltID(t *testing.T) {
	var p WAHAPayload
	p.Event = "message"
	p.Payload.ID = "m1"
	p.Payload.From = "628123456789@s.whatsapp.net"
	p.Payload.Data.Key.RemoteJID = "628123456789@s.whatsapp.net"
	p.Payload.Data.Key.RemoteJIDAlt = "abcdef1234@lid"
	p.Payload.Body = "hi"

	msg := ParseWhatsApp(p)
	if msg.Metadata.AltID != "abcdef1234@lid" {
		t.Errorf("expected alt id to be captured, got %q", msg.Metadata.AltID)
	}
}
