package parser

import "testing"

func TestDetectIntentGreeting(t *testing.T) {
	for _, text := range []string{"Halo", "hai kak", "Selamat pagi"} {
		if got := DetectIntent(text); got != IntentGreeting {
			t.Errorf("DetectIntent(%q) = %s, want greeting", text, got)
		}
	}
}

func TestDetectIntentOptionSelect(t *testing.T) {
	for _, text := range []string{"1", "2", "9"} {
		if got := DetectIntent(text); got != IntentOptionSelect {
			t.Errorf("DetectIntent(%q) = %s, want option_select", text, got)
		}
	}
}

func TestDetectIntentQuestion(t *testing.T) {
	for _, text := range []string{"Berapa biayanya?", "apa syaratnya", "how much is it"} {
		if got := DetectIntent(text); got != IntentQuestion {
			t.Errorf("DetectIntent(%q) = %s, want question", text, got)
		}
	}
}

func TestDetectIntentFormResponse(t *testing.T) {
	text := "Nama: Budi\nSumber info: Instagram"
	if got := DetectIntent(text); got != IntentFormResponse {
		t.Errorf("DetectIntent(%q) = %s, want form_response", text, got)
	}
}

func TestDetectIntentUnknown(t *testing.T) {
	if got := DetectIntent("ok thanks"); got != IntentUnknown {
		t.Errorf("DetectIntent = %s, want unknown", got)
	}
}

func TestValidateRejectsReasons(t *testing.T) {
	base := InboundMessage{MessageID: "m1", UserID: "u1", Text: "hello"}

	if err := Validate(base); err != nil {
		t.Fatalf("expected valid message to pass, got %v", err)
	}

	noID := base
	noID.MessageID = ""
	if err := Validate(noID); err == nil {
		t.Error("expected error for missing message id")
	}

	noUser := base
	noUser.UserID = ""
	if err := Validate(noUser); err == nil {
		t.Error("expected error for missing user id")
	}

	fromMe := base
	fromMe.FromMe = true
	if err := Validate(fromMe); err == nil {
		t.Error("expected error for from_me")
	}

	group := base
	group.IsGroup = true
	if err := Validate(group); err == nil {
		t.Error("expected error for group")
	}

	broadcast := base
	broadcast.IsBroadcast = true
	if err := Validate(broadcast); err == nil {
		t.Error("expected error for broadcast")
	}

	empty := base
	empty.Text = ""
	if err := Validate(empty); err == nil {
		t.Error("expected error for empty text")
	}
}
