package parser

import (
	"errors"
	"testing"

	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
)

func TestValidateMissingIdentifiers(t *testing.T) {
	if err := Validate(InboundMessage{UserID: "u1", Text: "hi"}); !errors.Is(err, domainerrors.ErrMissingMessageID) {
		t.Errorf("Validate() = %v, want ErrMissingMessageID", err)
	}
	if err := Validate(InboundMessage{MessageID: "m1", Text: "hi"}); !errors.Is(err, domainerrors.ErrMissingUserID) {
		t.Errorf("Validate() = %v, want ErrMissingUserID", err)
	}
}

func TestValidateFromMe(t *testing.T) {
	msg := InboundMessage{MessageID: "m1", UserID: "u1", Text: "hi", FromMe: true}
	if err := Validate(msg); !errors.Is(err, domainerrors.ErrFromMe) {
		t.Errorf("Validate() = %v, want ErrFromMe", err)
	}
}

func TestValidateGroupIgnored(t *testing.T) {
	msg := InboundMessage{MessageID: "m1", UserID: "u1", Text: "hi", IsGroup: true}
	if err := Validate(msg); !errors.Is(err, domainerrors.ErrGroupIgnored) {
		t.Errorf("Validate() = %v, want ErrGroupIgnored", err)
	}
}

func TestValidateBroadcastIgnored(t *testing.T) {
	msg := InboundMessage{MessageID: "m1", UserID: "u1", Text: "hi", IsBroadcast: true}
	if err := Validate(msg); !errors.Is(err, domainerrors.ErrBroadcastIgnored) {
		t.Errorf("Validate() = %v, want ErrBroadcastIgnored", err)
	}
}

func TestValidateEmptyText(t *testing.T) {
	msg := InboundMessage{MessageID: "m1", UserID: "u1"}
	if err := Validate(msg); !errors.Is(err, domainerrors.ErrEmptyText) {
		t.Errorf("Validate() = %v, want ErrEmptyText", err)
	}
}

func TestValidateOK(t *testing.T) {
	msg := InboundMessage{MessageID: "m1", UserID: "u1", Text: "hi"}
	if err := Validate(msg); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
