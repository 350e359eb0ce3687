package templates

import (
	"context"
	"testing"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestGetReturnsCompiledDefault(t *testing.T) {
	m := NewMap(nil, newTestLogger(t))
	got := m.Get(Welcome)
	if got != defaults[Welcome] {
		t.Fatalf("Get(Welcome) = %q, want compiled default %q", got, defaults[Welcome])
	}
}

func TestGetUnknownKeyReturnsEmpty(t *testing.T) {
	m := NewMap(nil, newTestLogger(t))
	if got := m.Get(Key("NOT_A_REAL_KEY")); got != "" {
		t.Fatalf("Get(unknown) = %q, want empty string", got)
	}
}

func TestRefreshNoopsWithoutDB(t *testing.T) {
	m := NewMap(nil, newTestLogger(t))
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh with nil db returned error: %v", err)
	}
	if got := m.Get(Welcome); got != defaults[Welcome] {
		t.Fatalf("Refresh with nil db mutated values: got %q", got)
	}
}
