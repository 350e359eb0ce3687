package jobs

import (
	"testing"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
)

func TestValidatingHandlerRejectsInvalidJSON(t *testing.T) {
	h := ValidatingHandler(func([]byte) error { return nil })
	err := h(nil, []byte("not json"))
	if err == nil {
		t.Fatal("expected error for invalid JSON payload")
	}
}

func TestValidatingHandlerDelegatesToValidate(t *testing.T) {
	called := false
	h := ValidatingHandler(func(payload []byte) error {
		called = true
		if string(payload) != `{"a":1}` {
			t.Errorf("unexpected payload: %s", payload)
		}
		return nil
	})
	if err := h(nil, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("validate func was not called")
	}
}

func TestBackoffScheduleCoversBothQueues(t *testing.T) {
	for _, q := range []domain.JobQueue{domain.QueueSpreadsheetSync, domain.QueueOperatorNotify} {
		sched, ok := backoffSchedule[q]
		if !ok || len(sched) == 0 {
			t.Fatalf("no backoff schedule for queue %q", q)
		}
	}
}
