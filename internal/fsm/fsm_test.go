package fsm

import (
	"errors"
	"testing"

	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
)

func TestValidTransitionTable(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{New, ChooseOption, true},
		{New, ManualIntervention, true},
		{New, FormSent, false},
		{Existing, New, false},
		{ChooseOption, FormSent, true},
		{ChooseOption, Partnership, true},
		{FormSent, FormInProgress, true},
		{FormInProgress, FormCompleted, true},
		{FormInProgress, FormSent, true},
		{FormCompleted, Partnership, true},
		{FormCompleted, New, false},
		{ManualIntervention, New, true},
		{ManualIntervention, FormCompleted, false},
		{Partnership, ManualIntervention, true},
		{Partnership, New, false},
	}
	for _, c := range cases {
		got := ValidTransition(c.from, c.to)
		if got != c.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestAttemptTransitionInvalid(t *testing.T) {
	got, err := AttemptTransition(Existing, FormSent)
	if got != Existing {
		t.Fatalf("expected state unchanged on invalid transition, got %s", got)
	}
	if !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAttemptTransitionValid(t *testing.T) {
	got, err := AttemptTransition(New, ChooseOption)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ChooseOption {
		t.Fatalf("got %s, want %s", got, ChooseOption)
	}
}

func TestReplyAllowed(t *testing.T) {
	allowed := map[State]bool{
		New:                true,
		ChooseOption:       true,
		FormSent:           true,
		FormInProgress:     true,
		FormCompleted:      false,
		Existing:           false,
		ManualIntervention: false,
		Partnership:        false,
	}
	for state, want := range allowed {
		if got := ReplyAllowed(state); got != want {
			t.Errorf("ReplyAllowed(%s) = %v, want %v", state, got, want)
		}
	}
}

func TestAllStatesCoversTransitionTable(t *testing.T) {
	all := AllStates()
	seen := map[State]bool{}
	for _, s := range all {
		seen[s] = true
	}
	for from, tos := range transitions {
		if !seen[from] {
			t.Errorf("AllStates missing from-state %s", from)
		}
		for _, to := range tos {
			if !seen[to] {
				t.Errorf("AllStates missing to-state %s", to)
			}
		}
	}
}
