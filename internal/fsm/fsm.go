// Package fsm is the pure, I/O-free conversation state machine (§4.E). It
// owns exactly one thing: the table of which LeadState transitions are
// allowed, and which states the bot is permitted to reply from.
package fsm

import (
	"fmt"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
)

type State = domain.LeadState

const (
	New                = domain.LeadStateNew
	Existing           = domain.LeadStateExisting
	ChooseOption       = domain.LeadStateChooseOption
	FormSent           = domain.LeadStateFormSent
	FormInProgress     = domain.LeadStateFormInProgress
	FormCompleted      = domain.LeadStateFormCompleted
	ManualIntervention = domain.LeadStateManualIntervention
	Partnership        = domain.LeadStatePartnership
)

// transitions is the full, closed transition table from §4.E. A from-state
// with an empty (or no) entry has no allowed outgoing transitions (EXISTING).
var transitions = map[State][]State{
	New:                {ChooseOption, ManualIntervention},
	Existing:           {},
	ChooseOption:       {FormSent, Partnership, ManualIntervention},
	FormSent:           {FormInProgress, ManualIntervention},
	FormInProgress:     {FormCompleted, FormSent, ManualIntervention},
	FormCompleted:      {ManualIntervention, Partnership},
	ManualIntervention: {New, ChooseOption, FormSent, Partnership},
	Partnership:        {ManualIntervention},
}

// replyAllowed is the set of states in which the bot may emit an automatic
// reply at all. Outside this set the handler must commit silently.
var replyAllowed = map[State]bool{
	New:            true,
	ChooseOption:   true,
	FormSent:       true,
	FormInProgress: true,
}

// ValidTransition reports whether to is a direct successor of from.
func ValidTransition(from, to State) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AttemptTransition returns (to, nil) when the transition is allowed, or
// (from, ErrInvalidTransition) otherwise, leaving from unchanged.
func AttemptTransition(from, to State) (State, error) {
	if ValidTransition(from, to) {
		return to, nil
	}
	return from, fmt.Errorf("%s -> %s: %w", from, to, domainerrors.ErrInvalidTransition)
}

// ReplyAllowed reports whether the handler pipeline may emit an automatic
// reply while the lead is in this state.
func ReplyAllowed(state State) bool {
	return replyAllowed[state]
}

// AllStates returns every LeadState the machine knows about, for validation
// and test fixtures.
func AllStates() []State {
	return []State{New, Existing, ChooseOption, FormSent, FormInProgress, FormCompleted, ManualIntervention, Partnership}
}
