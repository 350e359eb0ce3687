package parser

import (
	"fmt"

	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
)

// Validate rejects the InboundMessage shapes the core never acts on: missing
// identifiers, our own outbound echoes, group/broadcast traffic, and empty
// text. from_me messages are handled by the caller (they still update
// mark_existing) so they are surfaced as a distinct, non-fatal reason.
func Validate(msg InboundMessage) error {
	if msg.MessageID == "" {
		return fmt.Errorf("%w", domainerrors.ErrMissingMessageID)
	}
	if msg.UserID == "" {
		return fmt.Errorf("%w", domainerrors.ErrMissingUserID)
	}
	if msg.FromMe {
		return fmt.Errorf("%w", domainerrors.ErrFromMe)
	}
	if msg.IsGroup {
		return fmt.Errorf("%w", domainerrors.ErrGroupIgnored)
	}
	if msg.IsBroadcast {
		return fmt.Errorf("%w", domainerrors.ErrBroadcastIgnored)
	}
	if msg.Text == "" {
		return fmt.Errorf("%w", domainerrors.ErrEmptyText)
	}
	return nil
}
