// Package errors declares the sentinel error taxonomy the inbound pipeline
// reasons about. Components return these wrapped with fmt.Errorf("...: %w")
// so callers can still errors.Is against the sentinel.
package errors

import "errors"

var (
	// ErrDuplicateMessage means (transport, message_id) was already processed.
	ErrDuplicateMessage = errors.New("duplicate message")
	// ErrInCooldown means the user is within the post-reply silence window.
	ErrInCooldown = errors.New("user in cooldown")
	// ErrLockFailed means the per-user mutex could not be acquired.
	ErrLockFailed = errors.New("lock acquisition failed")
	// ErrInvalidTransition means a state transition is not in the allowed table.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidOption means a CHOOSE_OPTION reply did not match 1/2/3.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidForm means the merged form fragment is still incomplete.
	ErrInvalidForm = errors.New("invalid or incomplete form")
	// ErrBackingStoreUnavailable means the dedup/lock/cooldown store could not be reached.
	ErrBackingStoreUnavailable = errors.New("backing store unavailable")
	// ErrDatabaseFailure means the relational store returned an unexpected error.
	ErrDatabaseFailure = errors.New("database failure")
	// ErrQueueEnqueueFailure means a job row could not be written inside the outer transaction.
	ErrQueueEnqueueFailure = errors.New("queue enqueue failure")

	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrMissingMessageID, ErrMissingUserID, ErrFromMe, ErrGroupIgnored,
	// ErrBroadcastIgnored and ErrEmptyText are the Validate() rejection reasons
	// from the message parser (§4.G).
	ErrMissingMessageID = errors.New("missing message id")
	ErrMissingUserID    = errors.New("missing user id")
	ErrFromMe           = errors.New("message is from us")
	ErrGroupIgnored     = errors.New("group message ignored")
	ErrBroadcastIgnored = errors.New("broadcast message ignored")
	ErrEmptyText        = errors.New("empty message text")
)
