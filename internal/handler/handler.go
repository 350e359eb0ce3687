// Package handler implements §4.I: the sole entry point for an inbound
// message after parsing, composing admission control, identity resolution,
// the state machine, the form validator, and job dispatch into one
// serialized per-user flow.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/formvalidator"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/fsm"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/identity"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/templates"
)

// Result is the handler pipeline's verdict on one inbound message.
type Result struct {
	Success       bool
	ShouldReply   bool
	ReplyText     string
	SecondaryText string
	Error         error
}

// idempotencyStore, mutexLock, and cooldownStore narrow *idempotency.Store,
// *lock.Mutex, and *cooldown.Store down to what the pipeline actually calls,
// the same way it already depends on repos.LeadRepo rather than a concrete
// repo type — this is what lets tests swap in fakes for all four.
type idempotencyStore interface {
	Seen(ctx context.Context, transport, messageID string) (bool, error)
	Mark(ctx context.Context, transport, messageID string) error
}

type mutexLock interface {
	AcquireWithRetry(ctx context.Context, userID string, maxAttempts int) (token string, ok bool, err error)
	Release(ctx context.Context, userID, token string) error
}

type cooldownStore interface {
	InCooldown(ctx context.Context, userID string) (bool, error)
	SetCooldown(ctx context.Context, userID string) error
}

// Handler composes components A-H (§2) into the per-user processing flow.
type Handler struct {
	db          *gorm.DB
	idempotency idempotencyStore
	mutex       mutexLock
	cooldown    cooldownStore
	leads       repos.LeadRepo
	resolver    *identity.Resolver
	dispatcher  *jobs.Dispatcher
	templates   *templates.Map
	log         *logger.Logger

	lockRetries      int
	markBeforeCommit bool
	maxWarnings      int
}

func New(
	db *gorm.DB,
	idem idempotencyStore,
	mutex mutexLock,
	cd cooldownStore,
	leads repos.LeadRepo,
	resolver *identity.Resolver,
	dispatcher *jobs.Dispatcher,
	tmpl *templates.Map,
	markBeforeCommit bool,
	maxWarnings int,
	baseLog *logger.Logger,
) *Handler {
	return &Handler{
		db:               db,
		idempotency:      idem,
		mutex:            mutex,
		cooldown:         cd,
		leads:            leads,
		resolver:         resolver,
		dispatcher:       dispatcher,
		templates:        tmpl,
		lockRetries:      3,
		markBeforeCommit: markBeforeCommit,
		maxWarnings:      maxWarnings,
		log:              baseLog.With("component", "Handler"),
	}
}

// Handle is the pipeline's single entry point, steps 1-7 of §4.I.
func (h *Handler) Handle(ctx context.Context, msg parser.InboundMessage) (Result, error) {
	// 1. Idempotency.
	seen, err := h.idempotency.Seen(ctx, msg.Transport, msg.MessageID)
	if err != nil {
		h.log.Warn("idempotency check errored, proceeding permissively", "error", err)
	}
	if seen {
		return Result{Success: true}, nil
	}
	if h.markBeforeCommit {
		// Fence against the transport redelivering the same event shape
		// before any processing, at the cost of marking-then-rolling-back
		// on a later transient DB failure (§5 "Cancellation & timeout").
		_ = h.idempotency.Mark(ctx, msg.Transport, msg.MessageID)
	}

	// 2. Outgoing messages from us.
	if msg.FromMe {
		if _, err := h.leads.MarkExisting(ctx, nil, msg.UserID, domain.Transport(msg.Transport)); err != nil {
			h.log.Error("mark_existing failed for outbound message", "error", err)
			return Result{Success: false, Error: domainerrors.ErrDatabaseFailure}, nil
		}
		lead, err := h.leads.GetByPrimary(ctx, nil, msg.UserID)
		if err == nil && lead != nil {
			_ = h.leads.AddInteraction(ctx, nil, lead.ID, msg.MessageID, msg.Text, domain.DirectionOut)
		}
		if !h.markBeforeCommit {
			_ = h.idempotency.Mark(ctx, msg.Transport, msg.MessageID)
		}
		return Result{Success: true}, nil
	}

	// 3. Cooldown.
	inCooldown, err := h.cooldown.InCooldown(ctx, msg.UserID)
	if err != nil {
		h.log.Warn("cooldown check errored, proceeding permissively", "error", err)
	}
	if inCooldown {
		err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			lead, _, err := h.leads.GetOrCreate(ctx, tx, msg.UserID, domain.Transport(msg.Transport), repos.CreateOpts{PushName: msg.Metadata.PushName, AltID: msg.Metadata.AltID})
			if err != nil {
				return err
			}
			return h.leads.AddInteraction(ctx, tx, lead.ID, msg.MessageID, msg.Text, domain.DirectionIn)
		})
		if err != nil {
			h.log.Error("cooldown-path transaction failed", "error", err)
		}
		if !h.markBeforeCommit {
			_ = h.idempotency.Mark(ctx, msg.Transport, msg.MessageID)
		}
		return Result{Success: true}, nil
	}

	// 4. Mutex.
	token, ok, err := h.mutex.AcquireWithRetry(ctx, msg.UserID, h.lockRetries)
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("%w: %v", domainerrors.ErrLockFailed, err)}, nil
	}
	if !ok {
		return Result{Success: false, Error: domainerrors.ErrLockFailed}, nil
	}
	defer func() {
		if err := h.mutex.Release(ctx, msg.UserID, token); err != nil {
			h.log.Warn("mutex release failed", "user_id", msg.UserID, "error", err)
		}
	}()

	// 5. Transactional processing.
	var result Result
	txErr := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, _, err := h.leads.GetOrCreate(ctx, tx, msg.UserID, domain.Transport(msg.Transport), repos.CreateOpts{PushName: msg.Metadata.PushName, AltID: msg.Metadata.AltID})
		if err != nil {
			return err
		}

		if msg.Metadata.AltID != "" {
			resolved, err := h.resolver.Resolve(ctx, tx, msg.UserID, msg.Metadata.AltID)
			if err != nil {
				return err
			}
			if resolved != nil {
				lead = resolved
			}
		}

		if err := h.leads.AddInteraction(ctx, tx, lead.ID, msg.MessageID, msg.Text, domain.DirectionIn); err != nil {
			return err
		}

		if !fsm.ReplyAllowed(lead.State) {
			result = Result{Success: true, ShouldReply: false}
			return nil
		}

		dispatched, err := h.dispatch(ctx, tx, lead, msg)
		if err != nil {
			return err
		}
		result = dispatched
		return nil
	})
	if txErr != nil {
		h.log.Error("transactional processing failed", "error", txErr)
		if !h.markBeforeCommit {
			return Result{Success: false, Error: fmt.Errorf("%w: %v", domainerrors.ErrDatabaseFailure, txErr)}, nil
		}
		// markBeforeCommit already fenced the idempotency key; a later
		// transient failure here means one reply is lost rather than
		// risking a duplicate on retry. See §5.
		return Result{Success: false, Error: fmt.Errorf("%w: %v", domainerrors.ErrDatabaseFailure, txErr)}, nil
	}

	if !h.markBeforeCommit {
		_ = h.idempotency.Mark(ctx, msg.Transport, msg.MessageID)
	}

	// 6. Post-commit cooldown.
	if result.ShouldReply {
		if err := h.cooldown.SetCooldown(ctx, msg.UserID); err != nil {
			h.log.Warn("set_cooldown failed", "user_id", msg.UserID, "error", err)
		}
	}

	return result, nil
	// 7. Mutex release happens via the deferred Release above on every path.
}

func (h *Handler) dispatch(ctx context.Context, tx *gorm.DB, lead *domain.Lead, msg parser.InboundMessage) (Result, error) {
	switch lead.State {
	case domain.LeadStateNew:
		return h.dispatchNew(ctx, tx, lead)
	case domain.LeadStateChooseOption:
		return h.dispatchChooseOption(ctx, tx, lead, msg)
	case domain.LeadStateFormSent, domain.LeadStateFormInProgress:
		return h.dispatchForm(ctx, tx, lead, msg)
	case domain.LeadStateFormCompleted:
		return h.escalate(ctx, tx, lead, msg, "post_form_contact", templates.QuestionReceived)
	case domain.LeadStatePartnership:
		return h.escalate(ctx, tx, lead, msg, "partnership_followup", templates.QuestionReceived)
	default:
		// EXISTING, MANUAL_INTERVENTION: should never reach dispatch since
		// ReplyAllowed is false for them; treated as silence if it does.
		return Result{Success: true, ShouldReply: false}, nil
	}
}

func (h *Handler) dispatchNew(ctx context.Context, tx *gorm.DB, lead *domain.Lead) (Result, error) {
	if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateChooseOption); err != nil {
		return Result{}, err
	}
	return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.Welcome)}, nil
}

func (h *Handler) dispatchChooseOption(ctx context.Context, tx *gorm.DB, lead *domain.Lead, msg parser.InboundMessage) (Result, error) {
	option := strings.TrimSpace(msg.Text)
	switch option {
	case "1":
		if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateFormSent); err != nil {
			return Result{}, err
		}
		return Result{
			Success:       true,
			ShouldReply:   true,
			ReplyText:     h.templates.Get(templates.ChooseOptionAck),
			SecondaryText: h.templates.Get(templates.FormTemplate),
		}, nil

	case "2":
		if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateManualIntervention); err != nil {
			return Result{}, err
		}
		if _, err := h.dispatcher.Enqueue(ctx, tx, domain.QueueOperatorNotify, jobs.OperatorNotifyPayload{
			Kind: jobs.NotifyPartnershipInterest,
			Data: map[string]interface{}{"lead_id": lead.ID, "user_id": lead.PrimaryID, "transport": lead.Transport},
		}); err != nil {
			return Result{}, err
		}
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.PartnershipAck)}, nil

	case "3":
		if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateManualIntervention); err != nil {
			return Result{}, err
		}
		if _, err := h.dispatcher.Enqueue(ctx, tx, domain.QueueOperatorNotify, jobs.OperatorNotifyPayload{
			Kind: jobs.NotifyOtherNeeds,
			Data: map[string]interface{}{"lead_id": lead.ID, "user_id": lead.PrimaryID, "transport": lead.Transport},
		}); err != nil {
			return Result{}, err
		}
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.OtherNeedsAck)}, nil

	default:
		_, shouldEscalate, err := h.leads.IncrementWarning(ctx, tx, lead.ID, h.maxWarnings)
		if err != nil {
			return Result{}, err
		}
		if shouldEscalate {
			return h.escalate(ctx, tx, lead, msg, "max_warnings", templates.EscalationNotice)
		}
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.InvalidOption)}, nil
	}
}

func (h *Handler) dispatchForm(ctx context.Context, tx *gorm.DB, lead *domain.Lead, msg parser.InboundMessage) (Result, error) {
	if lead.State == domain.LeadStateFormSent {
		if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateFormInProgress); err != nil {
			return Result{}, err
		}
	}

	existingFragment, err := h.leads.GetForm(ctx, tx, lead.ID)
	if err != nil {
		return Result{}, err
	}
	var existing *formvalidator.Fragment
	if existingFragment != nil {
		existing = &formvalidator.Fragment{
			Biodata:      existingFragment.Biodata,
			SourceInfo:   existingFragment.SourceInfo,
			BusinessType: existingFragment.BusinessType,
			Budget:       existingFragment.Budget,
			StartPlan:    existingFragment.StartPlan,
		}
	}

	parsed := formvalidator.Parse(msg.Text)
	merged, valid, missing := formvalidator.Validate(parsed, existing)

	if _, err := h.leads.UpsertForm(ctx, tx, lead.ID, domain.FormFragment{
		Biodata:      merged.Biodata,
		SourceInfo:   merged.SourceInfo,
		BusinessType: merged.BusinessType,
		Budget:       merged.Budget,
		StartPlan:    merged.StartPlan,
		Completed:    valid,
	}); err != nil {
		return Result{}, err
	}

	if valid {
		if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateFormCompleted); err != nil {
			return Result{}, err
		}
		if _, err := h.dispatcher.Enqueue(ctx, tx, domain.QueueSpreadsheetSync, jobs.SpreadsheetSyncPayload{
			LeadID:    lead.ID.String(),
			UserID:    lead.PrimaryID,
			Transport: lead.Transport,
			Form: domain.FormFragment{
				Biodata:      merged.Biodata,
				SourceInfo:   merged.SourceInfo,
				BusinessType: merged.BusinessType,
				Budget:       merged.Budget,
				StartPlan:    merged.StartPlan,
				Completed:    true,
			},
		}); err != nil {
			return Result{}, err
		}
		if _, err := h.dispatcher.Enqueue(ctx, tx, domain.QueueOperatorNotify, jobs.OperatorNotifyPayload{
			Kind: jobs.NotifyFormCompleted,
			Data: map[string]interface{}{"lead_id": lead.ID, "user_id": lead.PrimaryID},
		}); err != nil {
			return Result{}, err
		}
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.FormReceived)}, nil
	}

	_, shouldEscalate, err := h.leads.IncrementWarning(ctx, tx, lead.ID, h.maxWarnings)
	if err != nil {
		return Result{}, err
	}
	if shouldEscalate {
		return h.escalate(ctx, tx, lead, msg, "max_warnings", templates.EscalationNotice)
	}
	return Result{Success: true, ShouldReply: true, ReplyText: formvalidator.ExplainMissing(missing)}, nil
}

// escalate attempts the MANUAL_INTERVENTION transition (swallowing
// ErrInvalidTransition since the lead may already be there) and enqueues
// the escalation notification.
func (h *Handler) escalate(ctx context.Context, tx *gorm.DB, lead *domain.Lead, msg parser.InboundMessage, reason string, replyKey templates.Key) (Result, error) {
	if _, err := h.leads.UpdateState(ctx, tx, lead.ID, domain.LeadStateManualIntervention); err != nil {
		if !isInvalidTransition(err) {
			return Result{}, err
		}
	}
	if _, err := h.dispatcher.Enqueue(ctx, tx, domain.QueueOperatorNotify, jobs.OperatorNotifyPayload{
		Kind: jobs.NotifyEscalation,
		Data: map[string]interface{}{
			"user_id":       lead.PrimaryID,
			"last_message":  msg.Text,
			"current_state": lead.State,
			"warning_count": lead.WarningCount,
			"transport":     lead.Transport,
			"reason":        reason,
			"timestamp":     time.Now(),
		},
	}); err != nil {
		return Result{}, err
	}
	return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(replyKey)}, nil
}

func isInvalidTransition(err error) bool {
	return errors.Is(err, domainerrors.ErrInvalidTransition)
}
