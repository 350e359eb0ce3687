// Package identity implements §4.F: reconciling the primary and alternate
// identifiers a transport may present for the same human into a single
// Lead row, inside the caller's transaction.
package identity

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

type Resolver struct {
	leads repos.LeadRepo
	log   *logger.Logger
}

func NewResolver(leads repos.LeadRepo, baseLog *logger.Logger) *Resolver {
	return &Resolver{
		leads: leads,
		log:   baseLog.With("component", "IdentityResolver"),
	}
}

// Resolve implements the four cases of §4.F. altID may be empty when the
// transport presented none. It never creates a lead — callers still go
// through LeadRepo.GetOrCreate for that, case 4.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, primaryID, altID string) (*domain.Lead, error) {
	byPrimary, err := r.leads.GetByPrimary(ctx, tx, primaryID)
	if err != nil {
		return nil, fmt.Errorf("lookup by primary: %w", err)
	}

	if altID == "" {
		// Case 1: only primary known (or neither known — caller creates).
		return byPrimary, nil
	}

	byAlt, err := r.leads.GetByAlt(ctx, tx, altID)
	if err != nil {
		return nil, fmt.Errorf("lookup by alt: %w", err)
	}
	if byAlt == nil {
		// A lead first seen under the alternate identifier holds it as its
		// primary_id.
		byAlt, err = r.leads.GetByPrimary(ctx, tx, altID)
		if err != nil {
			return nil, fmt.Errorf("lookup alt as primary: %w", err)
		}
	}

	switch {
	case byPrimary == nil && byAlt != nil:
		// Case 2: only an alt-matching lead exists. Migrate it onto primary.
		return r.migrate(ctx, tx, byAlt, primaryID, altID)

	case byPrimary != nil && byAlt != nil && byPrimary.ID != byAlt.ID:
		// Case 3: split-brain. Merge byAlt into byPrimary.
		return r.merge(ctx, tx, byPrimary, byAlt)

	default:
		// byPrimary != nil && (byAlt == nil || byAlt.ID == byPrimary.ID): case 1.
		return byPrimary, nil
	}
}

func (r *Resolver) migrate(ctx context.Context, tx *gorm.DB, lead *domain.Lead, primaryID, altID string) (*domain.Lead, error) {
	if err := r.leads.UpdateFields(ctx, tx, lead.ID, map[string]interface{}{
		"primary_id": primaryID,
		"alt_id":     altID,
	}); err != nil {
		return nil, fmt.Errorf("migrate alt lead to primary: %w", err)
	}
	lead.PrimaryID = primaryID
	lead.AltID = &altID
	r.log.Info("migrated alt-only lead onto primary", "lead_id", lead.ID, "primary_id", primaryID)
	return lead, nil
}

// merge attaches altLead's identifier to primaryLead, re-parents every
// interaction from altLead, and deletes altLead. Re-parenting a lead with
// zero interactions is always a safe no-op, so this runs unconditionally —
// the resolution adopted for the open split-brain question.
func (r *Resolver) merge(ctx context.Context, tx *gorm.DB, primaryLead, altLead *domain.Lead) (*domain.Lead, error) {
	if altLead.AltID != nil && primaryLead.AltID == nil {
		if err := r.leads.AttachAlt(ctx, tx, primaryLead.ID, *altLead.AltID); err != nil {
			return nil, fmt.Errorf("attach alt id during merge: %w", err)
		}
		primaryLead.AltID = altLead.AltID
	}

	if err := r.leads.ReparentInteractions(ctx, tx, altLead.ID, primaryLead.ID); err != nil {
		return nil, fmt.Errorf("reparent interactions during merge: %w", err)
	}

	if err := r.leads.Delete(ctx, tx, altLead.ID); err != nil {
		return nil, fmt.Errorf("delete alt-only lead during merge: %w", err)
	}

	r.log.Info("merged split-brain leads", "primary_lead_id", primaryLead.ID, "alt_lead_id", altLead.ID)
	return primaryLead, nil
}
