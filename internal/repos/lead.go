package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// CreateOpts carries the optional fields GetOrCreate may apply on top of an
// existing Lead row.
type CreateOpts struct {
	PushName string
	AltID    string
}

type LeadRepo interface {
	GetByPrimary(ctx context.Context, tx *gorm.DB, primaryID string) (*domain.Lead, error)
	GetByAlt(ctx context.Context, tx *gorm.DB, altID string) (*domain.Lead, error)
	GetByLeadID(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*domain.Lead, error)
	Create(ctx context.Context, tx *gorm.DB, primaryID string, transport domain.Transport, state domain.LeadState, pushName, altID string) (*domain.Lead, error)
	GetOrCreate(ctx context.Context, tx *gorm.DB, primaryID string, transport domain.Transport, opts CreateOpts) (*domain.Lead, bool, error)
	MarkExisting(ctx context.Context, tx *gorm.DB, primaryID string, transport domain.Transport) (*domain.Lead, error)
	UpdateState(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, newState domain.LeadState) (*domain.Lead, error)
	IncrementWarning(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, maxWarnings int) (*domain.Lead, bool, error)
	ResetWarning(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error
	AddInteraction(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, messageID, text string, direction domain.InteractionDirection) error
	GetForm(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*domain.FormFragment, error)
	UpsertForm(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, partial domain.FormFragment) (*domain.FormFragment, error)
	ReparentInteractions(ctx context.Context, tx *gorm.DB, fromLeadID, toLeadID uuid.UUID) error
	AttachAlt(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, altID string) error
	UpdateFields(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error
}

type leadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo {
	return &leadRepo{
		db:  db,
		log: baseLog.With("repo", "LeadRepo"),
	}
}

func (r *leadRepo) GetByPrimary(ctx context.Context, tx *gorm.DB, primaryID string) (*domain.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lead domain.Lead
	err := transaction.WithContext(ctx).Where("primary_id = ?", primaryID).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepo) GetByAlt(ctx context.Context, tx *gorm.DB, altID string) (*domain.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lead domain.Lead
	err := transaction.WithContext(ctx).Where("alt_id = ?", altID).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepo) GetByLeadID(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*domain.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lead domain.Lead
	err := transaction.WithContext(ctx).Where("id = ?", leadID).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepo) Create(ctx context.Context, tx *gorm.DB, primaryID string, transport domain.Transport, state domain.LeadState, pushName, altID string) (*domain.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	lead := &domain.Lead{
		PrimaryID: primaryID,
		Transport: transport,
		State:     state,
	}
	if pushName != "" {
		lead.PushName = &pushName
	}
	if altID != "" {
		lead.AltID = &altID
	}
	if err := transaction.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

// GetOrCreate returns the lead for primaryID, creating it in NEW state if
// absent. When found, it backfills push_name/alt_id the same way the
// distilled contract describes: a differing push name or a present-but-
// previously-absent alt id gets written; otherwise the row is returned
// unchanged.
func (r *leadRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, primaryID string, transport domain.Transport, opts CreateOpts) (*domain.Lead, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	existing, err := r.GetByPrimary(ctx, transaction, primaryID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		lead, err := r.Create(ctx, transaction, primaryID, transport, domain.LeadStateNew, opts.PushName, opts.AltID)
		if err != nil {
			return nil, false, err
		}
		return lead, true, nil
	}

	updates := map[string]interface{}{}
	if opts.PushName != "" && (existing.PushName == nil || *existing.PushName != opts.PushName) {
		updates["push_name"] = opts.PushName
	}
	if opts.AltID != "" && existing.AltID == nil {
		updates["alt_id"] = opts.AltID
	}
	if len(updates) == 0 {
		return existing, false, nil
	}
	updates["updated_at"] = time.Now()
	if err := transaction.WithContext(ctx).Model(&domain.Lead{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	refreshed, err := r.GetByLeadID(ctx, transaction, existing.ID)
	if err != nil {
		return nil, false, err
	}
	return refreshed, false, nil
}

// MarkExisting is used when a lead is first observed through our own
// outbound message rather than an inbound one: create it directly in
// EXISTING, or bump a NEW lead straight to EXISTING. Any other state is
// left alone.
func (r *leadRepo) MarkExisting(ctx context.Context, tx *gorm.DB, primaryID string, transport domain.Transport) (*domain.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	existing, err := r.GetByPrimary(ctx, transaction, primaryID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return r.Create(ctx, transaction, primaryID, transport, domain.LeadStateExisting, "", "")
	}
	if existing.State != domain.LeadStateNew {
		return existing, nil
	}
	now := time.Now()
	if err := transaction.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"state": domain.LeadStateExisting, "updated_at": now}).Error; err != nil {
		return nil, err
	}
	existing.State = domain.LeadStateExisting
	existing.UpdatedAt = now
	return existing, nil
}

// UpdateState row-locks the lead, validates the transition through the
// state machine, and persists it. Invalid transitions leave the row
// untouched and return ErrInvalidTransition so the caller rolls back.
func (r *leadRepo) UpdateState(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, newState domain.LeadState) (*domain.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var lead domain.Lead
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", leadID).
		First(&lead).Error; err != nil {
		return nil, err
	}

	if !validTransitionFn(lead.State, newState) {
		return nil, domainerrors.ErrInvalidTransition
	}

	now := time.Now()
	if err := transaction.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]interface{}{"state": newState, "updated_at": now}).Error; err != nil {
		return nil, err
	}
	lead.State = newState
	lead.UpdatedAt = now
	return &lead, nil
}

// validTransitionFn accepts every transition until SetTransitionValidator
// points it at fsm.ValidTransition during app wiring, so this package does
// not import internal/fsm itself.
var validTransitionFn = func(from, to domain.LeadState) bool { return true }

// SetTransitionValidator lets internal/app wire the real fsm.ValidTransition
// into the repo at startup.
func SetTransitionValidator(f func(from, to domain.LeadState) bool) {
	validTransitionFn = f
}

func (r *leadRepo) IncrementWarning(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, maxWarnings int) (*domain.Lead, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var lead domain.Lead
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", leadID).
			First(&lead).Error; err != nil {
			return err
		}
		lead.WarningCount++
		return txx.Model(&domain.Lead{}).
			Where("id = ?", leadID).
			Updates(map[string]interface{}{
				"warning_count": gorm.Expr("warning_count + 1"),
				"updated_at":    time.Now(),
			}).Error
	})
	if err != nil {
		return nil, false, err
	}
	shouldEscalate := lead.WarningCount >= maxWarnings
	return &lead, shouldEscalate, nil
}

func (r *leadRepo) ResetWarning(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]interface{}{"warning_count": 0, "updated_at": time.Now()}).Error
}

func (r *leadRepo) AddInteraction(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, messageID, text string, direction domain.InteractionDirection) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	interaction := &domain.Interaction{
		LeadID:    leadID,
		MessageID: messageID,
		Text:      text,
		Direction: direction,
	}
	return transaction.WithContext(ctx).Create(interaction).Error
}

func (r *leadRepo) GetForm(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*domain.FormFragment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var form domain.FormFragment
	err := transaction.WithContext(ctx).Where("lead_id = ?", leadID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// UpsertForm merges partial onto any existing fragment field-wise: a
// non-null new value replaces any prior value, a null new value preserves
// whatever was already stored. completed is recomputed by the caller via
// the form validator, not here.
func (r *leadRepo) UpsertForm(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, partial domain.FormFragment) (*domain.FormFragment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	existing, err := r.GetForm(ctx, transaction, leadID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		partial.LeadID = leadID
		if err := transaction.WithContext(ctx).Create(&partial).Error; err != nil {
			return nil, err
		}
		return &partial, nil
	}

	updates := map[string]interface{}{}
	if partial.Biodata != nil {
		existing.Biodata = partial.Biodata
		updates["biodata"] = *partial.Biodata
	}
	if partial.SourceInfo != nil {
		existing.SourceInfo = partial.SourceInfo
		updates["source_info"] = *partial.SourceInfo
	}
	if partial.BusinessType != nil {
		existing.BusinessType = partial.BusinessType
		updates["business_type"] = *partial.BusinessType
	}
	if partial.Budget != nil {
		existing.Budget = partial.Budget
		updates["budget"] = *partial.Budget
	}
	if partial.StartPlan != nil {
		existing.StartPlan = partial.StartPlan
		updates["start_plan"] = *partial.StartPlan
	}
	existing.Completed = partial.Completed
	updates["completed"] = partial.Completed

	if len(updates) == 0 {
		return existing, nil
	}
	updates["updated_at"] = time.Now()
	if err := transaction.WithContext(ctx).Model(&domain.FormFragment{}).
		Where("lead_id = ?", leadID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// ReparentInteractions moves every interaction row from one lead to
// another. Used by the identity resolver's split-brain merge; reparenting
// zero rows is always a safe no-op.
func (r *leadRepo) ReparentInteractions(ctx context.Context, tx *gorm.DB, fromLeadID, toLeadID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&domain.Interaction{}).
		Where("lead_id = ?", fromLeadID).
		Update("lead_id", toLeadID).Error
}

func (r *leadRepo) AttachAlt(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, altID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ? AND alt_id IS NULL", leadID).
		Updates(map[string]interface{}{"alt_id": altID, "updated_at": time.Now()}).Error
}

func (r *leadRepo) UpdateFields(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", leadID).
		Updates(updates).Error
}

func (r *leadRepo) Delete(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Where("id = ?", leadID).Delete(&domain.Lead{}).Error
}
