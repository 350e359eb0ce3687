package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

// fakeLeadRepo is a minimal in-memory stand-in for repos.LeadRepo, enough to
// exercise the identity resolver's four cases without a database.
type fakeLeadRepo struct {
	repos.LeadRepo
	leads        map[uuid.UUID]*domain.Lead
	interactions map[uuid.UUID][]uuid.UUID // leadID -> interaction ids attached
	deleted      []uuid.UUID
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		leads:        map[uuid.UUID]*domain.Lead{},
		interactions: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeLeadRepo) GetByPrimary(_ context.Context, _ *gorm.DB, primaryID string) (*domain.Lead, error) {
	for _, l := range f.leads {
		if l.PrimaryID == primaryID {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLeadRepo) GetByAlt(_ context.Context, _ *gorm.DB, altID string) (*domain.Lead, error) {
	for _, l := range f.leads {
		if l.AltID != nil && *l.AltID == altID {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLeadRepo) UpdateFields(_ context.Context, _ *gorm.DB, leadID uuid.UUID, updates map[string]interface{}) error {
	l := f.leads[leadID]
	if l == nil {
		return nil
	}
	if v, ok := updates["primary_id"].(string); ok {
		l.PrimaryID = v
	}
	if v, ok := updates["alt_id"].(string); ok {
		l.AltID = &v
	}
	return nil
}

func (f *fakeLeadRepo) AttachAlt(_ context.Context, _ *gorm.DB, leadID uuid.UUID, altID string) error {
	l := f.leads[leadID]
	if l != nil && l.AltID == nil {
		l.AltID = &altID
	}
	return nil
}

func (f *fakeLeadRepo) ReparentInteractions(_ context.Context, _ *gorm.DB, fromLeadID, toLeadID uuid.UUID) error {
	f.interactions[toLeadID] = append(f.interactions[toLeadID], f.interactions[fromLeadID]...)
	delete(f.interactions, fromLeadID)
	return nil
}

func (f *fakeLeadRepo) Delete(_ context.Context, _ *gorm.DB, leadID uuid.UUID) error {
	delete(f.leads, leadID)
	f.deleted = append(f.deleted, leadID)
	return nil
}

func testLogger() *logger.Logger {
	l, _ := logger.New("test")
	return l
}

func TestResolveOnlyPrimaryKnown(t *testing.T) {
	repo := newFakeLeadRepo()
	lead := &domain.Lead{ID: uuid.New(), PrimaryID: "p1"}
	repo.leads[lead.ID] = lead

	r := NewResolver(repo, testLogger())
	got, err := r.Resolve(context.Background(), nil, "p1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != lead.ID {
		t.Errorf("expected to resolve the primary lead, got %+v", got)
	}
}

func TestResolveMigratesAltOnlyLead(t *testing.T) {
	repo := newFakeLeadRepo()
	lead := &domain.Lead{ID: uuid.New(), PrimaryID: "old-primary"}
	repo.leads[lead.ID] = lead

	r := NewResolver(repo, testLogger())
	got, err := r.Resolve(context.Background(), nil, "new-primary", "old-primary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PrimaryID != "new-primary" {
		t.Errorf("expected primary id to be migrated, got %q", got.PrimaryID)
	}
	if got.AltID == nil || *got.AltID != "old-primary" {
		t.Errorf("expected alt id to record the prior primary, got %v", got.AltID)
	}
}

func TestResolveMergesSplitBrain(t *testing.T) {
	repo := newFakeLeadRepo()
	primary := &domain.Lead{ID: uuid.New(), PrimaryID: "p1"}
	alt := &domain.Lead{ID: uuid.New(), PrimaryID: "other"}
	altID := "a1"
	alt.AltID = &altID
	repo.leads[primary.ID] = primary
	repo.leads[alt.ID] = alt
	repo.interactions[alt.ID] = []uuid.UUID{uuid.New(), uuid.New()}

	r := NewResolver(repo, testLogger())
	got, err := r.Resolve(context.Background(), nil, "p1", "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != primary.ID {
		t.Errorf("expected merge to return the primary lead, got %+v", got)
	}
	if got.AltID == nil || *got.AltID != "a1" {
		t.Errorf("expected alt id attached to primary, got %v", got.AltID)
	}
	if _, stillThere := repo.leads[alt.ID]; stillThere {
		t.Error("expected alt-only lead to be deleted")
	}
	if len(repo.interactions[primary.ID]) != 2 {
		t.Errorf("expected interactions reparented to primary, got %v", repo.interactions[primary.ID])
	}
}

func TestResolveNeitherKnownReturnsNil(t *testing.T) {
	repo := newFakeLeadRepo()
	r := NewResolver(repo, testLogger())
	got, err := r.Resolve(context.Background(), nil, "p1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil lead when neither identifier is known, got %+v", got)
	}
}
