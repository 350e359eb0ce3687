package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	domainerrors "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/errors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/fsm"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/identity"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/templates"
)

// fakeLeadRepo is an in-memory stand-in for repos.LeadRepo, enough to drive
// the pipeline's state transitions without a real database. Embedding the
// interface means only the methods Handle actually calls need overriding.
type fakeLeadRepo struct {
	repos.LeadRepo
	leads        map[uuid.UUID]*domain.Lead
	forms        map[uuid.UUID]*domain.FormFragment
	interactions map[uuid.UUID]int
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		leads:        map[uuid.UUID]*domain.Lead{},
		forms:        map[uuid.UUID]*domain.FormFragment{},
		interactions: map[uuid.UUID]int{},
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

func (f *fakeLeadRepo) GetOrCreate(_ context.Context, _ *gorm.DB, primaryID string, transport domain.Transport, _ repos.CreateOpts) (*domain.Lead, bool, error) {
	for _, l := range f.leads {
		if l.PrimaryID == primaryID {
			return l, false, nil
		}
	}
	lead := &domain.Lead{ID: uuid.New(), PrimaryID: primaryID, Transport: transport, State: domain.LeadStateNew}
	f.leads[lead.ID] = lead
	return lead, true, nil
}

func (f *fakeLeadRepo) MarkExisting(_ context.Context, _ *gorm.DB, primaryID string, transport domain.Transport) (*domain.Lead, error) {
	for _, l := range f.leads {
		if l.PrimaryID == primaryID {
			if l.State == domain.LeadStateNew {
				l.State = domain.LeadStateExisting
			}
			return l, nil
		}
	}
	lead := &domain.Lead{ID: uuid.New(), PrimaryID: primaryID, Transport: transport, State: domain.LeadStateExisting}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeLeadRepo) UpdateState(_ context.Context, _ *gorm.DB, leadID uuid.UUID, newState domain.LeadState) (*domain.Lead, error) {
	l := f.leads[leadID]
	if l == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if !fsm.ValidTransition(l.State, newState) {
		return nil, domainerrors.ErrInvalidTransition
	}
	l.State = newState
	return l, nil
}

func (f *fakeLeadRepo) IncrementWarning(_ context.Context, _ *gorm.DB, leadID uuid.UUID, maxWarnings int) (*domain.Lead, bool, error) {
	l := f.leads[leadID]
	if l == nil {
		return nil, false, gorm.ErrRecordNotFound
	}
	l.WarningCount++
	return l, l.WarningCount >= maxWarnings, nil
}

func (f *fakeLeadRepo) AddInteraction(_ context.Context, _ *gorm.DB, leadID uuid.UUID, _, _ string, _ domain.InteractionDirection) error {
	f.interactions[leadID]++
	return nil
}

func (f *fakeLeadRepo) GetForm(_ context.Context, _ *gorm.DB, leadID uuid.UUID) (*domain.FormFragment, error) {
	return f.forms[leadID], nil
}

func (f *fakeLeadRepo) UpsertForm(_ context.Context, _ *gorm.DB, leadID uuid.UUID, partial domain.FormFragment) (*domain.FormFragment, error) {
	existing := f.forms[leadID]
	if existing == nil {
		partial.LeadID = leadID
		f.forms[leadID] = &partial
		return &partial, nil
	}
	if partial.Biodata != nil {
		existing.Biodata = partial.Biodata
	}
	if partial.SourceInfo != nil {
		existing.SourceInfo = partial.SourceInfo
	}
	if partial.BusinessType != nil {
		existing.BusinessType = partial.BusinessType
	}
	if partial.Budget != nil {
		existing.Budget = partial.Budget
	}
	if partial.StartPlan != nil {
		existing.StartPlan = partial.StartPlan
	}
	existing.Completed = partial.Completed
	return existing, nil
}

// fakeJobRunRepo records every Enqueue call instead of touching a database,
// the same technique internal/jobs's own dispatcher test uses.
type fakeJobRunRepo struct {
	repos.JobRunRepo
	enqueued []enqueuedJob
}

type enqueuedJob struct {
	Queue   domain.JobQueue
	Payload datatypes.JSON
}

func (f *fakeJobRunRepo) Enqueue(_ context.Context, _ *gorm.DB, queue domain.JobQueue, payload datatypes.JSON, maxAttempts int) (*domain.JobRun, error) {
	f.enqueued = append(f.enqueued, enqueuedJob{Queue: queue, Payload: payload})
	return &domain.JobRun{ID: uuid.New(), Queue: queue, Payload: payload, MaxAttempts: maxAttempts}, nil
}

type fakeIdempotencyStore struct {
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: map[string]bool{}}
}

func (f *fakeIdempotencyStore) Seen(_ context.Context, transport, messageID string) (bool, error) {
	return f.seen[transport+":"+messageID], nil
}

func (f *fakeIdempotencyStore) Mark(_ context.Context, transport, messageID string) error {
	f.seen[transport+":"+messageID] = true
	return nil
}

type fakeMutex struct{}

func (fakeMutex) AcquireWithRetry(_ context.Context, _ string, _ int) (string, bool, error) {
	return "token", true, nil
}

func (fakeMutex) Release(_ context.Context, _, _ string) error { return nil }

type fakeCooldownStore struct {
	inCooldown map[string]bool
	setCalls   []string
}

func newFakeCooldownStore() *fakeCooldownStore {
	return &fakeCooldownStore{inCooldown: map[string]bool{}}
}

func (f *fakeCooldownStore) InCooldown(_ context.Context, userID string) (bool, error) {
	return f.inCooldown[userID], nil
}

func (f *fakeCooldownStore) SetCooldown(_ context.Context, userID string) error {
	f.setCalls = append(f.setCalls, userID)
	return nil
}

// testFixture bundles a Handler wired entirely to fakes, plus the fakes
// themselves so assertions can inspect their recorded state. The only real
// component is an in-memory sqlite *gorm.DB, needed purely so
// db.Transaction has something to begin/commit against — none of the fakes
// ever touch it.
type testFixture struct {
	handler  *Handler
	leads    *fakeLeadRepo
	jobRuns  *fakeJobRunRepo
	idem     *fakeIdempotencyStore
	cooldown *fakeCooldownStore
}

func newTestFixture(t *testing.T, markBeforeCommit bool) *testFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	leads := newFakeLeadRepo()
	jobRuns := &fakeJobRunRepo{}
	idem := newFakeIdempotencyStore()
	cd := newFakeCooldownStore()
	resolver := identity.NewResolver(leads, log)
	dispatcher := jobs.NewDispatcher(jobRuns)
	tmpl := templates.NewMap(nil, log)

	h := New(db, idem, fakeMutex{}, cd, leads, resolver, dispatcher, tmpl, markBeforeCommit, domain.MaxWarningCount, log)

	return &testFixture{handler: h, leads: leads, jobRuns: jobRuns, idem: idem, cooldown: cd}
}

func inbound(messageID, userID, text string) parser.InboundMessage {
	return parser.InboundMessage{Transport: "whatsapp", MessageID: messageID, UserID: userID, Text: text}
}

// Scenario 1: fresh greeting creates the lead in CHOOSE_OPTION and replies
// with the welcome menu.
func TestHandleFreshGreeting(t *testing.T) {
	tf := newTestFixture(t, true)

	result, err := tf.handler.Handle(context.Background(), inbound("m1", "u1", "Halo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || !result.ShouldReply {
		t.Fatalf("expected success+reply, got %+v", result)
	}
	if !strings.Contains(result.ReplyText, "1") {
		t.Errorf("expected welcome menu to list numbered options, got %q", result.ReplyText)
	}

	lead, _ := tf.leads.GetByPrimary(context.Background(), nil, "u1")
	if lead == nil || lead.State != domain.LeadStateChooseOption {
		t.Fatalf("expected lead in CHOOSE_OPTION, got %+v", lead)
	}
	if tf.leads.interactions[lead.ID] != 1 {
		t.Errorf("expected one interaction logged, got %d", tf.leads.interactions[lead.ID])
	}
}

// Scenario 2: selecting option 1 from CHOOSE_OPTION moves to FORM_SENT and
// replies with the ack plus the form template as a secondary message.
func TestHandleChooseOptionOne(t *testing.T) {
	tf := newTestFixture(t, true)
	ctx := context.Background()

	if _, err := tf.handler.Handle(ctx, inbound("m1", "u1", "Halo")); err != nil {
		t.Fatalf("seed greeting failed: %v", err)
	}

	result, err := tf.handler.Handle(ctx, inbound("m2", "u1", "1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ShouldReply || result.SecondaryText == "" {
		t.Fatalf("expected ack reply with a secondary form template, got %+v", result)
	}

	lead, _ := tf.leads.GetByPrimary(ctx, nil, "u1")
	if lead.State != domain.LeadStateFormSent {
		t.Fatalf("expected FORM_SENT, got %s", lead.State)
	}
}

// Scenario 3: a single message containing every qualification field,
// including the compound "Nama, Domisili:" label, completes the form,
// queues a spreadsheet-sync job and a form_completed notification, and
// replies with FORM_RECEIVED.
func TestHandleCompleteForm(t *testing.T) {
	tf := newTestFixture(t, true)
	ctx := context.Background()

	if _, err := tf.handler.Handle(ctx, inbound("m1", "u1", "Halo")); err != nil {
		t.Fatalf("seed greeting failed: %v", err)
	}
	if _, err := tf.handler.Handle(ctx, inbound("m2", "u1", "1")); err != nil {
		t.Fatalf("seed option select failed: %v", err)
	}

	formText := "Nama, Domisili: Budi, Jakarta\nSumber info: Instagram\nJenis bisnis: F&B\nBudget: 100 juta\nRencana mulai: 3 bulan lagi"
	result, err := tf.handler.Handle(ctx, inbound("m3", "u1", formText))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ShouldReply {
		t.Fatalf("expected a reply, got %+v", result)
	}

	lead, _ := tf.leads.GetByPrimary(ctx, nil, "u1")
	if lead.State != domain.LeadStateFormCompleted {
		t.Fatalf("expected FORM_COMPLETED, got %s", lead.State)
	}

	form := tf.leads.forms[lead.ID]
	if form == nil || !form.Completed {
		t.Fatalf("expected a completed form fragment, got %+v", form)
	}
	if form.Biodata == nil || *form.Biodata != "Budi, Jakarta" {
		t.Errorf("unexpected biodata: %v", form.Biodata)
	}

	var queues []domain.JobQueue
	for _, j := range tf.jobRuns.enqueued {
		queues = append(queues, j.Queue)
	}
	if len(queues) != 2 {
		t.Fatalf("expected two jobs enqueued, got %d: %v", len(queues), queues)
	}
}

// Scenario 4: replaying an already-processed message id is a silent no-op.
func TestHandleDuplicateMessageIsNoop(t *testing.T) {
	tf := newTestFixture(t, true)
	ctx := context.Background()

	if _, err := tf.handler.Handle(ctx, inbound("m2", "u1", "1")); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	lead, _ := tf.leads.GetByPrimary(ctx, nil, "u1")
	stateAfterFirst := lead.State
	interactionsAfterFirst := tf.leads.interactions[lead.ID]

	result, err := tf.handler.Handle(ctx, inbound("m2", "u1", "1"))
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if !result.Success || result.ShouldReply {
		t.Fatalf("expected a silent success on replay, got %+v", result)
	}

	lead, _ = tf.leads.GetByPrimary(ctx, nil, "u1")
	if lead.State != stateAfterFirst {
		t.Errorf("expected state unchanged by replay, was %s now %s", stateAfterFirst, lead.State)
	}
	if tf.leads.interactions[lead.ID] != interactionsAfterFirst {
		t.Errorf("expected no new interaction logged on replay")
	}
}

// Scenario 5: three consecutive invalid options from CHOOSE_OPTION escalate
// to MANUAL_INTERVENTION with a max_warnings notification.
func TestHandleInvalidOptionThriceEscalates(t *testing.T) {
	tf := newTestFixture(t, true)
	ctx := context.Background()

	if _, err := tf.handler.Handle(ctx, inbound("m1", "u1", "Halo")); err != nil {
		t.Fatalf("seed greeting failed: %v", err)
	}

	var last Result
	for i, msgID := range []string{"m2", "m3", "m4"} {
		var err error
		last, err = tf.handler.Handle(ctx, inbound(msgID, "u1", []string{"x", "y", "z"}[i]))
		if err != nil {
			t.Fatalf("unexpected error on %s: %v", msgID, err)
		}
	}

	lead, _ := tf.leads.GetByPrimary(ctx, nil, "u1")
	if lead.State != domain.LeadStateManualIntervention {
		t.Fatalf("expected MANUAL_INTERVENTION after third warning, got %s", lead.State)
	}
	if lead.WarningCount != 3 {
		t.Errorf("expected warning_count 3, got %d", lead.WarningCount)
	}
	if !last.ShouldReply {
		t.Fatalf("expected escalation notice reply, got %+v", last)
	}

	if len(tf.jobRuns.enqueued) != 1 {
		t.Fatalf("expected exactly one escalation job, got %d", len(tf.jobRuns.enqueued))
	}
	if !strings.Contains(string(tf.jobRuns.enqueued[0].Payload), `"max_warnings"`) {
		t.Errorf("expected escalation payload to carry reason max_warnings, got %s", tf.jobRuns.enqueued[0].Payload)
	}
}
