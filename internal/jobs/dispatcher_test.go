package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/domain"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

type fakeJobRunRepo struct {
	repos.JobRunRepo
	enqueued []struct {
		queue   domain.JobQueue
		payload datatypes.JSON
	}
	enqueueErr error
}

func (f *fakeJobRunRepo) Enqueue(_ context.Context, _ *gorm.DB, queue domain.JobQueue, payload datatypes.JSON, maxAttempts int) (*domain.JobRun, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.enqueued = append(f.enqueued, struct {
		queue   domain.JobQueue
		payload datatypes.JSON
	}{queue, payload})
	return &domain.JobRun{ID: uuid.New(), Queue: queue, Payload: payload, MaxAttempts: maxAttempts}, nil
}

func TestDispatcherEnqueueMarshalsPayload(t *testing.T) {
	fake := &fakeJobRunRepo{}
	d := NewDispatcher(fake)

	payload := SpreadsheetSyncPayload{LeadID: "lead-1", UserID: "user-1", Transport: domain.TransportWhatsApp}
	job, err := d.Enqueue(context.Background(), nil, domain.QueueSpreadsheetSync, payload)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Queue != domain.QueueSpreadsheetSync {
		t.Fatalf("job.Queue = %q, want %q", job.Queue, domain.QueueSpreadsheetSync)
	}
	if len(fake.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued row, got %d", len(fake.enqueued))
	}
	if string(fake.enqueued[0].payload) == "" {
		t.Fatal("payload was not marshaled")
	}
}

func TestDispatcherEnqueueUnknownQueue(t *testing.T) {
	fake := &fakeJobRunRepo{}
	d := NewDispatcher(fake)

	_, err := d.Enqueue(context.Background(), nil, domain.JobQueue("not-a-queue"), struct{}{})
	if err == nil {
		t.Fatal("expected error for unknown queue")
	}
}

func TestDispatcherEnqueueWrapsRepoError(t *testing.T) {
	fake := &fakeJobRunRepo{enqueueErr: errors.New("db down")}
	d := NewDispatcher(fake)

	_, err := d.Enqueue(context.Background(), nil, domain.QueueOperatorNotify, OperatorNotifyPayload{Kind: NotifyEscalation})
	if err == nil {
		t.Fatal("expected wrapped repo error")
	}
}
