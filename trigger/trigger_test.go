package trigger

import (
	"context"
	"errors"
	"testing"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

func intPtr(n int) *int { return &n }

func TestNoOpCapsAtMaxCount(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "a", TaskCount: 10, MaxCount: intPtr(3)}}
	s := For(job)
	got, err := s.DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("DetermineTaskCount = %d, want 3", got)
	}
}

func TestNoOpUnboundedWithoutMaxCount(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "a", TaskCount: 10}}
	got, err := For(job).DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10 {
		t.Fatalf("DetermineTaskCount = %d, want 10", got)
	}
}

func TestForFallsBackToNoOpOnUnknownTrigger(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", TaskCount: 4, Trigger: &jobmodel.Trigger{Type: "no-such-trigger"},
	}}
	got, err := For(job).DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Fatalf("DetermineTaskCount = %d, want 4 (noop fallback)", got)
	}
}

type fakeQueue struct {
	depth int
	err   error
}

func (f *fakeQueue) ApproximateMessages(context.Context, string) (int, error) {
	return f.depth, f.err
}

func TestSQSReturnsZeroWhenQueueEmpty(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", TaskCount: 3,
		Trigger: &jobmodel.Trigger{Type: SQS, QueueName: "q", MessagesPerTask: 5},
	}}
	s := NewSQSStrategy(&fakeQueue{depth: 0})
	got, err := s.DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("DetermineTaskCount = %d, want 0 for empty queue", got)
	}
}

func TestSQSScalesByMessagesPerTask(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", TaskCount: 2, MaxCount: intPtr(10),
		Trigger: &jobmodel.Trigger{Type: SQS, QueueName: "q", MessagesPerTask: 5},
	}}
	s := NewSQSStrategy(&fakeQueue{depth: 11})
	got, err := s.DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ceil(11/5) = 3, which already exceeds taskCount=2.
	if got != 3 {
		t.Fatalf("DetermineTaskCount = %d, want 3", got)
	}
}

func TestSQSFloorsAtTaskCountWhenScaledIsLower(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", TaskCount: 5,
		Trigger: &jobmodel.Trigger{Type: SQS, QueueName: "q", MessagesPerTask: 100},
	}}
	s := NewSQSStrategy(&fakeQueue{depth: 1})
	got, err := s.DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Fatalf("DetermineTaskCount = %d, want 5 (taskCount floor)", got)
	}
}

func TestSQSCapsAtMaxCount(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", TaskCount: 1, MaxCount: intPtr(4),
		Trigger: &jobmodel.Trigger{Type: SQS, QueueName: "q", MessagesPerTask: 1},
	}}
	s := NewSQSStrategy(&fakeQueue{depth: 100})
	got, err := s.DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Fatalf("DetermineTaskCount = %d, want 4 (capped)", got)
	}
}

func TestSQSPropagatesClientError(t *testing.T) {
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", TaskCount: 1,
		Trigger: &jobmodel.Trigger{Type: SQS, QueueName: "q"},
	}}
	wantErr := errors.New("sqs unavailable")
	s := NewSQSStrategy(&fakeQueue{err: wantErr})
	_, err := s.DetermineTaskCount(context.Background(), job)
	if !errors.Is(err, wantErr) {
		t.Fatalf("DetermineTaskCount error = %v, want %v", err, wantErr)
	}
}

func TestRegisterWiresNamedStrategy(t *testing.T) {
	Register("custom-test-trigger", &fakeStrategy{count: 7})
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "a", Trigger: &jobmodel.Trigger{Type: "custom-test-trigger"},
	}}
	got, err := For(job).DetermineTaskCount(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("DetermineTaskCount = %d, want 7", got)
	}
}

type fakeStrategy struct{ count int }

func (f *fakeStrategy) DetermineTaskCount(context.Context, *jobmodel.Job) (int, error) {
	return f.count, nil
}
