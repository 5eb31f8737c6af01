package gojob

import (
	"context"
	"testing"
	"time"

	"github.com/rcmckee/bigcases2/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	original := &core.JobMessage{
		JobID:          core.JobIDMatchEvent,
		Parameters:     map[string]any{core.ParamFilingEventID: "event-1"},
		IdempotencyKey: "delivery-1",
		Delay:          2 * time.Minute,
		Retry: core.RetryPolicy{
			MaxAttempts: 3,
			Interval:    15 * time.Second,
		},
	}

	converted := ToExecutionMessage(original, now)
	if converted == nil {
		t.Fatalf("expected converted message")
	}
	notBefore, ok := converted.Parameters[core.ParamNotBefore].(string)
	if !ok {
		t.Fatalf("expected delay stamped as not-before parameter")
	}
	parsed, err := time.Parse(time.RFC3339, notBefore)
	if err != nil {
		t.Fatalf("parse not-before stamp: %v", err)
	}
	if !parsed.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("expected not-before at %s, got %s", now.Add(2*time.Minute), parsed)
	}

	roundTrip := FromExecutionMessage(converted)
	if roundTrip.JobID != original.JobID {
		t.Fatalf("expected job id %q, got %q", original.JobID, roundTrip.JobID)
	}
	if roundTrip.IdempotencyKey != original.IdempotencyKey {
		t.Fatalf("expected idempotency key %q, got %q", original.IdempotencyKey, roundTrip.IdempotencyKey)
	}
	if roundTrip.Parameters[core.ParamFilingEventID] != "event-1" {
		t.Fatalf("expected parameters to survive mapping")
	}
	if roundTrip.Retry.MaxAttempts != 3 {
		t.Fatalf("expected retry budget restored, got %d", roundTrip.Retry.MaxAttempts)
	}
	if roundTrip.Retry.Interval != 15*time.Second {
		t.Fatalf("expected retry interval restored, got %s", roundTrip.Retry.Interval)
	}
	if _, leaked := roundTrip.Parameters[paramRetryMaxAttempts]; leaked {
		t.Fatalf("expected retry carrier parameters stripped on the way out")
	}
	if _, leaked := roundTrip.Parameters[paramRetryInterval]; leaked {
		t.Fatalf("expected retry carrier parameters stripped on the way out")
	}
}

func TestZeroDelayLeavesNoStamp(t *testing.T) {
	converted := ToExecutionMessage(&core.JobMessage{
		JobID: core.JobIDScreenEvent,
		Parameters: map[string]any{
			core.ParamFilingEventID: "event-2",
		},
	}, time.Now().UTC())
	if _, stamped := converted.Parameters[core.ParamNotBefore]; stamped {
		t.Fatalf("expected no not-before stamp for immediate jobs")
	}
}

func TestEnqueueAndDequeueAdapters(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	enqueueAdapter := NewEnqueuerAdapter(enqueuer)

	msg := &core.JobMessage{
		JobID: core.JobIDComposePost,
		Parameters: map[string]any{
			core.ParamChannelID:     "chan-1",
			core.ParamFilingEventID: "event-1",
		},
		IdempotencyKey: "compose-1",
	}
	if err := enqueueAdapter.Enqueue(ctx, msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != core.JobIDComposePost {
		t.Fatalf("expected mapped go-job message")
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	dequeueAdapter := NewDequeuerAdapter(dequeuer, RetryPolicy{})
	delivery, err := dequeueAdapter.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	got := delivery.Message()
	if got == nil || got.JobID != core.JobIDComposePost {
		t.Fatalf("expected mapped pipeline message")
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack on underlying delivery")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	ctx := context.Background()
	rawDelivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{
			JobID: core.JobIDResumeEvent,
		},
	}
	adapter := NewDeliveryAdapter(rawDelivery, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  "transient",
	}, 1); err != nil {
		t.Fatalf("nack attempt 1: %v", err)
	}
	if rawDelivery.nackOpts.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", rawDelivery.nackOpts.Delay)
	}
	if !rawDelivery.nackOpts.Requeue {
		t.Fatalf("expected message to be requeued before max attempts")
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "still failing",
	}, 3); err != nil {
		t.Fatalf("nack max attempt: %v", err)
	}
	if rawDelivery.nackOpts.Requeue {
		t.Fatalf("expected no requeue once max attempts is reached")
	}
	if !rawDelivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter on max attempts")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}
