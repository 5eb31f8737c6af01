package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func seedWaitingEvent(t *testing.T, fixture *serviceFixture) FilingEvent {
	t.Helper()
	event := seedMatchedEvent(t, fixture, func(e *FilingEvent) {
		e.Status = FilingEventStatusWaiting
	})
	fixture.archive.lookup = ArchivedDocument{FilepathLocal: "recap/doc-a.pdf", PageCount: 12}
	fixture.archive.document = []byte("purchased-pdf")
	fixture.channels.put(Channel{ID: "chan-1", Service: ChannelServiceTwitter, Enabled: true})
	return event
}

func TestResumeFetchedEvent_CompletesAndDispatchesWithDocument(t *testing.T) {
	service, fixture := newServiceFixture(t)
	event := seedWaitingEvent(t, fixture)

	if err := service.ResumeFetchedEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("resume fetched event: %v", err)
	}

	resumed, _ := fixture.events.Get(context.Background(), event.ID)
	if resumed.Status != FilingEventStatusSuccessful {
		t.Fatalf("expected successful status after resume, got %q", resumed.Status)
	}

	jobs := fixture.queue.byJobID(JobIDComposePost)
	if len(jobs) != 1 {
		t.Fatalf("expected one compose job, got %d", len(jobs))
	}
	doc, ok := jobs[0].Parameters[ParamDocument].([]byte)
	if !ok || string(doc) != "purchased-pdf" {
		t.Fatalf("resume dispatch must carry the fetched document")
	}
	if jobs[0].Parameters[ParamDocumentPath] != "recap/doc-a.pdf" {
		t.Fatalf("resume dispatch must carry the archive path, got %v", jobs[0].Parameters[ParamDocumentPath])
	}
}

func TestResumeFetchedEvent_RetryAfterDispatchFailureBooksOnePurchase(t *testing.T) {
	service, fixture := newServiceFixture(t)
	event := seedWaitingEvent(t, fixture)
	fixture.ledger.sponsorship = Sponsorship{ID: "sponsor-1", Watermark: "Sponsored by Example"}
	fixture.ledger.active = true
	fixture.channels.listErr = errors.New("channel store offline")

	if err := service.ResumeFetchedEvent(context.Background(), event.ID); err == nil {
		t.Fatalf("expected dispatch failure to surface for retry")
	}
	if err := service.ResumeFetchedEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("resume retry: %v", err)
	}

	if len(fixture.ledger.purchases) != 1 {
		t.Fatalf("one logical resume must book one purchase, got %d", len(fixture.ledger.purchases))
	}
	jobs := fixture.queue.byJobID(JobIDComposePost)
	if len(jobs) != 1 {
		t.Fatalf("expected one compose job after retry, got %d", len(jobs))
	}
}

func TestResumeFetchedEvent_LogsPurchaseAgainstActiveSponsorship(t *testing.T) {
	service, fixture := newServiceFixture(t)
	event := seedWaitingEvent(t, fixture)
	fixture.ledger.sponsorship = Sponsorship{ID: "sponsor-1", Watermark: "Sponsored by Example"}
	fixture.ledger.active = true

	if err := service.ResumeFetchedEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("resume fetched event: %v", err)
	}

	if len(fixture.ledger.purchases) != 1 {
		t.Fatalf("expected one purchase entry, got %d", len(fixture.ledger.purchases))
	}
	purchase := fixture.ledger.purchases[0]
	if purchase.SponsorshipID != "sponsor-1" || purchase.FilingEventID != event.ID {
		t.Fatalf("purchase entry misattributed: %+v", purchase)
	}
	if purchase.PageCount != 12 {
		t.Fatalf("expected page count 12, got %d", purchase.PageCount)
	}
	if purchase.CostCents != 120 {
		t.Fatalf("expected 120 cents, got %d", purchase.CostCents)
	}

	jobs := fixture.queue.byJobID(JobIDComposePost)
	if len(jobs) != 1 {
		t.Fatalf("expected one compose job, got %d", len(jobs))
	}
	if jobs[0].Parameters[ParamSponsorText] != "Sponsored by Example" {
		t.Fatalf("expected sponsor watermark text, got %v", jobs[0].Parameters[ParamSponsorText])
	}
}

func TestResumeFetchedEvent_NoSponsorshipSkipsLedger(t *testing.T) {
	service, fixture := newServiceFixture(t)
	event := seedWaitingEvent(t, fixture)

	if err := service.ResumeFetchedEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("resume fetched event: %v", err)
	}
	if len(fixture.ledger.purchases) != 0 {
		t.Fatalf("no sponsorship means no ledger entries")
	}
	jobs := fixture.queue.byJobID(JobIDComposePost)
	if jobs[0].Parameters[ParamSponsorText] != "" {
		t.Fatalf("expected empty sponsor text, got %v", jobs[0].Parameters[ParamSponsorText])
	}
}

func TestResumeFetchedEvent_TerminalEventIsNoop(t *testing.T) {
	service, fixture := newServiceFixture(t)
	event := seedMatchedEvent(t, fixture, func(e *FilingEvent) {
		e.Status = FilingEventStatusIgnored
	})

	if err := service.ResumeFetchedEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("terminal event must be a no-op: %v", err)
	}
	if len(fixture.queue.messages) != 0 {
		t.Fatalf("terminal event must not dispatch posts")
	}
}

func TestResumeFetchedEvent_MissingSubscriptionLinkIsInvariantViolation(t *testing.T) {
	service, fixture := newServiceFixture(t)
	event := seedMatchedEvent(t, fixture, func(e *FilingEvent) {
		e.Status = FilingEventStatusWaiting
		e.SubscriptionID = ""
	})

	err := service.ResumeFetchedEvent(context.Background(), event.ID)
	if err == nil {
		t.Fatalf("expected invariant violation error")
	}
	var envelopeErr *goerrors.Error
	if !goerrors.As(err, &envelopeErr) {
		t.Fatalf("expected error envelope, got %T", err)
	}
	if envelopeErr.TextCode != PipelineErrorInvariant {
		t.Fatalf("expected text code %q, got %q", PipelineErrorInvariant, envelopeErr.TextCode)
	}
}
