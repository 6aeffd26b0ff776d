package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	votingservice "quorum/contexts/member-governance/voting-service"
	votingworkers "quorum/contexts/member-governance/voting-service/application/workers"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"
	httptransport "quorum/contexts/member-governance/voting-service/transport/http"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type capturingPublisher struct {
	published []ports.EventEnvelope
	topics    []string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.published = append(p.published, event)
	return nil
}

func TestSessionSweeperClosesOnlyExpiredSessions(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	shortTopic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Short session topic"})
	longTopic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Long session topic"})

	short := 1
	long := 120
	expiring, err := module.Handler.OpenSessionHandler(context.Background(), shortTopic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &short})
	if err != nil {
		t.Fatalf("open expiring session failed: %v", err)
	}
	surviving, err := module.Handler.OpenSessionHandler(context.Background(), longTopic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &long})
	if err != nil {
		t.Fatalf("open surviving session failed: %v", err)
	}

	// Nothing has expired yet: the sweep must be a no-op.
	if err := module.Sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("noop sweep failed: %v", err)
	}
	got, _ := module.Handler.GetSessionHandler(context.Background(), expiring.SessionID)
	if got.Status != "open" {
		t.Fatalf("sweep before deadline must not close session, got %q", got.Status)
	}

	module.Store.SetNow(now.Add(2 * time.Minute))
	if err := module.Sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	got, _ = module.Handler.GetSessionHandler(context.Background(), expiring.SessionID)
	if got.Status != "closed" {
		t.Fatalf("expected expired session closed by sweep, got %q", got.Status)
	}
	got, _ = module.Handler.GetSessionHandler(context.Background(), surviving.SessionID)
	if got.Status != "open" {
		t.Fatalf("expected unexpired session untouched, got %q", got.Status)
	}

	if _, err := module.Handler.CloseSessionHandler(context.Background(), expiring.SessionID); !errors.Is(err, domainerrors.ErrSessionAlreadyClosed) {
		t.Fatalf("manual close after sweep should conflict, got %v", err)
	}

	outbox, err := module.Store.ListPendingOutbox(context.Background(), 20)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	foundClosed := false
	for _, message := range outbox {
		if message.EventType != "voting.session.closed" {
			continue
		}
		var envelope struct {
			EntityID string `json:"entity_id"`
			Payload  struct {
				Reason string `json:"reason"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			t.Fatalf("decode outbox envelope failed: %v", err)
		}
		if envelope.EntityID == expiring.SessionID {
			foundClosed = true
			if envelope.Payload.Reason != "expired" {
				t.Fatalf("expected close reason expired, got %q", envelope.Payload.Reason)
			}
		}
	}
	if !foundClosed {
		t.Fatalf("expected a session closed event for the swept session")
	}
}

func TestSessionSweeperSkipsManuallyClosedSession(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Race topic"})
	minutes := 1
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	if _, err := module.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("manual close failed: %v", err)
	}

	module.Store.SetNow(now.Add(time.Hour))
	if err := module.Sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep after manual close failed: %v", err)
	}

	outbox, err := module.Store.ListPendingOutbox(context.Background(), 20)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	closedEvents := 0
	for _, message := range outbox {
		if message.EventType == "voting.session.closed" {
			closedEvents++
		}
	}
	if closedEvents != 1 {
		t.Fatalf("expected a single closed event from the manual close, got %d", closedEvents)
	}
}

func TestOutboxRelayPublishesPendingEvents(t *testing.T) {
	now := time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC)
	module := votingservice.NewInMemoryModule(nil, nil)
	module.Store.SetNow(now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Relay topic"})
	minutes := 10
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	module.Store.SetNow(now.Add(time.Minute))
	if _, err := module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{MemberID: "member-1", Choice: "yes"}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := votingworkers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     fixedClock{now: now},
		BatchSize: 10,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	if len(publisher.published) != 2 {
		t.Fatalf("expected opened and cast events published, got %d", len(publisher.published))
	}
	if publisher.topics[0] != "voting.session.opened" || publisher.topics[1] != "voting.ballot.cast" {
		t.Fatalf("unexpected publish order: %v", publisher.topics)
	}

	remaining, err := module.Store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected outbox drained after relay, got %d pending", len(remaining))
	}

	// A second pass has nothing left to publish.
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("idempotent relay run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected no re-publication, got %d", len(publisher.published))
	}
}
