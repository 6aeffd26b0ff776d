package commands

import (
	"encoding/json"
	"time"

	"quorum/contexts/member-governance/voting-service/ports"
)

const (
	EventTypeSessionOpened = "voting.session.opened"
	EventTypeSessionClosed = "voting.session.closed"
	EventTypeBallotCast    = "voting.ballot.cast"
)

// buildOutboxMessage wraps an event payload in the shared envelope and
// serializes it into an outbox row. Events are partitioned by topic so
// topic-scoped consumers observe session transitions in order.
func buildOutboxMessage(
	eventID string,
	eventType string,
	entityType string,
	entityID string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.OutboxMessage, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	envelope := ports.EventEnvelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  "voting-service",
		OccurredAtUTC:  occurredAt.UTC(),
		EntityType:     entityType,
		EntityID:       entityID,
		PayloadVersion: 1,
		Payload:        body,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	return ports.OutboxMessage{
		OutboxID:     eventID,
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		CreatedAt:    occurredAt.UTC(),
	}, nil
}
