package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"quorum/contexts/member-governance/voting-service/application"
	"quorum/contexts/member-governance/voting-service/domain/entities"
	"quorum/contexts/member-governance/voting-service/ports"
)

// SessionSweeper closes open sessions whose deadline has passed. It talks to
// the rest of the system only through the session store, never raises
// per-session errors, and reports failures at the batch level; the scheduler
// loop logs and retries on the next tick.
type SessionSweeper struct {
	Sessions ports.SessionRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// RunOnce performs a single sweep at the clock's current instant. An empty
// result set performs no write. A session manually closed between the query
// and the batch write is skipped by the conditional update.
func (s SessionSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}

	expired, err := s.Sessions.ListExpiredOpenSessions(ctx, now)
	if err != nil {
		logger.Error("session expiry sweep query failed",
			"event", "voting_session_sweep_query_failed",
			"module", "member-governance/voting-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(expired) == 0 {
		logger.Debug("session expiry sweep found nothing to close",
			"event", "voting_session_sweep_noop",
			"module", "member-governance/voting-service",
			"layer", "worker",
		)
		return nil
	}

	ids := make([]string, 0, len(expired))
	for _, session := range expired {
		ids = append(ids, session.SessionID)
	}
	closed, err := s.Sessions.CloseSessionsBatch(ctx, ids, now)
	if err != nil {
		logger.Error("session expiry sweep close failed",
			"event", "voting_session_sweep_close_failed",
			"module", "member-governance/voting-service",
			"layer", "worker",
			"expired_count", len(expired),
			"error", err.Error(),
		)
		return err
	}

	if err := s.appendClosedEvents(ctx, expired, now); err != nil {
		logger.Error("session expiry sweep event append failed",
			"event", "voting_session_sweep_event_failed",
			"module", "member-governance/voting-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	logger.Info("session expiry sweep completed",
		"event", "voting_session_sweep_completed",
		"module", "member-governance/voting-service",
		"layer", "worker",
		"expired_count", len(expired),
		"closed_count", closed,
	)
	return nil
}

func (s SessionSweeper) appendClosedEvents(ctx context.Context, sessions []entities.Session, closedAt time.Time) error {
	if s.Outbox == nil {
		return nil
	}
	for _, session := range sessions {
		eventID, err := s.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		envelope := ports.EventEnvelope{
			EventID:        eventID,
			EventType:      "voting.session.closed",
			SourceService:  "voting-service",
			OccurredAtUTC:  closedAt,
			EntityType:     "session",
			EntityID:       session.SessionID,
			PayloadVersion: 1,
		}
		body, err := json.Marshal(map[string]any{
			"topic_id": session.TopicID,
			"reason":   "expired",
		})
		if err != nil {
			return err
		}
		envelope.Payload = body
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		if err := s.Outbox.AppendOutbox(ctx, ports.OutboxMessage{
			OutboxID:     eventID,
			EventType:    envelope.EventType,
			PartitionKey: session.TopicID,
			Payload:      payload,
			CreatedAt:    closedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}
