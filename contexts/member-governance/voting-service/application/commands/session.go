package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/member-governance/voting-service/application"
	"quorum/contexts/member-governance/voting-service/domain/entities"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"
)

// OpenSessionCommand opens a time-boxed voting window for a topic.
type OpenSessionCommand struct {
	TopicID         string
	DurationMinutes int
}

// SessionUseCase orchestrates the session lifecycle: opening against the
// one-open-session-per-topic slot and the one-way open-to-closed transition.
type SessionUseCase struct {
	Topics   ports.TopicRepository
	Sessions ports.SessionRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// OpenSession validates the topic and opens a session running from now until
// now plus the requested duration. Durations below one minute are invalid
// here as well as at the HTTP boundary.
func (uc SessionUseCase) OpenSession(ctx context.Context, cmd OpenSessionCommand) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	topicID := strings.TrimSpace(cmd.TopicID)
	if topicID == "" || cmd.DurationMinutes < 1 {
		logger.Warn("session open validation failed",
			"event", "voting_session_open_validation_failed",
			"module", "member-governance/voting-service",
			"layer", "application",
			"topic_id", topicID,
			"duration_minutes", cmd.DurationMinutes,
		)
		return entities.Session{}, domainerrors.ErrInvalidSessionInput
	}

	topic, err := uc.Topics.GetTopic(ctx, topicID)
	if err != nil {
		return entities.Session{}, err
	}

	// Advisory pre-check. The store's open-slot constraint is what actually
	// adjudicates concurrent opens for the same topic.
	hasOpen, err := uc.Sessions.HasOpenSession(ctx, topic.TopicID)
	if err != nil {
		return entities.Session{}, err
	}
	if hasOpen {
		return entities.Session{}, domainerrors.ErrSessionAlreadyOpen
	}

	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Session{}, err
	}
	now := uc.Clock.Now().UTC()
	session := entities.Session{
		SessionID: sessionID,
		TopicID:   topic.TopicID,
		StartsAt:  now,
		EndsAt:    now.Add(time.Duration(cmd.DurationMinutes) * time.Minute),
		Status:    entities.SessionStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Sessions.CreateOpenSession(ctx, session); err != nil {
		return entities.Session{}, err
	}

	if err := uc.appendSessionEvent(ctx, EventTypeSessionOpened, session, now, map[string]any{
		"topic_id":  session.TopicID,
		"starts_at": session.StartsAt,
		"ends_at":   session.EndsAt,
	}); err != nil {
		return entities.Session{}, err
	}

	logger.Info("voting session opened",
		"event", "voting_session_opened",
		"module", "member-governance/voting-service",
		"layer", "application",
		"session_id", session.SessionID,
		"topic_id", session.TopicID,
		"ends_at", session.EndsAt,
	)
	return session, nil
}

// CloseSession flips an open session to closed. Closing twice is a conflict,
// including when the expiry sweeper won the transition first.
func (uc SessionUseCase) CloseSession(ctx context.Context, sessionID string) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return entities.Session{}, err
	}
	if session.Status == entities.SessionStatusClosed {
		return entities.Session{}, domainerrors.ErrSessionAlreadyClosed
	}

	now := uc.Clock.Now().UTC()
	won, err := uc.Sessions.CloseSession(ctx, session.SessionID, now)
	if err != nil {
		return entities.Session{}, err
	}
	if !won {
		// Lost the race against the sweeper or a concurrent manual close.
		return entities.Session{}, domainerrors.ErrSessionAlreadyClosed
	}

	session.Status = entities.SessionStatusClosed
	session.UpdatedAt = now

	if err := uc.appendSessionEvent(ctx, EventTypeSessionClosed, session, now, map[string]any{
		"topic_id": session.TopicID,
		"reason":   "manual",
	}); err != nil {
		return entities.Session{}, err
	}

	logger.Info("voting session closed",
		"event", "voting_session_closed",
		"module", "member-governance/voting-service",
		"layer", "application",
		"session_id", session.SessionID,
		"topic_id", session.TopicID,
	)
	return session, nil
}

func (uc SessionUseCase) appendSessionEvent(
	ctx context.Context,
	eventType string,
	session entities.Session,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	message, err := buildOutboxMessage(eventID, eventType, "session", session.SessionID, session.TopicID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, message)
}
