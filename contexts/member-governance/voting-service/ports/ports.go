package ports

import (
	"context"
	"time"

	"quorum/contexts/member-governance/voting-service/domain/entities"
	"quorum/internal/shared/events"
)

type TopicRepository interface {
	CreateTopic(ctx context.Context, topic entities.Topic) error
	GetTopic(ctx context.Context, topicID string) (entities.Topic, error)
	ListTopics(ctx context.Context) ([]entities.Topic, error)
	// TitleExists matches titles case-insensitively. excludeTopicID lets the
	// update path ignore the topic being renamed.
	TitleExists(ctx context.Context, title string, excludeTopicID string) (bool, error)
	UpdateTopic(ctx context.Context, topic entities.Topic) error
	// DeleteTopic removes the topic together with its sessions and ballots.
	DeleteTopic(ctx context.Context, topicID string) error
}

type SessionRepository interface {
	// CreateOpenSession persists a new open session. The open-session slot per
	// topic is adjudicated inside the store: a concurrent open for the same
	// topic yields ErrSessionAlreadyOpen for all but one caller.
	CreateOpenSession(ctx context.Context, session entities.Session) error
	GetSession(ctx context.Context, sessionID string) (entities.Session, error)
	ListSessionsByTopic(ctx context.Context, topicID string) ([]entities.Session, error)
	GetOpenSessionByTopic(ctx context.Context, topicID string) (entities.Session, bool, error)
	HasOpenSession(ctx context.Context, topicID string) (bool, error)
	ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]entities.Session, error)
	// CloseSession flips an open session to closed. The returned flag reports
	// whether this call won the transition; false means the session was
	// already closed when the write landed.
	CloseSession(ctx context.Context, sessionID string, closedAt time.Time) (bool, error)
	// CloseSessionsBatch flips the given sessions to closed in one write,
	// skipping any that are no longer open. It returns how many rows flipped.
	CloseSessionsBatch(ctx context.Context, sessionIDs []string, closedAt time.Time) (int, error)
}

type BallotRepository interface {
	// CreateBallot persists a ballot. Uniqueness of (session_id, member_id) is
	// adjudicated inside the store: concurrent casts by the same member yield
	// ErrAlreadyVoted for all but one caller.
	CreateBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	HasBallot(ctx context.Context, sessionID string, memberID string) (bool, error)
	ListBallotsBySession(ctx context.Context, sessionID string) ([]entities.Ballot, error)
	ListBallotsByMember(ctx context.Context, memberID string) ([]entities.Ballot, error)
	CountBallotsByChoice(ctx context.Context, sessionID string, choice entities.VoteChoice) (int, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the shared cross-context envelope contract.
type EventEnvelope = events.Envelope

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter appends integration events for asynchronous delivery.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, message OutboxMessage) error
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes envelopes to a topic on the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
