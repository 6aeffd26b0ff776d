package postgresadapter

import (
	"strings"
	"time"

	"quorum/contexts/member-governance/voting-service/domain/entities"
)

type topicModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Title       string    `gorm:"column:title"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (topicModel) TableName() string {
	return "topics"
}

func topicModelFromEntity(topic entities.Topic) topicModel {
	return topicModel{
		ID:          strings.TrimSpace(topic.TopicID),
		Title:       strings.TrimSpace(topic.Title),
		Description: strings.TrimSpace(topic.Description),
		CreatedAt:   topic.CreatedAt.UTC(),
	}
}

func (m topicModel) toEntity() entities.Topic {
	return entities.Topic{
		TopicID:     m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

type sessionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	TopicID   string    `gorm:"column:topic_id"`
	StartsAt  time.Time `gorm:"column:starts_at"`
	EndsAt    time.Time `gorm:"column:ends_at"`
	Status    string    `gorm:"column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (sessionModel) TableName() string {
	return "sessions"
}

func sessionModelFromEntity(session entities.Session) sessionModel {
	return sessionModel{
		ID:        strings.TrimSpace(session.SessionID),
		TopicID:   strings.TrimSpace(session.TopicID),
		StartsAt:  session.StartsAt.UTC(),
		EndsAt:    session.EndsAt.UTC(),
		Status:    string(session.Status),
		CreatedAt: session.CreatedAt.UTC(),
		UpdatedAt: session.UpdatedAt.UTC(),
	}
}

func (m sessionModel) toEntity() entities.Session {
	return entities.Session{
		SessionID: m.ID,
		TopicID:   m.TopicID,
		StartsAt:  m.StartsAt,
		EndsAt:    m.EndsAt,
		Status:    entities.SessionStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toSessionEntities(rows []sessionModel) []entities.Session {
	items := make([]entities.Session, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type ballotModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	SessionID string    `gorm:"column:session_id"`
	MemberID  string    `gorm:"column:member_id"`
	Choice    string    `gorm:"column:choice"`
	CastAt    time.Time `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	return ballotModel{
		ID:        strings.TrimSpace(ballot.BallotID),
		SessionID: strings.TrimSpace(ballot.SessionID),
		MemberID:  strings.TrimSpace(ballot.MemberID),
		Choice:    string(ballot.Choice),
		CastAt:    ballot.CastAt.UTC(),
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:  m.ID,
		SessionID: m.SessionID,
		MemberID:  m.MemberID,
		Choice:    entities.VoteChoice(m.Choice),
		CastAt:    m.CastAt,
	}
}

func toBallotEntities(rows []ballotModel) []entities.Ballot {
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}
