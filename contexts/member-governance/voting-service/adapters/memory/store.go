package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quorum/contexts/member-governance/voting-service/domain/entities"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter backing tests and local runs. Uniqueness
// rules that postgres enforces with constraints are enforced here as
// compare-and-insert under the store mutex, so concurrent callers still get
// exactly one winner.
type Store struct {
	mu sync.RWMutex

	topics   map[string]entities.Topic
	sessions map[string]entities.Session
	ballots  map[string]entities.Ballot
	outbox   map[string]outboxRecord

	now time.Time
}

func NewStore() *Store {
	return &Store{
		topics:   make(map[string]entities.Topic),
		sessions: make(map[string]entities.Session),
		ballots:  make(map[string]entities.Ballot),
		outbox:   make(map[string]outboxRecord),
	}
}

// SetNow pins the store clock for deterministic tests. A zero value falls
// back to the wall clock.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) CreateTopic(_ context.Context, topic entities.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.topics {
		if strings.EqualFold(existing.Title, topic.Title) {
			return domainerrors.ErrDuplicateTitle
		}
	}
	s.topics[strings.TrimSpace(topic.TopicID)] = topic
	return nil
}

func (s *Store) GetTopic(_ context.Context, topicID string) (entities.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic, ok := s.topics[strings.TrimSpace(topicID)]
	if !ok {
		return entities.Topic{}, domainerrors.ErrTopicNotFound
	}
	return topic, nil
}

func (s *Store) ListTopics(_ context.Context) ([]entities.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Topic, 0, len(s.topics))
	for _, topic := range s.topics {
		items = append(items, topic)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].TopicID > items[j].TopicID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) TitleExists(_ context.Context, title string, excludeTopicID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, topic := range s.topics {
		if topic.TopicID == strings.TrimSpace(excludeTopicID) {
			continue
		}
		if strings.EqualFold(topic.Title, strings.TrimSpace(title)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateTopic(_ context.Context, topic entities.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[strings.TrimSpace(topic.TopicID)]; !ok {
		return domainerrors.ErrTopicNotFound
	}
	s.topics[strings.TrimSpace(topic.TopicID)] = topic
	return nil
}

func (s *Store) DeleteTopic(_ context.Context, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topicID = strings.TrimSpace(topicID)
	if _, ok := s.topics[topicID]; !ok {
		return domainerrors.ErrTopicNotFound
	}
	delete(s.topics, topicID)
	for sessionID, session := range s.sessions {
		if session.TopicID != topicID {
			continue
		}
		delete(s.sessions, sessionID)
		for ballotID, ballot := range s.ballots {
			if ballot.SessionID == sessionID {
				delete(s.ballots, ballotID)
			}
		}
	}
	return nil
}

func (s *Store) CreateOpenSession(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.TopicID == session.TopicID && existing.Status == entities.SessionStatusOpen {
			return domainerrors.ErrSessionAlreadyOpen
		}
	}
	s.sessions[strings.TrimSpace(session.SessionID)] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ListSessionsByTopic(_ context.Context, topicID string) ([]entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Session, 0)
	for _, session := range s.sessions {
		if session.TopicID == strings.TrimSpace(topicID) {
			items = append(items, session)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].StartsAt.Equal(items[j].StartsAt) {
			return items[i].SessionID > items[j].SessionID
		}
		return items[i].StartsAt.After(items[j].StartsAt)
	})
	return items, nil
}

func (s *Store) GetOpenSessionByTopic(_ context.Context, topicID string) (entities.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.TopicID == strings.TrimSpace(topicID) && session.Status == entities.SessionStatusOpen {
			return session, true, nil
		}
	}
	return entities.Session{}, false, nil
}

func (s *Store) HasOpenSession(ctx context.Context, topicID string) (bool, error) {
	_, found, err := s.GetOpenSessionByTopic(ctx, topicID)
	return found, err
}

func (s *Store) ListExpiredOpenSessions(_ context.Context, now time.Time) ([]entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Session, 0)
	for _, session := range s.sessions {
		if session.Status == entities.SessionStatusOpen && session.Expired(now) {
			items = append(items, session)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].EndsAt.Before(items[j].EndsAt)
	})
	return items, nil
}

func (s *Store) CloseSession(_ context.Context, sessionID string, closedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return false, domainerrors.ErrSessionNotFound
	}
	if session.Status != entities.SessionStatusOpen {
		return false, nil
	}
	session.Status = entities.SessionStatusClosed
	session.UpdatedAt = closedAt.UTC()
	s.sessions[session.SessionID] = session
	return true, nil
}

func (s *Store) CloseSessionsBatch(_ context.Context, sessionIDs []string, closedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for _, sessionID := range sessionIDs {
		session, ok := s.sessions[strings.TrimSpace(sessionID)]
		if !ok || session.Status != entities.SessionStatusOpen {
			continue
		}
		session.Status = entities.SessionStatusClosed
		session.UpdatedAt = closedAt.UTC()
		s.sessions[session.SessionID] = session
		closed++
	}
	return closed, nil
}

func (s *Store) CreateBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ballots {
		if existing.SessionID == ballot.SessionID && existing.MemberID == ballot.MemberID {
			return domainerrors.ErrAlreadyVoted
		}
	}
	s.ballots[strings.TrimSpace(ballot.BallotID)] = ballot
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

func (s *Store) HasBallot(_ context.Context, sessionID string, memberID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ballot := range s.ballots {
		if ballot.SessionID == strings.TrimSpace(sessionID) && ballot.MemberID == strings.TrimSpace(memberID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListBallotsBySession(_ context.Context, sessionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if ballot.SessionID == strings.TrimSpace(sessionID) {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].BallotID < items[j].BallotID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) ListBallotsByMember(_ context.Context, memberID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if ballot.MemberID == strings.TrimSpace(memberID) {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].BallotID > items[j].BallotID
		}
		return items[i].CastAt.After(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) CountBallotsByChoice(_ context.Context, sessionID string, choice entities.VoteChoice) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ballot := range s.ballots {
		if ballot.SessionID == strings.TrimSpace(sessionID) && ballot.Choice == choice {
			count++
		}
	}
	return count, nil
}

func (s *Store) AppendOutbox(_ context.Context, message ports.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[message.OutboxID] = outboxRecord{message: message}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0)
	for _, record := range s.outbox {
		if !record.published {
			items = append(items, record.message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

var _ ports.TopicRepository = (*Store)(nil)
var _ ports.SessionRepository = (*Store)(nil)
var _ ports.BallotRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
