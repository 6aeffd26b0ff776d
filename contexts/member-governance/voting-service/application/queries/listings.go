package queries

import (
	"context"
	"strings"

	"quorum/contexts/member-governance/voting-service/domain/entities"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"
)

// ListingUseCase serves the read side of the API surface: topic, session and
// ballot lookups plus the advisory can-vote pre-flight check.
type ListingUseCase struct {
	Topics   ports.TopicRepository
	Sessions ports.SessionRepository
	Ballots  ports.BallotRepository
	Clock    ports.Clock
}

func (uc ListingUseCase) GetTopic(ctx context.Context, topicID string) (entities.Topic, error) {
	return uc.Topics.GetTopic(ctx, strings.TrimSpace(topicID))
}

func (uc ListingUseCase) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	return uc.Topics.ListTopics(ctx)
}

func (uc ListingUseCase) GetSession(ctx context.Context, sessionID string) (entities.Session, error) {
	return uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
}

// ListSessionsForTopic returns a topic's sessions newest first. The topic must
// exist; an unknown topic is a not-found error, not an empty list.
func (uc ListingUseCase) ListSessionsForTopic(ctx context.Context, topicID string) ([]entities.Session, error) {
	topic, err := uc.Topics.GetTopic(ctx, strings.TrimSpace(topicID))
	if err != nil {
		return nil, err
	}
	return uc.Sessions.ListSessionsByTopic(ctx, topic.TopicID)
}

func (uc ListingUseCase) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	return uc.Ballots.GetBallot(ctx, strings.TrimSpace(ballotID))
}

// ListVotesForSession verifies the session exists, then returns its ballots.
func (uc ListingUseCase) ListVotesForSession(ctx context.Context, sessionID string) ([]entities.Ballot, error) {
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	return uc.Ballots.ListBallotsBySession(ctx, session.SessionID)
}

// ListVotesForMember has no existence precondition: an unknown member simply
// has an empty voting history. Ordered by cast time descending.
func (uc ListingUseCase) ListVotesForMember(ctx context.Context, memberID string) ([]entities.Ballot, error) {
	return uc.Ballots.ListBallotsByMember(ctx, strings.TrimSpace(memberID))
}

// CanVote reports whether the member could cast a ballot right now. The
// result is advisory only: no slot is reserved between this check and a later
// RegisterVote.
func (uc ListingUseCase) CanVote(ctx context.Context, sessionID string, memberID string) (bool, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return false, domainerrors.ErrInvalidVoteInput
	}
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return false, err
	}
	if !session.Accepting(uc.Clock.Now().UTC()) {
		return false, nil
	}
	voted, err := uc.Ballots.HasBallot(ctx, session.SessionID, memberID)
	if err != nil {
		return false, err
	}
	return !voted, nil
}
