package queries

import (
	"context"
	"strings"

	"quorum/contexts/member-governance/voting-service/domain/entities"
	"quorum/contexts/member-governance/voting-service/ports"
)

// SessionResult is the read model for a session's tally: topic snapshot,
// stored status, live accepting flag, window timestamps, counts, percentages.
type SessionResult struct {
	Session   entities.Session
	Topic     entities.Topic
	Accepting bool
	Tally     entities.SessionTally
}

// TallyUseCase computes on-demand voting results. Read-only, no side effects;
// the accepting flag is recomputed from the clock on every call rather than
// cached, so it cannot go stale independently of the deadline.
type TallyUseCase struct {
	Topics   ports.TopicRepository
	Sessions ports.SessionRepository
	Ballots  ports.BallotRepository
	Clock    ports.Clock
}

func (uc TallyUseCase) SessionResult(ctx context.Context, sessionID string) (SessionResult, error) {
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return SessionResult{}, err
	}
	topic, err := uc.Topics.GetTopic(ctx, session.TopicID)
	if err != nil {
		return SessionResult{}, err
	}

	votesYes, err := uc.Ballots.CountBallotsByChoice(ctx, session.SessionID, entities.VoteChoiceYes)
	if err != nil {
		return SessionResult{}, err
	}
	votesNo, err := uc.Ballots.CountBallotsByChoice(ctx, session.SessionID, entities.VoteChoiceNo)
	if err != nil {
		return SessionResult{}, err
	}

	return SessionResult{
		Session:   session,
		Topic:     topic,
		Accepting: session.Accepting(uc.Clock.Now().UTC()),
		Tally:     entities.NewSessionTally(votesYes, votesNo),
	}, nil
}
