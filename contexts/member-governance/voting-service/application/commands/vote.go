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

// RegisterVoteCommand is the write-model input for ballot admission.
type RegisterVoteCommand struct {
	SessionID string
	MemberID  string
	Choice    entities.VoteChoice
}

// VoteUseCase is the only writer of ballots. It enforces the admission state
// machine: a ballot is admitted iff the session is accepting at the time of
// the write and the member has not voted in that session before.
type VoteUseCase struct {
	Sessions ports.SessionRepository
	Ballots  ports.BallotRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc VoteUseCase) RegisterVote(ctx context.Context, cmd RegisterVoteCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID := strings.TrimSpace(cmd.SessionID)
	memberID := strings.TrimSpace(cmd.MemberID)
	if memberID == "" || !cmd.Choice.Valid() {
		logger.Warn("vote register validation failed",
			"event", "voting_vote_register_validation_failed",
			"module", "member-governance/voting-service",
			"layer", "application",
			"session_id", sessionID,
			"member_id", memberID,
		)
		return entities.Ballot{}, domainerrors.ErrInvalidVoteInput
	}

	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Ballot{}, err
	}

	now := uc.Clock.Now().UTC()
	// Never trust stored status alone: an elapsed-but-unswept session must
	// reject ballots before the sweeper catches it.
	if !session.Accepting(now) {
		logger.Info("vote rejected, session not accepting",
			"event", "voting_vote_rejected_closed",
			"module", "member-governance/voting-service",
			"layer", "application",
			"session_id", session.SessionID,
			"member_id", memberID,
			"status", string(session.Status),
		)
		return entities.Ballot{}, domainerrors.VotingClosedError{SessionID: session.SessionID}
	}

	// Advisory pre-check; the (session, member) uniqueness constraint in the
	// store decides the winner under concurrent casts.
	voted, err := uc.Ballots.HasBallot(ctx, session.SessionID, memberID)
	if err != nil {
		return entities.Ballot{}, err
	}
	if voted {
		return entities.Ballot{}, domainerrors.ErrAlreadyVoted
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ballot{}, err
	}
	ballot := entities.Ballot{
		BallotID:  ballotID,
		SessionID: session.SessionID,
		MemberID:  memberID,
		Choice:    cmd.Choice,
		CastAt:    now,
	}
	if err := uc.Ballots.CreateBallot(ctx, ballot); err != nil {
		return entities.Ballot{}, err
	}

	if err := uc.appendBallotEvent(ctx, ballot, session.TopicID, now); err != nil {
		return entities.Ballot{}, err
	}

	logger.Info("vote registered",
		"event", "voting_vote_registered",
		"module", "member-governance/voting-service",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"session_id", ballot.SessionID,
		"member_id", ballot.MemberID,
	)
	return ballot, nil
}

func (uc VoteUseCase) appendBallotEvent(
	ctx context.Context,
	ballot entities.Ballot,
	topicID string,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	message, err := buildOutboxMessage(eventID, EventTypeBallotCast, "ballot", ballot.BallotID, topicID, occurredAt, map[string]any{
		"session_id": ballot.SessionID,
		"member_id":  ballot.MemberID,
		"choice":     string(ballot.Choice),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, message)
}
