package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTopicInput    = errors.New("invalid topic input")
	ErrTopicNotFound        = errors.New("topic not found")
	ErrDuplicateTitle       = errors.New("a topic with this title already exists")
	ErrInvalidSessionInput  = errors.New("invalid session input")
	ErrSessionNotFound      = errors.New("voting session not found")
	ErrSessionAlreadyOpen   = errors.New("an open voting session already exists for this topic")
	ErrSessionAlreadyClosed = errors.New("voting session is already closed")
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrBallotNotFound       = errors.New("ballot not found")
	ErrAlreadyVoted         = errors.New("member already voted in this session")
	ErrVotingClosed         = errors.New("voting session is not accepting votes")
)

// VotingClosedError carries the session id alongside the ErrVotingClosed
// sentinel so callers can still match with errors.Is.
type VotingClosedError struct {
	SessionID string
}

func (e VotingClosedError) Error() string {
	return fmt.Sprintf("voting session %s is not accepting votes", e.SessionID)
}

func (e VotingClosedError) Is(target error) bool {
	return target == ErrVotingClosed
}
