package entities

import "time"

type VoteChoice string

const (
	VoteChoiceYes VoteChoice = "yes"
	VoteChoiceNo  VoteChoice = "no"
)

func (c VoteChoice) Valid() bool {
	return c == VoteChoiceYes || c == VoteChoiceNo
}

type Topic struct {
	TopicID     string
	Title       string
	Description string
	CreatedAt   time.Time
}

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

type Session struct {
	SessionID string
	TopicID   string
	StartsAt  time.Time
	EndsAt    time.Time
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Accepting reports whether the session admits ballots at the given instant.
// Stored status alone is not enough: a session whose deadline elapsed but that
// the sweeper has not flipped yet must already reject ballots.
func (s Session) Accepting(now time.Time) bool {
	return s.Status == SessionStatusOpen && now.Before(s.EndsAt)
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.EndsAt)
}

type Ballot struct {
	BallotID  string
	SessionID string
	MemberID  string
	Choice    VoteChoice
	CastAt    time.Time
}

// SessionTally aggregates ballot counts for one session. Percentages are both
// zero when no ballots were cast.
type SessionTally struct {
	VotesYes   int
	VotesNo    int
	TotalVotes int
	PercentYes float64
	PercentNo  float64
}

func NewSessionTally(votesYes int, votesNo int) SessionTally {
	tally := SessionTally{
		VotesYes:   votesYes,
		VotesNo:    votesNo,
		TotalVotes: votesYes + votesNo,
	}
	if tally.TotalVotes > 0 {
		tally.PercentYes = float64(votesYes) / float64(tally.TotalVotes) * 100
		tally.PercentNo = float64(votesNo) / float64(tally.TotalVotes) * 100
	}
	return tally
}
