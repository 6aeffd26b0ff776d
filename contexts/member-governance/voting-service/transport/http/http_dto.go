package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateTopicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type UpdateTopicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type TopicResponse struct {
	TopicID     string    `json:"topic_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TopicListResponse struct {
	Items []TopicResponse `json:"items"`
}

// OpenSessionRequest carries the requested voting window length. A missing
// duration defaults to one minute; an explicit value below one is rejected.
type OpenSessionRequest struct {
	DurationMinutes *int `json:"duration_minutes,omitempty"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	TopicID   string    `json:"topic_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	Accepting bool      `json:"accepting"`
}

type SessionListResponse struct {
	Items []SessionResponse `json:"items"`
}

type SessionResultResponse struct {
	SessionID        string    `json:"session_id"`
	TopicID          string    `json:"topic_id"`
	TopicTitle       string    `json:"topic_title"`
	TopicDescription string    `json:"topic_description,omitempty"`
	Status           string    `json:"status"`
	Accepting        bool      `json:"accepting"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	VotesYes         int       `json:"votes_yes"`
	VotesNo          int       `json:"votes_no"`
	TotalVotes       int       `json:"total_votes"`
	PercentYes       float64   `json:"percent_yes"`
	PercentNo        float64   `json:"percent_no"`
}

type RegisterVoteRequest struct {
	MemberID string `json:"member_id"`
	Choice   string `json:"choice"`
}

type BallotResponse struct {
	BallotID  string    `json:"ballot_id"`
	SessionID string    `json:"session_id"`
	MemberID  string    `json:"member_id"`
	Choice    string    `json:"choice"`
	CastAt    time.Time `json:"cast_at"`
}

type BallotListResponse struct {
	Items []BallotResponse `json:"items"`
}

type CanVoteResponse struct {
	SessionID string `json:"session_id"`
	MemberID  string `json:"member_id"`
	CanVote   bool   `json:"can_vote"`
}
