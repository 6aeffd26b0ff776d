package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"quorum/contexts/member-governance/voting-service/application/commands"
	"quorum/contexts/member-governance/voting-service/application/queries"
	"quorum/contexts/member-governance/voting-service/domain/entities"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"
	httptransport "quorum/contexts/member-governance/voting-service/transport/http"
)

// Handler maps transport DTOs onto use cases. Duration defaulting for open
// requests lives here; a missing duration means a one-minute window.
type Handler struct {
	Topics   commands.TopicUseCase
	Sessions commands.SessionUseCase
	Votes    commands.VoteUseCase
	Listings queries.ListingUseCase
	Results  queries.TallyUseCase
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (h Handler) CreateTopicHandler(ctx context.Context, req httptransport.CreateTopicRequest) (httptransport.TopicResponse, error) {
	topic, err := h.Topics.CreateTopic(ctx, commands.CreateTopicCommand{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return httptransport.TopicResponse{}, err
	}
	return mapTopic(topic), nil
}

func (h Handler) GetTopicHandler(ctx context.Context, topicID string) (httptransport.TopicResponse, error) {
	topic, err := h.Listings.GetTopic(ctx, topicID)
	if err != nil {
		return httptransport.TopicResponse{}, err
	}
	return mapTopic(topic), nil
}

func (h Handler) ListTopicsHandler(ctx context.Context) (httptransport.TopicListResponse, error) {
	topics, err := h.Listings.ListTopics(ctx)
	if err != nil {
		return httptransport.TopicListResponse{}, err
	}
	items := make([]httptransport.TopicResponse, 0, len(topics))
	for _, topic := range topics {
		items = append(items, mapTopic(topic))
	}
	return httptransport.TopicListResponse{Items: items}, nil
}

func (h Handler) UpdateTopicHandler(ctx context.Context, topicID string, req httptransport.UpdateTopicRequest) (httptransport.TopicResponse, error) {
	topic, err := h.Topics.UpdateTopic(ctx, commands.UpdateTopicCommand{
		TopicID:     topicID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return httptransport.TopicResponse{}, err
	}
	return mapTopic(topic), nil
}

func (h Handler) DeleteTopicHandler(ctx context.Context, topicID string) error {
	return h.Topics.DeleteTopic(ctx, topicID)
}

func (h Handler) OpenSessionHandler(ctx context.Context, topicID string, req httptransport.OpenSessionRequest) (httptransport.SessionResponse, error) {
	duration := 1
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	if duration < 1 {
		return httptransport.SessionResponse{}, domainerrors.ErrInvalidSessionInput
	}
	session, err := h.Sessions.OpenSession(ctx, commands.OpenSessionCommand{
		TopicID:         topicID,
		DurationMinutes: duration,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return h.mapSession(session), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Listings.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return h.mapSession(session), nil
}

func (h Handler) ListSessionsHandler(ctx context.Context, topicID string) (httptransport.SessionListResponse, error) {
	sessions, err := h.Listings.ListSessionsForTopic(ctx, topicID)
	if err != nil {
		return httptransport.SessionListResponse{}, err
	}
	items := make([]httptransport.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, h.mapSession(session))
	}
	return httptransport.SessionListResponse{Items: items}, nil
}

func (h Handler) CloseSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.CloseSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return h.mapSession(session), nil
}

func (h Handler) SessionResultHandler(ctx context.Context, sessionID string) (httptransport.SessionResultResponse, error) {
	result, err := h.Results.SessionResult(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResultResponse{}, err
	}
	return httptransport.SessionResultResponse{
		SessionID:        result.Session.SessionID,
		TopicID:          result.Topic.TopicID,
		TopicTitle:       result.Topic.Title,
		TopicDescription: result.Topic.Description,
		Status:           string(result.Session.Status),
		Accepting:        result.Accepting,
		StartsAt:         result.Session.StartsAt,
		EndsAt:           result.Session.EndsAt,
		VotesYes:         result.Tally.VotesYes,
		VotesNo:          result.Tally.VotesNo,
		TotalVotes:       result.Tally.TotalVotes,
		PercentYes:       result.Tally.PercentYes,
		PercentNo:        result.Tally.PercentNo,
	}, nil
}

func (h Handler) RegisterVoteHandler(ctx context.Context, sessionID string, req httptransport.RegisterVoteRequest) (httptransport.BallotResponse, error) {
	ballot, err := h.Votes.RegisterVote(ctx, commands.RegisterVoteCommand{
		SessionID: sessionID,
		MemberID:  req.MemberID,
		Choice:    entities.VoteChoice(req.Choice),
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) CanVoteHandler(ctx context.Context, sessionID string, memberID string) (httptransport.CanVoteResponse, error) {
	canVote, err := h.Listings.CanVote(ctx, sessionID, memberID)
	if err != nil {
		return httptransport.CanVoteResponse{}, err
	}
	return httptransport.CanVoteResponse{
		SessionID: sessionID,
		MemberID:  memberID,
		CanVote:   canVote,
	}, nil
}

func (h Handler) SessionVotesHandler(ctx context.Context, sessionID string) (httptransport.BallotListResponse, error) {
	ballots, err := h.Listings.ListVotesForSession(ctx, sessionID)
	if err != nil {
		return httptransport.BallotListResponse{}, err
	}
	return mapBallots(ballots), nil
}

func (h Handler) MemberVotesHandler(ctx context.Context, memberID string) (httptransport.BallotListResponse, error) {
	ballots, err := h.Listings.ListVotesForMember(ctx, memberID)
	if err != nil {
		return httptransport.BallotListResponse{}, err
	}
	return mapBallots(ballots), nil
}

func (h Handler) GetBallotHandler(ctx context.Context, ballotID string) (httptransport.BallotResponse, error) {
	ballot, err := h.Listings.GetBallot(ctx, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) mapSession(session entities.Session) httptransport.SessionResponse {
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock.Now().UTC()
	}
	return httptransport.SessionResponse{
		SessionID: session.SessionID,
		TopicID:   session.TopicID,
		StartsAt:  session.StartsAt,
		EndsAt:    session.EndsAt,
		Status:    string(session.Status),
		Accepting: session.Accepting(now),
	}
}

func mapTopic(topic entities.Topic) httptransport.TopicResponse {
	return httptransport.TopicResponse{
		TopicID:     topic.TopicID,
		Title:       topic.Title,
		Description: topic.Description,
		CreatedAt:   topic.CreatedAt,
	}
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		BallotID:  ballot.BallotID,
		SessionID: ballot.SessionID,
		MemberID:  ballot.MemberID,
		Choice:    string(ballot.Choice),
		CastAt:    ballot.CastAt,
	}
}

func mapBallots(ballots []entities.Ballot) httptransport.BallotListResponse {
	items := make([]httptransport.BallotResponse, 0, len(ballots))
	for _, ballot := range ballots {
		items = append(items, mapBallot(ballot))
	}
	return httptransport.BallotListResponse{Items: items}
}
