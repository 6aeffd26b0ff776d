package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	votingservice "quorum/contexts/member-governance/voting-service"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	httptransport "quorum/contexts/member-governance/voting-service/transport/http"
)

func newVotingModule(t *testing.T, now time.Time) votingservice.Module {
	t.Helper()
	module := votingservice.NewInMemoryModule(nil, nil)
	module.Store.SetNow(now)
	return module
}

func TestTopicLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	created, err := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{
		Title:       "Adopt the new budget",
		Description: "Fiscal year 2026 budget proposal",
	})
	if err != nil {
		t.Fatalf("create topic failed: %v", err)
	}
	if created.TopicID == "" {
		t.Fatalf("expected generated topic id")
	}
	if !created.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, created.CreatedAt)
	}

	_, err = module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{
		Title: "adopt the NEW budget",
	})
	if !errors.Is(err, domainerrors.ErrDuplicateTitle) {
		t.Fatalf("expected duplicate title error, got %v", err)
	}

	updated, err := module.Handler.UpdateTopicHandler(context.Background(), created.TopicID, httptransport.UpdateTopicRequest{
		Title:       "Adopt the new budget",
		Description: "Revised proposal",
	})
	if err != nil {
		t.Fatalf("update topic with own title failed: %v", err)
	}
	if updated.Description != "Revised proposal" {
		t.Fatalf("expected updated description, got %q", updated.Description)
	}

	if err := module.Handler.DeleteTopicHandler(context.Background(), created.TopicID); err != nil {
		t.Fatalf("delete topic failed: %v", err)
	}
	if _, err := module.Handler.GetTopicHandler(context.Background(), created.TopicID); !errors.Is(err, domainerrors.ErrTopicNotFound) {
		t.Fatalf("expected topic not found after delete, got %v", err)
	}
}

func TestCreateTopicRejectsBadInput(t *testing.T) {
	module := newVotingModule(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "ab"})
	if !errors.Is(err, domainerrors.ErrInvalidTopicInput) {
		t.Fatalf("expected invalid topic input for short title, got %v", err)
	}
}

func TestOpenSessionDefaultsAndConflicts(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, err := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Board election"})
	if err != nil {
		t.Fatalf("create topic failed: %v", err)
	}

	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	if want := now.Add(time.Minute); !session.EndsAt.Equal(want) {
		t.Fatalf("expected default one-minute window ending %v, got %v", want, session.EndsAt)
	}
	if !session.Accepting {
		t.Fatalf("expected freshly opened session to accept votes")
	}

	minutes := 30
	_, err = module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if !errors.Is(err, domainerrors.ErrSessionAlreadyOpen) {
		t.Fatalf("expected second open to conflict, got %v", err)
	}

	zero := 0
	_, err = module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &zero})
	if !errors.Is(err, domainerrors.ErrInvalidSessionInput) {
		t.Fatalf("expected zero duration rejection, got %v", err)
	}

	_, err = module.Handler.OpenSessionHandler(context.Background(), "missing-topic", httptransport.OpenSessionRequest{})
	if !errors.Is(err, domainerrors.ErrTopicNotFound) {
		t.Fatalf("expected topic not found, got %v", err)
	}
}

func TestCloseSessionIsOneWay(t *testing.T) {
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Statute change"})
	minutes := 60
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	closed, err := module.Handler.CloseSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	if closed.Status != "closed" {
		t.Fatalf("expected closed status, got %q", closed.Status)
	}
	if closed.Accepting {
		t.Fatalf("closed session must not accept votes")
	}

	_, err = module.Handler.CloseSessionHandler(context.Background(), session.SessionID)
	if !errors.Is(err, domainerrors.ErrSessionAlreadyClosed) {
		t.Fatalf("expected second close to conflict, got %v", err)
	}

	reopened, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open after close failed: %v", err)
	}
	if reopened.SessionID == session.SessionID {
		t.Fatalf("expected a fresh session id after reopen")
	}
}

func TestRegisterVoteAdmission(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Membership fees"})
	minutes := 10
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	ballot, err := module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{
		MemberID: "member-1",
		Choice:   "yes",
	})
	if err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if ballot.Choice != "yes" {
		t.Fatalf("expected recorded choice yes, got %q", ballot.Choice)
	}

	_, err = module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{
		MemberID: "member-1",
		Choice:   "no",
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected duplicate vote rejection, got %v", err)
	}

	_, err = module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{
		MemberID: "member-2",
		Choice:   "maybe",
	})
	if !errors.Is(err, domainerrors.ErrInvalidVoteInput) {
		t.Fatalf("expected invalid choice rejection, got %v", err)
	}

	eligibility, err := module.Handler.CanVoteHandler(context.Background(), session.SessionID, "member-1")
	if err != nil {
		t.Fatalf("eligibility check failed: %v", err)
	}
	if eligibility.CanVote {
		t.Fatalf("member-1 already voted, expected can_vote=false")
	}
	eligibility, err = module.Handler.CanVoteHandler(context.Background(), session.SessionID, "member-2")
	if err != nil {
		t.Fatalf("eligibility check failed: %v", err)
	}
	if !eligibility.CanVote {
		t.Fatalf("member-2 has not voted, expected can_vote=true")
	}

	if _, err := module.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	eligibility, err = module.Handler.CanVoteHandler(context.Background(), session.SessionID, "member-2")
	if err != nil {
		t.Fatalf("eligibility check after close failed: %v", err)
	}
	if eligibility.CanVote {
		t.Fatalf("session closed, expected can_vote=false")
	}
}

func TestRegisterVoteAfterDeadlineIsForbidden(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Club merger"})
	minutes := 5
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	// Deadline elapsed but the sweeper has not run: stored status is still
	// open, admission must reject anyway.
	module.Store.SetNow(now.Add(5 * time.Minute))

	_, err = module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{
		MemberID: "member-late",
		Choice:   "yes",
	})
	if !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected voting closed after deadline, got %v", err)
	}

	got, err := module.Handler.GetSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if got.Status != "open" {
		t.Fatalf("sweeper has not run, stored status should still be open, got %q", got.Status)
	}
	if got.Accepting {
		t.Fatalf("expected accepting=false once the deadline passed")
	}

	if err := module.Sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	got, err = module.Handler.GetSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session after sweep failed: %v", err)
	}
	if got.Status != "closed" {
		t.Fatalf("expected sweeper to flip stored status to closed, got %q", got.Status)
	}
}

func TestSessionResultTally(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "New clubhouse"})
	minutes := 15
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	empty, err := module.Handler.SessionResultHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("result on empty session failed: %v", err)
	}
	if empty.TotalVotes != 0 || empty.PercentYes != 0 || empty.PercentNo != 0 {
		t.Fatalf("expected zeroed tally on empty session, got %+v", empty)
	}

	for member, choice := range map[string]string{"member-1": "yes", "member-2": "no"} {
		if _, err := module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{
			MemberID: member,
			Choice:   choice,
		}); err != nil {
			t.Fatalf("vote by %s failed: %v", member, err)
		}
	}

	split, err := module.Handler.SessionResultHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("session result failed: %v", err)
	}
	if split.VotesYes != 1 || split.VotesNo != 1 || split.TotalVotes != 2 {
		t.Fatalf("unexpected counts: %+v", split)
	}
	if split.PercentYes != 50 || split.PercentNo != 50 {
		t.Fatalf("unexpected percentages: yes=%f no=%f", split.PercentYes, split.PercentNo)
	}
	if split.TopicTitle != "New clubhouse" {
		t.Fatalf("expected topic title in result, got %q", split.TopicTitle)
	}

	for member, choice := range map[string]string{"member-3": "yes", "member-4": "yes"} {
		if _, err := module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{
			MemberID: member,
			Choice:   choice,
		}); err != nil {
			t.Fatalf("vote by %s failed: %v", member, err)
		}
	}

	result, err := module.Handler.SessionResultHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("session result failed: %v", err)
	}
	if result.VotesYes != 3 || result.VotesNo != 1 || result.TotalVotes != 4 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.PercentYes != 75 || result.PercentNo != 25 {
		t.Fatalf("unexpected percentages: yes=%f no=%f", result.PercentYes, result.PercentNo)
	}
}

func TestVoteListings(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	module := newVotingModule(t, now)

	topic, _ := module.Handler.CreateTopicHandler(context.Background(), httptransport.CreateTopicRequest{Title: "Annual meeting date"})
	minutes := 15
	session, err := module.Handler.OpenSessionHandler(context.Background(), topic.TopicID, httptransport.OpenSessionRequest{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	first, err := module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{MemberID: "member-a", Choice: "yes"})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	module.Store.SetNow(now.Add(time.Minute))
	second, err := module.Handler.RegisterVoteHandler(context.Background(), session.SessionID, httptransport.RegisterVoteRequest{MemberID: "member-b", Choice: "no"})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	bySession, err := module.Handler.SessionVotesHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("session votes failed: %v", err)
	}
	if len(bySession.Items) != 2 {
		t.Fatalf("expected 2 ballots, got %d", len(bySession.Items))
	}
	if bySession.Items[0].BallotID != first.BallotID || bySession.Items[1].BallotID != second.BallotID {
		t.Fatalf("expected session ballots in cast order")
	}

	byMember, err := module.Handler.MemberVotesHandler(context.Background(), "member-b")
	if err != nil {
		t.Fatalf("member votes failed: %v", err)
	}
	if len(byMember.Items) != 1 || byMember.Items[0].BallotID != second.BallotID {
		t.Fatalf("unexpected member listing: %+v", byMember.Items)
	}

	got, err := module.Handler.GetBallotHandler(context.Background(), first.BallotID)
	if err != nil {
		t.Fatalf("get ballot failed: %v", err)
	}
	if got.MemberID != "member-a" {
		t.Fatalf("expected ballot owner member-a, got %q", got.MemberID)
	}

	if _, err := module.Handler.GetBallotHandler(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrBallotNotFound) {
		t.Fatalf("expected ballot not found, got %v", err)
	}
}
