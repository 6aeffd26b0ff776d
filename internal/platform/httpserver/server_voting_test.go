package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	votingservice "quorum/contexts/member-governance/voting-service"
)

func newTestServer(now time.Time) (*Server, votingservice.Module) {
	module := votingservice.NewInMemoryModule(nil, nil)
	module.Store.SetNow(now)
	return New(module, nil, ":0"), module
}

func doJSON(t *testing.T, server *Server, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func decodeField(t *testing.T, rr *httptest.ResponseRecorder, field string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, rr.Body.String())
	}
	value, _ := payload[field].(string)
	return value
}

func TestVotingRoutesHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	server, _ := newTestServer(now)

	rr := doJSON(t, server, http.MethodPost, "/api/topics", `{"title":"Budget 2026","description":"Annual budget"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create topic: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	topicID := decodeField(t, rr, "topic_id")

	rr = doJSON(t, server, http.MethodPost, "/api/sessions/topic/"+topicID, `{"duration_minutes":5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	sessionID := decodeField(t, rr, "session_id")

	rr = doJSON(t, server, http.MethodPost, "/api/votes/session/"+sessionID, `{"member_id":"member-1","choice":"yes"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register vote: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/sessions/"+sessionID+"/result", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("session result: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var result struct {
		VotesYes   int     `json:"votes_yes"`
		TotalVotes int     `json:"total_votes"`
		PercentYes float64 `json:"percent_yes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result failed: %v", err)
	}
	if result.VotesYes != 1 || result.TotalVotes != 1 || result.PercentYes != 100 {
		t.Fatalf("unexpected tally: %+v", result)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/votes/session/"+sessionID+"/eligibility?member_id=member-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("eligibility: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var eligibility struct {
		CanVote bool `json:"can_vote"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &eligibility); err != nil {
		t.Fatalf("decode eligibility failed: %v", err)
	}
	if eligibility.CanVote {
		t.Fatalf("member already voted, expected can_vote=false")
	}
}

func TestVotingRoutesErrorStatusMapping(t *testing.T) {
	now := time.Date(2026, 3, 13, 10, 0, 0, 0, time.UTC)
	server, module := newTestServer(now)

	if rr := doJSON(t, server, http.MethodGet, "/api/topics/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing topic: expected 404, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodGet, "/api/sessions/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing session: expected 404, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodGet, "/api/votes/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing ballot: expected 404, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/topics", `{"title":"x"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("short title: expected 400, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/topics", `not json`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", rr.Code)
	}

	rr := doJSON(t, server, http.MethodPost, "/api/topics", `{"title":"Duplicate target"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create topic failed: %d", rr.Code)
	}
	topicID := decodeField(t, rr, "topic_id")
	if rr := doJSON(t, server, http.MethodPost, "/api/topics", `{"title":"duplicate TARGET"}`); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate title: expected 409, got %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodPost, "/api/sessions/topic/"+topicID, `{"duration_minutes":2}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("open session failed: %d", rr.Code)
	}
	sessionID := decodeField(t, rr, "session_id")

	if rr := doJSON(t, server, http.MethodPost, "/api/sessions/topic/"+topicID, `{}`); rr.Code != http.StatusConflict {
		t.Fatalf("second open: expected 409, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/sessions/topic/"+topicID, `{"duration_minutes":0}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("zero duration: expected 400, got %d", rr.Code)
	}

	if rr := doJSON(t, server, http.MethodPost, "/api/votes/session/"+sessionID, `{"member_id":"member-1","choice":"maybe"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid choice: expected 400, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/votes/session/"+sessionID, `{"member_id":"member-1","choice":"yes"}`); rr.Code != http.StatusCreated {
		t.Fatalf("first vote failed: %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/votes/session/"+sessionID, `{"member_id":"member-1","choice":"no"}`); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate vote: expected 409, got %d", rr.Code)
	}

	// Deadline elapses while the session is still stored as open.
	module.Store.SetNow(now.Add(10 * time.Minute))
	if rr := doJSON(t, server, http.MethodPost, "/api/votes/session/"+sessionID, `{"member_id":"member-2","choice":"yes"}`); rr.Code != http.StatusForbidden {
		t.Fatalf("vote after deadline: expected 403, got %d", rr.Code)
	}

	if rr := doJSON(t, server, http.MethodPost, "/api/sessions/"+sessionID+"/close", ""); rr.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/sessions/"+sessionID+"/close", ""); rr.Code != http.StatusConflict {
		t.Fatalf("second close: expected 409, got %d", rr.Code)
	}

	if rr := doJSON(t, server, http.MethodDelete, "/api/topics/"+topicID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete topic: expected 204, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodGet, "/api/sessions/"+sessionID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("session after cascade delete: expected 404, got %d", rr.Code)
	}
}
