package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	votingservice "quorum/contexts/member-governance/voting-service"
	votingerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	votinghttp "quorum/contexts/member-governance/voting-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	voting votingservice.Module
}

func New(voting votingservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		voting: voting,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for httptest-based coverage.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/topics", s.handleCreateTopic)
	s.mux.HandleFunc("GET /api/topics", s.handleListTopics)
	s.mux.HandleFunc("GET /api/topics/{topic_id}", s.handleGetTopic)
	s.mux.HandleFunc("PUT /api/topics/{topic_id}", s.handleUpdateTopic)
	s.mux.HandleFunc("DELETE /api/topics/{topic_id}", s.handleDeleteTopic)

	s.mux.HandleFunc("POST /api/sessions/topic/{topic_id}", s.handleOpenSession)
	s.mux.HandleFunc("GET /api/sessions/topic/{topic_id}", s.handleListSessions)
	s.mux.HandleFunc("GET /api/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{session_id}/close", s.handleCloseSession)
	s.mux.HandleFunc("GET /api/sessions/{session_id}/result", s.handleSessionResult)

	s.mux.HandleFunc("POST /api/votes/session/{session_id}", s.handleRegisterVote)
	s.mux.HandleFunc("GET /api/votes/session/{session_id}", s.handleSessionVotes)
	s.mux.HandleFunc("GET /api/votes/session/{session_id}/eligibility", s.handleCanVote)
	s.mux.HandleFunc("GET /api/votes/member/{member_id}", s.handleMemberVotes)
	s.mux.HandleFunc("GET /api/votes/{ballot_id}", s.handleGetBallot)
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.CreateTopicHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListTopicsHandler(r.Context())
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.GetTopicHandler(r.Context(), r.PathValue("topic_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.UpdateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.UpdateTopicHandler(r.Context(), r.PathValue("topic_id"), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.voting.Handler.DeleteTopicHandler(r.Context(), r.PathValue("topic_id")); err != nil {
		writeVotingDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.OpenSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	resp, err := s.voting.Handler.OpenSessionHandler(r.Context(), r.PathValue("topic_id"), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListSessionsHandler(r.Context(), r.PathValue("topic_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.GetSessionHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.CloseSessionHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.SessionResultHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterVote(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.RegisterVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.RegisterVoteHandler(r.Context(), r.PathValue("session_id"), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSessionVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.SessionVotesHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCanVote(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member_id")
	resp, err := s.voting.Handler.CanVoteHandler(r.Context(), r.PathValue("session_id"), memberID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMemberVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.MemberVotesHandler(r.Context(), r.PathValue("member_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.GetBallotHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrTopicNotFound):
		writeVotingError(w, http.StatusNotFound, "topic_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrSessionNotFound):
		writeVotingError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrBallotNotFound):
		writeVotingError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrDuplicateTitle):
		writeVotingError(w, http.StatusConflict, "duplicate_title", err.Error())
	case errors.Is(err, votingerrors.ErrSessionAlreadyOpen):
		writeVotingError(w, http.StatusConflict, "session_already_open", err.Error())
	case errors.Is(err, votingerrors.ErrSessionAlreadyClosed):
		writeVotingError(w, http.StatusConflict, "session_already_closed", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyVoted):
		writeVotingError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, votingerrors.ErrVotingClosed):
		writeVotingError(w, http.StatusForbidden, "voting_closed", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidTopicInput),
		errors.Is(err, votingerrors.ErrInvalidSessionInput),
		errors.Is(err, votingerrors.ErrInvalidVoteInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
