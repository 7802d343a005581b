package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/edulearn/edulearn/internal/config"
	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/handoff"
	"github.com/edulearn/edulearn/internal/session"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Server represents the edulearn daemon HTTP server
type Server struct {
	cfg      *config.LocalConfig
	server   *http.Server
	router   *http.ServeMux
	services *Services
}

// NewServer creates a daemon server over already wired services
func NewServer(cfg *config.LocalConfig, services *Services) *Server {
	s := &Server{
		cfg:      cfg,
		router:   http.NewServeMux(),
		services: services,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Daemon.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // generation can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return recoveryMiddleware(
		corsMiddleware(s.cfg.Daemon.CORSOrigins)(
			correlationIDMiddleware(
				loggingMiddleware(s.router))))
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /v1/health", s.handleHealth)

	// Quizzes
	s.router.HandleFunc("POST /v1/quizzes/generate", s.handleGenerateQuiz)

	// Sessions
	s.router.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	s.router.HandleFunc("PUT /v1/sessions/{id}/answers", s.handleSelectAnswer)
	s.router.HandleFunc("POST /v1/sessions/{id}/next", s.handleNext)
	s.router.HandleFunc("POST /v1/sessions/{id}/previous", s.handlePrevious)
	s.router.HandleFunc("POST /v1/sessions/{id}/jump", s.handleJump)
	s.router.HandleFunc("POST /v1/sessions/{id}/submit", s.handleSubmit)
	s.router.HandleFunc("POST /v1/sessions/{id}/abandon", s.handleAbandon)

	// Profile
	s.router.HandleFunc("GET /v1/profile", s.handleGetProfile)
	s.router.HandleFunc("POST /v1/profile/refresh", s.handleRefreshProfile)
	s.router.HandleFunc("GET /v1/profile/history", s.handleProfileHistory)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting edulearn daemon",
		"addr", s.server.Addr,
		"ledger", s.services.LedgerDriver,
		"llm_providers", s.services.Providers,
		"events", s.services.EventsOn,
	)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then releases services
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	if cerr := s.services.Close(); cerr != nil {
		slog.Warn("failed to close services", "error", cerr)
	}
	return err
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"version":       Version,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"ledger":        s.services.LedgerDriver,
		"llm_providers": s.services.Providers,
		"events":        s.services.EventsOn,
	})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	quiz, err := s.services.Sessions.Generate(r.Context(), r.Header.Get(TabIDHeader), req.Topic, req.Difficulty)
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			status, msg = http.StatusBadGateway, "quiz generation failed"
		}
		jsonError(w, status, msg, err)
		return
	}

	jsonResponse(w, http.StatusCreated, quiz)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID *int64       `json:"quiz_id,omitempty"`
		Quiz   *domain.Quiz `json:"quiz,omitempty"` // direct hand-off
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := s.services.Sessions.Start(r.Context(), session.StartRequest{
		TabID:  r.Header.Get(TabIDHeader),
		QuizID: req.QuizID,
		Quiz:   req.Quiz,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	views := s.services.Sessions.List(r.Context())
	jsonResponse(w, http.StatusOK, map[string]any{
		"sessions": views,
		"count":    len(views),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

func (s *Server) handleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID int64 `json:"question_id"`
		OptionID   int64 `json:"option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := s.services.Sessions.Select(r.Context(), r.PathValue("id"), req.QuestionID, req.OptionID)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.services.Sessions.Next)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.services.Sessions.Previous)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.services.Sessions.Abandon)
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Index == nil {
		jsonError(w, http.StatusBadRequest, "index is required", nil)
		return
	}

	view, err := s.services.Sessions.JumpTo(r.Context(), r.PathValue("id"), *req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Sessions.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		status, msg := errorStatus(err)
		if view != nil {
			// local result that could not be recorded; the client can retry
			jsonResponse(w, status, map[string]any{
				"error":   msg,
				"status":  status,
				"details": err.Error(),
				"session": view,
			})
			return
		}
		jsonError(w, status, msg, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

func (s *Server) respondView(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*session.View, error)) {
	view, err := op(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// Profile handlers

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.services.Refresher.RefreshIfStale(r.Context())
	if err != nil {
		// serve the last known value; the next read retries
		slog.Warn("profile refresh failed", "error", err)
		cached, _ := s.services.Profile.Snapshot()
		jsonResponse(w, http.StatusOK, profileBody(cached, true))
		return
	}
	jsonResponse(w, http.StatusOK, profileBody(snapshot, s.services.Profile.Stale()))
}

func (s *Server) handleRefreshProfile(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.services.Refresher.Refresh(r.Context())
	if err != nil {
		jsonError(w, http.StatusBadGateway, "profile refresh failed", err)
		return
	}
	jsonResponse(w, http.StatusOK, profileBody(snapshot, false))
}

func (s *Server) handleProfileHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			jsonError(w, http.StatusBadRequest, "limit must be between 1 and 500", err)
			return
		}
		limit = n
	}

	entries, err := s.services.Reconciler.History(r.Context(), limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read history", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func profileBody(snapshot domain.ProfileSnapshot, stale bool) map[string]any {
	return map[string]any{
		"username": snapshot.Username,
		"xp":       snapshot.XP,
		"stale":    stale,
	}
}

// Helpers

// errorStatus maps a service error to an HTTP status and message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, "quiz not found"

	case errors.Is(err, domain.ErrNoQuizSpecified),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrEmptyTopic),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrUnknownQuestion),
		errors.Is(err, domain.ErrUnknownOption),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, handoff.ErrInvalidTabID):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, domain.ErrIncompleteAttempt),
		errors.Is(err, domain.ErrSubmissionInFlight),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrSessionNotActive):
		return http.StatusConflict, err.Error()

	case errors.Is(err, domain.ErrQuizLoadFailed):
		return http.StatusBadGateway, "quiz could not be loaded"
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway, "submission failed"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := errorStatus(err)
	jsonError(w, status, msg, err)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	jsonResponse(w, status, response)
}
