package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
	"github.com/edulearn/edulearn/internal/session"
)

// Server wraps the MCP server with quiz-taking tools
type Server struct {
	mcpServer      *server.Server
	sessionService session.SessionService
	profileStore   *profile.Store
	refresher      *profile.Refresher

	// tabID scopes generated quizzes to this MCP connection
	tabID string
}

// Config contains configuration for the MCP server
type Config struct {
	SessionService session.SessionService
	ProfileStore   *profile.Store
	Refresher      *profile.Refresher
}

// NewServer creates a new MCP server for edulearn
func NewServer(cfg Config) *Server {
	s := &Server{
		sessionService: cfg.SessionService,
		profileStore:   cfg.ProfileStore,
		refresher:      cfg.Refresher,
		tabID:          "mcp-" + uuid.NewString(),
	}

	s.mcpServer = server.New(server.Info{
		Name:    "edulearn",
		Version: "0.1.0",
	}, server.WithInstructions(`
edulearn runs multiple-choice quiz attempts and tracks the learner's XP.

Available tools:
- quiz_generate: Generate a quiz on a topic (EASY, MEDIUM or HARD)
- quiz_start: Start an attempt on a catalog quiz, or on the last generated quiz
- quiz_answer: Select an option for a question
- quiz_navigate: Move to the next, previous or a specific question
- quiz_status: Show the current question and progress
- quiz_submit: Submit once every question is answered
- quiz_abandon: Abandon an attempt without scoring
- profile_xp: Show the learner's XP

Never reveal which option is correct before the attempt is submitted.
`))

	s.registerTools()

	return s
}

// registerTools registers all edulearn MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("quiz_generate").
		Description("Generate a quiz on a topic. The quiz is held for the next quiz_start.").
		Handler(s.handleGenerate)

	s.mcpServer.Tool("quiz_start").
		Description("Start an attempt on a catalog quiz by id, or on the last generated quiz when no id is given.").
		Handler(s.handleStart)

	s.mcpServer.Tool("quiz_answer").
		Description("Select an option for a question. Answers can be changed until submission.").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("quiz_navigate").
		Description("Move to the next or previous question, or jump to a question index.").
		Handler(s.handleNavigate)

	s.mcpServer.Tool("quiz_status").
		Description("Show the current question, selected answers and progress.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("quiz_submit").
		Description("Submit the attempt for scoring. Every question must be answered.").
		Handler(s.handleSubmit)

	s.mcpServer.Tool("quiz_abandon").
		Description("Abandon an attempt. Nothing is scored.").
		Handler(s.handleAbandon)

	s.mcpServer.Tool("profile_xp").
		Description("Show the learner's username and XP.").
		Handler(s.handleProfileXP)
}

// Input/Output types for tools

type GenerateInput struct {
	Topic      string `json:"topic" jsonschema:"description=Quiz topic"`
	Difficulty string `json:"difficulty" jsonschema:"description=Difficulty level,enum=EASY,enum=MEDIUM,enum=HARD"`
}

type GenerateOutput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
	XPReward      int    `json:"xp_reward"`
	Message       string `json:"message"`
}

type StartInput struct {
	QuizID *int64 `json:"quiz_id,omitempty" jsonschema:"description=Catalog quiz id. Omit to start the last generated quiz"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from quiz_start"`
}

type AnswerInput struct {
	SessionID  string `json:"session_id" jsonschema:"description=Session ID from quiz_start"`
	QuestionID int64  `json:"question_id" jsonschema:"description=Question id"`
	OptionID   int64  `json:"option_id" jsonschema:"description=Selected option id"`
}

type NavigateInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from quiz_start"`
	Direction string `json:"direction" jsonschema:"description=Where to move,enum=next,enum=previous,enum=jump"`
	Index     int    `json:"index,omitempty" jsonschema:"description=Zero-based question index for jump"`
}

type OptionOutput struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type QuestionOutput struct {
	ID       int64          `json:"id"`
	Text     string         `json:"text"`
	Options  []OptionOutput `json:"options"`
	Selected *int64         `json:"selected,omitempty"`
}

type SessionOutput struct {
	SessionID string          `json:"session_id"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Strategy  string          `json:"strategy"`
	Position  string          `json:"position"`
	Progress  int             `json:"progress"`
	Answered  int             `json:"answered"`
	CanSubmit bool            `json:"can_submit"`
	Question  *QuestionOutput `json:"question,omitempty"`
	LastError string          `json:"last_error,omitempty"`
}

type SubmitOutput struct {
	SessionID string `json:"session_id"`
	AttemptID string `json:"attempt_id"`
	Score     int    `json:"score"`
	XPEarned  int    `json:"xp_earned"`
	XP        int    `json:"xp"`
	Message   string `json:"message"`
}

type AbandonOutput struct {
	Message string `json:"message"`
}

type ProfileInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"description=Reload from the backend even when the local copy is fresh"`
}

type ProfileOutput struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Stale    bool   `json:"stale"`
}

// Tool handlers

func (s *Server) handleGenerate(ctx context.Context, input GenerateInput) (GenerateOutput, error) {
	quiz, err := s.sessionService.Generate(ctx, s.tabID, input.Topic, input.Difficulty)
	if err != nil {
		return GenerateOutput{}, fmt.Errorf("failed to generate quiz: %w", err)
	}

	return GenerateOutput{
		Title:         quiz.Title,
		Description:   quiz.Description,
		QuestionCount: quiz.QuestionCount(),
		XPReward:      quiz.XPReward,
		Message:       "Quiz ready. Call quiz_start without a quiz_id to begin.",
	}, nil
}

func (s *Server) handleStart(ctx context.Context, input StartInput) (SessionOutput, error) {
	view, err := s.sessionService.Start(ctx, session.StartRequest{
		TabID:  s.tabID,
		QuizID: input.QuizID,
	})
	if err != nil {
		return SessionOutput{}, fmt.Errorf("failed to start quiz: %w", err)
	}
	return sessionOutput(view), nil
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (SessionOutput, error) {
	view, err := s.sessionService.Select(ctx, input.SessionID, input.QuestionID, input.OptionID)
	if err != nil {
		return SessionOutput{}, fmt.Errorf("failed to record answer: %w", err)
	}
	return sessionOutput(view), nil
}

func (s *Server) handleNavigate(ctx context.Context, input NavigateInput) (SessionOutput, error) {
	var (
		view *session.View
		err  error
	)
	switch input.Direction {
	case "next":
		view, err = s.sessionService.Next(ctx, input.SessionID)
	case "previous":
		view, err = s.sessionService.Previous(ctx, input.SessionID)
	case "jump":
		view, err = s.sessionService.JumpTo(ctx, input.SessionID, input.Index)
	default:
		return SessionOutput{}, fmt.Errorf("direction must be next, previous or jump, got %q", input.Direction)
	}
	if err != nil {
		return SessionOutput{}, fmt.Errorf("failed to navigate: %w", err)
	}
	return sessionOutput(view), nil
}

func (s *Server) handleStatus(ctx context.Context, input SessionInput) (SessionOutput, error) {
	view, err := s.sessionService.Get(ctx, input.SessionID)
	if err != nil {
		return SessionOutput{}, fmt.Errorf("session not found: %w", err)
	}
	return sessionOutput(view), nil
}

func (s *Server) handleSubmit(ctx context.Context, input SessionInput) (SubmitOutput, error) {
	view, err := s.sessionService.Submit(ctx, input.SessionID)
	if err != nil {
		if view != nil && view.Result != nil {
			return SubmitOutput{}, fmt.Errorf("scored %d%% but the result was not recorded, submit again to retry: %w", view.Result.Score, err)
		}
		return SubmitOutput{}, fmt.Errorf("failed to submit: %w", err)
	}

	result := view.Result
	return SubmitOutput{
		SessionID: view.ID,
		AttemptID: result.AttemptID,
		Score:     result.Score,
		XPEarned:  result.XPEarned,
		XP:        s.profileStore.XP(),
		Message:   fmt.Sprintf("Scored %d%%, earned %d XP.", result.Score, result.XPEarned),
	}, nil
}

func (s *Server) handleAbandon(ctx context.Context, input SessionInput) (AbandonOutput, error) {
	if _, err := s.sessionService.Abandon(ctx, input.SessionID); err != nil {
		return AbandonOutput{}, fmt.Errorf("failed to abandon: %w", err)
	}
	return AbandonOutput{Message: "Attempt abandoned"}, nil
}

func (s *Server) handleProfileXP(ctx context.Context, input ProfileInput) (ProfileOutput, error) {
	var (
		snapshot domain.ProfileSnapshot
		err      error
	)
	if input.Refresh {
		snapshot, err = s.refresher.Refresh(ctx)
	} else {
		snapshot, err = s.refresher.RefreshIfStale(ctx)
	}
	if err != nil {
		cached, loaded := s.profileStore.Snapshot()
		if !loaded {
			return ProfileOutput{}, fmt.Errorf("failed to load profile: %w", err)
		}
		return ProfileOutput{Username: cached.Username, XP: cached.XP, Stale: true}, nil
	}

	return ProfileOutput{
		Username: snapshot.Username,
		XP:       snapshot.XP,
		Stale:    s.profileStore.Stale(),
	}, nil
}

// sessionOutput renders the current question of a redacted view
func sessionOutput(view *session.View) SessionOutput {
	out := SessionOutput{
		SessionID: view.ID,
		Status:    string(view.Status),
		Strategy:  string(view.Strategy),
		Position:  fmt.Sprintf("%d/%d", view.Current+1, view.Total),
		Progress:  view.Progress,
		Answered:  view.AnsweredCount,
		CanSubmit: view.CanSubmit,
		LastError: view.LastError,
	}
	if view.Quiz == nil {
		return out
	}
	out.Title = view.Quiz.Title

	if view.Current < 0 || view.Current >= len(view.Quiz.Questions) {
		return out
	}
	q := view.Quiz.Questions[view.Current]
	qo := &QuestionOutput{ID: q.ID, Text: q.Text, Options: make([]OptionOutput, 0, len(q.Options))}
	for _, opt := range q.Options {
		qo.Options = append(qo.Options, OptionOutput{ID: opt.ID, Text: opt.Text})
	}
	if selected, ok := view.Answers[q.ID]; ok {
		qo.Selected = &selected
	}
	out.Question = qo
	return out
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
