package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edulearn/edulearn/internal/config"
	"github.com/edulearn/edulearn/internal/daemon"
	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
	"github.com/edulearn/edulearn/internal/session"
)

// apiError is a non-2xx daemon response
type apiError struct {
	Status  int           `json:"status"`
	Message string        `json:"error"`
	Details string        `json:"details,omitempty"`
	Session *session.View `json:"session,omitempty"`
}

func (e *apiError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// daemonClient calls the local daemon API
type daemonClient struct {
	baseURL    string
	tabID      string
	httpClient *http.Client
}

func newDaemonClient(baseURL string) *daemonClient {
	return &daemonClient{
		baseURL: baseURL,
		// one tab per CLI process
		tabID:      "cli-" + uuid.NewString(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// daemonURL returns the daemon address from config, or the default
func daemonURL() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		cfg = config.DefaultLocalConfig()
	}
	return "http://" + cfg.Daemon.Addr()
}

func (c *daemonClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(daemon.TabIDHeader, c.tabID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable (run 'edulearn start'): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *daemonClient) health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &out)
	return out, err
}

func (c *daemonClient) generate(ctx context.Context, topic, difficulty string) (*domain.Quiz, error) {
	var quiz domain.Quiz
	err := c.do(ctx, http.MethodPost, "/v1/quizzes/generate", map[string]string{
		"topic":      topic,
		"difficulty": difficulty,
	}, &quiz)
	return &quiz, err
}

func (c *daemonClient) start(ctx context.Context, quizID *int64, quiz *domain.Quiz) (*session.View, error) {
	var view session.View
	err := c.do(ctx, http.MethodPost, "/v1/sessions", map[string]any{
		"quiz_id": quizID,
		"quiz":    quiz,
	}, &view)
	return &view, err
}

func (c *daemonClient) sessionCall(ctx context.Context, method, id, action string, in any) (*session.View, error) {
	path := "/v1/sessions/" + id
	if action != "" {
		path += "/" + action
	}
	var view session.View
	if err := c.do(ctx, method, path, in, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *daemonClient) answer(ctx context.Context, id string, questionID, optionID int64) (*session.View, error) {
	return c.sessionCall(ctx, http.MethodPut, id, "answers", map[string]int64{
		"question_id": questionID,
		"option_id":   optionID,
	})
}

func (c *daemonClient) jump(ctx context.Context, id string, index int) (*session.View, error) {
	return c.sessionCall(ctx, http.MethodPost, id, "jump", map[string]int{"index": index})
}

func (c *daemonClient) remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+id, nil, nil)
}

type profileResponse struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Stale    bool   `json:"stale"`
}

func (c *daemonClient) profile(ctx context.Context, refresh bool) (*profileResponse, error) {
	var out profileResponse
	var err error
	if refresh {
		err = c.do(ctx, http.MethodPost, "/v1/profile/refresh", nil, &out)
	} else {
		err = c.do(ctx, http.MethodGet, "/v1/profile", nil, &out)
	}
	return &out, err
}

func (c *daemonClient) history(ctx context.Context, limit int) ([]profile.Entry, error) {
	var out struct {
		Entries []profile.Entry `json:"entries"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/profile/history?limit=%d", limit), nil, &out)
	return out.Entries, err
}
