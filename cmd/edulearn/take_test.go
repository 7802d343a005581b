package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/session"
)

// fakeDaemon serves one two-question session
type fakeDaemon struct {
	mu         sync.Mutex
	view       session.View
	failSubmit int
	submits    int
	abandoned  bool
	deleted    bool
	tabIDs     map[string]bool
}

func newFakeDaemon() *fakeDaemon {
	quiz := &domain.Quiz{
		ID:       domain.Int64Ptr(12),
		Title:    "Go Basics",
		XPReward: 50,
		Questions: []domain.Question{
			{ID: 1, Text: "first?", Options: []domain.Option{{ID: 10, Text: "a"}, {ID: 11, Text: "b"}}},
			{ID: 2, Text: "second?", Options: []domain.Option{{ID: 20, Text: "c"}, {ID: 21, Text: "d"}}},
		},
	}
	d := &fakeDaemon{tabIDs: make(map[string]bool)}
	d.view = session.View{ID: "s1", Status: session.StatusActive, Quiz: quiz, Total: 2, Answers: domain.AnswerMap{}}
	d.refresh()
	return d
}

func (d *fakeDaemon) refresh() {
	v := &d.view
	v.HasNext = v.Current < v.Total-1
	v.HasPrevious = v.Current > 0
	v.IsLast = v.Current == v.Total-1
	v.AnsweredCount = len(v.Answers)
	v.Progress = v.AnsweredCount * 100 / v.Total
	v.CanSubmit = v.AnsweredCount == v.Total
}

func (d *fakeDaemon) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	wrap := func(fn func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.tabIDs[r.Header.Get("X-Tab-ID")] = true
			fn(w, r)
		}
	}

	mux.HandleFunc("POST /v1/sessions", wrap(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusCreated, d.view)
	}))
	mux.HandleFunc("PUT /v1/sessions/s1/answers", wrap(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID int64 `json:"question_id"`
			OptionID   int64 `json:"option_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		d.view.Answers[req.QuestionID] = req.OptionID
		d.refresh()
		reply(w, http.StatusOK, d.view)
	}))
	mux.HandleFunc("POST /v1/sessions/s1/next", wrap(func(w http.ResponseWriter, r *http.Request) {
		if d.view.HasNext {
			d.view.Current++
		}
		d.refresh()
		reply(w, http.StatusOK, d.view)
	}))
	mux.HandleFunc("POST /v1/sessions/s1/previous", wrap(func(w http.ResponseWriter, r *http.Request) {
		if d.view.HasPrevious {
			d.view.Current--
		}
		d.refresh()
		reply(w, http.StatusOK, d.view)
	}))
	mux.HandleFunc("POST /v1/sessions/s1/jump", wrap(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Index int `json:"index"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Index < 0 || req.Index >= d.view.Total {
			reply(w, http.StatusBadRequest, map[string]any{"error": "question index out of range", "status": 400})
			return
		}
		d.view.Current = req.Index
		d.refresh()
		reply(w, http.StatusOK, d.view)
	}))
	mux.HandleFunc("POST /v1/sessions/s1/submit", wrap(func(w http.ResponseWriter, r *http.Request) {
		d.submits++
		if !d.view.CanSubmit {
			reply(w, http.StatusConflict, map[string]any{"error": "attempt is incomplete", "status": 409})
			return
		}
		result := &domain.AttemptResult{AttemptID: "501", Score: 50, XPEarned: 25, Strategy: domain.StrategyRemote}
		if d.failSubmit > 0 {
			d.failSubmit--
			d.view.Result = result
			d.view.LastError = "backend unavailable"
			reply(w, http.StatusBadGateway, map[string]any{
				"error": "submission failed", "status": 502, "session": d.view,
			})
			return
		}
		result.Recorded = true
		d.view.Result = result
		d.view.Status = session.StatusCompleted
		reply(w, http.StatusOK, d.view)
	}))
	mux.HandleFunc("POST /v1/sessions/s1/abandon", wrap(func(w http.ResponseWriter, r *http.Request) {
		d.abandoned = true
		d.view.Status = session.StatusAbandoned
		reply(w, http.StatusOK, d.view)
	}))
	mux.HandleFunc("DELETE /v1/sessions/s1", wrap(func(w http.ResponseWriter, r *http.Request) {
		d.deleted = true
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /v1/profile", wrap(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"username": "ana", "xp": 1025})
	}))
	return mux
}

func runScript(t *testing.T, d *fakeDaemon, script string) (string, error) {
	t.Helper()

	ts := httptest.NewServer(d.handler())
	t.Cleanup(ts.Close)

	c := newDaemonClient(ts.URL)
	ctx := context.Background()
	view, err := c.start(ctx, domain.Int64Ptr(12), nil)
	if err != nil {
		t.Fatalf("start() error = %v", err)
	}

	var out bytes.Buffer
	err = runAttempt(ctx, c, view, strings.NewReader(script), &out)
	return out.String(), err
}

func TestRunAttempt_AnswerAndSubmit(t *testing.T) {
	d := newFakeDaemon()

	// Selecting an option moves to the next question
	out, err := runScript(t, d, "1\n2\ns\n")
	if err != nil {
		t.Fatalf("runAttempt() error = %v", err)
	}

	if d.view.Answers[1] != 10 || d.view.Answers[2] != 21 {
		t.Errorf("answers = %v", d.view.Answers)
	}
	if d.view.Status != session.StatusCompleted {
		t.Errorf("status = %s, want completed", d.view.Status)
	}
	for _, want := range []string{"Question 1/2", "Question 2/2", "Score:", "50%", "XP earned: +25", "Total XP:  1025"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(d.tabIDs) != 1 {
		t.Errorf("requests used %d tab ids, want 1", len(d.tabIDs))
	}
}

func TestRunAttempt_RetryAfterFailedRecording(t *testing.T) {
	d := newFakeDaemon()
	d.failSubmit = 1

	out, err := runScript(t, d, "1\n1\ns\ns\n")
	if err != nil {
		t.Fatalf("runAttempt() error = %v", err)
	}

	if d.submits != 2 {
		t.Errorf("submits = %d, want 2", d.submits)
	}
	if !strings.Contains(out, "Scored 50% but the result was not recorded") || !strings.Contains(out, "Press s to retry") {
		t.Errorf("output missing retry hint:\n%s", out)
	}
	if !strings.Contains(out, "XP earned: +25") {
		t.Errorf("output missing final result:\n%s", out)
	}
}

func TestRunAttempt_EarlySubmitAndNavigation(t *testing.T) {
	d := newFakeDaemon()

	out, err := runScript(t, d, "s\ng 2\np\ng 5\nx\n")
	if err != nil {
		t.Fatalf("runAttempt() error = %v", err)
	}

	for _, want := range []string{"! attempt is incomplete", "! question index out of range", "unknown command", "left open"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if d.view.Current != 0 {
		t.Errorf("current = %d, want 0", d.view.Current)
	}
	if d.deleted {
		t.Error("session deleted on EOF")
	}
}

func TestRunAttempt_Quit(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		wantDeleted bool
	}{
		{"nothing answered", "q\n", true},
		{"confirm abandon", "1\nq\ny\n", true},
		{"decline abandon", "1\nq\nn\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDaemon()
			if _, err := runScript(t, d, tt.script); err != nil {
				t.Fatalf("runAttempt() error = %v", err)
			}
			if d.deleted != tt.wantDeleted || d.abandoned != tt.wantDeleted {
				t.Errorf("deleted = %v abandoned = %v, want %v", d.deleted, d.abandoned, tt.wantDeleted)
			}
		})
	}
}

func TestGenerateAndStart_HandsQuizOver(t *testing.T) {
	var started struct {
		QuizID *int64       `json:"quiz_id"`
		Quiz   *domain.Quiz `json:"quiz"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/quizzes/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Custom Quiz: go","xpReward":100,"generated":true,"questions":[` +
			`{"id":1,"questionText":"q","options":[{"id":1,"optionText":"a","isCorrect":true},{"id":2,"optionText":"b","isCorrect":false}]}]}`))
	})
	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&started)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(session.View{ID: "g1", Status: session.StatusActive, Quiz: started.Quiz, Total: 1})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	var out bytes.Buffer
	view, err := generateAndStart(context.Background(), newDaemonClient(ts.URL), "go", "EASY", &out)
	if err != nil {
		t.Fatalf("generateAndStart() error = %v", err)
	}

	if started.QuizID != nil || started.Quiz == nil || started.Quiz.Title != "Custom Quiz: go" {
		t.Errorf("start request quiz_id=%v quiz=%+v, want the generated quiz", started.QuizID, started.Quiz)
	}
	if view.ID != "g1" || !strings.Contains(out.String(), "Custom Quiz: go (1 questions, 100 XP)") {
		t.Errorf("view = %+v, output %q", view, out.String())
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{0, "[░░░░]"},
		{50, "[██░░]"},
		{100, "[████]"},
		{150, "[████]"},
		{-10, "[░░░░]"},
	}
	for _, tt := range tests {
		if got := renderProgressBar(tt.percent, 4); got != tt.want {
			t.Errorf("renderProgressBar(%d) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}
