package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/session"
)

// cmdTake starts an attempt on a catalog quiz
func cmdTake(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: edulearn take <quiz-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid quiz id %q", args[0])
	}

	ctx := context.Background()
	client := newDaemonClient(daemonURL())

	view, err := client.start(ctx, &id, nil)
	if err != nil {
		return fmt.Errorf("start quiz: %w", err)
	}
	return runAttempt(ctx, client, view, os.Stdin, os.Stdout)
}

// cmdGenerate generates a quiz on a topic and takes it
func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	difficulty := fs.String("difficulty", string(domain.DifficultyMedium), "EASY, MEDIUM or HARD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	topic := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if topic == "" {
		return fmt.Errorf("usage: edulearn generate [-difficulty LEVEL] <topic>")
	}

	ctx := context.Background()
	client := newDaemonClient(daemonURL())

	fmt.Printf("Generating a %s quiz on %q...\n", strings.ToUpper(*difficulty), topic)
	view, err := generateAndStart(ctx, client, topic, *difficulty, os.Stdout)
	if err != nil {
		return err
	}
	return runAttempt(ctx, client, view, os.Stdin, os.Stdout)
}

// generateAndStart generates a quiz and starts it by handing the quiz
// over directly, so the start does not depend on the tab cache
func generateAndStart(ctx context.Context, c *daemonClient, topic, difficulty string, out io.Writer) (*session.View, error) {
	quiz, err := c.generate(ctx, topic, difficulty)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	fmt.Fprintf(out, "✓ %s (%d questions, %d XP)\n\n", quiz.Title, quiz.QuestionCount(), quiz.XPReward)

	view, err := c.start(ctx, nil, quiz)
	if err != nil {
		return nil, fmt.Errorf("start quiz: %w", err)
	}
	return view, nil
}

// runAttempt drives one session interactively until it is submitted,
// abandoned or the input ends
func runAttempt(ctx context.Context, c *daemonClient, view *session.View, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		renderQuestion(out, view)
		fmt.Fprint(out, "> ")

		line, ok := readLine()
		if !ok {
			fmt.Fprintf(out, "\nSession %s left open\n", view.ID)
			return scanner.Err()
		}

		var (
			next *session.View
			err  error
		)
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "":
			continue
		case "n":
			next, err = c.sessionCall(ctx, http.MethodPost, view.ID, "next", nil)
		case "p":
			next, err = c.sessionCall(ctx, http.MethodPost, view.ID, "previous", nil)
		case "g":
			k, convErr := strconv.Atoi(strings.TrimSpace(arg))
			if convErr != nil {
				fmt.Fprintln(out, "usage: g <question number>")
				continue
			}
			next, err = c.jump(ctx, view.ID, k-1)
		case "s":
			done, submitted, err := submitAttempt(ctx, c, view, out)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			view = submitted
			continue
		case "q":
			if view.AnsweredCount > 0 {
				fmt.Fprintf(out, "Abandon this attempt with %d answers? [y/N] ", view.AnsweredCount)
				confirm, _ := readLine()
				if !strings.EqualFold(confirm, "y") {
					continue
				}
			}
			if _, err := c.sessionCall(ctx, http.MethodPost, view.ID, "abandon", nil); err != nil && !isAPIError(err) {
				return err
			}
			if err := c.remove(ctx, view.ID); err != nil && !isAPIError(err) {
				return err
			}
			fmt.Fprintln(out, "Attempt abandoned")
			return nil
		default:
			next, err = selectOption(ctx, c, view, cmd)
		}

		if err != nil {
			if !isAPIError(err) {
				return err
			}
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		if next != nil {
			view = next
		}
	}
}

// selectOption records the numbered option and moves on when possible
func selectOption(ctx context.Context, c *daemonClient, view *session.View, input string) (*session.View, error) {
	q := currentQuestion(view)
	n, err := strconv.Atoi(input)
	if q == nil || err != nil || n < 1 || n > len(q.Options) {
		return nil, &apiError{Message: "unknown command, try 1-" + strconv.Itoa(optionCount(q)) + ", n, p, g <k>, s or q"}
	}

	updated, err := c.answer(ctx, view.ID, q.ID, q.Options[n-1].ID)
	if err != nil {
		return nil, err
	}
	if updated.HasNext {
		return c.sessionCall(ctx, http.MethodPost, view.ID, "next", nil)
	}
	return updated, nil
}

// submitAttempt submits the session. done is true once the result is
// recorded. A failed recording keeps the session for another try.
func submitAttempt(ctx context.Context, c *daemonClient, view *session.View, out io.Writer) (done bool, current *session.View, err error) {
	submitted, err := c.sessionCall(ctx, http.MethodPost, view.ID, "submit", nil)
	if err != nil {
		var apiErr *apiError
		if !errors.As(err, &apiErr) {
			return false, view, err
		}
		if apiErr.Session != nil && apiErr.Session.Result != nil {
			fmt.Fprintf(out, "! Scored %d%% but the result was not recorded: %v\n", apiErr.Session.Result.Score, apiErr)
			fmt.Fprintln(out, "  Press s to retry")
			return false, apiErr.Session, nil
		}
		fmt.Fprintf(out, "! %v\n", apiErr)
		return false, view, nil
	}

	result := submitted.Result
	if result == nil {
		return false, submitted, fmt.Errorf("submit returned no result")
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Score:     %s %d%%\n", renderProgressBar(result.Score, 20), result.Score)
	fmt.Fprintf(out, "XP earned: +%d\n", result.XPEarned)
	if p, err := c.profile(ctx, false); err == nil {
		fmt.Fprintf(out, "Total XP:  %d\n", p.XP)
	}
	return true, submitted, nil
}

func renderQuestion(out io.Writer, view *session.View) {
	q := currentQuestion(view)
	if q == nil {
		fmt.Fprintf(out, "Session %s is %s\n", view.ID, view.Status)
		return
	}

	fmt.Fprintln(out)
	if view.Quiz != nil {
		fmt.Fprintln(out, view.Quiz.Title)
	}
	fmt.Fprintf(out, "Question %d/%d %s %d/%d answered\n",
		view.Current+1, view.Total, renderProgressBar(view.Progress, 20), view.AnsweredCount, view.Total)
	fmt.Fprintf(out, "\n%s\n", q.Text)

	selected, hasSelection := view.Answers[q.ID]
	for i, opt := range q.Options {
		marker := " "
		if hasSelection && selected == opt.ID {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %d) %s\n", marker, i+1, opt.Text)
	}

	hint := "[1-" + strconv.Itoa(len(q.Options)) + "] answer  n next  p previous  g <k> jump  q quit"
	if view.CanSubmit {
		hint += "  s submit"
	}
	fmt.Fprintln(out, hint)
}

func currentQuestion(view *session.View) *domain.Question {
	if view == nil || view.Quiz == nil || view.Current < 0 || view.Current >= len(view.Quiz.Questions) {
		return nil
	}
	return &view.Quiz.Questions[view.Current]
}

func optionCount(q *domain.Question) int {
	if q == nil {
		return 0
	}
	return len(q.Options)
}

func isAPIError(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr)
}
