package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/profile"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/plugin/evaluator"
	"github.com/hrygo/retain/service/review"
)

var reviewDay = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

// cli runs commands against one data directory, each with a fresh app.
type cli struct {
	t    *testing.T
	data string
	now  time.Time

	configure func(a *app)
}

func newCLI(t *testing.T) *cli {
	for _, key := range []string{
		"RETAIN_MODE", "RETAIN_DRIVER", "RETAIN_DSN", "RETAIN_DATA", "RETAIN_MAX_DAILY_REVIEWS",
		"RETAIN_EVALUATOR_ENABLED", "RETAIN_EVALUATOR_API_KEY", "ZAI_ENABLED", "ZAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("RETAIN_TIMEZONE", "UTC")
	return &cli{t: t, data: t.TempDir(), now: reviewDay}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	a := newApp()
	a.now = func() time.Time { return c.now }
	if c.configure != nil {
		c.configure(a)
	}
	defer a.close()

	cmd := newRootCommand(a)
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--data", c.data, "--driver", "sqlite", "--mode", "prod"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	require.NoError(c.t, err, out)
	return out
}

func TestAddListShow(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("", "add", "question", "-p", "What does `defer` do?", "-a", "Runs a call when the function returns.", "-t", "go,basics")
	assert.Equal(t, "Added question/1 (next review: 2024-03-10)\n", out)
	c.mustRun("", "add", "challenge", "--title", "Reverse a string", "-d", "Return the input reversed.", "-l", "javascript", "-t", "strings")
	c.mustRun("", "add", "mcq", "-p", "Which type is a reference type?",
		"-o", "int", "-o", "map", "-o", "bool", "-o", "float64", "-c", "B", "-e", "b=Maps are references.", "-t", "go")

	out = c.mustRun("", "list")
	assert.Contains(t, out, "What does `defer` do?")
	assert.Contains(t, out, "Reverse a string")
	assert.Contains(t, out, "Which type is a reference type?")

	out = c.mustRun("", "list", "--kind", "mcq", "--tag", "go")
	assert.NotContains(t, out, "defer")
	assert.Contains(t, out, "reference type")

	out = c.mustRun("", "list", "--filter", `kind == "challenge" && language == "javascript"`)
	assert.Contains(t, out, "Reverse a string")
	assert.NotContains(t, out, "reference type")

	out = c.mustRun("", "list", "--search", "REVERSE")
	assert.Contains(t, out, "Reverse a string")
	assert.NotContains(t, out, "defer")

	out = c.mustRun("", "show", "1")
	assert.Contains(t, out, "question/1")
	assert.Contains(t, out, "Tags: go, basics")
	assert.Contains(t, out, "Runs a call when the function returns.")
	assert.Contains(t, out, "Last reviewed: never")

	out = c.mustRun("", "show", "3")
	assert.Contains(t, out, "B) map")
	assert.Contains(t, out, "Correct: B")
	assert.Contains(t, out, "B: Maps are references.")
}

func TestAddInteractive(t *testing.T) {
	c := newCLI(t)

	c.mustRun("What is a channel?\nA typed conduit.\n", "add", "question")
	c.mustRun("Is nil a valid map?\na\n\nReading works.\n", "add", "mcq", "--type", "true_false")

	out := c.mustRun("", "show", "1")
	assert.Contains(t, out, "A typed conduit.")
	out = c.mustRun("", "show", "2")
	assert.Contains(t, out, "A) True")
	assert.Contains(t, out, "Correct: A")
	assert.Contains(t, out, "B: Reading works.")

	_, err := c.run("", "add", "question")
	assert.Equal(t, 2, rerrors.ExitCode(err))
}

func TestAddRejectsInvalidContent(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "add", "mcq", "-p", "Pick", "-o", "a", "-o", "b", "-c", "a")
	require.Error(t, err)
	assert.Equal(t, 2, rerrors.ExitCode(err))

	_, err = c.run("", "add", "challenge", "--title", "t", "-d", "d", "-l", "ruby")
	assert.Equal(t, 2, rerrors.ExitCode(err))
}

func TestReviewQuestions(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add", "question", "-p", "First")
	c.mustRun("", "add", "question", "-p", "Second")

	out := c.mustRun("", "due")
	assert.Contains(t, out, "2 items due.")

	// Reveal, an invalid rating, then 4; reveal and 1.
	out = c.mustRun("\n9\n4\n\n1\n", "review")
	assert.Contains(t, out, "2 items due, reviewing 2.")
	assert.Contains(t, out, "invalid rating 9")
	assert.Contains(t, out, "Next review in 1 days (2024-03-11).")
	assert.Contains(t, out, "Reviewed 2 items, 1 to repeat, average rating 2.5.")

	out = c.mustRun("", "review")
	assert.Contains(t, out, "Nothing to review today.")

	c.now = reviewDay.AddDate(0, 0, 1)
	out = c.mustRun("\n5\n\n5\n", "review")
	assert.Contains(t, out, "Next review in 6 days (2024-03-17).")
	assert.Contains(t, out, "Next review in 1 days (2024-03-12).")

	out = c.mustRun("", "show", "1")
	assert.Contains(t, out, "Interval: 6d  Ease: 2.60  Repetitions: 2")
	assert.Contains(t, out, "Last reviewed: 2024-03-11")
}

func TestReviewMCQ(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add", "mcq", "-p", "Zero value of a map?", "-o", "empty map", "-o", "nil", "-o", "panic", "-o", "0",
		"-c", "b", "-e", "a=Only after make.", "-e", "b=Maps start nil.")
	c.mustRun("", "add", "mcq", "-p", "Strings are immutable.", "--type", "true_false", "-c", "a")

	// An invalid letter, then B with high confidence; a confident wrong answer.
	out := c.mustRun("x\nb\nh\nb\nh\n", "review", "--kind", "mcq")
	assert.Contains(t, out, "Pick one of A/B/C/D.")
	assert.Contains(t, out, "Correct.")
	assert.Contains(t, out, "B: Maps start nil.")
	assert.Contains(t, out, "Wrong. The answer is A) True")
	assert.Contains(t, out, "You were sure of a wrong answer")
	assert.Contains(t, out, "Reviewed 2 items, 1 to repeat, average rating 3.0.")

	out = c.mustRun("", "show", "2")
	assert.Contains(t, out, "Ease: 1.96")
}

func TestReviewSkipAndQuit(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add", "question", "-p", "One")
	c.mustRun("", "add", "question", "-p", "Two")
	c.mustRun("", "add", "question", "-p", "Three")

	out := c.mustRun("s\nq\n", "review", "--limit", "2")
	assert.Contains(t, out, "3 items due, reviewing 2.")
	assert.Contains(t, out, "Reviewed 0 items.")

	// End of input ends the session like quitting.
	out = c.mustRun("\n3\n", "review")
	assert.Contains(t, out, "Reviewed 1 items, 0 to repeat, average rating 3.0.")

	out = c.mustRun("", "due")
	assert.Contains(t, out, "2 items due.")
}

type scriptedChat struct {
	replies  []string
	requests []openai.ChatCompletionRequest
}

func (c *scriptedChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no reply scripted")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
		},
	}, nil
}

func TestReviewChallengeWithEvaluator(t *testing.T) {
	c := newCLI(t)
	t.Setenv("RETAIN_EVALUATOR_ENABLED", "true")
	t.Setenv("RETAIN_EVALUATOR_API_KEY", "test-key")

	chat := &scriptedChat{replies: []string{
		"Misses the empty input case.\n\nGrade: 1/3",
		"Fair point, empty input works.\n\nGrade: 2.5/3",
	}}
	c.configure = func(a *app) {
		a.newEvaluator = func(p *profile.Profile) (*evaluator.Evaluator, error) {
			cfg := evaluator.ConfigFromProfile(p)
			cfg.RequestsPerMinute = 0
			return evaluator.NewWithClient(chat, cfg), nil
		}
	}
	c.mustRun("", "add", "challenge", "--title", "Reverse", "-d", "Reverse a string.")

	stdin := "def reverse(s):\n    return s[::-1]\n.\nd\nSlicing handles empty strings.\n\n"
	out := c.mustRun(stdin, "review")
	assert.Contains(t, out, "Grade: 1.0/3")
	assert.Contains(t, out, "Grade: 2.5/3")
	assert.Contains(t, out, "Scheduling from the first grade, 1.0/3 (rating 2).")
	assert.Contains(t, out, "Next review in 1 days")

	require.Len(t, chat.requests, 2)
	assert.Contains(t, chat.requests[0].Messages[1].Content, "return s[::-1]")

	out = c.mustRun("", "show", "1")
	assert.Contains(t, out, "Repetitions: 0")
}

func TestReviewChallengeFallsBackToSelfRating(t *testing.T) {
	c := newCLI(t)
	t.Setenv("RETAIN_EVALUATOR_ENABLED", "true")
	t.Setenv("RETAIN_EVALUATOR_API_KEY", "test-key")

	c.configure = func(a *app) {
		a.newEvaluator = func(p *profile.Profile) (*evaluator.Evaluator, error) {
			cfg := evaluator.ConfigFromProfile(p)
			cfg.RequestsPerMinute = 0
			return evaluator.NewWithClient(&scriptedChat{}, cfg), nil
		}
	}
	c.mustRun("", "add", "challenge", "--title", "Sum", "-d", "Add two numbers.")

	out := c.mustRun("return a + b\n.\n4\n", "review")
	assert.Contains(t, out, "The evaluator is unavailable")
	assert.Contains(t, out, "Reviewed 1 items, 0 to repeat")
}

func TestEditAndDelete(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add", "question", "-p", "Old prompt", "-t", "draft,go")

	c.mustRun("", "edit", "1", "-a", "New answer", "--add-tag", "runtime", "--remove-tag", "draft")
	out := c.mustRun("", "show", "1")
	assert.Contains(t, out, "New answer")
	assert.Contains(t, out, "Tags: go, runtime")

	_, err := c.run("", "edit", "1", "--title", "not a challenge")
	assert.Equal(t, 2, rerrors.ExitCode(err))

	c.now = reviewDay.AddDate(0, 0, 1)
	c.mustRun("\n5\n", "review")
	c.mustRun("", "edit", "1", "--reset")
	out = c.mustRun("", "show", "1")
	assert.Contains(t, out, "Interval: 0d  Ease: 2.50  Repetitions: 0")
	assert.Contains(t, out, "Due: 2024-03-11")

	out = c.mustRun("n\n", "delete", "1")
	assert.Contains(t, out, "Cancelled.")
	out = c.mustRun("y\n", "delete", "1")
	assert.Contains(t, out, "Deleted question/1.")

	_, err = c.run("", "show", "1")
	assert.Equal(t, 3, rerrors.ExitCode(err))
	_, err = c.run("", "delete", "1", "--force")
	assert.Equal(t, 3, rerrors.ExitCode(err))
	_, err = c.run("", "show", "one")
	assert.Equal(t, 2, rerrors.ExitCode(err))
}

func TestExportImport(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add", "question", "-p", "Q", "-t", "go")
	c.mustRun("", "add", "challenge", "--title", "C", "-d", "D")
	c.mustRun("", "add", "mcq", "--type", "true_false", "-p", "M", "-c", "b", "-t", "go")
	c.mustRun("\n4\n", "review", "--limit", "1")

	file := filepath.Join(t.TempDir(), "deck.json")
	c.mustRun("", "export", "--out", file)

	out := c.mustRun("", "export", "--tag", "go")
	assert.Contains(t, out, `"question_text": "Q"`)
	assert.NotContains(t, out, `"title": "C"`)

	target := newCLI(t)
	out = target.mustRun("", "import", file)
	assert.Equal(t, "Imported 3 items (1 questions, 1 challenges, 1 mcq), skipped 0 duplicates.\n", out)
	out = target.mustRun("", "import", file)
	assert.Equal(t, "Imported 0 items (0 questions, 0 challenges, 0 mcq), skipped 3 duplicates.\n", out)

	out = target.mustRun("", "show", "1")
	assert.Contains(t, out, "Interval: 1d")
	assert.Contains(t, out, "Last reviewed: 2024-03-10")

	_, err := target.run(`{"version": "2.0"}`, "import", "-")
	assert.Equal(t, 2, rerrors.ExitCode(err))

	corrupt := `{"version": "1.0", "questions": [{"question_text": "X", "schedule": {"interval": 1, "ease_factor": 0.5, "repetitions": 1, "next_review_date": "2024-03-11"}}]}`
	_, err = target.run(corrupt, "import", "-")
	assert.Equal(t, 4, rerrors.ExitCode(err))
	assert.True(t, errors.Is(err, sm2.ErrCorruptState))
}

func TestStats(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add", "question", "-p", "A")
	c.mustRun("", "add", "question", "-p", "B")
	c.mustRun("", "add", "mcq", "--type", "true_false", "-p", "C", "-c", "a")
	c.mustRun("\n5\n", "review", "--limit", "1")

	var stats review.ReviewStats
	out := c.mustRun("", "stats", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 2, stats.ByKind["question"])
	assert.Equal(t, 2, stats.DueToday)
	assert.Equal(t, 2, stats.NewItems)
	assert.Equal(t, 1, stats.ReviewedToday)
	assert.Equal(t, 1, stats.StreakDays)
	assert.Equal(t, 5.0, stats.AverageRating)

	out = c.mustRun("", "stats")
	assert.Contains(t, out, "Streak")
	assert.Contains(t, out, "1 days")
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	c.data = filepath.Join(c.data, "never-created")

	out := c.mustRun("", "version")
	assert.True(t, strings.HasPrefix(out, "retain "))
	assert.NoDirExists(t, c.data)
}

func TestExecuteExitCodes(t *testing.T) {
	newCLI(t)
	data := t.TempDir()
	ctx := context.Background()

	assert.Equal(t, 0, execute(ctx, []string{"--data", data, "list"}))
	assert.Equal(t, 3, execute(ctx, []string{"--data", data, "show", "42"}))
	assert.Equal(t, 2, execute(ctx, []string{"--data", data, "list", "--kind", "flashcard"}))
	assert.Equal(t, 2, execute(ctx, []string{"--data", data, "list", "--filter", "kind =="}))
}

func TestParseRating(t *testing.T) {
	for raw, want := range map[string]sm2.Rating{"0": sm2.RatingBlackout, "3": sm2.RatingHard, "5": sm2.RatingPerfect} {
		rating, err := parseRating(raw)
		require.NoError(t, err)
		assert.Equal(t, want, rating)
	}
	for _, raw := range []string{"", "six", "-1", "6"} {
		_, err := parseRating(raw)
		assert.Error(t, err, raw)
	}
	_, err := parseRating("6")
	assert.True(t, errors.Is(err, sm2.ErrInvalidRating))
}

func TestEditTags(t *testing.T) {
	tests := []struct {
		current, add, remove, want []string
	}{
		{[]string{"a", "b"}, []string{"c"}, nil, []string{"a", "b", "c"}},
		{[]string{"a", "b"}, nil, []string{"a"}, []string{"b"}},
		{[]string{"a"}, []string{"a", " b "}, []string{"c"}, []string{"a", "b"}},
		{nil, nil, []string{"a"}, []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editTags(tt.current, tt.add, tt.remove))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n  b\tc", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestReviewDateFollowsTimezone(t *testing.T) {
	c := newCLI(t)
	c.now = time.Date(2024, time.March, 10, 20, 30, 0, 0, time.UTC)

	t.Setenv("RETAIN_TIMEZONE", "Asia/Tokyo")
	out := c.mustRun("", "add", "question", "-p", "Zero value of a slice?", "-a", "nil")
	assert.Equal(t, "Added question/1 (next review: 2024-03-11)\n", out)
	out = c.mustRun("", "show", "1")
	assert.Contains(t, out, "Created: ")

	t.Setenv("RETAIN_TIMEZONE", "America/New_York")
	out = c.mustRun("", "due")
	assert.Contains(t, out, "Nothing is due.")

	t.Setenv("RETAIN_TIMEZONE", "Mars/Olympus")
	_, err := c.run("", "due")
	assert.Equal(t, 2, rerrors.ExitCode(err))
}
