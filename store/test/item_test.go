package test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

var today = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func createQuestion(ctx context.Context, t *testing.T, ts *store.Store, prompt string, due time.Time, tags ...string) *store.Item {
	t.Helper()
	item, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.QuestionContent{Prompt: prompt, Answer: "answer to " + prompt},
		Tags:    tags,
		State:   sm2.NewState(due),
	})
	require.NoError(t, err)
	return item
}

func TestItemStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.QuestionContent{Prompt: "What is a goroutine?", Answer: "A lightweight thread."},
		Tags:    []string{" go ", "concurrency", "go", ""},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.NotEmpty(t, created.UID)
	require.Equal(t, []string{"go", "concurrency"}, created.Tags)
	require.Equal(t, 0, created.Interval)
	require.Equal(t, sm2.DefaultEaseFactor, created.EaseFactor)
	require.Nil(t, created.LastReviewed)
	require.Equal(t, sm2.Day(time.Now()), created.DueDate)

	got, err := ts.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, created.UID, got.UID)
	require.Equal(t, store.KindQuestion, got.Kind())
	require.Equal(t, []string{"go", "concurrency"}, got.Tags)
	question, ok := got.Content.(*store.QuestionContent)
	require.True(t, ok)
	require.Equal(t, "A lightweight thread.", question.Answer)

	// Update content and tags.
	tags := []string{"go", "runtime"}
	require.NoError(t, ts.UpdateItem(ctx, &store.UpdateItem{
		ID:      created.ID,
		Content: &store.QuestionContent{Prompt: "What is a goroutine?", Answer: "A function running concurrently."},
		Tags:    &tags,
	}))
	got, err = ts.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "runtime"}, got.Tags)
	require.Equal(t, "A function running concurrently.", got.Content.(*store.QuestionContent).Answer)
	require.True(t, got.State.Equal(created.State))

	// Search by summary substring.
	search := "GOROUTINE"
	list, err := ts.ListItems(ctx, &store.FindItem{Search: &search})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Delete.
	require.NoError(t, ts.DeleteItem(ctx, &store.DeleteItem{ID: created.ID}))
	got, err = ts.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	err = ts.DeleteItem(ctx, &store.DeleteItem{ID: created.ID})
	require.True(t, rerrors.IsCode(err, rerrors.ErrCodeNotFound))
	err = ts.UpdateItem(ctx, &store.UpdateItem{ID: created.ID, Tags: &tags})
	require.True(t, rerrors.IsCode(err, rerrors.ErrCodeNotFound))
}

func TestItemStore_Kinds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	challenge, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.ChallengeContent{
			Title:       "FizzBuzz",
			Description: "Print numbers 1..100 with fizz and buzz.",
			Language:    store.LanguageJavaScript,
			TestCases:   `[{"input": 3, "output": "Fizz"}]`,
		},
	})
	require.NoError(t, err)
	require.Equal(t, store.LanguageJavaScript, challenge.Language())

	mcq, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.MCQContent{
			Prompt:       "Which type is a reference type?",
			Type:         store.MCQTypeChoice,
			Options:      []string{"int", "map", "bool", "float64"},
			Correct:      " B ",
			Explanations: map[string]string{"B": "Maps are reference types.", "a": " "},
		},
	})
	require.NoError(t, err)

	got, err := ts.GetItem(ctx, mcq.ID)
	require.NoError(t, err)
	content := got.Content.(*store.MCQContent)
	require.Equal(t, "b", content.Correct)
	require.Equal(t, map[string]string{"b": "Maps are reference types."}, content.Explanations)
	require.Equal(t, "map", content.Option("B"))
	require.Equal(t, store.MCQTypeChoice, got.MCQType())

	got, err = ts.GetItem(ctx, challenge.ID)
	require.NoError(t, err)
	require.Equal(t, `[{"input": 3, "output": "Fizz"}]`, got.Content.(*store.ChallengeContent).TestCases)
}

func TestItemStore_RejectsInvalidContent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	tests := []struct {
		name    string
		content store.Content
	}{
		{"nil content", nil},
		{"empty prompt", &store.QuestionContent{Prompt: "  "}},
		{"unknown language", &store.ChallengeContent{Title: "t", Description: "d", Language: "ruby"}},
		{"mcq with three options", &store.MCQContent{Prompt: "p", Type: store.MCQTypeChoice, Options: []string{"a", "b", "c"}, Correct: "a"}},
		{"true_false answer c", &store.MCQContent{Prompt: "p", Type: store.MCQTypeTrueFalse, Options: []string{"True", "False"}, Correct: "c"}},
		{"unknown mcq type", &store.MCQContent{Prompt: "p", Type: "multi", Options: []string{"a", "b"}, Correct: "a"}},
		{"explanation for missing option", &store.MCQContent{Prompt: "p", Type: store.MCQTypeTrueFalse, Options: []string{"True", "False"}, Correct: "a", Explanations: map[string]string{"d": "x"}}},
	}
	for _, tt := range tests {
		_, err := ts.CreateItem(ctx, &store.Item{Content: tt.content})
		require.Error(t, err, tt.name)
		require.True(t, rerrors.IsCode(err, rerrors.ErrCodeInvalidArgument), tt.name)
	}
}

func TestItemStore_StateRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	last := today.AddDate(0, 0, -13)
	// Computed at run time so the values carry binary rounding noise.
	a, b := 0.1, 0.2
	noisy := a + b + 2.0
	failed, err := sm2.Next(sm2.State{Interval: 10, EaseFactor: 2.0, Repetitions: 3, DueDate: today}, sm2.RatingWrong, today)
	require.NoError(t, err)

	states := []sm2.State{
		sm2.NewState(today),
		{Interval: 13, EaseFactor: noisy, Repetitions: 3, DueDate: today, LastReviewed: &last},
		failed,
		{Interval: 0, EaseFactor: sm2.MinEaseFactor, Repetitions: 0, DueDate: time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC)},
	}

	for i, state := range states {
		created := createQuestion(ctx, t, ts, fmt.Sprintf("round trip %d", i), today)
		require.NoError(t, ts.UpdateItem(ctx, &store.UpdateItem{ID: created.ID, State: &state}))

		got, err := ts.GetItem(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, got.State.Equal(state), "state %d: got %+v want %+v", i, got.State, state)
		require.Equal(t, state.EaseFactor, got.EaseFactor)
	}
}

func TestItemStore_CorruptStateOnLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	healthy := createQuestion(ctx, t, ts, "healthy", today)
	corrupt := createQuestion(ctx, t, ts, "corrupt", today)

	_, err := ts.GetDriver().GetDB().ExecContext(ctx, fmt.Sprintf("UPDATE item SET ease_factor = 1.1 WHERE id = %d", corrupt.ID))
	require.NoError(t, err)

	_, err = ts.GetItem(ctx, corrupt.ID)
	require.Error(t, err)
	require.True(t, rerrors.IsCode(err, rerrors.ErrCodeDataIntegrity))
	require.True(t, errors.Is(err, sm2.ErrCorruptState))
	require.False(t, errors.Is(err, sm2.ErrInvalidRating))

	_, err = ts.GetItem(ctx, healthy.ID)
	require.NoError(t, err)

	_, err = ts.GetDriver().GetDB().ExecContext(ctx, fmt.Sprintf("UPDATE item SET ease_factor = 2.5, interval_days = -3 WHERE id = %d", corrupt.ID))
	require.NoError(t, err)
	_, err = ts.ListItems(ctx, &store.FindItem{})
	require.True(t, errors.Is(err, sm2.ErrCorruptState))

	var corruptErr *sm2.CorruptStateError
	require.True(t, errors.As(err, &corruptErr))
	require.Equal(t, "interval", corruptErr.Field)
}

func TestItemStore_RefusesToWriteCorruptState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	item := createQuestion(ctx, t, ts, "guarded", today)
	bad := sm2.State{Interval: -1, EaseFactor: 2.5, DueDate: today}

	err := ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, State: &bad})
	require.True(t, errors.Is(err, sm2.ErrCorruptState))

	_, err = ts.CreateItem(ctx, &store.Item{
		Content: &store.QuestionContent{Prompt: "bad import"},
		State:   sm2.State{EaseFactor: 1.0, DueDate: today},
	})
	require.True(t, errors.Is(err, sm2.ErrCorruptState))
}
