package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

func TestSelectDue_OrdersByDueDate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	// Inserted out of order on purpose.
	dueToday := createQuestion(ctx, t, ts, "due today", today)
	dueFiveAgo := createQuestion(ctx, t, ts, "five days ago", today.AddDate(0, 0, -5))
	future := createQuestion(ctx, t, ts, "tomorrow", today.AddDate(0, 0, 1))
	dueTwoAgo := createQuestion(ctx, t, ts, "two days ago", today.AddDate(0, 0, -2))

	ids, err := ts.SelectDue(ctx, &store.FindDue{AsOf: today})
	require.NoError(t, err)
	require.Equal(t, []int32{dueFiveAgo.ID, dueTwoAgo.ID, dueToday.ID}, ids)
	require.NotContains(t, ids, future.ID)

	ids, err = ts.SelectDue(ctx, &store.FindDue{AsOf: today.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Equal(t, []int32{dueFiveAgo.ID, dueTwoAgo.ID, dueToday.ID, future.ID}, ids)
}

func TestSelectDue_TiesBreakByCreationOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	first := createQuestion(ctx, t, ts, "first", today)
	second := createQuestion(ctx, t, ts, "second", today)
	third := createQuestion(ctx, t, ts, "third", today)

	for i := 0; i < 3; i++ {
		ids, err := ts.SelectDue(ctx, &store.FindDue{AsOf: today})
		require.NoError(t, err)
		require.Equal(t, []int32{first.ID, second.ID, third.ID}, ids)
	}
}

func TestSelectDue_EmptyIsNotAnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	ids, err := ts.SelectDue(ctx, &store.FindDue{AsOf: today})
	require.NoError(t, err)
	require.Empty(t, ids)

	createQuestion(ctx, t, ts, "later", today.AddDate(0, 0, 3))
	ids, err = ts.SelectDue(ctx, &store.FindDue{AsOf: today})
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestSelectDue_Filters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	goConcurrency := createQuestion(ctx, t, ts, "channels", today.AddDate(0, 0, -3), "go", "concurrency")
	goOnly := createQuestion(ctx, t, ts, "slices", today.AddDate(0, 0, -4), "go")
	createQuestion(ctx, t, ts, "threads", today.AddDate(0, 0, -1), "concurrency")

	python, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.ChallengeContent{Title: "py", Description: "d", Language: store.LanguagePython},
		Tags:    []string{"go"},
		State:   sm2.NewState(today.AddDate(0, 0, -2)),
	})
	require.NoError(t, err)
	javascript, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.ChallengeContent{Title: "js", Description: "d", Language: store.LanguageJavaScript},
		State:   sm2.NewState(today.AddDate(0, 0, -6)),
	})
	require.NoError(t, err)
	trueFalse, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.MCQContent{Prompt: "tf", Type: store.MCQTypeTrueFalse, Options: []string{"True", "False"}, Correct: "b"},
		State:   sm2.NewState(today),
	})
	require.NoError(t, err)
	choice, err := ts.CreateItem(ctx, &store.Item{
		Content: &store.MCQContent{Prompt: "mc", Type: store.MCQTypeChoice, Options: []string{"1", "2", "3", "4"}, Correct: "d"},
		State:   sm2.NewState(today.AddDate(0, 0, -1)),
	})
	require.NoError(t, err)

	kindQuestion, kindChallenge := store.KindQuestion, store.KindChallenge
	langPython, langJS := store.LanguagePython, store.LanguageJavaScript
	typeTF, typeChoice := store.MCQTypeTrueFalse, store.MCQTypeChoice

	tests := []struct {
		name string
		find *store.FindDue
		want []int32
	}{
		{"tags are AND-combined", &store.FindDue{AsOf: today, Tags: []string{"go", "concurrency"}}, []int32{goConcurrency.ID}},
		{"single tag across kinds", &store.FindDue{AsOf: today, Tags: []string{"go"}}, []int32{goOnly.ID, goConcurrency.ID, python.ID}},
		{"kind and tag", &store.FindDue{AsOf: today, Kind: &kindQuestion, Tags: []string{"go"}}, []int32{goOnly.ID, goConcurrency.ID}},
		{"python challenges", &store.FindDue{AsOf: today, Kind: &kindChallenge, Language: &langPython}, []int32{python.ID}},
		{"javascript challenges", &store.FindDue{AsOf: today, Language: &langJS}, []int32{javascript.ID}},
		{"true/false only", &store.FindDue{AsOf: today, MCQType: &typeTF}, []int32{trueFalse.ID}},
		{"four-option only", &store.FindDue{AsOf: today, MCQType: &typeChoice}, []int32{choice.ID}},
		{"unknown tag", &store.FindDue{AsOf: today, Tags: []string{"rust"}}, []int32{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := ts.SelectDue(ctx, tt.find)
			require.NoError(t, err)
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestSelectDue_Pagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	var all []int32
	for i := 0; i < 5; i++ {
		all = append(all, createQuestion(ctx, t, ts, "page", today.AddDate(0, 0, -5+i)).ID)
	}

	limit, offset := 2, 1
	ids, err := ts.SelectDue(ctx, &store.FindDue{AsOf: today, Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	require.Equal(t, all[1:3], ids)

	offset = 4
	ids, err = ts.SelectDue(ctx, &store.FindDue{AsOf: today, Offset: &offset})
	require.NoError(t, err)
	require.Equal(t, all[4:], ids)

	offset = 10
	ids, err = ts.SelectDue(ctx, &store.FindDue{AsOf: today, Offset: &offset})
	require.NoError(t, err)
	require.Empty(t, ids)

	count, err := ts.CountDue(ctx, &store.FindDue{AsOf: today, Limit: &limit})
	require.NoError(t, err)
	require.Equal(t, 5, count)
}

func TestSelectDue_MatchesInMemoryPolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	offsets := []int{3, -7, 0, -2, 5, -2, 0, -30, 1, -7}
	tagSets := [][]string{{"a"}, {"a", "b"}, {"b"}, nil, {"a", "b", "c"}}
	for i, offset := range offsets {
		createQuestion(ctx, t, ts, "item", today.AddDate(0, 0, offset), tagSets[i%len(tagSets)]...)
	}
	all, err := ts.ListItems(ctx, &store.FindItem{})
	require.NoError(t, err)

	limit := 3
	finds := []*store.FindDue{
		{AsOf: today},
		{AsOf: today.AddDate(0, 0, -3)},
		{AsOf: today, Tags: []string{"a"}},
		{AsOf: today, Tags: []string{"a", "b"}},
		{AsOf: today.AddDate(0, 0, 10), Limit: &limit},
	}
	for _, find := range finds {
		ids, err := ts.SelectDue(ctx, find)
		require.NoError(t, err)

		want := []int32{}
		for _, item := range store.FilterDue(all, find) {
			want = append(want, item.ID)
		}
		require.Equal(t, want, ids)
	}
}
