package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/internal/timezone"
	"github.com/hrygo/retain/plugin/markdown"
	"github.com/hrygo/retain/store"
)

const summaryWidth = 48

func printItemTable(w io.Writer, items []*store.Item, asOf time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tDUE\tINTERVAL\tEF\tTAGS\tSUMMARY")
	for _, item := range items {
		due := sm2.FormatDate(item.DueDate)
		if days := sm2.DaysOverdue(item.State, asOf); days > 0 {
			due = fmt.Sprintf("%s (+%dd)", due, days)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dd\t%.2f\t%s\t%s\n",
			item.ID, item.Kind(), due, item.Interval, item.EaseFactor,
			strings.Join(item.Tags, ","), truncate(item.Content.Summary(), summaryWidth))
	}
	return tw.Flush()
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// printPrompt shows what the learner answers, without the solution.
func printPrompt(w io.Writer, item *store.Item) {
	switch content := item.Content.(type) {
	case *store.QuestionContent:
		fmt.Fprintln(w, markdown.Render(content.Prompt))
	case *store.ChallengeContent:
		fmt.Fprintf(w, "%s (%s)\n\n", content.Title, content.Language)
		fmt.Fprintln(w, markdown.Render(content.Description))
	case *store.MCQContent:
		fmt.Fprintln(w, markdown.Render(content.Prompt))
		fmt.Fprintln(w)
		for _, letter := range content.Type.OptionLetters() {
			fmt.Fprintf(w, "  %s) %s\n", strings.ToUpper(letter), content.Option(letter))
		}
	}
}

// printItem shows every field of the item.
func printItem(w io.Writer, item *store.Item, asOf time.Time, loc *time.Location) {
	fmt.Fprintf(w, "%s  uid %s\n", item.Name(), item.UID)
	fmt.Fprintf(w, "Created: %s\n", timezone.FormatTimestamp(item.CreatedTs, loc))
	if len(item.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(item.Tags, ", "))
	}
	fmt.Fprintln(w)
	printPrompt(w, item)

	switch content := item.Content.(type) {
	case *store.QuestionContent:
		if content.Answer != "" {
			fmt.Fprintln(w, "\nAnswer:")
			fmt.Fprintln(w, markdown.Render(content.Answer))
		}
	case *store.ChallengeContent:
		if content.TestCases != "" {
			fmt.Fprintln(w, "\nTest cases:")
			fmt.Fprintln(w, content.TestCases)
		}
	case *store.MCQContent:
		fmt.Fprintf(w, "\nCorrect: %s\n", strings.ToUpper(content.Correct))
		for _, letter := range content.Type.OptionLetters() {
			if text := content.Explanations[letter]; text != "" {
				fmt.Fprintf(w, "  %s: %s\n", strings.ToUpper(letter), text)
			}
		}
	}

	fmt.Fprintln(w)
	printState(w, item.State, asOf)
}

func printState(w io.Writer, state sm2.State, asOf time.Time) {
	last := "never"
	if state.LastReviewed != nil {
		last = sm2.FormatDate(*state.LastReviewed)
	}
	fmt.Fprintf(w, "Interval: %dd  Ease: %.2f  Repetitions: %d\n", state.Interval, state.EaseFactor, state.Repetitions)
	fmt.Fprintf(w, "Due: %s", sm2.FormatDate(state.DueDate))
	if days := sm2.DaysOverdue(state, asOf); days > 0 {
		fmt.Fprintf(w, " (%d days overdue)", days)
	}
	fmt.Fprintf(w, "  Last reviewed: %s\n", last)
}
