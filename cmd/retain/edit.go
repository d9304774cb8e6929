package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

func newEditCommand(a *app) *cobra.Command {
	var (
		prompt, answer            string
		title, description        string
		language, testCases       string
		options                   []string
		correct                   string
		explanations              map[string]string
		tags, addTags, removeTags []string
		resetSchedule             bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the content, tags or schedule of an item",
		Example: `  retain edit 12 --answer "A goroutine is a lightweight thread."
  retain edit 7 --add-tag go --remove-tag draft
  retain edit 3 --reset`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := a.store.GetItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				return rerrors.NotFound("item", id)
			}

			flags := cmd.Flags()
			update := &store.UpdateItem{ID: id}
			contentChanged := false
			changed := func(names ...string) bool {
				for _, name := range names {
					if flags.Changed(name) {
						contentChanged = true
						return true
					}
				}
				return false
			}

			switch content := item.Content.(type) {
			case *store.QuestionContent:
				if changed("prompt") {
					content.Prompt = prompt
				}
				if changed("answer") {
					content.Answer = answer
				}
			case *store.ChallengeContent:
				if changed("title") {
					content.Title = title
				}
				if changed("description") {
					content.Description = description
				}
				if changed("language") {
					content.Language = store.Language(strings.ToLower(language))
				}
				if changed("tests") {
					content.TestCases = testCases
				}
			case *store.MCQContent:
				if changed("prompt") {
					content.Prompt = prompt
				}
				if changed("option") {
					content.Options = options
				}
				if changed("correct") {
					content.Correct = correct
				}
				if changed("explain") {
					if content.Explanations == nil {
						content.Explanations = make(map[string]string, len(explanations))
					}
					for letter, text := range explanations {
						content.Explanations[strings.ToLower(letter)] = text
					}
				}
			}
			if contentChanged {
				update.Content = item.Content
			}

			if flags.Changed("tags") || flags.Changed("add-tag") || flags.Changed("remove-tag") {
				next := item.Tags
				if flags.Changed("tags") {
					next = tags
				}
				next = editTags(next, addTags, removeTags)
				update.Tags = &next
			}
			if resetSchedule {
				state := sm2.NewState(a.today())
				update.State = &state
			}

			if update.Content == nil && update.Tags == nil && update.State == nil {
				return rerrors.InvalidArgument("nothing to change: pass a flag that applies to a %s", item.Kind())
			}
			if err := a.store.UpdateItem(cmd.Context(), update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s.\n", item.Name())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&prompt, "prompt", "p", "", "new question text (question, mcq)")
	f.StringVarP(&answer, "answer", "a", "", "new reference answer (question)")
	f.StringVar(&title, "title", "", "new title (challenge)")
	f.StringVarP(&description, "description", "d", "", "new problem statement (challenge)")
	f.StringVarP(&language, "language", "l", "", "new solution language (challenge)")
	f.StringVar(&testCases, "tests", "", "new test cases (challenge)")
	f.StringArrayVarP(&options, "option", "o", nil, "replacement options in A..D order (mcq)")
	f.StringVarP(&correct, "correct", "c", "", "new correct letter (mcq)")
	f.StringToStringVarP(&explanations, "explain", "e", nil, "set explanations by letter (mcq)")
	f.StringSliceVarP(&tags, "tags", "t", nil, "replace all tags")
	f.StringSliceVar(&addTags, "add-tag", nil, "tags to add")
	f.StringSliceVar(&removeTags, "remove-tag", nil, "tags to remove")
	f.BoolVar(&resetSchedule, "reset", false, "forget the review history and schedule the item as new, due today")
	return cmd
}

// editTags appends add and drops remove, keeping the order of current.
func editTags(current, add, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, tag := range store.NormalizeTags(remove) {
		drop[tag] = true
	}
	result := []string{}
	for _, tag := range store.NormalizeTags(append(append([]string{}, current...), add...)) {
		if !drop[tag] {
			result = append(result, tag)
		}
	}
	return result
}

func newDeleteCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item and its review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := a.store.GetItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				return rerrors.NotFound("item", id)
			}

			out := cmd.OutOrStdout()
			if !force {
				ok, err := a.prompter(cmd).confirm(fmt.Sprintf("Delete %s %q?", item.Name(), truncate(item.Content.Summary(), summaryWidth)))
				if err != nil || !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}
			if err := a.store.DeleteItem(cmd.Context(), &store.DeleteItem{ID: id}); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %s.\n", item.Name())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}
