package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

func newAddCommand(a *app) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a question, coding challenge or multiple-choice item",
	}
	addCmd.AddCommand(
		newAddQuestionCommand(a),
		newAddChallengeCommand(a),
		newAddMCQCommand(a),
	)
	return addCmd
}

func newAddQuestionCommand(a *app) *cobra.Command {
	var prompt, answer string
	var tags []string

	cmd := &cobra.Command{
		Use:   "question",
		Short: "Add a free-text question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := a.prompter(cmd)
			var err error
			if prompt == "" {
				if prompt, err = in.askRequired("Question: "); err != nil {
					return promptError(err)
				}
				if answer, err = in.ask("Answer (optional): "); err != nil {
					return promptError(err)
				}
			}
			return a.addItem(cmd, &store.QuestionContent{Prompt: prompt, Answer: answer}, tags)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "question text (markdown)")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "reference answer (markdown)")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "comma-separated tags")
	return cmd
}

func newAddChallengeCommand(a *app) *cobra.Command {
	var title, description, language, testCases string
	var tags []string

	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Add a coding challenge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := a.prompter(cmd)
			var err error
			if title == "" {
				if title, err = in.askRequired("Title: "); err != nil {
					return promptError(err)
				}
			}
			if description == "" {
				if description, err = in.readBlock("Description (end with a line holding a single '.'):"); err != nil {
					return promptError(err)
				}
			}
			content := &store.ChallengeContent{
				Title:       title,
				Description: description,
				Language:    store.Language(strings.ToLower(language)),
				TestCases:   testCases,
			}
			return a.addItem(cmd, content, tags)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "challenge title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "problem statement (markdown)")
	cmd.Flags().StringVarP(&language, "language", "l", string(store.LanguagePython), `solution language, "python" or "javascript"`)
	cmd.Flags().StringVar(&testCases, "tests", "", "test cases handed to the evaluator")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "comma-separated tags")
	return cmd
}

func newAddMCQCommand(a *app) *cobra.Command {
	var prompt, mcqType, correct string
	var options []string
	var explanations map[string]string
	var tags []string

	cmd := &cobra.Command{
		Use:   "mcq",
		Short: "Add a multiple-choice or true/false item",
		Example: `  retain add mcq -p "Which is a reference type?" -o int -o map -o bool -o float64 -c b -e b="Maps are references"
  retain add mcq --type true_false -p "Slices share backing arrays." -c a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content := &store.MCQContent{
				Prompt:       prompt,
				Type:         store.MCQType(strings.ToLower(mcqType)),
				Options:      options,
				Correct:      correct,
				Explanations: explanations,
			}
			if content.Type == store.MCQTypeTrueFalse && len(content.Options) == 0 {
				content.Options = []string{"True", "False"}
			}
			if content.Prompt == "" {
				if err := askMCQ(a.prompter(cmd), content); err != nil {
					return promptError(err)
				}
			}
			return a.addItem(cmd, content, tags)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "question text (markdown)")
	cmd.Flags().StringVar(&mcqType, "type", string(store.MCQTypeChoice), `"mcq" for four options or "true_false"`)
	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "option text, repeated in A..D order")
	cmd.Flags().StringVarP(&correct, "correct", "c", "", "letter of the correct option")
	cmd.Flags().StringToStringVarP(&explanations, "explain", "e", nil, "explanation per option letter, e.g. b=\"why\"")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "comma-separated tags")
	return cmd
}

func askMCQ(in *prompter, content *store.MCQContent) error {
	var err error
	if content.Prompt, err = in.askRequired("Question: "); err != nil {
		return err
	}
	letters := content.Type.OptionLetters()
	if len(content.Options) != len(letters) {
		content.Options = make([]string, len(letters))
		for i, letter := range letters {
			if content.Options[i], err = in.askRequired(fmt.Sprintf("Option %s: ", strings.ToUpper(letter))); err != nil {
				return err
			}
		}
	}
	if content.Correct == "" {
		if content.Correct, err = in.askRequired(fmt.Sprintf("Correct option (%s): ", strings.ToUpper(strings.Join(letters, "/")))); err != nil {
			return err
		}
	}
	if content.Explanations == nil {
		content.Explanations = make(map[string]string, len(letters))
		for _, letter := range letters {
			text, err := in.ask(fmt.Sprintf("Explanation for %s (optional): ", strings.ToUpper(letter)))
			if err != nil {
				return err
			}
			content.Explanations[letter] = text
		}
	}
	return nil
}

func (a *app) addItem(cmd *cobra.Command, content store.Content, tags []string) error {
	item, err := a.store.CreateItem(cmd.Context(), &store.Item{
		Content: content,
		Tags:    tags,
		State:   sm2.NewState(a.today()),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (next review: %s)\n", item.Name(), sm2.FormatDate(item.DueDate))
	return nil
}

// promptError reports input that ended before a required answer.
func promptError(err error) error {
	return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "input ended before the item was complete")
}
