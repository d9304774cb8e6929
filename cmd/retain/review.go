package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrygo/retain/internal/observability"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/plugin/evaluator"
	"github.com/hrygo/retain/plugin/markdown"
	"github.com/hrygo/retain/service/review"
	"github.com/hrygo/retain/store"
)

// errQuit ends a review session early.
var errQuit = errors.New("review session ended")

// errSkip leaves the current item unrated.
var errSkip = errors.New("item skipped")

func newReviewCommand(a *app) *cobra.Command {
	var flags itemFilter
	var limit int

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the items due today",
		Long: `Review the items due today, most overdue first.

Questions are rated from 0 (blackout) to 5 (perfect recall). Multiple-choice
items ask for an answer and how confident you were. Coding challenges are
graded by the evaluator when it is enabled, otherwise self-rated.

Type "s" to skip an item and "q" to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := a.today()
			find, err := flags.findDue(today)
			if err != nil {
				return err
			}

			svc := review.NewServiceWithConfig(a.store, review.ReviewConfig{MaxDailyReviews: a.profile.MaxDailyReviews})
			sess := observability.NewSessionContext(a.logger)
			ctx := observability.WithSessionContext(cmd.Context(), sess)

			batch, err := svc.NextBatch(ctx, today, review.Filter{
				Kind:     find.Kind,
				Language: find.Language,
				MCQType:  find.MCQType,
				Tags:     find.Tags,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(batch.Items) == 0 {
				fmt.Fprintln(out, "Nothing to review today.")
				return nil
			}
			fmt.Fprintf(out, "%d items due, reviewing %d.\n", batch.Total, len(batch.Items))

			r := &reviewer{
				service:   svc,
				session:   sess,
				in:        a.prompter(cmd),
				out:       out,
				today:     today,
				evaluator: a.challengeEvaluator(sess),
			}
			for i, item := range batch.Items {
				fmt.Fprintf(out, "\n[%d/%d] %s\n\n", i+1, len(batch.Items), item.Name())
				err := r.review(ctx, item)
				if errors.Is(err, errSkip) {
					sess.Debug("item skipped", slog.Int(observability.LogFieldItemID, int(item.ID)))
					continue
				}
				if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
			}

			snapshot := sess.Metrics.Snapshot()
			fmt.Fprintf(out, "\nReviewed %d items", snapshot.Reviewed)
			if snapshot.Reviewed > 0 {
				fmt.Fprintf(out, ", %d to repeat, average rating %.1f", snapshot.Failed, snapshot.AverageRating)
			}
			fmt.Fprintln(out, ".")
			sess.Info("review session finished",
				slog.Int64("reviewed", snapshot.Reviewed),
				slog.Int64("failed", snapshot.Failed),
				slog.Int64("errors", snapshot.Errors),
				slog.Int64(observability.LogFieldDuration, sess.Duration().Milliseconds()),
			)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of items (default max-daily-reviews)")
	return cmd
}

// challengeEvaluator returns nil when challenges are self-rated.
func (a *app) challengeEvaluator(sess *observability.SessionContext) *evaluator.Evaluator {
	if !a.profile.IsEvaluatorEnabled() {
		return nil
	}
	ev, err := a.newEvaluator(a.profile)
	if err != nil {
		sess.Warn("challenge evaluator disabled", slog.String("error", err.Error()))
		return nil
	}
	return ev
}

type reviewer struct {
	service   *review.Service
	session   *observability.SessionContext
	evaluator *evaluator.Evaluator
	in        *prompter
	out       io.Writer
	today     time.Time
}

func (r *reviewer) review(ctx context.Context, item *store.Item) error {
	switch content := item.Content.(type) {
	case *store.QuestionContent:
		return r.reviewQuestion(ctx, item, content)
	case *store.ChallengeContent:
		return r.reviewChallenge(ctx, item, content)
	case *store.MCQContent:
		return r.reviewMCQ(ctx, item, content)
	}
	return nil
}

func (r *reviewer) reviewQuestion(ctx context.Context, item *store.Item, content *store.QuestionContent) error {
	printPrompt(r.out, item)
	if _, err := r.command("\nPress Enter to reveal the answer: "); err != nil {
		return err
	}
	if content.Answer == "" {
		fmt.Fprintln(r.out, "(no reference answer)")
	} else {
		fmt.Fprintln(r.out, markdown.Render(content.Answer))
	}
	return r.selfRate(ctx, item)
}

func (r *reviewer) reviewMCQ(ctx context.Context, item *store.Item, content *store.MCQContent) error {
	printPrompt(r.out, item)
	letters := strings.ToUpper(strings.Join(content.Type.OptionLetters(), "/"))

	var choice string
	for {
		answer, err := r.command(fmt.Sprintf("\nYour answer (%s): ", letters))
		if err != nil {
			return err
		}
		if content.HasOption(answer) {
			choice = answer
			break
		}
		fmt.Fprintf(r.out, "Pick one of %s.\n", letters)
	}

	var confidence sm2.Confidence
	for {
		answer, err := r.command("Confidence, (h)igh or (l)ow: ")
		if err != nil {
			return err
		}
		if confidence, err = sm2.ParseConfidence(answer); err == nil {
			break
		}
	}

	outcome, err := r.service.AnswerMCQ(ctx, item.ID, choice, confidence, r.today)
	if err != nil {
		return err
	}
	if outcome.Correct {
		fmt.Fprintln(r.out, "Correct.")
	} else {
		fmt.Fprintf(r.out, "Wrong. The answer is %s) %s\n", strings.ToUpper(outcome.Answer), content.Option(outcome.Answer))
		if outcome.ChoiceExplanation != "" {
			fmt.Fprintf(r.out, "  %s: %s\n", strings.ToUpper(outcome.Choice), outcome.ChoiceExplanation)
		}
	}
	if outcome.AnswerExplanation != "" {
		fmt.Fprintf(r.out, "  %s: %s\n", strings.ToUpper(outcome.Answer), outcome.AnswerExplanation)
	}
	if outcome.Misconception() {
		fmt.Fprintln(r.out, "You were sure of a wrong answer; this item will come back sooner.")
	}
	r.printNext(&outcome.Outcome)
	return nil
}

func (r *reviewer) reviewChallenge(ctx context.Context, item *store.Item, content *store.ChallengeContent) error {
	printPrompt(r.out, item)
	if r.evaluator == nil {
		if _, err := r.command("\nSolve it, then press Enter to rate yourself: "); err != nil {
			return err
		}
		return r.selfRate(ctx, item)
	}

	solution, err := r.in.readBlock("\nWrite your solution (end with a line holding a single '.'):")
	if err != nil {
		return err
	}
	if strings.TrimSpace(solution) == "" {
		return errSkip
	}

	sess := evaluator.NewSession(item.ID)
	evaluation, err := r.evaluator.Evaluate(ctx, sess, content, solution)
	if err != nil {
		r.session.Warn("challenge evaluation failed",
			slog.Int(observability.LogFieldItemID, int(item.ID)),
			slog.String("error", err.Error()))
		fmt.Fprintf(r.out, "The evaluator is unavailable (%v).\n", err)
		return r.selfRate(ctx, item)
	}
	r.printEvaluation(evaluation)

	for {
		answer, err := r.in.ask("Enter to accept, (d)ispute or (r)efactor: ")
		if err != nil {
			return err
		}
		var next *evaluator.Evaluation
		var evalErr error
		switch strings.ToLower(answer) {
		case "":
			rating, err := sess.Rating()
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Scheduling from the first grade, %.1f/3 (rating %d).\n", *sess.FirstGrade, rating)
			outcome, err := r.service.RateItem(ctx, item.ID, rating, r.today)
			if err != nil {
				return err
			}
			r.printNext(outcome)
			return nil
		case "d":
			reason, err := r.in.askRequired("Why is the grade wrong? ")
			if err != nil {
				return err
			}
			next, evalErr = r.evaluator.Dispute(ctx, sess, reason)
		case "r":
			refactored, err := r.in.readBlock("Improved solution (end with '.'):")
			if err != nil {
				return err
			}
			next, evalErr = r.evaluator.Refactor(ctx, sess, refactored)
		default:
			continue
		}
		if evalErr != nil {
			fmt.Fprintf(r.out, "The evaluator is unavailable (%v).\n", evalErr)
			continue
		}
		r.printEvaluation(next)
	}
}

func (r *reviewer) printEvaluation(evaluation *evaluator.Evaluation) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, markdown.Render(evaluation.Feedback))
	fmt.Fprintf(r.out, "\nGrade: %.1f/3\n", evaluation.Grade)
}

// selfRate asks for a 0-5 rating until a valid one is given.
func (r *reviewer) selfRate(ctx context.Context, item *store.Item) error {
	for {
		answer, err := r.command("Rate your recall (0: blackout .. 5: perfect): ")
		if err != nil {
			return err
		}
		rating, err := parseRating(answer)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}
		outcome, err := r.service.RateItem(ctx, item.ID, rating, r.today)
		if err != nil {
			return err
		}
		r.printNext(outcome)
		return nil
	}
}

// command reads an answer, turning "s" and "q" into errSkip and errQuit.
func (r *reviewer) command(question string) (string, error) {
	answer, err := r.in.ask(question)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(answer) {
	case "s", "skip":
		return "", errSkip
	case "q", "quit":
		return "", errQuit
	}
	return answer, nil
}

func (r *reviewer) printNext(outcome *review.Outcome) {
	fmt.Fprintf(r.out, "Next review in %d days (%s).\n", outcome.Item.Interval, sm2.FormatDate(outcome.Item.DueDate))
}

func parseRating(raw string) (sm2.Rating, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a rating, enter a number from 0 to 5", raw)
	}
	rating := sm2.Rating(n)
	if !rating.Valid() {
		return 0, &sm2.InvalidRatingError{Rating: rating}
	}
	return rating, nil
}
