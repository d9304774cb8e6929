package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/observability"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

// Store is the part of *store.Store the review service needs.
type Store interface {
	GetItem(ctx context.Context, id int32) (*store.Item, error)
	ListItems(ctx context.Context, find *store.FindItem) ([]*store.Item, error)
	ListDueItems(ctx context.Context, find *store.FindDue) ([]*store.Item, error)
	CountDue(ctx context.Context, find *store.FindDue) (int, error)
	RecordReview(ctx context.Context, record *store.RecordReview) (*store.ReviewLog, error)
	ListReviewLogs(ctx context.Context, find *store.FindReviewLog) ([]*store.ReviewLog, error)
}

// Service schedules and records reviews.
type Service struct {
	store  Store
	config ReviewConfig
}

// NewService creates a new review service.
func NewService(s Store) *Service {
	return &Service{
		store:  s,
		config: DefaultConfig(),
	}
}

// NewServiceWithConfig creates a service with custom configuration.
func NewServiceWithConfig(s Store, config ReviewConfig) *Service {
	return &Service{
		store:  s,
		config: config,
	}
}

// NextBatch returns the items due on asOf in review order, limited by
// filter.Limit or MaxDailyReviews, along with the number due in total.
func (s *Service) NextBatch(ctx context.Context, asOf time.Time, filter Filter) (*Batch, error) {
	find := &store.FindDue{
		AsOf:     asOf,
		Kind:     filter.Kind,
		Language: filter.Language,
		MCQType:  filter.MCQType,
		Tags:     store.NormalizeTags(filter.Tags),
	}

	total, err := s.store.CountDue(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("count due items: %w", err)
	}

	// Apply limit (use config.MaxDailyReviews if limit not specified)
	effectiveLimit := filter.Limit
	if effectiveLimit <= 0 {
		effectiveLimit = s.config.MaxDailyReviews
	}
	if effectiveLimit > 0 {
		find.Limit = &effectiveLimit
	}

	items, err := s.store.ListDueItems(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}
	return &Batch{Items: items, Total: total}, nil
}

// RateItem applies a self-assessed rating to the item reviewed on the given date.
func (s *Service) RateItem(ctx context.Context, id int32, rating sm2.Rating, on time.Time) (*Outcome, error) {
	start := time.Now()
	if !rating.Valid() {
		return nil, rerrors.Wrap(&sm2.InvalidRatingError{Rating: rating}, rerrors.ErrCodeInvalidArgument, "rate item")
	}

	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := sm2.Next(item.State, rating, on)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "rate item")
	}
	return s.persist(ctx, item, next, rating, on, start)
}

// AnswerMCQ judges a multiple-choice answer and schedules the item from
// the correctness of the choice and the confidence it was given with.
func (s *Service) AnswerMCQ(ctx context.Context, id int32, choice string, confidence sm2.Confidence, on time.Time) (*MCQOutcome, error) {
	start := time.Now()
	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	content, ok := item.Content.(*store.MCQContent)
	if !ok {
		return nil, rerrors.InvalidArgument("item %d is a %s, not an mcq", id, item.Kind())
	}

	choice = strings.ToLower(strings.TrimSpace(choice))
	if !content.HasOption(choice) {
		return nil, rerrors.InvalidArgument("answer %q is not one of %s", choice,
			strings.ToUpper(strings.Join(content.Type.OptionLetters(), ", ")))
	}
	correct := choice == content.Correct

	rating, err := sm2.MCQRating(correct, confidence)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "answer mcq")
	}
	next, err := sm2.NextMCQ(item.State, correct, confidence, on)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "answer mcq")
	}
	outcome, err := s.persist(ctx, item, next, rating, on, start)
	if err != nil {
		return nil, err
	}
	return &MCQOutcome{
		Outcome:           *outcome,
		Choice:            choice,
		Correct:           correct,
		Confidence:        confidence,
		Answer:            content.Correct,
		ChoiceExplanation: content.Explanations[choice],
		AnswerExplanation: content.Explanations[content.Correct],
	}, nil
}

// Stats returns review statistics as of the given date.
func (s *Service) Stats(ctx context.Context, asOf time.Time) (*ReviewStats, error) {
	today := sm2.Day(asOf)

	items, err := s.store.ListItems(ctx, &store.FindItem{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	logs, err := s.store.ListReviewLogs(ctx, &store.FindReviewLog{})
	if err != nil {
		return nil, fmt.Errorf("list review logs: %w", err)
	}

	stats := &ReviewStats{
		TotalItems: len(items),
		ByKind:     make(map[store.Kind]int, len(store.Kinds)),
	}
	for _, item := range items {
		stats.ByKind[item.Kind()]++
		if sm2.IsDue(item.State, today) {
			stats.DueToday++
		}
		if sm2.IsOverdue(item.State, today) {
			stats.Overdue++
		}
		if item.IsNew() {
			stats.NewItems++
		}
		if item.Interval > MasteredInterval {
			stats.Mastered++
		}
	}

	// Track review dates for streak calculation
	reviewDates := make(map[string]bool)
	ratingSum := 0
	for _, log := range logs {
		if log.ReviewedOn.After(today) {
			continue
		}
		stats.TotalReviews++
		ratingSum += int(log.Rating)
		if log.ReviewedOn.Equal(today) {
			stats.ReviewedToday++
		}
		reviewDates[sm2.FormatDate(log.ReviewedOn)] = true
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.TotalReviews)
	}

	// Calculate streak days (consecutive days with reviews ending today or yesterday)
	stats.StreakDays = calculateStreak(reviewDates, today)
	return stats, nil
}

// calculateStreak counts consecutive days with reviews ending today or yesterday.
func calculateStreak(reviewDates map[string]bool, today time.Time) int {
	streak := 0
	checkDate := today

	// Allow starting from today or yesterday
	if !reviewDates[sm2.FormatDate(checkDate)] {
		checkDate = checkDate.AddDate(0, 0, -1)
		if !reviewDates[sm2.FormatDate(checkDate)] {
			return 0
		}
	}

	// Count consecutive days backwards
	for reviewDates[sm2.FormatDate(checkDate)] {
		streak++
		checkDate = checkDate.AddDate(0, 0, -1)
	}
	return streak
}

func (s *Service) getItem(ctx context.Context, id int32) (*store.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	if item == nil {
		return nil, rerrors.NotFound("item", id)
	}
	return item, nil
}

func (s *Service) persist(ctx context.Context, item *store.Item, next sm2.State, rating sm2.Rating, on time.Time, start time.Time) (*Outcome, error) {
	sess, hasSession := observability.FromContext(ctx)

	log, err := s.store.RecordReview(ctx, &store.RecordReview{
		ItemID:     item.ID,
		State:      next,
		Rating:     rating,
		ReviewedOn: on,
	})
	if err != nil {
		if hasSession {
			sess.Metrics.RecordError()
			sess.Error("failed to record review", err,
				slog.Int(observability.LogFieldItemID, int(item.ID)),
				slog.String(observability.LogFieldErrorCode, string(rerrors.GetCodeFromError(err, rerrors.ErrCodeInternal))))
		}
		return nil, fmt.Errorf("record review of item %d: %w", item.ID, err)
	}

	prior := item.State
	item.State = next
	if hasSession {
		elapsed := time.Since(start)
		sess.Metrics.RecordReview(string(item.Kind()), int(rating), rating.Passed(), elapsed)
		sess.Debug("review recorded",
			slog.Int(observability.LogFieldItemID, int(item.ID)),
			slog.String(observability.LogFieldKind, string(item.Kind())),
			slog.Int(observability.LogFieldRating, int(rating)),
			slog.Int("interval", next.Interval),
			slog.String("due_date", sm2.FormatDate(next.DueDate)),
			slog.Int64(observability.LogFieldDuration, elapsed.Milliseconds()))
	}
	return &Outcome{Item: item, Prior: prior, Rating: rating, Log: log}, nil
}
