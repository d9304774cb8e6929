// Package review runs review sessions over the items stored by retain.
package review

import (
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

// MasteredInterval is the interval in days beyond which an item counts as mastered.
const MasteredInterval = 30

// ReviewConfig contains configuration for the review system.
type ReviewConfig struct {
	// MaxDailyReviews caps a batch when the caller sets no limit. Zero means no cap.
	MaxDailyReviews int
}

// DefaultConfig returns the default review configuration.
func DefaultConfig() ReviewConfig {
	return ReviewConfig{
		MaxDailyReviews: 20,
	}
}

// Filter narrows a review batch. Tags must all be present.
type Filter struct {
	Kind     *store.Kind
	Language *store.Language
	MCQType  *store.MCQType
	Tags     []string
	// Limit overrides MaxDailyReviews when positive.
	Limit int
}

// Batch is the next set of items to review.
type Batch struct {
	Items []*store.Item
	// Total counts every due item matching the filter, before the limit.
	Total int
}

// Outcome is the result of a rated review.
type Outcome struct {
	Item   *store.Item
	Prior  sm2.State
	Rating sm2.Rating
	Log    *store.ReviewLog
}

// MCQOutcome is the result of answering a multiple-choice item.
type MCQOutcome struct {
	Outcome

	Choice     string
	Correct    bool
	Confidence sm2.Confidence
	// Answer is the letter of the right option.
	Answer string
	// ChoiceExplanation and AnswerExplanation are empty when none was written.
	ChoiceExplanation string
	AnswerExplanation string
}

// Misconception reports a wrong answer given with high confidence.
func (o *MCQOutcome) Misconception() bool {
	return !o.Correct && o.Confidence == sm2.ConfidenceHigh
}

// ReviewStats contains statistics about review progress.
type ReviewStats struct {
	TotalItems    int                `json:"total_items"`
	ByKind        map[store.Kind]int `json:"by_kind"`
	DueToday      int                `json:"due_today"`
	Overdue       int                `json:"overdue"`
	NewItems      int                `json:"new_items"`
	Mastered      int                `json:"mastered"` // interval > 30 days
	ReviewedToday int                `json:"reviewed_today"`
	StreakDays    int                `json:"streak_days"`
	TotalReviews  int                `json:"total_reviews"`
	AverageRating float64            `json:"average_rating"`
}
