package store

import (
	"context"
	"time"

	"github.com/hrygo/retain/internal/sm2"
)

// ReviewLog records one review outcome and the state it produced.
type ReviewLog struct {
	ID        int32
	ItemID    int32
	CreatedTs int64

	// ReviewedOn is the calendar date of the review.
	ReviewedOn time.Time
	Rating     sm2.Rating
	// Interval and EaseFactor are the values after the review.
	Interval   int
	EaseFactor float64
}

// FindReviewLog is the find condition for review logs.
type FindReviewLog struct {
	ItemID *int32
	// Since keeps logs reviewed on or after the date.
	Since *time.Time
	Limit *int
}

// RecordReview is the request to persist a review: the new state and its log entry are written together.
type RecordReview struct {
	ItemID     int32
	State      sm2.State
	Rating     sm2.Rating
	ReviewedOn time.Time
	UpdatedTs  int64
}

// ListReviewLogs lists review logs, newest first.
func (s *Store) ListReviewLogs(ctx context.Context, find *FindReviewLog) ([]*ReviewLog, error) {
	return s.driver.ListReviewLogs(ctx, find)
}
