package sm2

import (
	"math"
	"time"
)

const (
	firstInterval  = 1
	secondInterval = 6
)

// Next computes the state that follows a review rated r on reviewDate.
// The prior state is not modified.
func Next(prior State, r Rating, reviewDate time.Time) (State, error) {
	if !r.Valid() {
		return State{}, &InvalidRatingError{Rating: r}
	}

	reviewed := Day(reviewDate)
	next := State{
		EaseFactor:   nextEaseFactor(prior.EaseFactor, r),
		LastReviewed: &reviewed,
	}

	if r.Passed() {
		next.Repetitions = prior.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.Interval = firstInterval
		case 2:
			next.Interval = secondInterval
		default:
			// math.Round rounds half away from zero.
			next.Interval = int(math.Round(float64(prior.Interval) * next.EaseFactor))
		}
	} else {
		next.Repetitions = 0
		next.Interval = firstInterval
	}

	next.DueDate = reviewed.AddDate(0, 0, next.Interval)
	return next, nil
}

// NextMCQ schedules a multiple-choice answer. The (correct, confidence) pair
// is translated through a fixed rating table before Next is applied.
func NextMCQ(prior State, correct bool, confidence Confidence, reviewDate time.Time) (State, error) {
	r, err := MCQRating(correct, confidence)
	if err != nil {
		return State{}, err
	}
	return Next(prior, r, reviewDate)
}

// nextEaseFactor applies the SM-2 ease adjustment and the 1.3 floor.
func nextEaseFactor(ef float64, r Rating) float64 {
	miss := float64(RatingPerfect - r)
	ef += 0.1 - miss*(0.08+miss*0.02)
	if ef < MinEaseFactor {
		return MinEaseFactor
	}
	return ef
}

// Scheduler applies the calculator against a clock so that callers without
// an explicit review date schedule relative to today.
type Scheduler struct {
	now func() time.Time
}

// NewScheduler returns a Scheduler reading the wall clock.
func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

// NewSchedulerWithClock returns a Scheduler reading the given clock.
func NewSchedulerWithClock(now func() time.Time) *Scheduler {
	return &Scheduler{now: now}
}

// Today returns the current calendar date.
func (s *Scheduler) Today() time.Time {
	return Day(s.now())
}

// Review schedules a rated review dated today.
func (s *Scheduler) Review(prior State, r Rating) (State, error) {
	return Next(prior, r, s.Today())
}

// ReviewMCQ schedules a multiple-choice answer dated today.
func (s *Scheduler) ReviewMCQ(prior State, correct bool, confidence Confidence) (State, error) {
	return NextMCQ(prior, correct, confidence, s.Today())
}

// IsOverdue reports whether the state is overdue today.
func (s *Scheduler) IsOverdue(state State) bool {
	return IsOverdue(state, s.Today())
}

// DaysOverdue returns the days the state is overdue today.
func (s *Scheduler) DaysOverdue(state State) int {
	return DaysOverdue(state, s.Today())
}
