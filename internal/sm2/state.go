// Package sm2 implements the SuperMemo-2 scheduling rules used to space
// item reviews. Every function here is pure: callers pass the review date
// explicitly and receive a new State, never a mutated one.
package sm2

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultEaseFactor is the ease factor of a never-reviewed item.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor applied after every review.
	MinEaseFactor = 1.3

	// DateLayout is the textual form of a calendar date in storage and exports.
	DateLayout = "2006-01-02"
)

// ErrCorruptState is matched by every CorruptStateError.
var ErrCorruptState = errors.New("sm2: corrupt scheduling state")

// State is the scheduling state carried by every reviewable item.
type State struct {
	// Interval is the number of days until the next review. Zero before the first review.
	Interval int
	// EaseFactor scales the interval after the second successful review.
	EaseFactor float64
	// Repetitions counts consecutive successful reviews since the last reset.
	Repetitions int
	// DueDate is the calendar date the item becomes eligible for review.
	DueDate time.Time
	// LastReviewed is nil until the item has been reviewed once.
	LastReviewed *time.Time
}

// NewState returns the state of an item created on the given date.
func NewState(created time.Time) State {
	return State{
		Interval:    0,
		EaseFactor:  DefaultEaseFactor,
		Repetitions: 0,
		DueDate:     Day(created),
	}
}

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid calendar date %q", s)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// IsNew reports whether the item has never been reviewed.
func (s State) IsNew() bool {
	return s.LastReviewed == nil
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	if s.LastReviewed != nil {
		last := *s.LastReviewed
		s.LastReviewed = &last
	}
	return s
}

// Equal reports whether both states hold identical values.
func (s State) Equal(o State) bool {
	if s.Interval != o.Interval || s.EaseFactor != o.EaseFactor || s.Repetitions != o.Repetitions {
		return false
	}
	if !s.DueDate.Equal(o.DueDate) {
		return false
	}
	if (s.LastReviewed == nil) != (o.LastReviewed == nil) {
		return false
	}
	return s.LastReviewed == nil || s.LastReviewed.Equal(*o.LastReviewed)
}

// Validate checks a state loaded from storage or an import file.
// Out-of-range values are reported, never repaired.
func (s State) Validate() error {
	switch {
	case s.EaseFactor < MinEaseFactor:
		return &CorruptStateError{Field: "ease_factor", Value: fmt.Sprintf("%v", s.EaseFactor)}
	case s.Interval < 0:
		return &CorruptStateError{Field: "interval", Value: fmt.Sprintf("%d", s.Interval)}
	case s.Repetitions < 0:
		return &CorruptStateError{Field: "repetitions", Value: fmt.Sprintf("%d", s.Repetitions)}
	case s.Repetitions >= 2 && s.Interval == 0:
		// Every later success would multiply a zero interval.
		return &CorruptStateError{Field: "interval", Value: "0"}
	case s.DueDate.IsZero():
		return &CorruptStateError{Field: "due_date", Value: "missing"}
	case !s.DueDate.Equal(Day(s.DueDate)):
		return &CorruptStateError{Field: "due_date", Value: s.DueDate.String()}
	case s.LastReviewed != nil && !s.LastReviewed.Equal(Day(*s.LastReviewed)):
		return &CorruptStateError{Field: "last_reviewed", Value: s.LastReviewed.String()}
	}
	return nil
}

// CorruptStateError reports a persisted state that violates the scheduling invariants.
type CorruptStateError struct {
	Field string
	Value string
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("sm2: corrupt scheduling state: %s=%s", e.Field, e.Value)
}

func (*CorruptStateError) Is(target error) bool {
	return target == ErrCorruptState
}

// IsOverdue reports whether the item was due strictly before asOf.
func IsOverdue(s State, asOf time.Time) bool {
	return Day(asOf).After(Day(s.DueDate))
}

// IsDue reports whether the item is eligible for review on asOf. The due date itself counts.
func IsDue(s State, asOf time.Time) bool {
	return !Day(s.DueDate).After(Day(asOf))
}

// DaysOverdue returns how many days have passed since the due date, never negative.
func DaysOverdue(s State, asOf time.Time) int {
	days := daysBetween(s.DueDate, Day(asOf))
	if days < 0 {
		return 0
	}
	return days
}

// daysBetween counts whole calendar days. Unix seconds avoid the ~292 year
// limit of time.Duration.
func daysBetween(from, to time.Time) int {
	return int((Day(to).Unix() - Day(from).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
