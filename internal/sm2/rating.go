package sm2

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Rating is the SM-2 recall quality, from 0 (total blackout) to 5 (perfect recall).
type Rating int

const (
	RatingBlackout Rating = iota
	RatingWrong
	RatingWrongFamiliar
	RatingHard
	RatingGood
	RatingPerfect
)

// PassingRating is the lowest rating that counts as a successful recall.
const PassingRating = RatingHard

// ErrInvalidRating is matched by every InvalidRatingError.
var ErrInvalidRating = errors.New("sm2: invalid rating")

// InvalidRatingError reports an outcome outside the accepted domain.
type InvalidRatingError struct {
	Rating     Rating
	Confidence Confidence

	// confidence marks an unknown confidence rather than an out-of-range rating.
	confidence bool
}

func invalidConfidence(c Confidence) *InvalidRatingError {
	return &InvalidRatingError{Confidence: c, confidence: true}
}

func (e *InvalidRatingError) Error() string {
	if e.confidence {
		return fmt.Sprintf("sm2: invalid confidence %q: want %q or %q", string(e.Confidence), ConfidenceLow, ConfidenceHigh)
	}
	return fmt.Sprintf("sm2: invalid rating %d: want %d..%d", e.Rating, RatingBlackout, RatingPerfect)
}

func (*InvalidRatingError) Is(target error) bool {
	return target == ErrInvalidRating
}

// Valid reports whether r lies in [0, 5].
func (r Rating) Valid() bool {
	return r >= RatingBlackout && r <= RatingPerfect
}

// Passed reports whether r counts as a successful recall.
func (r Rating) Passed() bool {
	return r >= PassingRating
}

func (r Rating) String() string {
	switch r {
	case RatingBlackout:
		return "blackout"
	case RatingWrong:
		return "wrong"
	case RatingWrongFamiliar:
		return "wrong-familiar"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingPerfect:
		return "perfect"
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// Confidence is how sure the learner was before seeing the MCQ result.
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// ParseConfidence accepts the case-insensitive names and their first letters.
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return ConfidenceLow, nil
	case "high", "h":
		return ConfidenceHigh, nil
	}
	return "", invalidConfidence(Confidence(s))
}

type mcqOutcome struct {
	correct    bool
	confidence Confidence
}

// mcqRatings maps an MCQ answer to its SM-2 rating. A confident wrong answer
// is a misconception and scores below a hesitant one.
var mcqRatings = map[mcqOutcome]Rating{
	{correct: true, confidence: ConfidenceHigh}:  RatingPerfect,
	{correct: true, confidence: ConfidenceLow}:   RatingGood,
	{correct: false, confidence: ConfidenceLow}:  RatingWrongFamiliar,
	{correct: false, confidence: ConfidenceHigh}: RatingWrong,
}

// MCQRating returns the rating an MCQ answer is scheduled with.
func MCQRating(correct bool, confidence Confidence) (Rating, error) {
	r, ok := mcqRatings[mcqOutcome{correct: correct, confidence: confidence}]
	if !ok {
		return 0, invalidConfidence(confidence)
	}
	return r, nil
}
