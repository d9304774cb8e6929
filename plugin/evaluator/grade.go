package evaluator

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/retain/internal/sm2"
)

// MaxGrade is the top of the evaluator's grading scale.
const MaxGrade = 3.0

// ErrNoGrade is returned when a reply carries no usable grade.
var ErrNoGrade = errors.New("could not extract grade from evaluator reply")

// Patterns are tried in order on the lowercased reply; the last match of
// the first matching pattern wins.
var gradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*\*\s*(?:score|grade|average)[:\s]*(\d+(?:\.\d+)?)\s*(?:/\s*3)?\s*\*\*`),
	regexp.MustCompile(`(?:score|grade|average)[:\s]*(\d+(?:\.\d+)?)\s*(?:/\s*3)?`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*3`),
	regexp.MustCompile(`:\s*(\d+(?:\.\d+)?)\s*$`),
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Evaluation is a parsed evaluator reply.
type Evaluation struct {
	Grade    float64
	Feedback string
	// Criterion scores are nil when the reply does not state them.
	Correctness *float64
	Clarity     *float64
	Efficiency  *float64
}

// Rating converts the grade to an SM-2 rating.
func (e *Evaluation) Rating() sm2.Rating {
	return GradeToRating(e.Grade)
}

// ParseEvaluation extracts the grade and criterion scores from a reply.
func ParseEvaluation(reply string) (*Evaluation, error) {
	grade, err := extractGrade(reply)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Grade:       grade,
		Feedback:    reply,
		Correctness: extractScore(reply, "correctness"),
		Clarity:     extractScore(reply, "clarity"),
		Efficiency:  extractScore(reply, "efficiency"),
	}, nil
}

func extractGrade(reply string) (float64, error) {
	lower := strings.ToLower(reply)
	for _, pattern := range gradePatterns {
		matches := pattern.FindAllStringSubmatch(lower, -1)
		if len(matches) == 0 {
			continue
		}
		grade, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
		if err != nil {
			continue
		}
		return math.Min(MaxGrade, math.Max(0, grade)), nil
	}

	numbers := numberPattern.FindAllString(reply, -1)
	for i := len(numbers) - 1; i >= 0; i-- {
		value, err := strconv.ParseFloat(numbers[i], 64)
		if err == nil && value >= 0 && value <= MaxGrade {
			return value, nil
		}
	}
	return 0, ErrNoGrade
}

func extractScore(reply, criterion string) *float64 {
	pattern := regexp.MustCompile(criterion + `[:\s]*(\d+(?:\.\d+)?)`)
	match := pattern.FindStringSubmatch(strings.ToLower(reply))
	if match == nil {
		return nil
	}
	score, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &score
}

// GradeToRating maps a grade on [0, 3] to an SM-2 rating on [0, 5].
func GradeToRating(grade float64) sm2.Rating {
	grade = math.Min(MaxGrade, math.Max(0, grade))
	return sm2.Rating(math.Round(grade * 5 / MaxGrade))
}
