package evaluator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/retain/internal/sm2"
)

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{"bold score", "Nice work.\n\n**Score: 2.5/3**\n\nConsider caching.", 2.5},
		{"bold wins over later plain score", "**Score: 2/3**\nA grade: 1 would be too harsh.", 2},
		{"average label", "Average grade: 1.7", 1.7},
		{"fraction", "I'd give it 2/3 overall.", 2},
		{"trailing colon", "Final verdict: 2", 2},
		{"clamped high", "Score: 7/3", 3},
		{"fallback to last small number", "Handles 10 inputs, about 2 overall", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluation, err := ParseEvaluation(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, evaluation.Grade)
			assert.Equal(t, tt.reply, evaluation.Feedback)
		})
	}
}

func TestParseEvaluation_CriterionScores(t *testing.T) {
	reply := "- Correctness: 3/3 - all cases pass\n- Clarity: 2/3 - long function\n**Score: 2.33/3**"
	evaluation, err := ParseEvaluation(reply)
	require.NoError(t, err)
	assert.Equal(t, 2.33, evaluation.Grade)
	require.NotNil(t, evaluation.Correctness)
	assert.Equal(t, 3.0, *evaluation.Correctness)
	require.NotNil(t, evaluation.Clarity)
	assert.Equal(t, 2.0, *evaluation.Clarity)
	assert.Nil(t, evaluation.Efficiency)
	assert.Equal(t, sm2.RatingGood, evaluation.Rating())
}

func TestParseEvaluation_NoGrade(t *testing.T) {
	for _, reply := range []string{"Looks fine to me.", "It handles 10 of 12 cases"} {
		_, err := ParseEvaluation(reply)
		assert.True(t, errors.Is(err, ErrNoGrade), reply)
	}
}

func TestGradeToRating(t *testing.T) {
	tests := []struct {
		grade float64
		want  sm2.Rating
	}{
		{-1, sm2.RatingBlackout},
		{0, sm2.RatingBlackout},
		{0.5, sm2.RatingWrong},
		{1, sm2.RatingWrongFamiliar},
		{1.5, sm2.RatingHard},
		{2, sm2.RatingHard},
		{2.5, sm2.RatingGood},
		{3, sm2.RatingPerfect},
		{4, sm2.RatingPerfect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeToRating(tt.grade), "grade %v", tt.grade)
	}
}
