package evaluator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/retain/internal/sm2"
)

// Session is one evaluation conversation about a challenge.
//
// The first grade is the honest assessment and is the one used for
// scheduling; later grades after a dispute or a refactor are informative.
type Session struct {
	ChallengeID int32
	Messages    []openai.ChatCompletionMessage
	FirstGrade  *float64
	Grade       *float64
	Iteration   int
	CreatedAt   time.Time
}

// NewSession starts a conversation seeded with the grading instructions.
func NewSession(challengeID int32) *Session {
	return &Session{
		ChallengeID: challengeID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
		CreatedAt: time.Now(),
	}
}

func (s *Session) addUser(content string) {
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})
}

func (s *Session) dropPending() {
	s.Messages = s.Messages[:len(s.Messages)-1]
}

func (s *Session) addAssistant(content string) {
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content})
}

func (s *Session) record(grade float64) {
	s.Iteration++
	s.Grade = &grade
	if s.FirstGrade == nil {
		first := grade
		s.FirstGrade = &first
	}
}

// Rating returns the SM-2 rating derived from the first grade.
func (s *Session) Rating() (sm2.Rating, error) {
	if s.FirstGrade == nil {
		return 0, errors.New("no evaluation recorded yet")
	}
	return GradeToRating(*s.FirstGrade), nil
}
