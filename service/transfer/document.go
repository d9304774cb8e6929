// Package transfer exports items with their schedules to a JSON document and imports them back.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

// DocumentVersion is the version written to every exported document.
const DocumentVersion = "1.0"

// Document is the exported collection.
type Document struct {
	Version      string            `json:"version"`
	ExportedAt   string            `json:"exported_at"`
	Questions    []*QuestionEntry  `json:"questions"`
	Challenges   []*ChallengeEntry `json:"challenges"`
	MCQQuestions []*MCQEntry       `json:"mcq_questions"`
}

// Len returns the number of entries in the document.
func (d *Document) Len() int {
	return len(d.Questions) + len(d.Challenges) + len(d.MCQQuestions)
}

// Schedule is the scheduling state of an entry. Dates are YYYY-MM-DD.
type Schedule struct {
	Interval       int     `json:"interval"`
	EaseFactor     float64 `json:"ease_factor"`
	Repetitions    int     `json:"repetitions"`
	NextReviewDate string  `json:"next_review_date"`
	LastReviewed   *string `json:"last_reviewed,omitempty"`
}

// Tags decodes from a JSON array or from a comma separated string.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = store.NormalizeTags(list)
		return nil
	}
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be a list or a comma separated string: %w", err)
	}
	if raw == nil {
		*t = nil
		return nil
	}
	*t = store.ParseTags(*raw)
	return nil
}

type QuestionEntry struct {
	QuestionText string    `json:"question_text"`
	Answer       string    `json:"answer,omitempty"`
	Tags         Tags      `json:"tags"`
	Schedule     *Schedule `json:"schedule,omitempty"`
}

type ChallengeEntry struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	TestCases   string    `json:"testcases,omitempty"`
	Tags        Tags      `json:"tags"`
	Schedule    *Schedule `json:"schedule,omitempty"`
}

type MCQEntry struct {
	Question      string    `json:"question"`
	QuestionType  string    `json:"question_type"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c,omitempty"`
	OptionD       string    `json:"option_d,omitempty"`
	CorrectOption string    `json:"correct_option"`
	ExplanationA  string    `json:"explanation_a,omitempty"`
	ExplanationB  string    `json:"explanation_b,omitempty"`
	ExplanationC  string    `json:"explanation_c,omitempty"`
	ExplanationD  string    `json:"explanation_d,omitempty"`
	Tags          Tags      `json:"tags"`
	Schedule      *Schedule `json:"schedule,omitempty"`
}

// WriteDocument writes doc as indented JSON.
func WriteDocument(w io.Writer, doc *Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(doc)
}

// ReadDocument decodes a document. Missing sections decode as empty.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "invalid document")
	}
	if doc.Version != "" && !strings.HasPrefix(doc.Version, "1.") {
		return nil, rerrors.InvalidArgument("unsupported document version %q", doc.Version)
	}
	return &doc, nil
}

func scheduleFromState(state sm2.State) *Schedule {
	schedule := &Schedule{
		Interval:       state.Interval,
		EaseFactor:     state.EaseFactor,
		Repetitions:    state.Repetitions,
		NextReviewDate: sm2.FormatDate(state.DueDate),
	}
	if state.LastReviewed != nil {
		last := sm2.FormatDate(*state.LastReviewed)
		schedule.LastReviewed = &last
	}
	return schedule
}

// State restores the scheduling state. Invalid values are reported as
// *sm2.CorruptStateError and never repaired.
func (s *Schedule) State() (sm2.State, error) {
	due, err := sm2.ParseDate(s.NextReviewDate)
	if err != nil {
		return sm2.State{}, &sm2.CorruptStateError{Field: "due_date", Value: s.NextReviewDate}
	}
	state := sm2.State{
		Interval:    s.Interval,
		EaseFactor:  s.EaseFactor,
		Repetitions: s.Repetitions,
		DueDate:     due,
	}
	if s.LastReviewed != nil {
		last, err := sm2.ParseDate(*s.LastReviewed)
		if err != nil {
			return sm2.State{}, &sm2.CorruptStateError{Field: "last_reviewed", Value: *s.LastReviewed}
		}
		state.LastReviewed = &last
	}
	if err := state.Validate(); err != nil {
		return sm2.State{}, err
	}
	return state, nil
}

func entryFromItem(doc *Document, item *store.Item) {
	schedule := scheduleFromState(item.State)
	switch content := item.Content.(type) {
	case *store.QuestionContent:
		doc.Questions = append(doc.Questions, &QuestionEntry{
			QuestionText: content.Prompt,
			Answer:       content.Answer,
			Tags:         item.Tags,
			Schedule:     schedule,
		})
	case *store.ChallengeContent:
		doc.Challenges = append(doc.Challenges, &ChallengeEntry{
			Title:       content.Title,
			Description: content.Description,
			Language:    string(content.Language),
			TestCases:   content.TestCases,
			Tags:        item.Tags,
			Schedule:    schedule,
		})
	case *store.MCQContent:
		entry := &MCQEntry{
			Question:      content.Prompt,
			QuestionType:  string(content.Type),
			CorrectOption: content.Correct,
			Tags:          item.Tags,
			Schedule:      schedule,
		}
		options := []*string{&entry.OptionA, &entry.OptionB, &entry.OptionC, &entry.OptionD}
		explanations := []*string{&entry.ExplanationA, &entry.ExplanationB, &entry.ExplanationC, &entry.ExplanationD}
		for i, letter := range content.Type.OptionLetters() {
			if i < len(content.Options) {
				*options[i] = content.Options[i]
			}
			*explanations[i] = content.Explanations[letter]
		}
		doc.MCQQuestions = append(doc.MCQQuestions, entry)
	}
}

func (e *QuestionEntry) content() store.Content {
	return &store.QuestionContent{Prompt: e.QuestionText, Answer: e.Answer}
}

func (e *ChallengeEntry) content() store.Content {
	return &store.ChallengeContent{
		Title:       e.Title,
		Description: e.Description,
		Language:    store.Language(strings.ToLower(e.Language)),
		TestCases:   e.TestCases,
	}
}

func (e *MCQEntry) content() store.Content {
	mcqType := store.MCQType(e.QuestionType)
	if mcqType == "" {
		mcqType = store.MCQTypeChoice
	}
	options := []string{e.OptionA, e.OptionB}
	explanations := map[string]string{"a": e.ExplanationA, "b": e.ExplanationB}
	if mcqType == store.MCQTypeChoice {
		options = append(options, e.OptionC, e.OptionD)
		explanations["c"], explanations["d"] = e.ExplanationC, e.ExplanationD
	}
	return &store.MCQContent{
		Prompt:       e.Question,
		Type:         mcqType,
		Options:      options,
		Correct:      e.CorrectOption,
		Explanations: explanations,
	}
}
