package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/retain/internal/sm2"
)

// Kind is the kind of a reviewable item.
type Kind string

const (
	KindQuestion  Kind = "question"
	KindChallenge Kind = "challenge"
	KindMCQ       Kind = "mcq"
)

// Kinds lists every item kind in display order.
var Kinds = []Kind{KindQuestion, KindChallenge, KindMCQ}

func (k Kind) Valid() bool {
	switch k {
	case KindQuestion, KindChallenge, KindMCQ:
		return true
	}
	return false
}

// Language is the language a coding challenge is solved in.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

func (l Language) Valid() bool {
	return l == LanguagePython || l == LanguageJavaScript
}

// MCQType distinguishes four-option questions from true/false ones.
type MCQType string

const (
	MCQTypeChoice    MCQType = "mcq"
	MCQTypeTrueFalse MCQType = "true_false"
)

func (t MCQType) Valid() bool {
	return t == MCQTypeChoice || t == MCQTypeTrueFalse
}

// OptionLetters returns the answer letters available for the type.
func (t MCQType) OptionLetters() []string {
	if t == MCQTypeTrueFalse {
		return []string{"a", "b"}
	}
	return []string{"a", "b", "c", "d"}
}

// Content is the kind-specific part of an item.
// It is implemented only by QuestionContent, ChallengeContent and MCQContent.
type Content interface {
	Kind() Kind
	// Summary is the one-line text used for listings, search and duplicate detection.
	Summary() string
	Validate() error

	isContent()
}

// QuestionContent is a free-text question.
type QuestionContent struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer,omitempty"`
}

func (*QuestionContent) Kind() Kind        { return KindQuestion }
func (c *QuestionContent) Summary() string { return c.Prompt }
func (*QuestionContent) isContent()        {}

func (c *QuestionContent) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("question prompt is required")
	}
	return nil
}

// ChallengeContent is a coding challenge.
type ChallengeContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Language    Language `json:"language"`
	// TestCases is an opaque payload handed to the evaluator.
	TestCases string `json:"test_cases,omitempty"`
}

func (*ChallengeContent) Kind() Kind        { return KindChallenge }
func (c *ChallengeContent) Summary() string { return c.Title }
func (*ChallengeContent) isContent()        {}

func (c *ChallengeContent) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("challenge title is required")
	}
	if strings.TrimSpace(c.Description) == "" {
		return errors.New("challenge description is required")
	}
	if !c.Language.Valid() {
		return errors.Errorf("invalid challenge language %q: want %q or %q", c.Language, LanguagePython, LanguageJavaScript)
	}
	return nil
}

// MCQContent is a multiple-choice or true/false question.
type MCQContent struct {
	Prompt string  `json:"prompt"`
	Type   MCQType `json:"type"`
	// Options holds the answer texts in letter order.
	Options []string `json:"options"`
	// Correct is the lowercase letter of the right option.
	Correct string `json:"correct"`
	// Explanations is keyed by option letter.
	Explanations map[string]string `json:"explanations,omitempty"`
}

func (*MCQContent) Kind() Kind        { return KindMCQ }
func (c *MCQContent) Summary() string { return c.Prompt }
func (*MCQContent) isContent()        {}

// Normalize lowercases the answer letters.
func (c *MCQContent) Normalize() {
	c.Correct = strings.ToLower(strings.TrimSpace(c.Correct))
	if len(c.Explanations) == 0 {
		c.Explanations = nil
		return
	}
	explanations := make(map[string]string, len(c.Explanations))
	for letter, text := range c.Explanations {
		if text = strings.TrimSpace(text); text != "" {
			explanations[strings.ToLower(strings.TrimSpace(letter))] = text
		}
	}
	if len(explanations) == 0 {
		explanations = nil
	}
	c.Explanations = explanations
}

func (c *MCQContent) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("mcq prompt is required")
	}
	if !c.Type.Valid() {
		return errors.Errorf("invalid mcq type %q: want %q or %q", c.Type, MCQTypeChoice, MCQTypeTrueFalse)
	}
	letters := c.Type.OptionLetters()
	if len(c.Options) != len(letters) {
		return errors.Errorf("%s question needs exactly %d options, got %d", c.Type, len(letters), len(c.Options))
	}
	for i, option := range c.Options {
		if strings.TrimSpace(option) == "" {
			return errors.Errorf("option %s is empty", strings.ToUpper(letters[i]))
		}
	}
	if !c.HasOption(c.Correct) {
		return errors.Errorf("correct answer %q is not one of %s", c.Correct, strings.ToUpper(strings.Join(letters, ", ")))
	}
	for letter := range c.Explanations {
		if !c.HasOption(letter) {
			return errors.Errorf("explanation for unknown option %q", letter)
		}
	}
	return nil
}

// HasOption reports whether letter names one of the options.
func (c *MCQContent) HasOption(letter string) bool {
	letter = strings.ToLower(strings.TrimSpace(letter))
	for _, l := range c.Type.OptionLetters() {
		if l == letter {
			return true
		}
	}
	return false
}

// Option returns the text of the option with the given letter.
func (c *MCQContent) Option(letter string) string {
	letter = strings.ToLower(strings.TrimSpace(letter))
	for i, l := range c.Type.OptionLetters() {
		if l == letter && i < len(c.Options) {
			return c.Options[i]
		}
	}
	return ""
}

// DecodeContent restores the content of an item of the given kind from its JSON payload.
func DecodeContent(kind Kind, payload []byte) (Content, error) {
	var content Content
	switch kind {
	case KindQuestion:
		content = &QuestionContent{}
	case KindChallenge:
		content = &ChallengeContent{}
	case KindMCQ:
		content = &MCQContent{}
	default:
		return nil, errors.Errorf("unknown item kind %q", kind)
	}
	if err := json.Unmarshal(payload, content); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s payload", kind)
	}
	return content, nil
}

// EncodeContent renders content as its JSON payload.
func EncodeContent(content Content) (string, error) {
	bytes, err := json.Marshal(content)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode item payload")
	}
	return string(bytes), nil
}

// Item is a reviewable item: kind-specific content plus its scheduling state.
type Item struct {
	ID        int32
	UID       string
	CreatedTs int64
	UpdatedTs int64

	// Tags keep insertion order and hold no duplicates.
	Tags    []string
	Content Content

	sm2.State
}

// Kind returns the kind of the item's content.
func (i *Item) Kind() Kind {
	if i.Content == nil {
		return ""
	}
	return i.Content.Kind()
}

// Language returns the challenge language, empty for other kinds.
func (i *Item) Language() Language {
	if c, ok := i.Content.(*ChallengeContent); ok {
		return c.Language
	}
	return ""
}

// MCQType returns the MCQ type, empty for other kinds.
func (i *Item) MCQType() MCQType {
	if c, ok := i.Content.(*MCQContent); ok {
		return c.Type
	}
	return ""
}

// HasTag reports whether the item carries tag.
func (i *Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CreatedTime returns the creation time.
func (i *Item) CreatedTime() time.Time {
	return time.Unix(i.CreatedTs, 0)
}

// Name is the display handle of the item.
func (i *Item) Name() string {
	return fmt.Sprintf("%s/%d", i.Kind(), i.ID)
}

// NormalizeTags trims tags, drops empty ones and removes duplicates, keeping first occurrences.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

// ParseTags splits a comma separated tag list.
func ParseTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// FindItem is the find condition for items.
type FindItem struct {
	ID  *int32
	UID *string

	Kind     *Kind
	Language *Language
	MCQType  *MCQType
	// Tags must all be present on a matching item.
	Tags []string

	// DueAsOf restricts to items with due_date <= DueAsOf and orders by due date.
	DueAsOf *time.Time

	// Summary matches the summary exactly.
	Summary *string
	// Search matches a case-insensitive substring of the summary.
	Search *string

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateItem is the update request for an item. Nil fields are left unchanged.
type UpdateItem struct {
	ID        int32
	UpdatedTs *int64
	Content   Content
	Tags      *[]string
	State     *sm2.State
}

// DeleteItem is the delete request for an item.
type DeleteItem struct {
	ID int32
}
