package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

// Store is the part of *store.Store the transfer service needs.
type Store interface {
	ListItems(ctx context.Context, find *store.FindItem) ([]*store.Item, error)
	CreateItem(ctx context.Context, create *store.Item) (*store.Item, error)
}

// ExportOptions narrows an export. Tags must all be present.
type ExportOptions struct {
	Kind *store.Kind
	Tags []string
}

// ImportOptions controls an import.
type ImportOptions struct {
	// AllowDuplicates imports entries whose prompt or title already exists.
	AllowDuplicates bool
	// Today is the due date of entries without a schedule. Zero means the
	// creation date.
	Today time.Time
}

// ImportResult counts what an import did.
type ImportResult struct {
	Questions  int
	Challenges int
	MCQs       int
	Skipped    int
}

// Total returns the number of imported items.
func (r *ImportResult) Total() int {
	return r.Questions + r.Challenges + r.MCQs
}

// Service moves items between the store and transfer documents.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a transfer service reading the wall clock.
func NewService(s Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Export collects the matching items of every kind into a document.
func (s *Service) Export(ctx context.Context, opts ExportOptions) (*Document, error) {
	kinds := store.Kinds
	if opts.Kind != nil {
		kinds = []store.Kind{*opts.Kind}
	}

	results := make([][]*store.Item, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			items, err := s.store.ListItems(gctx, &store.FindItem{Kind: &kind, Tags: store.NormalizeTags(opts.Tags)})
			if err != nil {
				return fmt.Errorf("list %s items: %w", kind, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := &Document{
		Version:      DocumentVersion,
		ExportedAt:   s.now().UTC().Format(time.RFC3339),
		Questions:    []*QuestionEntry{},
		Challenges:   []*ChallengeEntry{},
		MCQQuestions: []*MCQEntry{},
	}
	for _, items := range results {
		for _, item := range items {
			entryFromItem(doc, item)
		}
	}
	slog.Debug("export collected",
		slog.Int("questions", len(doc.Questions)),
		slog.Int("challenges", len(doc.Challenges)),
		slog.Int("mcq_questions", len(doc.MCQQuestions)))
	return doc, nil
}

type pending struct {
	item  *store.Item
	where string
}

// Import stores the entries of doc. Every entry is checked before anything
// is written: invalid content fails with INVALID_ARGUMENT, an invalid
// schedule with DATA_INTEGRITY wrapping *sm2.CorruptStateError.
// Entries without a schedule start fresh, due on opts.Today.
func (s *Service) Import(ctx context.Context, doc *Document, opts ImportOptions) (*ImportResult, error) {
	var items []pending
	add := func(where string, content store.Content, tags Tags, schedule *Schedule) error {
		if mcq, ok := content.(*store.MCQContent); ok {
			mcq.Normalize()
		}
		if err := content.Validate(); err != nil {
			return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, where)
		}
		item := &store.Item{Content: content, Tags: tags}
		if schedule != nil {
			state, err := schedule.State()
			if err != nil {
				return rerrors.DataIntegrity(where+" has an invalid schedule", err).WithContext("entry", where)
			}
			item.State = state
		} else if !opts.Today.IsZero() {
			item.State = sm2.NewState(opts.Today)
		}
		items = append(items, pending{item: item, where: where})
		return nil
	}

	for i, entry := range doc.Questions {
		if err := add(fmt.Sprintf("questions[%d]", i), entry.content(), entry.Tags, entry.Schedule); err != nil {
			return nil, err
		}
	}
	for i, entry := range doc.Challenges {
		if err := add(fmt.Sprintf("challenges[%d]", i), entry.content(), entry.Tags, entry.Schedule); err != nil {
			return nil, err
		}
	}
	for i, entry := range doc.MCQQuestions {
		if err := add(fmt.Sprintf("mcq_questions[%d]", i), entry.content(), entry.Tags, entry.Schedule); err != nil {
			return nil, err
		}
	}

	seen := map[store.Kind]map[string]bool{}
	if !opts.AllowDuplicates {
		var err error
		if seen, err = s.existingSummaries(ctx); err != nil {
			return nil, err
		}
	}

	result := &ImportResult{}
	for _, p := range items {
		kind, summary := p.item.Kind(), p.item.Content.Summary()
		if !opts.AllowDuplicates {
			if seen[kind][summary] {
				result.Skipped++
				continue
			}
			seen[kind][summary] = true
		}
		if _, err := s.store.CreateItem(ctx, p.item); err != nil {
			return result, fmt.Errorf("import %s: %w", p.where, err)
		}
		switch kind {
		case store.KindQuestion:
			result.Questions++
		case store.KindChallenge:
			result.Challenges++
		case store.KindMCQ:
			result.MCQs++
		}
	}
	return result, nil
}

func (s *Service) existingSummaries(ctx context.Context) (map[store.Kind]map[string]bool, error) {
	seen := make(map[store.Kind]map[string]bool, len(store.Kinds))
	for _, kind := range store.Kinds {
		items, err := s.store.ListItems(ctx, &store.FindItem{Kind: &kind})
		if err != nil {
			return nil, fmt.Errorf("list %s items: %w", kind, err)
		}
		seen[kind] = make(map[string]bool, len(items))
		for _, item := range items {
			seen[kind][item.Content.Summary()] = true
		}
	}
	return seen, nil
}
