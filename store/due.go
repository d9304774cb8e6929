package store

import (
	"context"
	"sort"
	"time"

	"github.com/hrygo/retain/internal/sm2"
)

// FindDue selects the items eligible for review on AsOf.
//
// An item is eligible when its due date is on or before AsOf. Results are
// ordered by ascending due date, ties broken by ascending ID (creation order).
// Filters narrow the result and never change its order.
type FindDue struct {
	AsOf time.Time

	Kind     *Kind
	Language *Language
	MCQType  *MCQType
	Tags     []string

	Limit  *int
	Offset *int
}

// FindItem converts the selection into the driver find condition.
func (f *FindDue) FindItem() *FindItem {
	asOf := sm2.Day(f.AsOf)
	return &FindItem{
		Kind:     f.Kind,
		Language: f.Language,
		MCQType:  f.MCQType,
		Tags:     f.Tags,
		DueAsOf:  &asOf,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
}

// Matches reports whether a single item passes the eligibility rule and every filter.
func (f *FindDue) Matches(item *Item) bool {
	if !sm2.IsDue(item.State, f.AsOf) {
		return false
	}
	if f.Kind != nil && item.Kind() != *f.Kind {
		return false
	}
	if f.Language != nil && item.Language() != *f.Language {
		return false
	}
	if f.MCQType != nil && item.MCQType() != *f.MCQType {
		return false
	}
	for _, tag := range f.Tags {
		if !item.HasTag(tag) {
			return false
		}
	}
	return true
}

// FilterDue applies the due-selection policy to items held in memory.
// The SQL drivers implement the same policy and are tested against it.
func FilterDue(items []*Item, find *FindDue) []*Item {
	due := make([]*Item, 0, len(items))
	for _, item := range items {
		if find.Matches(item) {
			due = append(due, item)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].DueDate.Equal(due[j].DueDate) {
			return due[i].DueDate.Before(due[j].DueDate)
		}
		return due[i].ID < due[j].ID
	})

	if find.Offset != nil {
		if *find.Offset >= len(due) {
			return []*Item{}
		}
		due = due[*find.Offset:]
	}
	if find.Limit != nil && *find.Limit < len(due) {
		due = due[:*find.Limit]
	}
	return due
}

// ListDueItems returns the items due on find.AsOf in review order.
func (s *Store) ListDueItems(ctx context.Context, find *FindDue) ([]*Item, error) {
	return s.ListItems(ctx, find.FindItem())
}

// SelectDue returns the identifiers of the items due on find.AsOf in review order.
// An empty result is not an error.
func (s *Store) SelectDue(ctx context.Context, find *FindDue) ([]int32, error) {
	items, err := s.ListDueItems(ctx, find)
	if err != nil {
		return nil, err
	}
	ids := make([]int32, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// CountDue returns how many items are due on asOf regardless of pagination.
func (s *Store) CountDue(ctx context.Context, find *FindDue) (int, error) {
	unpaged := *find
	unpaged.Limit, unpaged.Offset = nil, nil
	ids, err := s.SelectDue(ctx, &unpaged)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
