package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lithammer/shortuuid/v4"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/profile"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// itemCache holds items loaded by ID.
	itemCache *cache.LoadingCache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		itemCache: cache.NewLoadingCache(&cache.LoadingCacheConfig{
			MaxItems: 1000,
			TTL:      10 * time.Minute,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	// Stop the cache janitor goroutine
	s.itemCache.Close()

	return s.driver.Close()
}

// CreateItem validates and stores a new item. A zero State is replaced by
// the fresh state of an item created today; a supplied State must be valid.
func (s *Store) CreateItem(ctx context.Context, create *Item) (*Item, error) {
	if err := prepareContent(create.Content); err != nil {
		return nil, err
	}
	create.Tags = NormalizeTags(create.Tags)
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	if create.DueDate.IsZero() && create.EaseFactor == 0 {
		create.State = sm2.NewState(create.CreatedTime())
	}
	if err := create.State.Validate(); err != nil {
		return nil, rerrors.DataIntegrity("refusing to store corrupt scheduling state", err)
	}
	return s.driver.CreateItem(ctx, create)
}

// ListItems lists items. A stored item whose scheduling state is corrupt
// fails the whole call with a DATA_INTEGRITY error.
func (s *Store) ListItems(ctx context.Context, find *FindItem) ([]*Item, error) {
	list, err := s.driver.ListItems(ctx, find)
	if err != nil {
		return nil, err
	}
	for _, item := range list {
		if err := item.State.Validate(); err != nil {
			return nil, rerrors.DataIntegrity(fmt.Sprintf("item %d has corrupt scheduling state", item.ID), err).
				WithContext("item_id", item.ID)
		}
	}
	return list, nil
}

// GetItem returns the item with the given ID, or nil when none exists.
func (s *Store) GetItem(ctx context.Context, id int32) (*Item, error) {
	value, err := s.itemCache.Get(ctx, itemCacheKey(id), func(ctx context.Context, _ string) (any, error) {
		list, err := s.ListItems(ctx, &FindItem{ID: &id})
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, nil
		}
		return list[0], nil
	})
	if err != nil {
		return nil, err
	}
	item, ok := value.(*Item)
	if !ok || item == nil {
		return nil, nil
	}
	return cloneItem(item), nil
}

// UpdateItem applies the non-nil fields of update.
func (s *Store) UpdateItem(ctx context.Context, update *UpdateItem) error {
	if update.Content != nil {
		if err := prepareContent(update.Content); err != nil {
			return err
		}
	}
	if update.Tags != nil {
		tags := NormalizeTags(*update.Tags)
		update.Tags = &tags
	}
	if update.State != nil {
		if err := update.State.Validate(); err != nil {
			return rerrors.DataIntegrity("refusing to store corrupt scheduling state", err)
		}
	}
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	defer s.itemCache.Invalidate(ctx, itemCacheKey(update.ID))
	return s.driver.UpdateItem(ctx, update)
}

// DeleteItem removes an item together with its tags and review logs.
func (s *Store) DeleteItem(ctx context.Context, delete *DeleteItem) error {
	defer s.itemCache.Invalidate(ctx, itemCacheKey(delete.ID))
	return s.driver.DeleteItem(ctx, delete)
}

// RecordReview persists the state produced by a review and logs the outcome.
func (s *Store) RecordReview(ctx context.Context, record *RecordReview) (*ReviewLog, error) {
	if err := record.State.Validate(); err != nil {
		return nil, rerrors.DataIntegrity("refusing to store corrupt scheduling state", err)
	}
	if !record.Rating.Valid() {
		return nil, &sm2.InvalidRatingError{Rating: record.Rating}
	}
	record.ReviewedOn = sm2.Day(record.ReviewedOn)
	if record.UpdatedTs == 0 {
		record.UpdatedTs = time.Now().Unix()
	}
	defer s.itemCache.Invalidate(ctx, itemCacheKey(record.ItemID))
	return s.driver.RecordReview(ctx, record)
}

func prepareContent(content Content) error {
	if content == nil {
		return rerrors.InvalidArgument("item content is required")
	}
	if mcq, ok := content.(*MCQContent); ok {
		mcq.Normalize()
	}
	if err := content.Validate(); err != nil {
		return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "invalid "+string(content.Kind()))
	}
	return nil
}

func itemCacheKey(id int32) string {
	return "item:" + strconv.FormatInt(int64(id), 10)
}

func cloneItem(item *Item) *Item {
	clone := *item
	clone.Tags = append([]string(nil), item.Tags...)
	clone.State = item.State.Clone()
	clone.Content = cloneContent(item.Content)
	return &clone
}

func cloneContent(content Content) Content {
	switch c := content.(type) {
	case *QuestionContent:
		clone := *c
		return &clone
	case *ChallengeContent:
		clone := *c
		return &clone
	case *MCQContent:
		clone := *c
		clone.Options = append([]string(nil), c.Options...)
		if c.Explanations != nil {
			clone.Explanations = make(map[string]string, len(c.Explanations))
			for letter, text := range c.Explanations {
				clone.Explanations[letter] = text
			}
		}
		return &clone
	}
	return content
}
