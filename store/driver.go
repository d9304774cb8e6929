package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Item model related methods.
	CreateItem(ctx context.Context, create *Item) (*Item, error)
	ListItems(ctx context.Context, find *FindItem) ([]*Item, error)
	UpdateItem(ctx context.Context, update *UpdateItem) error
	DeleteItem(ctx context.Context, delete *DeleteItem) error

	// ReviewLog model related methods.
	RecordReview(ctx context.Context, record *RecordReview) (*ReviewLog, error)
	ListReviewLogs(ctx context.Context, find *FindReviewLog) ([]*ReviewLog, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)
}
