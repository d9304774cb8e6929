package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/retain/internal/profile"
	"github.com/hrygo/retain/store"
	"github.com/hrygo/retain/store/db"
)

// NewTestingStore opens a migrated store for the driver named by DRIVER (sqlite by default).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	return NewTestingStoreWithMode(ctx, t, "prod")
}

// NewTestingStoreWithMode opens a migrated store in the given profile mode.
func NewTestingStoreWithMode(ctx context.Context, t *testing.T, mode string) *store.Store {
	p := getTestingProfile(t, mode)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return s
}

func getTestingProfile(t *testing.T, mode string) *profile.Profile {
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:            mode,
		Driver:          driver,
		Data:            t.TempDir(),
		Version:         "test",
		MaxDailyReviews: 20,
	}
	switch driver {
	case "sqlite":
		p.DSN = filepath.Join(p.Data, fmt.Sprintf("retain_%s.db", mode))
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	}
	return p
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
