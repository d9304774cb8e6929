package store

import (
	"context"
)

const (
	// SystemSettingSchemaVersionName holds the applied schema version.
	SystemSettingSchemaVersionName = "schema_version"
)

// SystemSetting is a named value stored alongside the items.
type SystemSetting struct {
	Name        string
	Value       string
	Description string
}

// FindSystemSetting is the find condition for system settings.
type FindSystemSetting struct {
	Name *string
}

func (s *Store) UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error) {
	return s.driver.UpsertSystemSetting(ctx, upsert)
}

func (s *Store) ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error) {
	return s.driver.ListSystemSettings(ctx, find)
}

// GetSystemSetting returns the named setting, or nil when it is not set.
func (s *Store) GetSystemSetting(ctx context.Context, name string) (*SystemSetting, error) {
	list, err := s.ListSystemSettings(ctx, &FindSystemSetting{Name: &name})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
