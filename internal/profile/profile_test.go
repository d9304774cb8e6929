package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"RETAIN_MAX_DAILY_REVIEWS",
	"RETAIN_EVALUATOR_ENABLED", "ZAI_ENABLED",
	"RETAIN_EVALUATOR_API_KEY", "ZAI_API_KEY",
	"RETAIN_EVALUATOR_BASE_URL", "ZAI_BASE_URL",
	"RETAIN_EVALUATOR_MODEL",
	"RETAIN_EVALUATOR_TIMEOUT",
	"RETAIN_TIMEZONE",
}

func clearEnv(t *testing.T) {
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 20, p.MaxDailyReviews)
	assert.False(t, p.EvaluatorEnabled)
	assert.Equal(t, "", p.EvaluatorAPIKey)
	assert.Equal(t, "default", p.EvaluatorBaseURL)
	assert.Equal(t, "glm-4.7", p.EvaluatorModel)
	assert.Equal(t, 60*time.Second, p.EvaluatorTimeout)
	assert.Equal(t, "Local", p.Timezone)
	assert.False(t, p.IsEvaluatorEnabled())
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, p *Profile)
	}{
		{
			name: "new names",
			env: map[string]string{
				"RETAIN_EVALUATOR_ENABLED":  "true",
				"RETAIN_EVALUATOR_API_KEY":  "key-1",
				"RETAIN_EVALUATOR_BASE_URL": "coding",
				"RETAIN_EVALUATOR_TIMEOUT":  "15",
				"RETAIN_MAX_DAILY_REVIEWS":  "50",
				"RETAIN_TIMEZONE":           "Asia/Tokyo",
			},
			check: func(t *testing.T, p *Profile) {
				assert.True(t, p.IsEvaluatorEnabled())
				assert.Equal(t, "key-1", p.EvaluatorAPIKey)
				assert.Equal(t, "coding", p.EvaluatorBaseURL)
				assert.Equal(t, 15*time.Second, p.EvaluatorTimeout)
				assert.Equal(t, 50, p.MaxDailyReviews)
				assert.Equal(t, "Asia/Tokyo", p.Timezone)
			},
		},
		{
			name: "legacy names",
			env: map[string]string{
				"ZAI_ENABLED":  "TRUE",
				"ZAI_API_KEY":  "legacy",
				"ZAI_BASE_URL": "https://example.test/v4",
			},
			check: func(t *testing.T, p *Profile) {
				assert.True(t, p.EvaluatorEnabled)
				assert.Equal(t, "legacy", p.EvaluatorAPIKey)
				assert.Equal(t, "https://example.test/v4", p.EvaluatorBaseURL)
			},
		},
		{
			name: "new name wins over legacy",
			env: map[string]string{
				"RETAIN_EVALUATOR_API_KEY": "new",
				"ZAI_API_KEY":              "old",
			},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "new", p.EvaluatorAPIKey)
			},
		},
		{
			name: "invalid integer falls back",
			env:  map[string]string{"RETAIN_MAX_DAILY_REVIEWS": "many"},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, 20, p.MaxDailyReviews)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			p := &Profile{}
			p.FromEnv()
			tt.check(t, p)
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "bogus", Data: filepath.Join(dir, "nested")}

	require.NoError(t, p.Validate())
	assert.Equal(t, "prod", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, filepath.Join(dir, "nested", "retain_prod.db"), p.DSN)
	assert.Equal(t, 20, p.MaxDailyReviews)
	assert.False(t, p.IsDev())
}

func TestValidate_KeepsExplicitDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "postgres", Data: t.TempDir(), DSN: "postgres://localhost/retain"}

	require.NoError(t, p.Validate())
	assert.Equal(t, "postgres://localhost/retain", p.DSN)
	assert.True(t, p.IsDev())
}

func TestValidate_Timezone(t *testing.T) {
	p := &Profile{Data: t.TempDir()}
	require.NoError(t, p.Validate())
	assert.Equal(t, "Local", p.Timezone)

	p = &Profile{Data: t.TempDir(), Timezone: "Mars/Olympus_Mons"}
	require.Error(t, p.Validate())
}
