package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/retain/internal/timezone"
)

// Profile is the configuration the CLI starts with.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where retain stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of retain
	Version string

	// Review settings
	MaxDailyReviews int    // RETAIN_MAX_DAILY_REVIEWS (default: 20)
	Timezone        string // RETAIN_TIMEZONE, IANA name deciding the review date (default: Local)

	// Challenge evaluator configuration
	EvaluatorEnabled bool          // RETAIN_EVALUATOR_ENABLED (legacy: ZAI_ENABLED)
	EvaluatorAPIKey  string        // RETAIN_EVALUATOR_API_KEY (legacy: ZAI_API_KEY)
	EvaluatorBaseURL string        // RETAIN_EVALUATOR_BASE_URL (legacy: ZAI_BASE_URL, default: default)
	EvaluatorModel   string        // RETAIN_EVALUATOR_MODEL (default: glm-4.7)
	EvaluatorTimeout time.Duration // RETAIN_EVALUATOR_TIMEOUT seconds (default: 60)
}

const (
	defaultMaxDailyReviews  = 20
	defaultEvaluatorModel   = "glm-4.7"
	defaultEvaluatorTimeout = 60 * time.Second
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEvaluatorEnabled returns true if the evaluator is switched on and has credentials.
func (p *Profile) IsEvaluatorEnabled() bool {
	return p.EvaluatorEnabled && p.EvaluatorAPIKey != ""
}

// FromEnv loads configuration from environment variables.
// Supports both RETAIN_* and the legacy ZAI_* names for the evaluator.
func (p *Profile) FromEnv() {
	getEnvWithFallback := func(newKey, legacyKey string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		if legacyKey == "" {
			return ""
		}
		return os.Getenv(legacyKey)
	}

	getEnvWithDefault := func(newKey, legacyKey, defaultValue string) string {
		if val := getEnvWithFallback(newKey, legacyKey); val != "" {
			return val
		}
		return defaultValue
	}

	getIntEnv := func(key string, defaultValue int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return defaultValue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			slog.Warn("ignoring invalid integer setting", slog.String("key", key), slog.String("value", raw))
			return defaultValue
		}
		return v
	}

	p.MaxDailyReviews = getIntEnv("RETAIN_MAX_DAILY_REVIEWS", defaultMaxDailyReviews)
	p.Timezone = getEnvWithDefault("RETAIN_TIMEZONE", "", timezone.TimezoneLocal)

	p.EvaluatorEnabled = strings.EqualFold(getEnvWithFallback("RETAIN_EVALUATOR_ENABLED", "ZAI_ENABLED"), "true")
	p.EvaluatorAPIKey = getEnvWithFallback("RETAIN_EVALUATOR_API_KEY", "ZAI_API_KEY")
	p.EvaluatorBaseURL = getEnvWithDefault("RETAIN_EVALUATOR_BASE_URL", "ZAI_BASE_URL", "default")
	p.EvaluatorModel = getEnvWithDefault("RETAIN_EVALUATOR_MODEL", "", defaultEvaluatorModel)
	p.EvaluatorTimeout = time.Duration(getIntEnv("RETAIN_EVALUATOR_TIMEOUT", int(defaultEvaluatorTimeout/time.Second))) * time.Second
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "prod"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.MaxDailyReviews <= 0 {
		p.MaxDailyReviews = defaultMaxDailyReviews
	}
	if p.EvaluatorModel == "" {
		p.EvaluatorModel = defaultEvaluatorModel
	}
	if p.EvaluatorTimeout <= 0 {
		p.EvaluatorTimeout = defaultEvaluatorTimeout
	}
	if p.Timezone == "" {
		p.Timezone = timezone.TimezoneLocal
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("unknown timezone %q", p.Timezone)
	}

	if p.Data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to resolve home directory")
		}
		p.Data = filepath.Join(home, ".retain")
	}
	if _, err := os.Stat(p.Data); os.IsNotExist(err) {
		if err := os.MkdirAll(p.Data, 0o770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("retain_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
