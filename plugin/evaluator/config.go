// Package evaluator grades coding challenge solutions with an OpenAI-compatible chat model.
package evaluator

import (
	"time"

	"github.com/hrygo/retain/internal/profile"
)

// BaseURLs maps the endpoint aliases to Z.AI API roots.
var BaseURLs = map[string]string{
	"default": "https://api.z.ai/api/paas/v4",
	"coding":  "https://api.z.ai/api/coding/paas/v4",
}

// Config holds the evaluator configuration.
type Config struct {
	APIKey string
	// BaseURL is an alias from BaseURLs or a full URL.
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	// RequestsPerMinute paces API calls. Zero disables pacing.
	RequestsPerMinute int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "default",
		Model:             "glm-4.7",
		Temperature:       0.7,
		Timeout:           60 * time.Second,
		RequestsPerMinute: 20,
	}
}

// ConfigFromProfile builds the configuration from the runtime profile.
func ConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	cfg.APIKey = p.EvaluatorAPIKey
	if p.EvaluatorBaseURL != "" {
		cfg.BaseURL = p.EvaluatorBaseURL
	}
	if p.EvaluatorModel != "" {
		cfg.Model = p.EvaluatorModel
	}
	if p.EvaluatorTimeout > 0 {
		cfg.Timeout = p.EvaluatorTimeout
	}
	return cfg
}

// ResolveBaseURL expands an alias. Anything else is taken as a URL.
func ResolveBaseURL(baseURL string) string {
	if url, ok := BaseURLs[baseURL]; ok {
		return url
	}
	if baseURL == "" {
		return BaseURLs["default"]
	}
	return baseURL
}
