package config

import (
	"fmt"

	"github.com/jfenske/sonarfix/internal/ai"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedProviders is the set of valid AI provider names.
var recognizedProviders = map[string]bool{
	"mistral": true,
	"mock":    true,
}

// recognizedHosts is the set of valid repository host kinds.
var recognizedHosts = map[string]bool{
	"gitlab": true,
	"github": true,
}

// Validate checks a resolved Config for errors. It returns a slice of all
// validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.SonarURL == "" {
		errs = append(errs, ValidationError{Field: "sonar-url", Message: "is required"})
	}
	if cfg.SonarProject == "" {
		errs = append(errs, ValidationError{Field: "sonar-project", Message: "is required"})
	}

	if !recognizedProviders[cfg.Provider] {
		errs = append(errs, ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		})
	}
	if cfg.Provider == "mistral" && cfg.AIAPIKey == "" {
		errs = append(errs, ValidationError{Field: "ai-api-key", Message: "is required for provider mistral"})
	}
	// Reject unpriced models up front rather than failing every finding
	// at cost time.
	if cfg.Model != "" && !ai.KnownModel(cfg.Model) {
		errs = append(errs, ValidationError{
			Field:   "model",
			Message: fmt.Sprintf("model %q has no rate entry", cfg.Model),
		})
	}

	if !recognizedHosts[cfg.HostKind] {
		errs = append(errs, ValidationError{
			Field:   "host",
			Message: fmt.Sprintf("unknown host kind %q", cfg.HostKind),
		})
	}

	// Publishing needs host credentials; a dry run touches nothing remote.
	if !cfg.DryRun {
		if cfg.HostURL == "" && cfg.HostKind == "gitlab" {
			errs = append(errs, ValidationError{Field: "host-url", Message: "is required"})
		}
		if cfg.HostToken == "" {
			errs = append(errs, ValidationError{Field: "host-token", Message: "is required"})
		}
		if cfg.HostProject == "" {
			errs = append(errs, ValidationError{Field: "host-project", Message: "is required"})
		}
	}

	if cfg.BatchSize <= 0 {
		errs = append(errs, ValidationError{Field: "batch-size", Message: "must be positive"})
	}
	if cfg.Limit <= 0 {
		errs = append(errs, ValidationError{Field: "limit", Message: "must be positive"})
	}

	return errs
}
