package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charliek/eventlook/internal/domain"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors
func Validate(config *Config) error {
	var errs []string

	if strings.TrimSpace(config.LogRoot) == "" {
		errs = append(errs, "log_root: must not be empty")
	}

	if d, err := time.ParseDuration(config.Read.Range); err != nil {
		errs = append(errs, fmt.Sprintf("read.range: %v", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Sprintf("read.range: must be positive, got %s", config.Read.Range))
	}
	if config.Read.MaxEvents < 0 {
		errs = append(errs, fmt.Sprintf("read.max_events: must be non-negative, got %d", config.Read.MaxEvents))
	}

	if config.API.Port < 0 || config.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port: must be between 0 and 65535, got %d", config.API.Port))
	}

	if config.Live.BufferSize < 0 {
		errs = append(errs, "live.buffer_size: must be non-negative")
	}
	if config.Live.SubscriptionBuffer < 0 {
		errs = append(errs, "live.subscription_buffer: must be non-negative")
	}
	if config.Live.WatchBuffer < 0 {
		errs = append(errs, "live.watch_buffer: must be non-negative")
	}

	if _, err := config.Filters.Filters(); err != nil {
		errs = append(errs, fmt.Sprintf("filters: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateChannelName checks that a channel name can be stored under the log root
func ValidateChannelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "channel", Message: "channel name cannot be empty"}
	}
	if strings.ContainsAny(name, "\n\r\\") || name == "." || name == ".." {
		return &ValidationError{Field: "channel", Message: "channel name cannot contain line breaks or backslashes"}
	}
	return nil
}
