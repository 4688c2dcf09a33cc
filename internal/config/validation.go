package config

import (
	"fmt"
	"strings"

	"github.com/gnolang/asymptote/internal/probability"
	"github.com/gnolang/asymptote/internal/types"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for valid values.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if _, err := types.ParseMode(c.Mode); err != nil {
		errs = append(errs, ValidationError{Field: "mode", Message: err.Error()})
	}
	if _, err := types.ParseMethod(c.PreferredMethod); err != nil {
		errs = append(errs, ValidationError{Field: "preferred_method", Message: err.Error()})
	}
	if _, err := probability.Parse(c.Probability.Model, c.Probability.Symbols); err != nil {
		errs = append(errs, ValidationError{Field: "probability.model", Message: err.Error()})
	}
	if strings.TrimSpace(c.SizeVariable) == "" {
		errs = append(errs, ValidationError{Field: "size_variable", Message: "must not be empty"})
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}

	if c.Cache.MaxAge < 0 {
		errs = append(errs, ValidationError{Field: "cache.max_age", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
