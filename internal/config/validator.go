package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config field path (e.g. "lock.ttl")
	Value   any    // the invalid value
	Message string // human-readable description
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the accepted log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidProviders returns the known provider names usable in role chains.
func ValidProviders() []string {
	return []string{"anthropic", "openai", "google"}
}

// Validate checks the Config and returns every validation error found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Database.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "database.path",
			Value:   c.Database.Path,
			Message: "must not be empty",
		})
	}

	if c.Lock.TTL <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.ttl",
			Value:   c.Lock.TTL,
			Message: "must be positive",
		})
	}
	if c.Lock.StaleAfter <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.stale_after",
			Value:   c.Lock.StaleAfter,
			Message: "must be positive",
		})
	}
	if c.Lock.AcquireWait <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.acquire_wait",
			Value:   c.Lock.AcquireWait,
			Message: "must be positive; blocking acquires are always bounded",
		})
	}
	if c.Lock.PollInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.poll_interval",
			Value:   c.Lock.PollInterval,
			Message: "must be positive",
		})
	}

	errs = append(errs, validateRole("roles.research", c.Roles.Research)...)
	errs = append(errs, validateRole("roles.strategist", c.Roles.Strategist)...)
	errs = append(errs, validateRole("roles.planner", c.Roles.Planner)...)

	if c.Briefing.NewsWindowDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "briefing.news_window_days",
			Value:   c.Briefing.NewsWindowDays,
			Message: "must not be negative",
		})
	}

	if c.Candidates.Max < 1 || c.Candidates.Max > 25 {
		errs = append(errs, ValidationError{
			Field:   "candidates.max",
			Value:   c.Candidates.Max,
			Message: "must be between 1 and 25",
		})
	}
	if c.Candidates.MaxNameLength < 1 {
		errs = append(errs, ValidationError{
			Field:   "candidates.max_name_length",
			Value:   c.Candidates.MaxNameLength,
			Message: "must be positive",
		})
	}
	if c.Candidates.MaxRationaleLength < 1 {
		errs = append(errs, ValidationError{
			Field:   "candidates.max_rationale_length",
			Value:   c.Candidates.MaxRationaleLength,
			Message: "must be positive",
		})
	}

	return errs
}

// validateRole checks one role's chain and timeout.
func validateRole(field string, role RoleConfig) []ValidationError {
	var errs []ValidationError

	if len(role.Chain) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".chain",
			Value:   role.Chain,
			Message: "must list at least one provider",
		})
	}
	for _, name := range role.Chain {
		if !slices.Contains(ValidProviders(), name) {
			errs = append(errs, ValidationError{
				Field:   field + ".chain",
				Value:   name,
				Message: fmt.Sprintf("unknown provider; must be one of: %s", strings.Join(ValidProviders(), ", ")),
			})
		}
	}
	if role.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".timeout",
			Value:   role.Timeout,
			Message: "must be positive",
		})
	}

	return errs
}
