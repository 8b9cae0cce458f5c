package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // the config field path (e.g., "gates.requirements")
	Value   any    // the invalid value
	Message string // human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
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

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGates()...)
	errors = append(errors, c.validateMerge()...)
	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateRepair()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateGates() []ValidationError {
	var errors []ValidationError

	gates := []struct {
		field string
		value string
	}{
		{"gates.requirements", c.Gates.Requirements},
		{"gates.plan", c.Gates.Plan},
		{"gates.merge", c.Gates.Merge},
	}
	for _, g := range gates {
		if !slices.Contains(ValidGateModes(), g.value) {
			errors = append(errors, ValidationError{
				Field:   g.field,
				Value:   g.value,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidGateModes(), ", ")),
			})
		}
	}

	return errors
}

func (c *Config) validateMerge() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Merge.BaseBranch) == "" {
		errors = append(errors, ValidationError{
			Field:   "merge.base_branch",
			Value:   c.Merge.BaseBranch,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Agent.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "agent.command",
			Value:   c.Agent.Command,
			Message: "must not be empty",
		})
	}
	if c.Agent.MaxTurns < 0 {
		errors = append(errors, ValidationError{
			Field:   "agent.max_turns",
			Value:   c.Agent.MaxTurns,
			Message: "must be >= 0 (0 means agent default)",
		})
	}
	if c.Agent.RepairMaxTurns < 1 {
		errors = append(errors, ValidationError{
			Field:   "agent.repair_max_turns",
			Value:   c.Agent.RepairMaxTurns,
			Message: "must be >= 1",
		})
	}
	if c.Agent.CIWatchTimeoutMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "agent.ci_watch_timeout_minutes",
			Value:   c.Agent.CIWatchTimeoutMinutes,
			Message: "must be >= 1",
		})
	}

	return errors
}

func (c *Config) validateRepair() []ValidationError {
	var errors []ValidationError

	if c.Repair.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "repair.max_attempts",
			Value:   c.Repair.MaxAttempts,
			Message: "must be >= 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
