package config

import (
	"fmt"
	"strings"

	"otpentry/internal/clipboard"
	"otpentry/internal/logging"
)

// MaxLength is the largest supported field length.
const MaxLength = 64

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
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
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ValidateConfig runs field checks first, then the JSON schema check.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors
	errs = append(errs, validateField(&c.Field)...)
	errs = append(errs, validateClipboard(&c.Clipboard)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateJournal(&c.Journal)...)
	if c.Version < 1 || c.Version > Version {
		errs = append(errs, *RangeError("version", 1, Version))
	}
	if len(errs) > 0 {
		return errs
	}
	return ValidateSchema(c)
}

func validateField(f *FieldConfig) ValidationErrors {
	var errs ValidationErrors
	if f.Length < 1 || f.Length > MaxLength {
		errs = append(errs, *RangeError("field.length", 1, MaxLength))
	}
	if f.BurstGapMs < 0 || f.BurstGapMs > 1000 {
		errs = append(errs, *RangeError("field.burst_gap_ms", 0, 1000))
	}
	if f.AbandonDelayMs < 0 || f.AbandonDelayMs > 10000 {
		errs = append(errs, *RangeError("field.abandon_delay_ms", 0, 10000))
	}
	return errs
}

func validateClipboard(c *ClipboardConfig) ValidationErrors {
	var errs ValidationErrors
	switch c.Source {
	case "", clipboard.SourceAuto, clipboard.SourceExec, clipboard.SourceKlipper, clipboard.SourceNone:
	default:
		errs = append(errs, ValidationError{
			Field:   "clipboard.source",
			Message: fmt.Sprintf("unknown source %q (want auto, exec, klipper or none)", c.Source),
		})
	}
	if c.PollIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "clipboard.poll_interval_ms", Message: "must not be negative"})
	}
	if c.ReadTimeoutMs < 0 {
		errs = append(errs, ValidationError{Field: "clipboard.read_timeout_ms", Message: "must not be negative"})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors
	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}
	if _, err := logging.ParseFormat(l.Format); err != nil {
		errs = append(errs, ValidationError{Field: "logging.format", Message: err.Error()})
	}
	switch strings.ToLower(l.Output) {
	case "stdout", "stderr", "discard":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, *RequiredFieldError("logging.file_path"))
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("unknown output %q", l.Output),
		})
	}
	if l.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_size_mb", Message: "must not be negative"})
	}
	return errs
}

func validateJournal(j *JournalConfig) ValidationErrors {
	if j.Enabled && j.Path == "" {
		return ValidationErrors{*RequiredFieldError("journal.path")}
	}
	return nil
}

// RequiredFieldError creates an error for a missing required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

// RangeError creates an error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be between %v and %v", min, max),
	}
}
