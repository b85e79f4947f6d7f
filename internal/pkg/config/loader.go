// Package config provides environment loaders and validators shared by the
// bot's configuration layer.
//
// Optional settings are fail-open: a malformed value falls back to the
// default and produces a warning. Required settings go through RequireEnv
// and friends, which return an error instead.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingEnv is returned when a required environment variable is unset.
var ErrMissingEnv = errors.New("required environment variable not set")

// Result is the outcome of loading one optional value.
//
// FallbackApplied is true when the environment held a value that failed to
// parse or validate and Value is the default instead. Warnings carries one
// message per fallback.
//
// Example:
//
//	result := LoadEnvInt("IRC_PORT", 6667, ValidatePort)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("configuration fallback", slog.String("warning", warning))
//	    }
//	}
//	port := result.Value
type Result[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

func fallback[T any](envKey, raw string, reason any, defaultValue T) Result[T] {
	return Result[T]{
		Value: defaultValue,
		Warnings: []string{fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, raw, reason, defaultValue,
		)},
		FallbackApplied: true,
	}
}

// load reads envKey, parses and validates it. Unset or empty values yield
// the default without a warning.
func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	v, err := parse(raw)
	if err != nil {
		return fallback(envKey, raw, err, defaultValue)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return Result[T]{Value: v}
}

// LoadEnvString returns the value of envKey, or defaultValue when unset.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string and validates it, falling back to
// defaultValue on validation failure.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	return load(envKey, defaultValue, parseInt, validator)
}

// LoadEnvFloat loads a floating point number.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) Result[float64] {
	return load(envKey, defaultValue, parseFloat, validator)
}

// LoadEnvBool loads a boolean. Accepted forms are those of strconv.ParseBool.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	return load(envKey, defaultValue, parseBool, nil)
}

// LoadEnvDuration loads a duration. Both Go duration strings ("90s", "5m")
// and bare integers, read as seconds, are accepted.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return load(envKey, defaultValue, ParseSeconds, validator)
}

// RequireEnv returns the trimmed value of envKey or ErrMissingEnv.
func RequireEnv(envKey string) (string, error) {
	value := strings.TrimSpace(os.Getenv(envKey))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, envKey)
	}
	return value, nil
}

// RequireEnvDuration reads a required duration and validates it.
func RequireEnvDuration(envKey string, validator func(time.Duration) error) (time.Duration, error) {
	raw, err := RequireEnv(envKey)
	if err != nil {
		return 0, err
	}
	d, err := ParseSeconds(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s='%s': %w", envKey, raw, err)
	}
	if validator != nil {
		if err := validator(d); err != nil {
			return 0, fmt.Errorf("invalid %s='%s': %w", envKey, raw, err)
		}
	}
	return d, nil
}

// ParseSeconds parses a bare integer as seconds, or a Go duration string.
func ParseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format")
	}
	return d, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format")
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number format")
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
	}
	return v, nil
}
