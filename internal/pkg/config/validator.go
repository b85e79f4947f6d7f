package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidateIntRange checks min <= value <= max.
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) must be <= max (%d)", min, max)
	}
	if value < min || value > max {
		return fmt.Errorf("value %d out of range [%d, %d]", value, min, max)
	}
	return nil
}

// ValidatePort accepts TCP ports 1-65535.
func ValidatePort(port int) error {
	if err := ValidateIntRange(port, 1, 65535); err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	return nil
}

// ValidateDuration checks min <= duration <= max.
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) must be <= max (%v)", min, max)
	}
	if duration < min || duration > max {
		return fmt.Errorf("duration %v out of range [%v, %v]", duration, min, max)
	}
	return nil
}

// ValidatePositiveDuration rejects zero and negative durations.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}
	return nil
}

// ValidateNonNegativeDuration accepts zero, which callers read as "disabled".
func ValidateNonNegativeDuration(duration time.Duration) error {
	if duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", duration)
	}
	return nil
}

// ValidateWholeSeconds requires a positive duration with no sub-second part.
func ValidateWholeSeconds(duration time.Duration) error {
	if err := ValidatePositiveDuration(duration); err != nil {
		return err
	}
	if duration%time.Second != 0 {
		return fmt.Errorf("duration must be a whole number of seconds, got %v", duration)
	}
	return nil
}

// ValidatePositiveFloat rejects zero, negative and NaN values.
func ValidatePositiveFloat(v float64) error {
	if !(v > 0) {
		return fmt.Errorf("value must be positive, got %v", v)
	}
	return nil
}

// ValidateFeedURL accepts absolute http and https URLs with a host.
func ValidateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid feed url '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid feed url '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid feed url '%s': missing host", raw)
	}
	return nil
}
