package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(5, 1, 10))
	assert.NoError(t, ValidateIntRange(1, 1, 10))
	assert.NoError(t, ValidateIntRange(10, 1, 10))
	assert.Error(t, ValidateIntRange(0, 1, 10))
	assert.Error(t, ValidateIntRange(11, 1, 10))
	assert.ErrorContains(t, ValidateIntRange(5, 10, 1), "invalid range")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort(6667))
	assert.NoError(t, ValidatePort(65535))
	assert.Error(t, ValidatePort(0))
	assert.ErrorContains(t, ValidatePort(65536), "invalid port")
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration(time.Minute, time.Second, time.Hour))
	assert.Error(t, ValidateDuration(time.Millisecond, time.Second, time.Hour))
	assert.Error(t, ValidateDuration(2*time.Hour, time.Second, time.Hour))
	assert.Error(t, ValidateDuration(time.Minute, time.Hour, time.Second))
}

func TestValidatePositiveDuration(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Nanosecond))
	assert.Error(t, ValidatePositiveDuration(0))
	assert.ErrorContains(t, ValidatePositiveDuration(-time.Second), "must be positive")
}

func TestValidateNonNegativeDuration(t *testing.T) {
	assert.NoError(t, ValidateNonNegativeDuration(0))
	assert.NoError(t, ValidateNonNegativeDuration(time.Second))
	assert.Error(t, ValidateNonNegativeDuration(-time.Second))
}

func TestValidateWholeSeconds(t *testing.T) {
	assert.NoError(t, ValidateWholeSeconds(300*time.Second))
	assert.Error(t, ValidateWholeSeconds(1500*time.Millisecond))
	assert.Error(t, ValidateWholeSeconds(0))
}

func TestValidatePositiveFloat(t *testing.T) {
	assert.NoError(t, ValidatePositiveFloat(0.1))
	assert.Error(t, ValidatePositiveFloat(0))
	assert.Error(t, ValidatePositiveFloat(-2))
}

func TestValidateFeedURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "https://example.com/rss", wantErr: false},
		{url: "http://localhost:8080/feed.xml", wantErr: false},
		{url: "ftp://example.com/rss", wantErr: true},
		{url: "example.com/rss", wantErr: true},
		{url: "https://", wantErr: true},
		{url: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateFeedURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
