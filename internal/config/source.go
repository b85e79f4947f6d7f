package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"

	"ircfeed/internal/domain/entity"
	pkgconfig "ircfeed/internal/pkg/config"
)

// Source produces a fresh BotConfig on every call. The dispatcher calls
// Load again on !rehash.
type Source interface {
	Load() (*BotConfig, error)
}

// EnvSource reads .env files into the process environment and then builds
// a BotConfig from it. The first Load keeps variables that are already set;
// later loads overwrite them so edited files take effect on rehash.
type EnvSource struct {
	files   []string
	logger  *slog.Logger
	metrics *pkgconfig.ConfigMetrics

	mu     sync.Mutex
	loaded bool
}

// NewEnvSource creates a source for the given .env files. Files that do
// not exist are skipped. With no files, ".env" is used.
func NewEnvSource(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics, files ...string) *EnvSource {
	if len(files) == 0 {
		files = []string{".env"}
	}
	return &EnvSource{files: files, logger: logger, metrics: metrics}
}

// Load implements Source.
func (s *EnvSource) Load() (*BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var present []string
	for _, f := range s.files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: %s: %w", entity.ErrConfigLoad, f, err)
		}
		present = append(present, f)
	}

	if len(present) > 0 {
		read := godotenv.Load
		if s.loaded {
			read = godotenv.Overload
		}
		if err := read(present...); err != nil {
			return nil, fmt.Errorf("%w: read env files: %w", entity.ErrConfigLoad, err)
		}
	}
	s.loaded = true

	return LoadBotConfig(s.logger, s.metrics)
}
