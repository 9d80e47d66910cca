package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/peterkuimelis/barnacle/internal/log"
	"gopkg.in/yaml.v3"
)

// ErrCorrupt marks a configuration file that exists but cannot be used.
var ErrCorrupt = errors.New("config is corrupt")

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Marshal encodes cfg in the format implied by path: YAML for .yaml/.yml,
// indented JSON otherwise.
func Marshal(path string, cfg Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes and validates a configuration.
func Unmarshal(path string, data []byte) (Config, error) {
	var cfg Config
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return cfg, nil
}

// Read loads the configuration at path without any recovery.
func Read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Unmarshal(path, data)
}

// Save writes cfg to path, replacing any previous contents.
func Save(path string, cfg Config) error {
	data, err := Marshal(path, cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load reads the configuration at path. A missing or corrupt file is
// replaced by the defaults, which are returned; an error is returned only
// when the defaults cannot be written.
func Load(path string, logger log.EventLogger) (Config, error) {
	cfg, err := Read(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrCorrupt) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg = Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, err
	}
	if logger != nil {
		logger.Log(log.NewConfigRegeneratedEvent(path, err))
	}
	return cfg, nil
}

// Store holds the active configuration for long-running servers. Each
// resolution takes one Snapshot, so a Reload never changes tables under a
// card that is being built.
type Store struct {
	path   string
	logger log.EventLogger
	cur    atomic.Pointer[Config]
}

// NewStore loads path (regenerating defaults if needed) into a Store.
func NewStore(path string, logger log.EventLogger) (*Store, error) {
	if logger == nil {
		logger = log.Discard{}
	}
	cfg, err := Load(path, logger)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, logger: logger}
	s.cur.Store(&cfg)
	return s, nil
}

// Path returns the file the store reads from.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the active configuration.
func (s *Store) Snapshot() Config {
	return *s.cur.Load()
}

// Reload re-reads the file. On failure the active configuration is kept
// and the file is left as the designer wrote it.
func (s *Store) Reload() error {
	cfg, err := Read(s.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	s.cur.Store(&cfg)
	s.logger.Log(log.NewConfigReloadedEvent(s.path))
	return nil
}
