package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultAddr is the listen address used when the file leaves addr empty.
const DefaultAddr = "127.0.0.1:8080"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by controller or server defaults.
type Config struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	BasePath    string   `json:"base_path" yaml:"base_path" toml:"base_path"`
	Binary      string   `json:"binary,omitempty" yaml:"binary,omitempty" toml:"binary,omitempty"`
	DefaultArgs []string `json:"default_args,omitempty" yaml:"default_args,omitempty" toml:"default_args,omitempty"`
	Env         []string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	StatusURL   string   `json:"status_url,omitempty" yaml:"status_url,omitempty" toml:"status_url,omitempty"`

	ContextSizeMin int `json:"context_size_min,omitempty" yaml:"context_size_min,omitempty" toml:"context_size_min,omitempty"`
	ContextSizeMax int `json:"context_size_max,omitempty" yaml:"context_size_max,omitempty" toml:"context_size_max,omitempty"`

	PollIntervalMS   int `json:"poll_interval_ms,omitempty" yaml:"poll_interval_ms,omitempty" toml:"poll_interval_ms,omitempty"`
	StatusTimeoutMS  int `json:"status_timeout_ms,omitempty" yaml:"status_timeout_ms,omitempty" toml:"status_timeout_ms,omitempty"`
	StartupTimeoutMS int `json:"startup_timeout_ms,omitempty" yaml:"startup_timeout_ms,omitempty" toml:"startup_timeout_ms,omitempty"`
	StopTimeoutMS    int `json:"stop_timeout_ms,omitempty" yaml:"stop_timeout_ms,omitempty" toml:"stop_timeout_ms,omitempty"`
	KillGraceMS      int `json:"kill_grace_ms,omitempty" yaml:"kill_grace_ms,omitempty" toml:"kill_grace_ms,omitempty"`

	MaxBodyBytes int64    `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty" toml:"max_body_bytes,omitempty"`
	CORSEnabled  bool     `json:"cors_enabled,omitempty" yaml:"cors_enabled,omitempty" toml:"cors_enabled,omitempty"`
	CORSOrigins  []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty" toml:"cors_origins,omitempty"`
	LogLevel     string   `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c Config) PollInterval() time.Duration   { return ms(c.PollIntervalMS) }
func (c Config) StatusTimeout() time.Duration  { return ms(c.StatusTimeoutMS) }
func (c Config) StartupTimeout() time.Duration { return ms(c.StartupTimeoutMS) }
func (c Config) StopTimeout() time.Duration    { return ms(c.StopTimeoutMS) }
func (c Config) KillGrace() time.Duration      { return ms(c.KillGraceMS) }
