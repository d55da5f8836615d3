package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"koboldswitch/internal/common/fsutil"
)

// ValidationError reports an unusable configuration. The service cannot start with one.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// IsValidation reports whether err is a configuration validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate expands "~" in paths, fills the listen address, and checks the
// remaining fields. base_path must be absolute.
func Validate(cfg Config) (Config, error) {
	var problems []string

	bp, err := fsutil.ExpandHome(strings.TrimSpace(cfg.BasePath))
	if err != nil {
		problems = append(problems, err.Error())
	}
	switch {
	case bp == "":
		problems = append(problems, "base_path is required")
	case !filepath.IsAbs(bp):
		problems = append(problems, fmt.Sprintf("base_path must be absolute, got %q", bp))
	default:
		cfg.BasePath = filepath.Clean(bp)
	}

	if cfg.Binary != "" {
		if b, err := fsutil.ExpandHome(cfg.Binary); err == nil {
			cfg.Binary = b
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.StatusURL != "" {
		if u, err := url.Parse(cfg.StatusURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("status_url must be an http(s) URL, got %q", cfg.StatusURL))
		}
	}
	if cfg.ContextSizeMin < 0 || cfg.ContextSizeMax < 0 {
		problems = append(problems, "context size bounds must not be negative")
	} else if cfg.ContextSizeMin > 0 && cfg.ContextSizeMax > 0 && cfg.ContextSizeMin > cfg.ContextSizeMax {
		problems = append(problems, "context_size_min exceeds context_size_max")
	}
	for _, d := range []struct {
		name string
		v    int
	}{
		{"poll_interval_ms", cfg.PollIntervalMS},
		{"status_timeout_ms", cfg.StatusTimeoutMS},
		{"startup_timeout_ms", cfg.StartupTimeoutMS},
		{"stop_timeout_ms", cfg.StopTimeoutMS},
		{"kill_grace_ms", cfg.KillGraceMS},
	} {
		if d.v < 0 {
			problems = append(problems, d.name+" must not be negative")
		}
	}
	if cfg.MaxBodyBytes < 0 {
		problems = append(problems, "max_body_bytes must not be negative")
	}
	for _, kv := range cfg.Env {
		if !strings.Contains(kv, "=") {
			problems = append(problems, fmt.Sprintf("env entry %q is not KEY=VALUE", kv))
		}
	}

	if len(problems) > 0 {
		return cfg, &ValidationError{Problems: problems}
	}
	return cfg, nil
}
