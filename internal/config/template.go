package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Template is written when no configuration file exists. base_path is left
// empty on purpose so that Validate rejects it until the user fills it in.
func Template() Config {
	return Config{
		Addr:     DefaultAddr,
		BasePath: "",
		LogLevel: "info",
	}
}

// WriteTemplate creates path (and its directory) holding the template,
// encoded by extension. An existing file is never overwritten.
func WriteTemplate(path string) error { return Write(path, Template()) }

// Write creates path holding cfg, encoded by extension. It fails with
// fs.ErrExist when path is already present.
func Write(path string, cfg Config) error {
	var (
		b   []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(cfg)
	case ".json":
		b, err = json.MarshalIndent(cfg, "", "  ")
	case ".toml":
		b, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadOrCreate loads path; when the file does not exist a template is written
// and the load retried once. created reports whether the template was written.
// The returned configuration is validated.
func LoadOrCreate(path string) (cfg Config, created bool, err error) {
	cfg, err = Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		if werr := WriteTemplate(path); werr != nil && !errors.Is(werr, fs.ErrExist) {
			return cfg, false, fmt.Errorf("create config template: %w", werr)
		}
		created = true
		cfg, err = Load(path)
	}
	if err != nil {
		return cfg, created, err
	}
	cfg, err = Validate(cfg)
	return cfg, created, err
}
