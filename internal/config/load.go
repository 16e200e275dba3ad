package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/scx-tools/pkg/encoding"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config among the working
// directory and the user config directory.
func findConfigFile() string {
	candidates := []string{
		"scxtool.yaml",
		".scxtool.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "SCXTools")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "SCXTools")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "scx-tools")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "scx-tools")
	}
}

// loadFromFile merges a YAML file over cfg. Unknown keys are rejected so a
// misspelled option does not silently fall back to its default. An empty
// file leaves cfg unchanged.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// normalize canonicalizes values that may be written loosely in a config
// file or on the command line.
func (c *Config) normalize() {
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	c.Batch.Extensions = normalizeExtensions(c.Batch.Extensions)

	c.Textures.ANSICodePage = strings.TrimSpace(c.Textures.ANSICodePage)
	if c.Textures.ANSICodePage == "" {
		c.Textures.ANSICodePage = encoding.DefaultANSI
	}
}

// normalizeExtensions lowercases extensions, adds the leading dot and drops
// blanks and duplicates. An empty result falls back to the defaults.
func normalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), defaultExtensions...)
	}
	return out
}
