package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/unifypy/unifypy/internal/logger"
)

// Map is a configuration tree: keys map to scalars, lists or nested maps.
type Map = map[string]any

// Reserved top-level keys holding per-platform sections. They are stripped
// from the global layer before merging so a platform subtree never leaks
// into the flat merged view.
const (
	KeyPlatforms        = "platforms"
	KeyPlatformSpecific = "platform_specific"
)

// ErrNotFound is returned when the configuration file does not exist.
var ErrNotFound = errors.New("configuration file not found")

// Options control configuration resolution.
type Options struct {
	// Path is the configuration file location. Empty means no file:
	// defaults plus overrides only.
	Path string
	// ProjectDir is the base directory for relative path validation.
	ProjectDir string
	// Platform selects which platform section participates in the merge.
	Platform string
	// Overrides are command-line supplied values, the highest-precedence
	// layer.
	Overrides Map
}

// Config is the resolved, merged build configuration.
type Config struct {
	path       string
	projectDir string
	platform   string
	raw        Map
	overrides  Map
	merged     Map
}

// LoadFile reads and parses a configuration file. JSON (with comments and
// trailing commas tolerated) is the primary format; files ending in .yaml
// or .yml are parsed as YAML.
func LoadFile(path string) (Map, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("read configuration: %w", err)
	}

	// Editors on Windows like to prepend a BOM.
	contents = bytes.TrimPrefix(contents, []byte("\xef\xbb\xbf"))

	raw := make(Map)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(contents, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(contents), &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	return raw, nil
}

// Defaults returns the built-in configuration layer.
func Defaults() Map {
	return Map{
		"name":           "UnknownApp",
		"version":        "1.0.0",
		"entry":          "main.py",
		"publisher":      "Unknown Publisher",
		"onefile":        false,
		"skip_installer": false,
		"pyinstaller": Map{
			"clean":     true,
			"noconfirm": true,
		},
	}
}

// Merge combines the four configuration layers with shallow overwrite per
// top-level key. Later arguments win. Pure: inputs are not mutated and the
// result is a fresh map.
func Merge(defaults, global, platform, overrides Map) Map {
	merged := make(Map)

	for _, layer := range []Map{defaults, global, platform, overrides} {
		for key, value := range layer {
			merged[key] = value
		}
	}

	return merged
}

// Resolve loads, merges and validates a configuration. Validation errors
// are fatal; warnings are logged and resolution proceeds.
func Resolve(ctx context.Context, opts *Options) (*Config, error) {
	raw := make(Map)

	if opts.Path != "" {
		loaded, err := LoadFile(opts.Path)
		if err != nil {
			return nil, err
		}

		raw = loaded
	}

	cfg := &Config{
		path:       opts.Path,
		projectDir: opts.ProjectDir,
		platform:   opts.Platform,
		raw:        raw,
		overrides:  opts.Overrides,
	}
	cfg.remerge()

	errs, warnings := cfg.Validate()
	for _, w := range warnings {
		logger.Warn(ctx, w)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return cfg, nil
}

// remerge rebuilds the flat merged view from the current raw document and
// overrides.
func (c *Config) remerge() {
	global := make(Map, len(c.raw))

	for key, value := range c.raw {
		if key == KeyPlatforms || key == KeyPlatformSpecific {
			continue
		}

		global[key] = value
	}

	c.merged = Merge(Defaults(), global, c.PlatformView(c.platform), c.overrides)
}

// Validate checks the merged configuration. It returns hard errors (missing
// required keys, missing entry file) and advisory warnings (missing
// optional resources, keys shadowed by the platform section).
func (c *Config) Validate() (errs []error, warnings []string) {
	for _, key := range []string{"name", "entry"} {
		if c.GetString(key, "") == "" {
			errs = append(errs, fmt.Errorf("missing required configuration key: %s", key))
		}
	}

	if entry := c.GetString("entry", ""); entry != "" {
		if _, err := os.Stat(c.resolvePath(entry)); err != nil {
			errs = append(errs, fmt.Errorf("entry file not found: %s", entry))
		}
	}

	for _, key := range []string{"icon", "license", "readme"} {
		value := c.GetString(key, "")
		if value == "" {
			continue
		}

		if _, err := os.Stat(c.resolvePath(value)); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s file not found: %s", key, value))
		}
	}

	warnings = append(warnings, c.shadowedKeys()...)

	return errs, warnings
}

// shadowedKeys reports keys configured both globally and in the active
// platform section. The platform value wins per precedence, so this is a
// warning rather than an error.
func (c *Config) shadowedKeys() []string {
	view := c.PlatformView(c.platform)
	if len(view) == 0 {
		return nil
	}

	var shadowed []string

	for key := range c.raw {
		if key == KeyPlatforms || key == KeyPlatformSpecific {
			continue
		}

		if _, ok := view[key]; ok {
			shadowed = append(shadowed,
				fmt.Sprintf("key %q is set globally and in the %s section; the platform value wins", key, c.platform))
		}
	}

	return shadowed
}

// resolvePath joins relative paths onto the project directory.
func (c *Config) resolvePath(path string) string {
	if filepath.IsAbs(path) || c.projectDir == "" {
		return path
	}

	return filepath.Join(c.projectDir, path)
}
