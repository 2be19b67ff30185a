package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Get traverses the merged tree by a dotted key path. It returns def when
// any segment is absent or the traversal hits a non-map value. Never panics.
func (c *Config) Get(key string, def any) any {
	var current any = c.merged

	for _, segment := range strings.Split(key, ".") {
		node, ok := current.(Map)
		if !ok {
			return def
		}

		current, ok = node[segment]
		if !ok {
			return def
		}
	}

	return current
}

// GetString returns the value at key as a string, or def when absent or of
// another type.
func (c *Config) GetString(key, def string) string {
	if s, ok := c.Get(key, def).(string); ok {
		return s
	}

	return def
}

// GetBool returns the value at key as a bool, or def when absent or of
// another type.
func (c *Config) GetBool(key string, def bool) bool {
	if b, ok := c.Get(key, def).(bool); ok {
		return b
	}

	return def
}

// Platform returns the active platform the configuration was resolved for.
func (c *Config) Platform() string {
	return c.platform
}

// Path returns the configuration file location, empty when resolution ran
// without a file.
func (c *Config) Path() string {
	return c.path
}

// ProjectDir returns the project root the configuration belongs to.
func (c *Config) ProjectDir() string {
	return c.projectDir
}

// PlatformView returns the configuration subset for one platform: the
// platforms.<name> section, falling back to the legacy
// platform_specific.<name> section. Absent platforms yield an empty map.
// The returned map is a view into the document; callers must not mutate it.
func (c *Config) PlatformView(platform string) Map {
	if platform == "" {
		return Map{}
	}

	if section := subMap(c.raw, KeyPlatforms); section != nil {
		if view := subMap(section, platform); view != nil {
			return view
		}
	}

	if section := subMap(c.raw, KeyPlatformSpecific); section != nil {
		if view := subMap(section, platform); view != nil {
			return view
		}
	}

	return Map{}
}

// HasPlatform reports whether the configuration enables a platform, in
// either the current or the legacy section.
func (c *Config) HasPlatform(platform string) bool {
	if section := subMap(c.raw, KeyPlatforms); section != nil {
		if _, ok := section[platform]; ok {
			return true
		}
	}

	if section := subMap(c.raw, KeyPlatformSpecific); section != nil {
		if _, ok := section[platform]; ok {
			return true
		}
	}

	return false
}

// InstallerConfig returns the nested per-format section of a platform,
// e.g. InstallerConfig("windows", "inno_setup"). Absent sections yield an
// empty map.
func (c *Config) InstallerConfig(platform, installerType string) Map {
	if section := subMap(c.PlatformView(platform), installerType); section != nil {
		return section
	}

	return Map{}
}

// AppInfo bundles the application fields every packager needs.
type AppInfo struct {
	Name        string
	DisplayName string
	Version     string
	Publisher   string
	Entry       string
	Icon        string
	License     string
	Readme      string
}

// AppInfo returns the basic application information from the merged view.
// DisplayName falls back to Name.
func (c *Config) AppInfo() AppInfo {
	info := AppInfo{
		Name:      c.GetString("name", ""),
		Version:   c.GetString("version", ""),
		Publisher: c.GetString("publisher", ""),
		Entry:     c.GetString("entry", ""),
		Icon:      c.GetString("icon", ""),
		License:   c.GetString("license", ""),
		Readme:    c.GetString("readme", ""),
	}

	info.DisplayName = c.GetString("display_name", info.Name)

	return info
}

// Document returns a deep copy of the loaded configuration document with
// overrides applied at the top level. This is the tree fingerprinting
// operates on; mutating the copy does not affect the Config.
func (c *Config) Document() Map {
	doc := deepCopy(c.raw)

	for key, value := range c.overrides {
		doc[key] = value
	}

	return doc
}

// Set writes a value into the configuration document at a dotted key path,
// creating intermediate sections as needed, and rebuilds the merged view.
// Used to carry run-scoped values (such as a freshly generated application
// identifier) without touching the file on disk.
func (c *Config) Set(key string, value any) {
	segments := strings.Split(key, ".")
	node := c.raw

	for _, segment := range segments[:len(segments)-1] {
		child := subMap(node, segment)
		if child == nil {
			child = make(Map)
			node[segment] = child
		}

		node = child
	}

	node[segments[len(segments)-1]] = value
	c.remerge()
}

// SaveMerged writes the merged view to a file as indented JSON, for
// debugging and for handing a flattened configuration to external tools.
func (c *Config) SaveMerged(path string) error {
	data, err := json.MarshalIndent(c.merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode merged configuration: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write merged configuration: %w", err)
	}

	return nil
}

// subMap returns m[key] as a Map, or nil when absent or of another type.
func subMap(m Map, key string) Map {
	if m == nil {
		return nil
	}

	if child, ok := m[key].(Map); ok {
		return child
	}

	return nil
}

// deepCopy clones a configuration tree. Nested maps and slices are copied;
// scalars are shared (they are immutable).
func deepCopy(m Map) Map {
	cloned := make(Map, len(m))
	for key, value := range m {
		cloned[key] = deepCopyValue(value)
	}

	return cloned
}

func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case Map:
		return deepCopy(typed)
	case []any:
		cloned := make([]any, len(typed))
		for i, item := range typed {
			cloned[i] = deepCopyValue(item)
		}

		return cloned
	default:
		return value
	}
}
