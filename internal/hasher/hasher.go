package hasher

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/config"
)

// schemaVersion tags every fingerprint. Bumping it invalidates all caches,
// which is the intended effect of a format change in the generated files.
const schemaVersion = "2.0.0"

// fileChunkSize is the read size used when streaming file digests.
const fileChunkSize = 32 * 1024

// ErrFileUnreadable is returned when a resource file cannot be opened or read.
var ErrFileUnreadable = errors.New("file unreadable")

// volatileKeys affect how a build runs, not what is produced. They are
// removed from the document before fingerprinting.
var volatileKeys = []string{
	"project_dir",
	"temp_dir",
	"dist_dir",
	"installer_dir",
	"verbose",
	"quiet",
	"clean",
	"skip_exe",
	"skip_installer",
	"parallel",
	"max_workers",
	"no_rollback",
}

// globalResourceFields are the top-level configuration keys naming resource
// files that feed every fingerprint scope.
var globalResourceFields = []string{"icon", "license"}

// Hasher computes file digests and configuration fingerprints for one
// project.
type Hasher struct {
	env *buildenv.Context

	// platformFields maps a platform name to dotted paths inside that
	// platform's section naming resource files, e.g.
	// "inno_setup.setup_icon". Populated by generator registration.
	platformFields map[string][]string
}

// New creates a Hasher for the given build environment.
func New(env *buildenv.Context) *Hasher {
	return &Hasher{
		env:            env,
		platformFields: make(map[string][]string),
	}
}

// RegisterPlatformFields adds resource-field paths for a platform. Paths are
// dotted and relative to the platform's configuration section.
func (h *Hasher) RegisterPlatformFields(platform string, fields ...string) {
	h.platformFields[platform] = append(h.platformFields[platform], fields...)
}

// FileDigest streams the file through BLAKE3 and returns the hex digest.
func FileDigest(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	defer f.Close()

	digest := blake3.New()

	if _, err := io.CopyBuffer(digest, f, make([]byte, fileChunkSize)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// Fingerprint computes the configuration fingerprint, optionally scoped to
// one platform (empty platform means global scope). Identical inputs and an
// unchanged filesystem always produce identical digests, across process
// restarts: the serialization sorts all keys and the resource set is an
// explicit path-to-digest map.
func (h *Hasher) Fingerprint(cfg *config.Config, platform string) (string, error) {
	doc := cfg.Document()
	for _, key := range volatileKeys {
		delete(doc, key)
	}

	factors := config.Map{
		"unifypy_version": schemaVersion,
		"build_config":    doc,
	}

	if platform != "" {
		factors["platform"] = platform
		factors["platform_config"] = cfg.PlatformView(platform)
	}

	if resources := h.resourceDigests(cfg, platform); len(resources) > 0 {
		factors["resource_files"] = resources
	}

	// encoding/json sorts map keys at every level, giving the stable
	// serialization the digest depends on.
	serialized, err := json.Marshal(factors)
	if err != nil {
		return "", fmt.Errorf("serialize fingerprint factors: %w", err)
	}

	sum := blake3.Sum256(serialized)

	return hex.EncodeToString(sum[:]), nil
}

// resourceDigests maps each referenced resource file path to its content
// digest. Unreadable or missing files are skipped: their absence already
// shapes the configuration serialization, and a missing optional resource
// must not abort fingerprinting.
func (h *Hasher) resourceDigests(cfg *config.Config, platform string) map[string]string {
	paths := make([]string, 0, len(globalResourceFields))

	for _, field := range globalResourceFields {
		if value := cfg.GetString(field, ""); value != "" {
			paths = append(paths, value)
		}
	}

	if platform != "" {
		view := cfg.PlatformView(platform)
		for _, field := range h.platformFields[platform] {
			if value := lookupString(view, field); value != "" {
				paths = append(paths, value)
			}
		}
	}

	digests := make(map[string]string, len(paths))

	for _, path := range paths {
		resolved := path
		if !filepath.IsAbs(resolved) && h.env != nil {
			resolved = filepath.Join(h.env.ProjectDir, resolved)
		}

		digest, err := FileDigest(resolved)
		if err != nil {
			continue
		}

		digests[path] = digest
	}

	return digests
}

// lookupString traverses a dotted path inside a configuration subtree and
// returns the string value at its end, or empty.
func lookupString(m config.Map, dotted string) string {
	var current any = m

	for _, segment := range strings.Split(dotted, ".") {
		node, ok := current.(config.Map)
		if !ok {
			return ""
		}

		current, ok = node[segment]
		if !ok {
			return ""
		}
	}

	if s, ok := current.(string); ok {
		return s
	}

	return ""
}
