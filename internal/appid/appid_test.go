package appid

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
)

// newConfig resolves a minimal configuration for the given app name inside a
// fresh temp project.
func newConfig(t *testing.T, name string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print()\n"), 0o644))

	cfg, err := config.Resolve(context.Background(), &config.Options{
		ProjectDir: dir,
		Platform:   "linux",
		Overrides:  config.Map{"name": name},
	})
	require.NoError(t, err)

	return cfg
}

// TestGenerateDeterminism: same name, same identifier, every time.
func TestGenerateDeterminism(t *testing.T) {
	t.Parallel()

	first := Generate("Foo")
	second := Generate("Foo")
	require.Equal(t, first, second)
	require.NotEqual(t, first, Generate("Bar"))

	// Upper-case, canonical UUID shape, no braces.
	require.Len(t, first, 36)
	require.NotContains(t, first, "{")
	require.Equal(t, strings.ToUpper(first), first)
}

// TestGetOrGenerateFreshAndStable checks that two empty caches agree on the
// identifier and that a persisted identifier survives config drift.
func TestGetOrGenerateFreshAndStable(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t, "Foo")

	storeA := cache.NewStore(t.TempDir())
	storeB := cache.NewStore(t.TempDir())

	idA, err := GetOrGenerate(cfg, storeA)
	require.NoError(t, err)

	idB, err := GetOrGenerate(cfg, storeB)
	require.NoError(t, err)
	require.Equal(t, idA, idB, "independent empty caches must produce the same id")

	// Unrelated config changes do not move a persisted identifier.
	cfg.Set("version", "9.9.9")

	again, err := GetOrGenerate(cfg, storeA)
	require.NoError(t, err)
	require.Equal(t, idA, again)

	record, err := storeA.LoadMetadata()
	require.NoError(t, err)
	require.Equal(t, idA, record.AppID)
	require.NotEmpty(t, record.Created)
}

// TestGetOrGenerateExplicit: an explicit configured identifier wins and is
// mirrored into the metadata record.
func TestGetOrGenerateExplicit(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t, "Foo")
	cfg.Set(ConfigKey, "EXPLICIT-ID")

	store := cache.NewStore(t.TempDir())

	id, err := GetOrGenerate(cfg, store)
	require.NoError(t, err)
	require.Equal(t, "EXPLICIT-ID", id)

	record, err := store.LoadMetadata()
	require.NoError(t, err)
	require.Equal(t, "EXPLICIT-ID", record.AppID)
}

// TestWriteBack verifies the identifier lands in the file with intermediate
// sections created, the rest of the document preserved, and JSON/YAML both
// supported.
func TestWriteBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "build.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name": "Demo", "version": "1.0.0"}`), 0o644))
	require.True(t, WriteBack(ctx, jsonPath, "NEW-ID"))

	doc, err := config.LoadFile(jsonPath)
	require.NoError(t, err)
	require.Equal(t, "Demo", doc["name"], "existing keys preserved")

	inno := doc["platforms"].(config.Map)["windows"].(config.Map)["inno_setup"].(config.Map)
	require.Equal(t, "NEW-ID", inno["app_id"])

	yamlPath := filepath.Join(dir, "build.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: Demo\n"), 0o644))
	require.True(t, WriteBack(ctx, yamlPath, "NEW-ID"))

	doc, err = config.LoadFile(yamlPath)
	require.NoError(t, err)
	require.Equal(t, "Demo", doc["name"])
}

// TestWriteBackFailure returns false instead of failing the build.
func TestWriteBackFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.False(t, WriteBack(ctx, filepath.Join(t.TempDir(), "absent.json"), "X"))

	badPath := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{broken"), 0o644))
	require.False(t, WriteBack(ctx, badPath, "X"))
}
