package prepare

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
)

// newProject writes a minimal project with the given configuration body.
func newProject(t *testing.T, configName, configBody string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print()\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configName), []byte(configBody), 0o644))

	return dir
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newProject(t, "build.json", `{
		"name": "Demo",
		"version": "1.0.0",
		"entry": "main.py",
		"platforms": {
			"windows": {"inno_setup": {}},
			"linux": {"deb": {}}
		}
	}`)

	require.NoError(t, Run(ctx, &Options{ProjectDir: dir}))

	store := cache.NewStore(dir)

	for _, check := range []struct{ platform, fileType string }{
		{"windows", "iss"},
		{"linux", "control"},
		{"linux", "desktop"},
	} {
		_, err := store.LoadGeneratedFile(check.platform, check.fileType)
		require.NoError(t, err, "%s/%s", check.platform, check.fileType)
	}

	hash, err := store.CachedHash("windows")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	// Lock released after the run.
	require.NoFileExists(t, filepath.Join(store.RootDir(), ".lock"))

	// A second unchanged run is a no-op and must also succeed.
	require.NoError(t, Run(ctx, &Options{ProjectDir: dir}))
}

func TestRunMissingExplicitConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := Run(context.Background(), &Options{ProjectDir: dir, ConfigPath: "nope.json"})
	require.ErrorIs(t, err, config.ErrNotFound)

	// Configuration errors abort before any cache mutation.
	require.NoDirExists(t, filepath.Join(dir, cache.RootDirName))
}

func TestRunInvalidConfigLeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	dir := newProject(t, "build.json", `{"name": "Demo", "entry": "missing.py"}`)

	err := Run(context.Background(), &Options{ProjectDir: dir})
	require.ErrorContains(t, err, "entry file not found")
	require.NoDirExists(t, filepath.Join(dir, cache.RootDirName))
}

func TestRunAppliesOverrides(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newProject(t, "build.json", `{
		"name": "Demo",
		"entry": "main.py",
		"platforms": {"windows": {"inno_setup": {}}}
	}`)

	opts := &Options{
		ProjectDir: dir,
		Overrides:  config.Map{"name": "Overridden"},
	}
	require.NoError(t, Run(ctx, opts))

	content, err := cache.NewStore(dir).LoadGeneratedFile("windows", "iss")
	require.NoError(t, err)
	require.Contains(t, content, "AppName=Overridden\n")
}

func TestFingerprintStableAndPlatformScoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newProject(t, "build.yaml", "name: Demo\nentry: main.py\nplatforms:\n  linux:\n    deb: {}\n")
	opts := &Options{ProjectDir: dir}

	global1, err := Fingerprint(ctx, opts, "")
	require.NoError(t, err)
	require.Len(t, global1, 64)

	global2, err := Fingerprint(ctx, opts, "")
	require.NoError(t, err)
	require.Equal(t, global1, global2)

	linux, err := Fingerprint(ctx, opts, "linux")
	require.NoError(t, err)
	require.NotEqual(t, global1, linux)
}

func TestAppIDStableAcrossCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newProject(t, "build.json", `{"name": "Demo", "entry": "main.py"}`)
	opts := &Options{ProjectDir: dir}

	first, err := AppID(ctx, opts)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := AppID(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestClearScoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newProject(t, "build.json", `{
		"name": "Demo",
		"entry": "main.py",
		"platforms": {
			"windows": {"inno_setup": {}},
			"linux": {"deb": {}}
		}
	}`)
	opts := &Options{ProjectDir: dir}

	require.NoError(t, Run(ctx, opts))
	require.NoError(t, Clear(ctx, opts, "windows", false))

	store := cache.NewStore(dir)

	_, err := store.LoadGeneratedFile("windows", "iss")
	require.ErrorIs(t, err, cache.ErrFileNotCached)

	// The other platform's files survive a scoped clear.
	_, err = store.LoadGeneratedFile("linux", "desktop")
	require.NoError(t, err)

	// Full clear keeps no identifier behind.
	require.NoError(t, Clear(ctx, opts, "", true))

	record, err := store.LoadMetadata()
	require.NoError(t, err)
	require.Empty(t, record.AppID)
}

func TestExportMergedConfiguration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := newProject(t, "build.json", `{
		"name": "Demo",
		"entry": "main.py",
		"platforms": {"linux": {"publisher": "Linux Publisher"}}
	}`)

	opts := &Options{ProjectDir: dir, Platform: "linux"}
	require.NoError(t, Export(ctx, opts, "merged.json"))

	doc, err := config.LoadFile(filepath.Join(dir, "merged.json"))
	require.NoError(t, err)

	// Flattened view: platform section folded in, defaults filled.
	require.Equal(t, "Demo", doc["name"])
	require.Equal(t, "Linux Publisher", doc["publisher"])
	require.Equal(t, "1.0.0", doc["version"])
	require.NotContains(t, doc, "platforms")
}

func TestInfoOnColdProject(t *testing.T) {
	t.Parallel()

	info, err := Info(context.Background(), &Options{ProjectDir: t.TempDir()})
	require.NoError(t, err)
	require.False(t, info.HasRootDir)
	require.Empty(t, info.Files)
}
