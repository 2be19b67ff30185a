package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/generator"
	"github.com/unifypy/unifypy/internal/hasher"
)

// fixture bundles everything an engine test needs.
type fixture struct {
	env        *buildenv.Context
	cfg        *config.Config
	store      *cache.Store
	hasher     *hasher.Hasher
	configPath string
}

// newFixture writes a project with the given config body and builds an
// engine fixture around it.
func newFixture(t *testing.T, configBody string) *fixture {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print()\n"), 0o644))

	path := filepath.Join(dir, "build.json")
	require.NoError(t, os.WriteFile(path, []byte(configBody), 0o644))

	env := &buildenv.Context{ProjectDir: dir, Platform: "linux", Arch: "x86_64"}

	cfg, err := config.Resolve(context.Background(), &config.Options{
		Path:       path,
		ProjectDir: dir,
		Platform:   env.Platform,
	})
	require.NoError(t, err)

	store := cache.NewStore(dir)
	require.NoError(t, store.EnsureLayout())

	return &fixture{
		env:        env,
		cfg:        cfg,
		store:      store,
		hasher:     hasher.New(env),
		configPath: path,
	}
}

// newEngine wires the default registry into an Engine for the fixture.
func (f *fixture) newEngine() *Engine {
	registry := generator.Default(f.env)
	registry.RegisterResourceFields(f.hasher)

	return New(f.env, f.store, f.hasher, registry)
}

// failingGenerator wraps a platform name and always fails.
type failingGenerator struct {
	platform string
}

func (g *failingGenerator) Platform() string         { return g.platform }
func (g *failingGenerator) FileTypes() []string      { return nil }
func (g *failingGenerator) ResourceFields() []string { return nil }
func (g *failingGenerator) Generate(context.Context, *config.Config, *cache.Store) error {
	return errors.New("tool exploded")
}

// TestShouldRegenerateGating: cold cache regenerates, a saved fingerprint
// gates, a config mutation reopens the gate.
func TestShouldRegenerateGating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, `{"name": "Demo", "platforms": {"linux": {"deb": {}}}}`)
	e := f.newEngine()

	stale, err := e.ShouldRegenerate(ctx, f.cfg, "linux")
	require.NoError(t, err)
	require.True(t, stale, "empty cache must regenerate")

	current, err := f.hasher.Fingerprint(f.cfg, "linux")
	require.NoError(t, err)
	require.NoError(t, f.store.SaveHash(current, "linux"))

	stale, err = e.ShouldRegenerate(ctx, f.cfg, "linux")
	require.NoError(t, err)
	require.False(t, stale)

	f.cfg.Set("version", "3.0.0")

	stale, err = e.ShouldRegenerate(ctx, f.cfg, "linux")
	require.NoError(t, err)
	require.True(t, stale)
}

// TestShouldRegenerateCorruptMetadata treats unreadable metadata as a cold
// cache instead of failing the decision.
func TestShouldRegenerateCorruptMetadata(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"name": "Demo"}`)
	require.NoError(t, os.WriteFile(filepath.Join(f.store.RootDir(), "metadata.json"), []byte("{oops"), 0o644))

	stale, err := f.newEngine().ShouldRegenerate(context.Background(), f.cfg, "")
	require.NoError(t, err)
	require.True(t, stale)
}

// TestPreGenerateAllEndToEnd follows the full cycle: cold cache, generate,
// cached fingerprint matches, second decision says nothing to do.
func TestPreGenerateAllEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, `{
		"name": "Demo",
		"version": "1.0.0",
		"entry": "main.py",
		"platforms": {"windows": {"inno_setup": {}}}
	}`)
	e := f.newEngine()

	needed, err := e.ShouldPreGenerateAll(ctx, f.cfg)
	require.NoError(t, err)
	require.True(t, needed)

	results, err := e.PreGenerateAll(ctx, f.cfg, f.configPath)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, results["windows"].Outcome)
	require.Equal(t, OutcomeSkipped, results["macos"].Outcome)
	require.Equal(t, OutcomeSkipped, results["linux"].Outcome)

	cached, err := f.store.CachedHash("windows")
	require.NoError(t, err)
	require.NotEmpty(t, cached)

	current, err := f.hasher.Fingerprint(f.cfg, "windows")
	require.NoError(t, err)
	require.Equal(t, current, cached)

	needed, err = e.ShouldPreGenerateAll(ctx, f.cfg)
	require.NoError(t, err)
	require.False(t, needed, "second pass with unchanged config must be gated")
}

// TestPreGenerateAllPartialFailure rigs the macOS generator to fail and
// checks the isolation guarantees: order-stable results, siblings still
// generated and their fingerprints persisted, the failed platform's not.
func TestPreGenerateAllPartialFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, `{
		"name": "Demo",
		"platforms": {
			"windows": {"inno_setup": {}},
			"macos": {},
			"linux": {"deb": {}}
		}
	}`)

	registry := generator.NewRegistry(
		generator.NewWindows(),
		&failingGenerator{platform: "macos"},
		generator.NewLinux(f.env),
	)
	registry.RegisterResourceFields(f.hasher)
	e := New(f.env, f.store, f.hasher, registry)

	results, err := e.PreGenerateAll(ctx, f.cfg, f.configPath)
	require.NoError(t, err, "a platform failure must not raise past the batch")

	require.Equal(t, OutcomeSuccess, results["windows"].Outcome)
	require.Equal(t, OutcomeFailure, results["macos"].Outcome)
	require.ErrorContains(t, results["macos"].Err, "tool exploded")
	require.Equal(t, OutcomeSuccess, results["linux"].Outcome)

	for _, platform := range []string{"windows", "linux"} {
		cached, hashErr := f.store.CachedHash(platform)
		require.NoError(t, hashErr)
		require.NotEmpty(t, cached, platform)
	}

	cached, err := f.store.CachedHash("macos")
	require.NoError(t, err)
	require.Empty(t, cached, "failed platform must not persist a fingerprint")

	// Siblings' generated files exist despite the macOS failure.
	_, err = f.store.LoadGeneratedFile("windows", "iss")
	require.NoError(t, err)
	_, err = f.store.LoadGeneratedFile("linux", "desktop")
	require.NoError(t, err)

	// The global fingerprint is persisted even on partial success.
	cached, err = f.store.CachedHash("")
	require.NoError(t, err)
	require.NotEmpty(t, cached)
}

// TestPreGenerateAllPersistsAppID: a config without an identifier gets one
// generated, written back to the file, and rendered into the installer
// script.
func TestPreGenerateAllPersistsAppID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, `{
		"name": "Demo",
		"platforms": {"windows": {"inno_setup": {}}}
	}`)
	e := f.newEngine()

	_, err := e.PreGenerateAll(ctx, f.cfg, f.configPath)
	require.NoError(t, err)

	// Written back into the on-disk document.
	doc, err := config.LoadFile(f.configPath)
	require.NoError(t, err)

	inno := doc["platforms"].(config.Map)["windows"].(config.Map)["inno_setup"].(config.Map)
	id, _ := inno["app_id"].(string)
	require.NotEmpty(t, id)

	// Persisted in metadata and rendered into the script.
	record, err := f.store.LoadMetadata()
	require.NoError(t, err)
	require.Equal(t, id, record.AppID)

	content, err := f.store.LoadGeneratedFile("windows", "iss")
	require.NoError(t, err)
	require.Contains(t, content, "AppId={"+id+"}")
}
