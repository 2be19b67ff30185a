package hasher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/config"
)

// newProject writes a minimal project with the given config body and
// resolves it, returning the environment and configuration.
func newProject(t *testing.T, configBody string) (*buildenv.Context, *config.Config) {
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

	return env, cfg
}

// TestFileDigest verifies streaming digests react to content and that an
// unreadable path yields the sentinel error.
func TestFileDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "icon.ico")
	require.NoError(t, os.WriteFile(path, []byte("aaaa"), 0o644))

	first, err := FileDigest(path)
	require.NoError(t, err)
	require.Len(t, first, 64)

	require.NoError(t, os.WriteFile(path, []byte("bbbb"), 0o644))

	second, err := FileDigest(path)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = FileDigest(filepath.Join(dir, "absent"))
	require.ErrorIs(t, err, ErrFileUnreadable)
}

// TestFingerprintDeterminism checks that two independent computations over
// identical input agree, globally and per platform.
func TestFingerprintDeterminism(t *testing.T) {
	t.Parallel()

	body := `{"name": "Demo", "version": "1.0.0", "platforms": {"windows": {"inno_setup": {}}}}`
	env, cfg := newProject(t, body)

	first, err := New(env).Fingerprint(cfg, "")
	require.NoError(t, err)

	second, err := New(env).Fingerprint(cfg, "")
	require.NoError(t, err)
	require.Equal(t, first, second)

	windowsFirst, err := New(env).Fingerprint(cfg, "windows")
	require.NoError(t, err)

	windowsSecond, err := New(env).Fingerprint(cfg, "windows")
	require.NoError(t, err)
	require.Equal(t, windowsFirst, windowsSecond)

	require.NotEqual(t, first, windowsFirst, "platform scope must alter the digest")
}

// TestFingerprintSensitivity checks that meaningful keys change the digest
// while volatile keys do not.
func TestFingerprintSensitivity(t *testing.T) {
	t.Parallel()

	env, cfg := newProject(t, `{"name": "Demo", "version": "1.0.0"}`)

	base, err := New(env).Fingerprint(cfg, "")
	require.NoError(t, err)

	cfg.Set("version", "1.0.1")

	changed, err := New(env).Fingerprint(cfg, "")
	require.NoError(t, err)
	require.NotEqual(t, base, changed)

	cfg.Set("version", "1.0.0")
	cfg.Set("verbose", true)
	cfg.Set("skip_exe", true)

	volatile, err := New(env).Fingerprint(cfg, "")
	require.NoError(t, err)
	require.Equal(t, base, volatile, "volatile keys must not affect the fingerprint")
}

// TestFingerprintResourceSensitivity ensures editing a referenced resource
// file's bytes invalidates the fingerprint even with unchanged config text.
func TestFingerprintResourceSensitivity(t *testing.T) {
	t.Parallel()

	env, cfg := newProject(t, `{"name": "Demo", "icon": "app.ico"}`)
	iconPath := filepath.Join(env.ProjectDir, "app.ico")
	require.NoError(t, os.WriteFile(iconPath, []byte("v1"), 0o644))

	h := New(env)

	base, err := h.Fingerprint(cfg, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(iconPath, []byte("v2"), 0o644))

	changed, err := h.Fingerprint(cfg, "")
	require.NoError(t, err)
	require.NotEqual(t, base, changed)
}

// TestFingerprintMissingResource: a referenced but absent resource is
// skipped from the digest set instead of failing the computation.
func TestFingerprintMissingResource(t *testing.T) {
	t.Parallel()

	env, cfg := newProject(t, `{"name": "Demo", "icon": "ghost.ico"}`)

	_, err := New(env).Fingerprint(cfg, "")
	require.NoError(t, err)
}

// TestRegisteredPlatformFields verifies that generator-registered resource
// fields join the platform-scoped digest set.
func TestRegisteredPlatformFields(t *testing.T) {
	t.Parallel()

	body := `{
		"name": "Demo",
		"platforms": {"windows": {"inno_setup": {"setup_icon": "setup.ico"}}}
	}`
	env, cfg := newProject(t, body)

	iconPath := filepath.Join(env.ProjectDir, "setup.ico")
	require.NoError(t, os.WriteFile(iconPath, []byte("v1"), 0o644))

	h := New(env)
	h.RegisterPlatformFields("windows", "inno_setup.setup_icon")

	base, err := h.Fingerprint(cfg, "windows")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(iconPath, []byte("v2"), 0o644))

	changed, err := h.Fingerprint(cfg, "windows")
	require.NoError(t, err)
	require.NotEqual(t, base, changed)

	// Without registration the same edit is invisible.
	bare := New(env)

	before, err := bare.Fingerprint(cfg, "windows")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(iconPath, []byte("v3"), 0o644))

	after, err := bare.Fingerprint(cfg, "windows")
	require.NoError(t, err)
	require.Equal(t, before, after)
}
