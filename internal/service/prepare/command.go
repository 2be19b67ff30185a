package prepare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unifypy/unifypy/internal/appid"
	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/buildlock"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/engine"
	"github.com/unifypy/unifypy/internal/generator"
	"github.com/unifypy/unifypy/internal/hasher"
	"github.com/unifypy/unifypy/internal/logger"
)

// Options contains inputs for the preparation entry points.
type Options struct {
	// ProjectDir is the project root. Empty means the current directory.
	ProjectDir string
	// ConfigPath points at the build configuration file. Empty triggers
	// discovery of the default candidates inside ProjectDir.
	ConfigPath string
	// Platform overrides target platform detection (windows, macos, linux).
	Platform string
	// Overrides are command-line configuration values, the highest
	// precedence merge layer.
	Overrides config.Map
	// Force regenerates even when cached fingerprints are current.
	Force bool
}

// configCandidates are probed in order when no explicit path is given.
var configCandidates = []string{"build.json", "build.yaml", "build.yml"}

// ErrAllPlatformsFailed is returned by Run when every enabled platform
// failed to generate.
var ErrAllPlatformsFailed = errors.New("all enabled platforms failed")

// session bundles the wired components of one preparation run.
type session struct {
	env        *buildenv.Context
	store      *cache.Store
	cfg        *config.Config
	hasher     *hasher.Hasher
	engine     *engine.Engine
	configPath string
}

// Run executes the preparation workflow: resolve configuration, take the
// project lock, decide, generate, report. It returns an error on
// configuration problems or when every enabled platform fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "prepare")

	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}

	if err = s.store.EnsureLayout(); err != nil {
		return fmt.Errorf("prepare cache layout: %w", err)
	}

	lock, err := buildlock.Acquire(ctx, s.store.RootDir())
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Failed to release build lock", "error", releaseErr)
		}
	}()

	if !opts.Force {
		needed, decideErr := s.engine.ShouldPreGenerateAll(ctx, s.cfg)
		if decideErr != nil {
			return decideErr
		}

		if !needed {
			logger.Info(ctx, "Cached platform configurations are up to date, nothing to regenerate")

			return nil
		}
	}

	results, err := s.engine.PreGenerateAll(ctx, s.cfg, s.configPath)
	if err != nil {
		return err
	}

	return report(ctx, results)
}

// Info returns the cache summary for the status subcommand.
func Info(ctx context.Context, opts *Options) (*cache.Info, error) {
	env, err := buildenv.New(opts.ProjectDir)
	if err != nil {
		return nil, err
	}

	return cache.NewStore(env.ProjectDir).Info()
}

// Clear wipes cached files for one platform, or the whole cache when
// platform is empty. full additionally drops the persisted application
// identifier.
func Clear(ctx context.Context, opts *Options, platform string, full bool) error {
	ctx = logger.WithName(ctx, "prepare")

	env, err := buildenv.New(opts.ProjectDir)
	if err != nil {
		return err
	}

	store := cache.NewStore(env.ProjectDir)

	if full {
		if err = store.Purge(); err != nil {
			return err
		}

		logger.Info(ctx, "Cache and application identifier cleared")

		return nil
	}

	if err = store.Clear(platform); err != nil {
		return err
	}

	if platform == "" {
		logger.Info(ctx, "Cache cleared")
	} else {
		logger.InfoKV(ctx, "Platform cache cleared", "platform", platform)
	}

	return nil
}

// AppID resolves the application identifier, generating and persisting one
// when the project has none yet.
func AppID(ctx context.Context, opts *Options) (string, error) {
	ctx = logger.WithName(ctx, "prepare")

	s, err := newSession(ctx, opts)
	if err != nil {
		return "", err
	}

	if err = s.store.EnsureLayout(); err != nil {
		return "", fmt.Errorf("prepare cache layout: %w", err)
	}

	return appid.GetOrGenerate(s.cfg, s.store)
}

// Fingerprint computes the current configuration fingerprint for the given
// platform, or the global fingerprint when platform is empty.
func Fingerprint(ctx context.Context, opts *Options, platform string) (string, error) {
	ctx = logger.WithName(ctx, "prepare")

	s, err := newSession(ctx, opts)
	if err != nil {
		return "", err
	}

	return s.hasher.Fingerprint(s.cfg, platform)
}

// Export writes the fully merged configuration view to the given path as
// indented JSON.
func Export(ctx context.Context, opts *Options, outPath string) error {
	ctx = logger.WithName(ctx, "prepare")

	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(s.env.ProjectDir, outPath)
	}

	if err = s.cfg.SaveMerged(outPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Merged configuration exported", "path", outPath)

	return nil
}

// newSession resolves the environment and configuration and wires the
// generation engine.
func newSession(ctx context.Context, opts *Options) (*session, error) {
	env, err := buildenv.New(opts.ProjectDir)
	if err != nil {
		return nil, err
	}

	if opts.Platform != "" {
		env.Platform = buildenv.NormalizePlatform(opts.Platform)
	}

	configPath, err := resolveConfigPath(ctx, env.ProjectDir, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Resolve(ctx, &config.Options{
		Path:       configPath,
		ProjectDir: env.ProjectDir,
		Platform:   env.Platform,
		Overrides:  opts.Overrides,
	})
	if err != nil {
		return nil, err
	}

	h := hasher.New(env)
	registry := generator.Default(env)
	registry.RegisterResourceFields(h)
	store := cache.NewStore(env.ProjectDir)

	return &session{
		env:        env,
		store:      store,
		cfg:        cfg,
		hasher:     h,
		engine:     engine.New(env, store, h, registry),
		configPath: configPath,
	}, nil
}

// resolveConfigPath validates an explicit configuration path or discovers
// one of the default candidates. No file at all is allowed: resolution then
// runs on defaults and overrides alone.
func resolveConfigPath(ctx context.Context, projectDir, explicit string) (string, error) {
	if explicit != "" {
		path := explicit
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectDir, path)
		}

		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", config.ErrNotFound, explicit)
		}

		return path, nil
	}

	for _, candidate := range configCandidates {
		path := filepath.Join(projectDir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	logger.Warn(ctx, "No configuration file found, using defaults and command-line values only")

	return "", nil
}

// report logs one status line per platform and converts a total failure
// into an error.
func report(ctx context.Context, results map[string]engine.Result) error {
	var enabled, failed int

	for _, platform := range []string{buildenv.PlatformWindows, buildenv.PlatformMacOS, buildenv.PlatformLinux} {
		result, ok := results[platform]
		if !ok {
			continue
		}

		switch result.Outcome {
		case engine.OutcomeSuccess:
			enabled++

			logger.InfoKV(ctx, "Platform configuration ready", "platform", platform, "status", result.Outcome)
		case engine.OutcomeFailure:
			enabled++
			failed++

			logger.ErrorKV(ctx, "Platform configuration failed",
				"platform", platform, "status", result.Outcome, "error", result.Err)
		case engine.OutcomeSkipped:
			logger.DebugKV(ctx, "Platform not enabled", "platform", platform, "status", result.Outcome)
		}
	}

	if enabled > 0 && failed == enabled {
		return fmt.Errorf("%w (%d of %d)", ErrAllPlatformsFailed, failed, enabled)
	}

	return nil
}
