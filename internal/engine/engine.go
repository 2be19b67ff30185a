package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/unifypy/unifypy/internal/appid"
	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/generator"
	"github.com/unifypy/unifypy/internal/hasher"
	"github.com/unifypy/unifypy/internal/logger"
)

// Outcome classifies one platform's result in a pre-generation pass.
type Outcome int

const (
	// OutcomeSkipped means the platform is not enabled in the configuration.
	OutcomeSkipped Outcome = iota
	// OutcomeSuccess means the platform's files were generated and its
	// fingerprint persisted.
	OutcomeSuccess
	// OutcomeFailure means the platform's generator failed; siblings were
	// still attempted.
	OutcomeFailure
)

// String renders the outcome for status lines.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is one platform's pre-generation outcome.
type Result struct {
	Outcome Outcome
	// Err carries the generation error for OutcomeFailure.
	Err error
}

// Engine ties the hasher, cache store and generator registry together.
type Engine struct {
	env      *buildenv.Context
	store    *cache.Store
	hasher   *hasher.Hasher
	registry *generator.Registry
}

// New creates an Engine. The registry's resource fields are expected to be
// registered with the hasher already (see generator.Registry).
func New(env *buildenv.Context, store *cache.Store, h *hasher.Hasher, registry *generator.Registry) *Engine {
	return &Engine{
		env:      env,
		store:    store,
		hasher:   h,
		registry: registry,
	}
}

// ShouldRegenerate reports whether the current fingerprint differs from the
// cached one (empty platform means global scope). A corrupt metadata file
// is treated as a cold cache and logged.
func (e *Engine) ShouldRegenerate(ctx context.Context, cfg *config.Config, platform string) (bool, error) {
	current, err := e.hasher.Fingerprint(cfg, platform)
	if err != nil {
		return false, err
	}

	cached, err := e.store.CachedHash(platform)
	if err != nil {
		if errors.Is(err, cache.ErrCorrupt) {
			logger.WarnKV(ctx, "Cache metadata unreadable, regenerating everything", "error", err)
			return true, nil
		}

		return false, err
	}

	return cached == "" || current != cached, nil
}

// ShouldPreGenerateAll reports whether any enabled platform's fingerprint,
// or the global fingerprint, differs from its cached value.
func (e *Engine) ShouldPreGenerateAll(ctx context.Context, cfg *config.Config) (bool, error) {
	for _, platform := range e.registry.Platforms() {
		if !cfg.HasPlatform(platform) {
			continue
		}

		stale, err := e.ShouldRegenerate(ctx, cfg, platform)
		if err != nil {
			return false, err
		}

		if stale {
			return true, nil
		}
	}

	return e.ShouldRegenerate(ctx, cfg, "")
}

// PreGenerateAll regenerates the artifact-description files of every
// enabled platform, in the registry's fixed order.
//
// The application identifier is resolved first and, when the on-disk
// configuration lacks one, written back into it (write-back failure only
// costs the persistence; the identifier stays active in memory). Each
// platform then generates independently: a failure is captured in that
// platform's Result and does not stop the siblings. Successful platforms
// get their fingerprint persisted immediately; the global fingerprint is
// persisted last. Metadata store errors abort the pass.
func (e *Engine) PreGenerateAll(ctx context.Context, cfg *config.Config, configFilePath string) (map[string]Result, error) {
	id, err := appid.GetOrGenerate(cfg, e.store)
	if err != nil {
		return nil, fmt.Errorf("resolve application identifier: %w", err)
	}

	if existing, _ := cfg.InstallerConfig(buildenv.PlatformWindows, "inno_setup")["app_id"].(string); existing == "" {
		// Visible to this run's generators and fingerprints regardless of
		// whether the write-back below succeeds.
		cfg.Set(appid.ConfigKey, id)

		if configFilePath != "" {
			if appid.WriteBack(ctx, configFilePath, id) {
				logger.InfoKV(ctx, "Application identifier generated and written to configuration", "app_id", id)
			} else {
				logger.WarnKV(ctx, "Application identifier not persisted to configuration", "app_id", id)
			}
		}
	} else {
		logger.InfoKV(ctx, "Using configured application identifier", "app_id", existing)
	}

	results := make(map[string]Result, len(e.registry.Platforms()))

	for _, platform := range e.registry.Platforms() {
		if !cfg.HasPlatform(platform) {
			logger.InfoKV(ctx, "Platform not enabled in configuration, skipping", "platform", platform)
			results[platform] = Result{Outcome: OutcomeSkipped}

			continue
		}

		gen, ok := e.registry.ForPlatform(platform)
		if !ok {
			results[platform] = Result{
				Outcome: OutcomeFailure,
				Err:     fmt.Errorf("no generator registered for platform %s", platform),
			}

			continue
		}

		logger.InfoKV(ctx, "Generating platform configuration", "platform", platform)

		if genErr := gen.Generate(ctx, cfg, e.store); genErr != nil {
			logger.ErrorKV(ctx, "Platform configuration generation failed",
				"platform", platform, "error", genErr)
			results[platform] = Result{Outcome: OutcomeFailure, Err: genErr}

			continue
		}

		fingerprint, fpErr := e.hasher.Fingerprint(cfg, platform)
		if fpErr != nil {
			results[platform] = Result{Outcome: OutcomeFailure, Err: fpErr}

			continue
		}

		if saveErr := e.store.SaveHash(fingerprint, platform); saveErr != nil {
			return nil, fmt.Errorf("persist %s fingerprint: %w", platform, saveErr)
		}

		results[platform] = Result{Outcome: OutcomeSuccess}
	}

	global, err := e.hasher.Fingerprint(cfg, "")
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveHash(global, ""); err != nil {
		return nil, fmt.Errorf("persist global fingerprint: %w", err)
	}

	return results, nil
}
