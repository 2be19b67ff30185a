package generator

import (
	"context"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/hasher"
)

// Generator renders the artifact-description files of one platform into the
// cache store.
type Generator interface {
	// Platform returns the platform this generator serves.
	Platform() string
	// FileTypes returns the cache file types this generator produces.
	FileTypes() []string
	// ResourceFields returns dotted paths (relative to the platform's
	// configuration section) naming resource files that must feed the
	// platform fingerprint.
	ResourceFields() []string
	// Generate renders all artifact-description files for the platform.
	Generate(ctx context.Context, cfg *config.Config, store *cache.Store) error
}

// Registry holds the generators in their fixed orchestration order.
type Registry struct {
	generators []Generator
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(generators ...Generator) *Registry {
	return &Registry{generators: generators}
}

// Default returns the registry of built-in generators. The order (windows,
// macos, linux) is the orchestration and reporting order and must stay
// stable so logs and cached side effects are reproducible run to run.
func Default(env *buildenv.Context) *Registry {
	return NewRegistry(
		NewWindows(),
		NewMacOS(),
		NewLinux(env),
	)
}

// Platforms returns platform names in registry order.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.generators))
	for _, g := range r.generators {
		names = append(names, g.Platform())
	}

	return names
}

// ForPlatform returns the generator serving a platform.
func (r *Registry) ForPlatform(platform string) (Generator, bool) {
	for _, g := range r.generators {
		if g.Platform() == platform {
			return g, true
		}
	}

	return nil, false
}

// RegisterResourceFields feeds every generator's resource-field list into
// the hasher, keeping the fingerprint digest set aligned with the packagers.
func (r *Registry) RegisterResourceFields(h *hasher.Hasher) {
	for _, g := range r.generators {
		h.RegisterPlatformFields(g.Platform(), g.ResourceFields()...)
	}
}
