// Package prepare orchestrates the configuration preparation workflow: it
// resolves the build configuration, decides whether regeneration is needed,
// runs the platform generators under the project build lock, and reports
// per-platform outcomes. It also backs the cache inspection and maintenance
// subcommands.
package prepare
