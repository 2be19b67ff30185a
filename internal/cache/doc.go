// Package cache persists build state under the project's .unifypy
// directory: a metadata record (schema version, application identifier,
// global and per-platform configuration fingerprints) and the generated
// artifact-description files, one subdirectory per platform.
//
// Metadata writes go through a temp file and rename so an interrupted run
// never leaves a half-written record. The directory is scoped per project
// and not designed for concurrent processes; see package buildlock for the
// advisory guard.
package cache
