// Package engine decides when artifact-description files must be
// regenerated and orchestrates the pre-generation pass across all enabled
// platforms.
//
// The decision is a fingerprint comparison: regenerate when the current
// configuration fingerprint differs from the cached one or no cached one
// exists. Pre-generation visits platforms in a fixed order, isolates each
// platform's failure from its siblings, and persists the accepted
// fingerprints only for platforms that generated successfully. Metadata
// store failures are build-blocking and propagate; a single platform's
// generation failure is not.
package engine
