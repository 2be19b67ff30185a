// Package hasher computes the content fingerprints driving cache
// invalidation.
//
// A fingerprint digests a stable serialization of the configuration
// document (volatile, run-scoped keys excluded), optionally scoped to one
// platform, together with the content digests of every referenced resource
// file. Editing a referenced icon or license therefore invalidates the
// fingerprint even though the configuration text is unchanged.
//
// The set of platform resource fields is registered by the artifact
// generators, not hard-coded here, so adding a packager automatically
// extends the digest set.
package hasher
