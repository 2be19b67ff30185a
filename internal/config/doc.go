// Package config resolves the layered build configuration.
//
// A build configuration is assembled from four sources with fixed
// precedence, lowest to highest: built-in defaults, the global section of
// the project's configuration file, the platform-specific section matching
// the active platform, and explicit command-line overrides. Merging is a
// shallow overwrite per top-level key.
//
// Configuration files are JSON (comments and trailing commas tolerated) or
// YAML, selected by file extension. The resolved Config exposes typed
// accessors for the fields every component needs and a dotted-path Get for
// platform- and packager-specific extension fields.
package config
