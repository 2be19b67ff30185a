// Package generator renders the artifact-description files consumed by the
// native packaging tools: the Inno Setup script on Windows, the Debian
// control file, RPM spec and desktop entry on Linux, and the Info.plist,
// DMG and PKG configuration documents on macOS.
//
// Each Generator also declares the configuration fields that name resource
// files and the cache file types it produces, so the fingerprint hasher and
// the cache store stay in sync with the set of packagers by construction
// instead of by a duplicated hard-coded list.
package generator
