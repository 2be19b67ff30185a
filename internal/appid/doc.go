// Package appid derives and persists the deterministic application
// identifier.
//
// The identifier is a name-based UUID (version 5 over the DNS namespace) of
// the application's name, so the same name always yields the same
// identifier on every machine and run. Native installer tooling relies on
// this stability for upgrade and uninstall identity, which is why the
// identifier survives cache clears and is written back into the project's
// configuration file when possible.
package appid
