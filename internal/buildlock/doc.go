// Package buildlock serializes preparation runs on a single project through
// an advisory PID lock file kept under the project cache root. Locks left
// behind by dead processes are detected and reclaimed.
package buildlock
