// Package buildenv describes the environment a build runs in: the project
// root directory, the target platform and the machine architecture.
//
// Components receive a *Context at construction time instead of probing
// runtime.GOOS or the process environment themselves, which keeps platform
// handling in one place and makes every component testable against a
// fabricated environment.
package buildenv
