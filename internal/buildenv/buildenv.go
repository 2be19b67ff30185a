package buildenv

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Platform names used throughout configuration files and cache paths.
const (
	PlatformWindows = "windows"
	PlatformMacOS   = "macos"
	PlatformLinux   = "linux"
)

// Context describes the environment a build runs in.
type Context struct {
	// ProjectDir is the absolute path to the project root directory.
	ProjectDir string
	// Platform is the normalized target platform name (windows, macos, linux).
	Platform string
	// Arch is the normalized machine architecture (x86_64, arm64, i386).
	Arch string
}

// New builds a Context for the given project directory, detecting platform
// and architecture from the running process.
func New(projectDir string) (*Context, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	return &Context{
		ProjectDir: abs,
		Platform:   NormalizePlatform(runtime.GOOS),
		Arch:       NormalizeArch(runtime.GOARCH),
	}, nil
}

// NormalizePlatform maps a GOOS value to the platform name used in
// configuration files ("darwin" becomes "macos"). Unrecognized systems pass
// through unchanged.
func NormalizePlatform(goos string) string {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
		return PlatformLinux
	default:
		return goos
	}
}

// NormalizeArch maps a GOARCH value to the canonical architecture name used
// in configuration and artifact filenames.
func NormalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	case "386":
		return "i386"
	default:
		return goarch
	}
}

// ArchForFormat returns the architecture spelling expected by a specific
// package format. Debian and RPM tooling disagree on naming, so the cached
// control/spec files must carry the format's own dialect.
func (c *Context) ArchForFormat(format string) string {
	switch format {
	case "deb":
		switch c.Arch {
		case "x86_64":
			return "amd64"
		case "arm64":
			return "arm64"
		case "i386":
			return "i386"
		}
	case "rpm", "appimage":
		switch c.Arch {
		case "x86_64":
			return "x86_64"
		case "arm64":
			return "aarch64"
		case "i386":
			return "i686"
		}
	}

	return c.Arch
}
