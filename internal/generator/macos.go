package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/logger"
)

// MacOS renders the Info.plist and the DMG/PKG configuration documents.
type MacOS struct{}

// NewMacOS creates the macOS generator.
func NewMacOS() *MacOS {
	return &MacOS{}
}

// Platform implements Generator.
func (g *MacOS) Platform() string {
	return buildenv.PlatformMacOS
}

// FileTypes implements Generator.
func (g *MacOS) FileTypes() []string {
	return []string{"plist", "dmg_config", "pkg_config"}
}

// ResourceFields implements Generator.
func (g *MacOS) ResourceFields() []string {
	return []string{"icon", "info_plist"}
}

// Generate renders all macOS artifact-description files into the cache.
func (g *MacOS) Generate(ctx context.Context, cfg *config.Config, store *cache.Store) error {
	if err := store.SaveGeneratedFile(g.Platform(), "plist", g.buildPlist(cfg)); err != nil {
		return fmt.Errorf("cache Info.plist: %w", err)
	}

	dmg, err := json.MarshalIndent(g.buildDMGConfig(cfg), "", "  ")
	if err != nil {
		return fmt.Errorf("encode dmg config: %w", err)
	}

	if err := store.SaveGeneratedFile(g.Platform(), "dmg_config", string(dmg)+"\n"); err != nil {
		return fmt.Errorf("cache dmg config: %w", err)
	}

	pkg, err := json.MarshalIndent(g.buildPKGConfig(cfg), "", "  ")
	if err != nil {
		return fmt.Errorf("encode pkg config: %w", err)
	}

	if err := store.SaveGeneratedFile(g.Platform(), "pkg_config", string(pkg)+"\n"); err != nil {
		return fmt.Errorf("cache pkg config: %w", err)
	}

	logger.Debug(ctx, "Rendered macOS artifact descriptions")

	return nil
}

// buildPlist assembles the application bundle's Info.plist.
func (g *MacOS) buildPlist(cfg *config.Config) string {
	var (
		info  = cfg.AppInfo()
		macos = cfg.PlatformView(buildenv.PlatformMacOS)
	)

	bundleID := stringOr(macos, "bundle_identifier",
		"com.example."+strings.ToLower(info.Name))
	minVersion := stringOr(macos, "minimum_system_version", "10.15.0")

	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString(`<plist version="1.0">` + "\n<dict>\n")

	writePlistString(&b, "CFBundleDisplayName", info.DisplayName)
	writePlistString(&b, "CFBundleExecutable", info.Name)
	writePlistString(&b, "CFBundleIconFile", info.Name+".icns")
	writePlistString(&b, "CFBundleIdentifier", bundleID)
	writePlistString(&b, "CFBundleInfoDictionaryVersion", "6.0")
	writePlistString(&b, "CFBundleName", info.Name)
	writePlistString(&b, "CFBundlePackageType", "APPL")
	writePlistString(&b, "CFBundleShortVersionString", info.Version)
	writePlistString(&b, "CFBundleVersion", info.Version)
	writePlistString(&b, "LSMinimumSystemVersion", minVersion)
	writePlistBool(&b, "NSHighResolutionCapable", boolOr(macos, "high_resolution_capable", true))
	writePlistBool(&b, "NSSupportsAutomaticGraphicsSwitching", boolOr(macos, "supports_automatic_graphics_switching", true))

	b.WriteString("</dict>\n</plist>\n")

	return b.String()
}

// buildDMGConfig assembles the disk-image layout document consumed by the
// DMG tool.
func (g *MacOS) buildDMGConfig(cfg *config.Config) config.Map {
	var (
		info = cfg.AppInfo()
		dmg  = cfg.InstallerConfig(buildenv.PlatformMacOS, "create_dmg")
	)

	iconPositions, ok := dmg["icon"].(config.Map)
	if !ok {
		iconPositions = config.Map{
			info.Name + ".app": []any{140, 200},
			"Applications":     []any{460, 200},
		}
	}

	return config.Map{
		"volname":        stringOr(dmg, "volname", info.DisplayName+" Installer"),
		"window_size":    valueOr(dmg, "window_size", []any{600, 400}),
		"window_pos":     valueOr(dmg, "window_pos", []any{200, 120}),
		"icon_size":      valueOr(dmg, "icon_size", 128),
		"icon_positions": iconPositions,
		"format":         stringOr(dmg, "format", "UDZO"),
		"filesystem":     stringOr(dmg, "filesystem", "HFS+"),
	}
}

// buildPKGConfig assembles the flat-package document consumed by the PKG
// builder.
func (g *MacOS) buildPKGConfig(cfg *config.Config) config.Map {
	var (
		info  = cfg.AppInfo()
		macos = cfg.PlatformView(buildenv.PlatformMacOS)
		pkg   = cfg.InstallerConfig(buildenv.PlatformMacOS, "pkg")
	)

	bundleID := stringOr(macos, "bundle_identifier",
		"com.example."+strings.ToLower(info.Name))

	return config.Map{
		"identifier":       stringOr(pkg, "identifier", bundleID),
		"version":          info.Version,
		"install_location": stringOr(pkg, "install_location", "/Applications"),
		"app_name":         info.Name + ".app",
	}
}

// writePlistString appends a key/string pair to the plist body.
func writePlistString(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "    <key>%s</key>\n    <string>%s</string>\n", key, value)
}

// writePlistBool appends a key/bool pair to the plist body.
func writePlistBool(b *strings.Builder, key string, value bool) {
	fmt.Fprintf(b, "    <key>%s</key>\n    <%t/>\n", key, value)
}

// stringOr reads a string out of a configuration subtree with a default.
func stringOr(m config.Map, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}

	return def
}

// valueOr reads any value out of a configuration subtree with a default.
func valueOr(m config.Map, key string, def any) any {
	if v, ok := m[key]; ok {
		return v
	}

	return def
}
