package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/logger"
)

// Windows renders the Inno Setup script.
type Windows struct{}

// NewWindows creates the Windows generator.
func NewWindows() *Windows {
	return &Windows{}
}

// Platform implements Generator.
func (g *Windows) Platform() string {
	return buildenv.PlatformWindows
}

// FileTypes implements Generator.
func (g *Windows) FileTypes() []string {
	return []string{"iss"}
}

// ResourceFields implements Generator.
func (g *Windows) ResourceFields() []string {
	return []string{"inno_setup.setup_icon", "inno_setup.license_file"}
}

// Generate renders setup.iss into the cache.
func (g *Windows) Generate(ctx context.Context, cfg *config.Config, store *cache.Store) error {
	content := g.buildSetupScript(cfg)

	if err := store.SaveGeneratedFile(g.Platform(), "iss", content); err != nil {
		return fmt.Errorf("cache setup.iss: %w", err)
	}

	logger.DebugKV(ctx, "Rendered Inno Setup script", "bytes", len(content))

	return nil
}

// buildSetupScript assembles the .iss document from the application info and
// the inno_setup section.
func (g *Windows) buildSetupScript(cfg *config.Config) string {
	var (
		info = cfg.AppInfo()
		inno = cfg.InstallerConfig(buildenv.PlatformWindows, "inno_setup")
	)

	appID, _ := inno["app_id"].(string)

	var b strings.Builder

	b.WriteString("[Setup]\n")
	// The template braces the id itself; the stored value is braceless.
	fmt.Fprintf(&b, "AppId={%s}\n", appID)
	fmt.Fprintf(&b, "AppName=%s\n", info.Name)
	fmt.Fprintf(&b, "AppVersion=%s\n", info.Version)
	fmt.Fprintf(&b, "AppVerName=%s %s\n", info.DisplayName, info.Version)
	fmt.Fprintf(&b, "AppPublisher=%s\n", info.Publisher)
	fmt.Fprintf(&b, "DefaultDirName={autopf}\\%s\n", info.Name)
	fmt.Fprintf(&b, "DefaultGroupName=%s\n", info.Name)
	b.WriteString("AllowNoIcons=yes\n")
	b.WriteString("OutputDir=output\n")
	fmt.Fprintf(&b, "OutputBaseFilename=%s-%s-setup\n", info.Name, info.Version)
	b.WriteString("Compression=lzma\n")
	b.WriteString("SolidCompression=yes\n")
	b.WriteString("WizardStyle=modern\n")

	b.WriteString("\n[Languages]\n")
	b.WriteString(`Name: "english"; MessagesFile: "compiler:Default.isl"` + "\n")

	if hasLanguage(inno, "chinesesimplified") || hasLanguage(inno, "chinese") {
		b.WriteString(`Name: "chinesesimplified"; MessagesFile: "compiler:Languages\ChineseSimplified.isl"` + "\n")
	}

	desktopIcon := boolOr(inno, "create_desktop_icon", true)

	b.WriteString("\n[Tasks]\n")
	if desktopIcon {
		b.WriteString(`Name: "desktopicon"; Description: "{cm:CreateDesktopIcon}"; GroupDescription: "{cm:AdditionalIcons}"; Flags: unchecked` + "\n")
	}

	b.WriteString("\n[Files]\n")
	fmt.Fprintf(&b, "Source: \"dist\\%s.exe\"; DestDir: \"{app}\"; Flags: ignoreversion\n", info.Name)

	b.WriteString("\n[Icons]\n")
	fmt.Fprintf(&b, "Name: \"{group}\\%s\"; Filename: \"{app}\\%s.exe\"\n", info.DisplayName, info.Name)

	if desktopIcon {
		fmt.Fprintf(&b, "Name: \"{autodesktop}\\%s\"; Filename: \"{app}\\%s.exe\"; Tasks: desktopicon\n",
			info.DisplayName, info.Name)
	}

	if boolOr(inno, "run_after_install", false) {
		b.WriteString("\n[Run]\n")
		fmt.Fprintf(&b, "Filename: \"{app}\\%s.exe\"; Description: \"{cm:LaunchProgram,%s}\"; Flags: nowait postinstall skipifsilent\n",
			info.Name, info.DisplayName)
	}

	return b.String()
}

// hasLanguage reports whether the inno_setup languages list contains a name.
func hasLanguage(inno config.Map, name string) bool {
	languages, ok := inno["languages"].([]any)
	if !ok {
		return false
	}

	for _, lang := range languages {
		if s, ok := lang.(string); ok && s == name {
			return true
		}
	}

	return false
}

// boolOr reads a bool out of a configuration subtree with a default.
func boolOr(m config.Map, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}

	return def
}
