package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unifypy/unifypy/internal/buildenv"
	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/logger"
)

// Linux renders the Debian control file, the RPM spec and the desktop
// entry. The control and spec files are only produced when their package
// format is configured.
type Linux struct {
	env *buildenv.Context
}

// NewLinux creates the Linux generator for the given build environment. The
// environment supplies the per-format architecture spellings.
func NewLinux(env *buildenv.Context) *Linux {
	return &Linux{env: env}
}

// Platform implements Generator.
func (g *Linux) Platform() string {
	return buildenv.PlatformLinux
}

// FileTypes implements Generator.
func (g *Linux) FileTypes() []string {
	return []string{"control", "spec", "desktop"}
}

// ResourceFields implements Generator.
func (g *Linux) ResourceFields() []string {
	return []string{"deb.icon", "rpm.icon", "appimage.icon"}
}

// Generate renders the configured Linux artifact descriptions into the cache.
func (g *Linux) Generate(ctx context.Context, cfg *config.Config, store *cache.Store) error {
	view := cfg.PlatformView(g.Platform())

	if _, ok := view["deb"]; ok {
		if err := store.SaveGeneratedFile(g.Platform(), "control", g.buildControl(cfg)); err != nil {
			return fmt.Errorf("cache control file: %w", err)
		}
	}

	if _, ok := view["rpm"]; ok {
		if err := store.SaveGeneratedFile(g.Platform(), "spec", g.buildSpec(cfg)); err != nil {
			return fmt.Errorf("cache rpm spec: %w", err)
		}
	}

	if err := store.SaveGeneratedFile(g.Platform(), "desktop", g.buildDesktopEntry(cfg)); err != nil {
		return fmt.Errorf("cache desktop entry: %w", err)
	}

	logger.Debug(ctx, "Rendered Linux artifact descriptions")

	return nil
}

// buildControl assembles the Debian control file.
func (g *Linux) buildControl(cfg *config.Config) string {
	var (
		info = cfg.AppInfo()
		deb  = cfg.InstallerConfig(buildenv.PlatformLinux, "deb")
		name = strings.ToLower(info.Name)
	)

	var b strings.Builder

	fmt.Fprintf(&b, "Package: %s\n", name)
	fmt.Fprintf(&b, "Version: %s\n", info.Version)
	fmt.Fprintf(&b, "Section: %s\n", stringOr(deb, "section", "utils"))
	fmt.Fprintf(&b, "Priority: %s\n", stringOr(deb, "priority", "optional"))
	fmt.Fprintf(&b, "Architecture: %s\n", g.env.ArchForFormat("deb"))
	fmt.Fprintf(&b, "Maintainer: %s\n", stringOr(deb, "maintainer", info.Publisher))
	fmt.Fprintf(&b, "Description: %s\n", stringOr(deb, "description", info.DisplayName))

	if depends := dependsList(deb); depends != "" {
		fmt.Fprintf(&b, "Depends: %s\n", depends)
	}

	return b.String()
}

// dependsList renders the deb depends value, accepting a list or a string.
func dependsList(deb config.Map) string {
	switch typed := deb["depends"].(type) {
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}

		return strings.Join(parts, ", ")
	case string:
		return typed
	default:
		return ""
	}
}

// buildSpec assembles the RPM spec file.
func (g *Linux) buildSpec(cfg *config.Config) string {
	var (
		info = cfg.AppInfo()
		rpm  = cfg.InstallerConfig(buildenv.PlatformLinux, "rpm")
		name = strings.ToLower(info.Name)
	)

	var b strings.Builder

	fmt.Fprintf(&b, "Name:           %s\n", name)
	fmt.Fprintf(&b, "Version:        %s\n", info.Version)
	b.WriteString("Release:        1%{?dist}\n")
	fmt.Fprintf(&b, "Summary:        %s\n", stringOr(rpm, "summary", info.DisplayName))
	b.WriteString("\n")
	fmt.Fprintf(&b, "License:        %s\n", stringOr(rpm, "license", "Unknown"))
	fmt.Fprintf(&b, "URL:            %s\n", stringOr(rpm, "url", ""))
	b.WriteString("Source0:        %{name}-%{version}.tar.gz\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "BuildArch:      %s\n", g.env.ArchForFormat("rpm"))
	b.WriteString("\n%description\n")
	fmt.Fprintf(&b, "%s\n", stringOr(rpm, "description", info.DisplayName))
	b.WriteString("\n%prep\n%setup -q\n")
	b.WriteString("\n%install\n")
	b.WriteString("rm -rf $RPM_BUILD_ROOT\n")
	fmt.Fprintf(&b, "mkdir -p $RPM_BUILD_ROOT/opt/%s\n", info.Name)
	b.WriteString("mkdir -p $RPM_BUILD_ROOT/usr/local/bin\n")
	fmt.Fprintf(&b, "cp -r * $RPM_BUILD_ROOT/opt/%s/\n", info.Name)
	fmt.Fprintf(&b, "cat > $RPM_BUILD_ROOT/usr/local/bin/%s << 'EOF'\n", name)
	b.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&b, "cd /opt/%s\n", info.Name)
	fmt.Fprintf(&b, "exec ./%s \"$@\"\n", info.Name)
	b.WriteString("EOF\n")
	fmt.Fprintf(&b, "chmod +x $RPM_BUILD_ROOT/usr/local/bin/%s\n", name)
	b.WriteString("\n%files\n%defattr(-,root,root,-)\n")
	fmt.Fprintf(&b, "/opt/%s/*\n", info.Name)
	fmt.Fprintf(&b, "/usr/local/bin/%s\n", name)
	b.WriteString("\n%changelog\n")
	fmt.Fprintf(&b, "* %s %s - %s-1\n",
		time.Now().Format("Mon Jan 02 2006"),
		stringOr(rpm, "packager", "Unknown <unknown@example.com>"),
		info.Version)
	b.WriteString("- Initial package\n")

	return b.String()
}

// buildDesktopEntry assembles the freedesktop.org desktop entry.
func (g *Linux) buildDesktopEntry(cfg *config.Config) string {
	var (
		info = cfg.AppInfo()
		name = strings.ToLower(info.Name)
	)

	var b strings.Builder

	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", info.DisplayName)
	fmt.Fprintf(&b, "Exec=%s\n", name)
	fmt.Fprintf(&b, "Icon=%s\n", name)
	fmt.Fprintf(&b, "Comment=%s\n", cfg.GetString("description", info.DisplayName))
	b.WriteString("Categories=Utility;Development;\n")
	b.WriteString("Terminal=false\n")
	fmt.Fprintf(&b, "Version=%s\n", info.Version)

	return b.String()
}
