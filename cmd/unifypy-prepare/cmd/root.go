package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/logger"
	"github.com/unifypy/unifypy/internal/service/prepare"
	"github.com/unifypy/unifypy/internal/version"
)

var (
	// configPath to the build configuration file (JSON or YAML).
	configPath string
	// platform overrides target platform detection.
	platform string
	// verbose enables debug logging, quiet restricts output to warnings.
	verbose bool
	quiet   bool
	// force regenerates even when cached fingerprints are current.
	force bool

	// Configuration override flags, applied above all file layers.
	appName       string
	appVersion    string
	displayName   string
	publisher     string
	entry         string
	icon          string
	licenseFile   string
	readme        string
	onefile       bool
	skipExe       bool
	skipInstaller bool

	// rootCmd prepares the platform installer configurations of a project.
	rootCmd = &cobra.Command{
		Use:   "unifypy-prepare [project-dir]",
		Short: "Resolve build configuration and pre-generate platform installer files",
		Long: `Resolves the layered build configuration of a Python project and
pre-generates the platform installer configuration files (Inno Setup script,
Debian control, RPM spec, desktop entry, Info.plist, DMG and PKG settings)
into the project's .unifypy cache.

Files are regenerated only when the configuration fingerprint changed since
the last run. Platforms are processed independently: one platform failing
does not block the others.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			opts := optionsFromArgs(cmd, args)
			opts.Force = force

			return prepare.Run(ctx, opts)
		},
	}
)

// Execute runs the unifypy-prepare CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	cobra.OnInitialize(applyLogLevel)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to the build configuration file (default: build.json|build.yaml in the project)")
	pf.StringVarP(&platform, "platform", "p", "", "target platform override (windows, macos, linux)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")

	f := rootCmd.Flags()
	f.BoolVar(&force, "force", false, "regenerate even when cached fingerprints are current")
	f.StringVar(&appName, "name", "", "override the application name")
	f.StringVar(&appVersion, "app-version", "", "override the application version")
	f.StringVar(&displayName, "display-name", "", "override the display name")
	f.StringVar(&publisher, "publisher", "", "override the publisher")
	f.StringVar(&entry, "entry", "", "override the entry script")
	f.StringVar(&icon, "icon", "", "override the icon file")
	f.StringVar(&licenseFile, "license", "", "override the license file")
	f.StringVar(&readme, "readme", "", "override the readme file")
	f.BoolVar(&onefile, "onefile", false, "build a single-file executable")
	f.BoolVar(&skipExe, "skip-exe", false, "skip executable build steps downstream")
	f.BoolVar(&skipInstaller, "skip-installer", false, "skip installer build steps downstream")
}

// applyLogLevel maps the verbosity flags onto the logger level.
func applyLogLevel() {
	switch {
	case verbose:
		logger.SetLevel(zapcore.DebugLevel)
	case quiet:
		logger.SetLevel(zapcore.WarnLevel)
	}
}

// optionsFromArgs assembles service options from the positional project
// directory and whatever override flags were explicitly set.
func optionsFromArgs(cmd *cobra.Command, args []string) *prepare.Options {
	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}

	return &prepare.Options{
		ProjectDir: projectDir,
		ConfigPath: configPath,
		Platform:   platform,
		Overrides:  collectOverrides(cmd),
	}
}

// collectOverrides turns explicitly set flags into the highest-precedence
// configuration layer. Unset flags contribute nothing, so file values and
// defaults keep working.
func collectOverrides(cmd *cobra.Command) config.Map {
	overrides := make(config.Map)

	stringFlags := map[string]*string{
		"name":         &appName,
		"app-version":  &appVersion,
		"display-name": &displayName,
		"publisher":    &publisher,
		"entry":        &entry,
		"icon":         &icon,
		"license":      &licenseFile,
		"readme":       &readme,
	}

	// Flag names differ from configuration keys for a few entries.
	configKeys := map[string]string{
		"app-version":    "version",
		"display-name":   "display_name",
		"skip-exe":       "skip_exe",
		"skip-installer": "skip_installer",
	}

	for flag, value := range stringFlags {
		if cmd.Flags().Changed(flag) {
			overrides[configKeyFor(flag, configKeys)] = *value
		}
	}

	boolFlags := map[string]*bool{
		"onefile":        &onefile,
		"skip-exe":       &skipExe,
		"skip-installer": &skipInstaller,
	}

	for flag, value := range boolFlags {
		if cmd.Flags().Changed(flag) {
			overrides[configKeyFor(flag, configKeys)] = *value
		}
	}

	if len(overrides) == 0 {
		return nil
	}

	return overrides
}

func configKeyFor(flag string, renames map[string]string) string {
	if key, ok := renames[flag]; ok {
		return key
	}

	return flag
}
