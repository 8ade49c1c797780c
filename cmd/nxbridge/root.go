package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appconfig "nexusbridge/internal/config"
	"nexusbridge/internal/history"
)

// ErrCancelled makes Execute exit with code 2, distinct from an ordinary
// error. A declined download-failure prompt is reported by the installer as
// domain.ErrDownloadFailed instead, and so exits with code 1.
var ErrCancelled = errors.New("cancelled")

var (
	version = "0.1.0"

	configDir string
	mo2Path   string
	profile   string
	verbose   bool
	noColor   bool
	jsonOut   bool
	useTUI    bool
	autoYes   bool
)

var rootCmd = &cobra.Command{
	Use:   "nxbridge",
	Short: "Install Nexus Mods collections into Mod Organizer 2 without Vortex",
	Long: `nxbridge downloads, extracts, and installs every mod in a Nexus Mods
collection directly into a Mod Organizer 2 instance, resolving FOMOD
installers and computing a dependency-respecting mod and plugin load order.

Run 'nxbridge install <collection-url-or-file>' to install a collection.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/nxbridge)")
	rootCmd.PersistentFlags().StringVar(&mo2Path, "mo2", "", "path to the target Mod Organizer 2 instance")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "MO2 profile name (default: Default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "render a live progress TUI instead of plain log lines")
	rootCmd.PersistentFlags().BoolVarP(&autoYes, "yes", "y", false, "answer yes to all confirmation prompts")
}

// colorEnabled reports whether colored output should be used, respecting
// both --no-color and the NO_COLOR convention (https://no-color.org).
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

func colorGreen(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiGreen + s + ansiReset
}

func colorRed(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiRed + s + ansiReset
}

func colorYellow(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiYellow + s + ansiReset
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error,
// 2 = an error wrapping ErrCancelled.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, ErrCancelled) {
			os.Exit(2)
		}
		if jsonOut {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintln(os.Stderr, colorRed("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

// resolvedConfigDir returns --config, defaulting to ~/.config/nxbridge.
func resolvedConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "nxbridge"), nil
}

// loadAppConfig loads the persisted config, falling back to defaults, and
// applies a --mo2 override passed on the command line. --profile is not part
// of the config; runInstall reads it directly.
func loadAppConfig() (*appconfig.Config, string, error) {
	dir, err := resolvedConfigDir()
	if err != nil {
		return nil, "", err
	}
	cfg, err := appconfig.Load(dir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if mo2Path != "" {
		cfg.MO2Path = mo2Path
	}
	return cfg, dir, nil
}

// openHistory opens the install-history database under configDir, creating
// it (and applying migrations) if it doesn't yet exist.
func openHistory(configDir string) (*history.DB, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	return history.Open(filepath.Join(configDir, "history.db"))
}

// confirm prompts the user with a [y/N] question, honoring --yes.
func confirm(prompt string) bool {
	if autoYes {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "Y"
}
