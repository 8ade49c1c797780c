package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"nexusbridge/internal/archive"
	"nexusbridge/internal/domain"
	"nexusbridge/internal/download"
	"nexusbridge/internal/installer"
	"nexusbridge/internal/nexusapi"
	"nexusbridge/internal/progress"
	"nexusbridge/internal/progresstui"
)

var (
	installQuery bool
	installNXM   string
)

var installCmd = &cobra.Command{
	Use:   "install <collection-url-or-file>",
	Short: "Install a Nexus Mods collection into the configured MO2 instance",
	Long: `Downloads and installs every mod in a collection, resolving FOMOD
installers and writing modlist.txt/plugins.txt in dependency order.

The argument may be a nexusmods.com collection page URL, a bare collection
slug, or a path to a local collection.json file.

Examples:
  nxbridge install https://next.nexusmods.com/skyrimspecialedition/collections/abc123
  nxbridge install abc123 --mo2 ~/Games/MO2/Skyrim
  nxbridge install ./collection.json --query`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installQuery, "query", false, "print what would be installed and exit, without downloading or installing anything")
	installCmd.Flags().StringVar(&installNXM, "nxm", "", "an nxm://<game>/mods/<id>/files/<fileId>?key=...&expires=... link to satisfy one queued download manually (non-premium flow)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, configDir, err := loadAppConfig()
	if err != nil {
		return err
	}
	if cfg.MO2Path == "" {
		return fmt.Errorf("no MO2 instance path configured; pass --mo2 or set mo2_path in config.yaml")
	}

	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		return fmt.Errorf("no Nexus API key configured; set NEXUS_API_KEY or api_key in config.yaml")
	}

	// The game domain isn't known until the collection descriptor is parsed,
	// so the client starts with a placeholder and is refreshed once resolved.
	api := nexusapi.NewClient(nil, apiKey, "skyrimspecialedition")

	account, err := api.ValidateAPIKey(ctx)
	if err != nil {
		return fmt.Errorf("validating api key: %w", err)
	}
	// --query is diagnostic-only (no downloads ever happen), so it still
	// reports premium status instead of refusing; only the real pipeline,
	// which needs premium-gated CDN links, is blocked on it.
	if !installQuery && !account.IsPremium {
		return fmt.Errorf("%w: account %q is not Premium; direct downloads are unavailable — use --nxm to supply manual nxm:// links instead", domain.ErrPremiumRequired, account.Name)
	}

	extractor := archive.NewExtractor()
	col, slug, rawDescriptor, err := resolveCollection(ctx, api, extractor, args[0])
	if err != nil {
		return err
	}
	api = nexusapi.NewClient(nil, apiKey, col.GameDomain)

	if installQuery {
		summary, err := buildQuerySummary(col, cfg.MO2Path, account.IsPremium)
		if err != nil {
			return err
		}
		printQuerySummary(summary)
		return nil
	}

	fmt.Printf("Installing %s by %s (%d mods, %d plugins)\n", col.Name, col.Author, len(col.Mods), len(col.Plugins))

	if err := archiveCollectionDescriptor(cfg.MO2Path, slug, rawDescriptor); err != nil {
		return fmt.Errorf("archiving collection descriptor: %w", err)
	}

	if installNXM != "" {
		downloadsDir := filepath.Join(cfg.MO2Path, "downloads")
		if err := resolveNXM(ctx, api, col, downloadsDir, installNXM); err != nil {
			return fmt.Errorf("resolving --nxm link: %w", err)
		}
	}

	hist, err := openHistory(configDir)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer hist.Close()

	in := &installer.Installer{
		API:            api,
		Downloader:     download.NewDownloader(&http.Client{Timeout: 30 * time.Minute}),
		Extractor:      extractor,
		History:        hist,
		MO2Path:        cfg.MO2Path,
		Profile:        profile,
		CollectionSlug: slug,
		PoolSize:       cfg.DownloadPool,
		AutoYes:        autoYes,
		Confirm:        confirm,
	}

	if useTUI {
		ch := make(chan domain.ProgressEvent, 64)
		in.Progress = func(e domain.ProgressEvent) { ch <- e }
		go func() { _ = progresstui.Run(ch) }()
		defer close(ch)
	} else {
		reporter := progress.NewStdoutReporter()
		in.Progress = reporter.Report
	}

	result, err := in.Run(ctx, col)
	if err != nil {
		return err
	}

	fmt.Printf("%s Installed %d mod(s)", colorGreen("✓"), result.Installed)
	if len(result.Failed) > 0 {
		fmt.Printf(", %s\n", colorYellow(fmt.Sprintf("%d failed", len(result.Failed))))
	} else {
		fmt.Println()
	}
	if result.Violations > 0 {
		fmt.Println(colorYellow(fmt.Sprintf("%d load-order constraint(s) could not be fully satisfied", result.Violations)))
	}

	return nil
}

// archiveCollectionDescriptor copies the resolved collection descriptor next
// to the MO2 instance, so a future rerun or diff has the exact revision that
// was installed.
func archiveCollectionDescriptor(mo2Path, slug string, data []byte) error {
	dest := filepath.Join(mo2Path, fmt.Sprintf("collection_%s.json", slug))
	return os.WriteFile(dest, data, 0o644)
}
