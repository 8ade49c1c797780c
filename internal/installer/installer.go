// Package installer drives the end-to-end collection install pipeline:
// scanning and downloading archives, extracting and placing each mod's
// files, then writing the MO2 load order files. It wires together
// internal/download, internal/archive, internal/fomodengine,
// internal/modsort, internal/pluginsort and internal/history the way the
// reference installer's single monolithic run loop does, split across
// Go files by concern instead of by class.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"nexusbridge/internal/archive"
	"nexusbridge/internal/download"
	"nexusbridge/internal/domain"
	"nexusbridge/internal/history"
	"nexusbridge/internal/modsort"
	"nexusbridge/internal/nexusapi"
	"nexusbridge/internal/pluginsort"
)

// Installer holds everything needed to run one collection install.
type Installer struct {
	API        *nexusapi.Client
	Downloader *download.Downloader
	Extractor  *archive.Extractor
	History    *history.DB

	MO2Path        string // root of the target MO2 instance
	Profile        string // profile name under <mo2>/profiles
	CollectionSlug string // Nexus collection slug, for history and the archived descriptor filename
	PoolSize       int
	AutoYes        bool // skip the post-retry "continue anyway?" confirmation
	Confirm        func(prompt string) bool
	Progress       domain.ProgressFunc
}

// Result summarizes one completed Run.
type Result struct {
	Installed    int
	Failed       []download.Task
	ModOrder     []string
	PluginOrder  []string
	Violations   int
}

func (in *Installer) modsDir() string      { return filepath.Join(in.MO2Path, "mods") }
func (in *Installer) downloadsDir() string { return filepath.Join(in.MO2Path, "downloads") }
func (in *Installer) profileDir() string {
	profile := in.Profile
	if profile == "" {
		profile = "Default"
	}
	return filepath.Join(in.MO2Path, "profiles", profile)
}

// Run executes the full pipeline against an already-parsed collection:
// download every mod's archive (reusing what's already on disk), install
// each into its own mods/ folder, then compute and write both load-order
// files.
func (in *Installer) Run(ctx context.Context, collection *domain.Collection) (*Result, error) {
	if err := os.MkdirAll(in.modsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating mods directory: %w", err)
	}
	if err := os.MkdirAll(in.downloadsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating downloads directory: %w", err)
	}
	if err := os.MkdirAll(in.profileDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}

	result := &Result{}
	runID := uuid.NewString()

	if in.History != nil {
		if err := in.History.StartRun(history.Run{
			RunID: runID, CollectionSlug: in.CollectionSlug, CollectionName: collection.Name,
			GameDomain: collection.GameDomain, MO2Path: in.MO2Path,
		}); err != nil {
			return nil, fmt.Errorf("recording run start: %w", err)
		}
	}

	scan, err := download.Scan(collection.Mods, in.downloadsDir())
	if err != nil {
		return nil, fmt.Errorf("scanning downloads: %w", err)
	}

	coord := &download.Coordinator{
		API:          in.API,
		Downloader:   in.Downloader,
		DownloadsDir: in.downloadsDir(),
		PoolSize:     in.PoolSize,
		Progress:     in.Progress,
	}
	dlResult, err := coord.Run(ctx, scan)
	if err != nil {
		return nil, fmt.Errorf("downloading mods: %w", err)
	}

	if len(dlResult.Failed) > 0 && !in.AutoYes {
		if in.Confirm == nil || !in.Confirm(fmt.Sprintf("%d mod(s) failed to download after retries. Continue installing the rest?", len(dlResult.Failed))) {
			result.Failed = dlResult.Failed
			return result, fmt.Errorf("%w: %d mods failed to download", domain.ErrDownloadFailed, len(dlResult.Failed))
		}
	}
	result.Failed = dlResult.Failed

	tempDir, err := os.MkdirTemp("", "nexusbridge-extract-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Phase 2 runs on its own worker pool, exactly like the download
	// coordinator's Phase 1b: each task owns a unique scratch/destination
	// pair by construction, so installs are independent and safe to run
	// concurrently. The success count in result.Installed is kept under
	// resultMu; a failed install is reported through Progress only and is
	// not counted in Result.
	var (
		resultMu sync.Mutex
		idx      int
		wg       sync.WaitGroup
	)
	next := func() (int, bool) {
		resultMu.Lock()
		defer resultMu.Unlock()
		if idx >= len(collection.Mods) {
			return 0, false
		}
		i := idx
		idx++
		return i, true
	}

	pool := in.PoolSize
	if pool < 4 {
		pool = 4
	}
	for w := 0; w < pool; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := next()
				if !ok {
					return
				}

				mod := &collection.Mods[i]
				archivePath, ok := dlResult.ArchivePaths[i]
				if !ok {
					continue // failed download, already recorded above
				}

				folder := folderName(*mod)
				mod.FolderName = folder
				destPath := filepath.Join(in.modsDir(), folder)

				if existing, err := os.Stat(destPath); err == nil && existing.IsDir() && nonEmpty(destPath) {
					in.report(domain.ProgressEvent{Phase: domain.PhaseInstall, ModName: mod.Name, Current: i + 1, Total: len(collection.Mods), Done: true})
					resultMu.Lock()
					result.Installed++
					resultMu.Unlock()
					continue
				}

				task := installContext{
					index:       i,
					mod:         *mod,
					folder:      folder,
					archivePath: archivePath,
					tempDir:     tempDir,
					destPath:    destPath,
				}
				if err := in.installMod(ctx, task); err != nil {
					in.report(domain.ProgressEvent{Phase: domain.PhaseInstall, ModName: mod.Name, Current: i + 1, Total: len(collection.Mods), Err: err})
					continue
				}
				in.report(domain.ProgressEvent{Phase: domain.PhaseInstall, ModName: mod.Name, Current: i + 1, Total: len(collection.Mods), Done: true})

				resultMu.Lock()
				result.Installed++
				resultMu.Unlock()

				if in.History != nil {
					_ = in.History.RecordInstalledMod(history.InstalledMod{
						RunID: runID, ModKey: mod.Key(), FolderName: folder, ArchivePath: archivePath, Checksum: mod.MD5,
					})
				}
			}
		}()
	}
	wg.Wait()

	in.report(domain.ProgressEvent{Phase: domain.PhaseSort, ModName: collection.Name})

	gamePath := pluginsort.DiscoverGamePath(in.MO2Path)
	sortedPlugins := pluginsort.Sort(collection.Plugins, collection.PluginRules, in.modsDir(), gamePath)
	modOrder := modsort.GenerateModOrderCombined(collection.Mods, collection.ModRules, sortedPlugins, in.modsDir())

	if err := modsort.WriteModList(filepath.Join(in.profileDir(), "modlist.txt"), modOrder); err != nil {
		return nil, fmt.Errorf("writing modlist.txt: %w", err)
	}
	if err := pluginsort.WritePluginList(filepath.Join(in.profileDir(), "plugins.txt"), sortedPlugins); err != nil {
		return nil, fmt.Errorf("writing plugins.txt: %w", err)
	}

	result.ModOrder = modOrder
	result.PluginOrder = sortedPlugins
	result.Violations = modsort.CountViolations(collection.Mods, collection.ModRules, modOrder)

	if in.History != nil {
		_ = in.History.FinishRun(runID, result.Installed, len(result.Failed))
	}

	return result, nil
}

func (in *Installer) report(e domain.ProgressEvent) {
	if in.Progress != nil {
		in.Progress(e)
	}
}

func nonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
