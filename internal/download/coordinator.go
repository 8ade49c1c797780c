package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"nexusbridge/internal/domain"
	"nexusbridge/internal/nexusapi"
)

// Task is one mod's download requirement, produced by Scan.
type Task struct {
	ModIndex int
	ModName  string
	ModID    int
	FileID   int
	FileSize int64
	Direct   bool
	URL      string // set when Direct
	Filename string // basename to save under in downloadsDir
}

// ScanResult is the outcome of reconciling a collection against an existing
// downloads directory.
type ScanResult struct {
	// ArchivePaths maps mod index -> archive path, for mods already
	// satisfied by a file on disk.
	ArchivePaths map[int]string
	// Tasks lists the mods that still need to be downloaded.
	Tasks []Task
	Skipped int // mods with no modId/fileId and no direct URL
}

// Scan reconciles mods against downloadsDir, applying the archive-reuse
// priority rules: an exact logical-filename prefix match, a "Creation Club -
// " stripped-prefix match, an exact-size "-{modId}-" substring match, and
// finally any "-{modId}-" match as a last-resort fallback.
func Scan(mods []domain.Mod, downloadsDir string) (*ScanResult, error) {
	entries, err := os.ReadDir(downloadsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("scanning downloads directory: %w", err)
	}

	res := &ScanResult{ArchivePaths: make(map[int]string)}

	for i, mod := range mods {
		isDirect := mod.Source == "direct" && mod.URL != ""
		if !isDirect && (mod.ModID <= 0 || mod.FileID <= 0) {
			res.Skipped++
			continue
		}

		if isDirect {
			filename := filepath.Base(mod.URL)
			if filename == "" || filename == "." || filename == "/" {
				filename = mod.Name + ".7z"
			}
			archivePath := filepath.Join(downloadsDir, filename)
			if info, err := os.Stat(archivePath); err == nil && info.Size() > 0 {
				res.ArchivePaths[i] = archivePath
				continue
			}
			res.Tasks = append(res.Tasks, Task{
				ModIndex: i, ModName: mod.Name, FileSize: mod.FileSize,
				Direct: true, URL: mod.URL, Filename: filename,
			})
			continue
		}

		if path, ok := findExistingArchive(entries, mod); ok {
			res.ArchivePaths[i] = filepath.Join(downloadsDir, path)
			continue
		}

		res.Tasks = append(res.Tasks, Task{
			ModIndex: i, ModName: mod.Name, ModID: mod.ModID, FileID: mod.FileID, FileSize: mod.FileSize,
		})
	}

	return res, nil
}

// findExistingArchive applies the four-tier reuse rule against entries
// (the downloads directory listing) for a single Nexus-sourced mod.
func findExistingArchive(entries []os.DirEntry, mod domain.Mod) (string, bool) {
	modIDPattern := "-" + strconv.Itoa(mod.ModID) + "-"
	logicalLower := strings.ToLower(mod.LogicalFilename)

	var fallback string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fname := e.Name()
		fnameLower := strings.ToLower(fname)

		if logicalLower != "" {
			expectedStart := logicalLower + modIDPattern
			if strings.HasPrefix(fnameLower, expectedStart) {
				return fname, true
			}

			const ccPrefix = "creation club - "
			if ccPos := strings.Index(logicalLower, ccPrefix); ccPos != -1 {
				simplified := logicalLower[:ccPos] + logicalLower[ccPos+len(ccPrefix):]
				if strings.HasPrefix(fnameLower, simplified+modIDPattern) {
					return fname, true
				}
			}
		}

		if strings.Contains(fname, modIDPattern) {
			if mod.FileSize > 0 {
				if info, err := e.Info(); err == nil && info.Size() == mod.FileSize {
					return fname, true
				}
			}
			if fallback == "" {
				fallback = fname
			}
		}
	}

	if fallback != "" {
		return fallback, true
	}
	return "", false
}

// Coordinator runs a pool of workers over a ScanResult's download tasks,
// resolving Nexus download links through api and writing archives into
// downloadsDir, with up to 3 retry waves on a reduced pool for failures.
type Coordinator struct {
	API          *nexusapi.Client
	Downloader   *Downloader
	DownloadsDir string
	PoolSize     int
	Progress     domain.ProgressFunc
}

// CoordinatorResult is the outcome of Run.
type CoordinatorResult struct {
	ArchivePaths map[int]string // mod index -> archive path, merged with the initial scan
	Failed       []Task
}

const maxRetryWaves = 3

// Run downloads every task in result.Tasks, merging successes into a copy of
// result.ArchivePaths, and returns the tasks that still failed after
// maxRetryWaves additional passes on a pool capped at 4 workers.
func (c *Coordinator) Run(ctx context.Context, scan *ScanResult) (*CoordinatorResult, error) {
	out := &CoordinatorResult{ArchivePaths: make(map[int]string, len(scan.ArchivePaths))}
	for k, v := range scan.ArchivePaths {
		out.ArchivePaths[k] = v
	}

	tasks := scan.Tasks
	isRetry := false
	for wave := 0; wave <= maxRetryWaves && len(tasks) > 0; wave++ {
		if isRetry {
			select {
			case <-ctx.Done():
				out.Failed = tasks
				return out, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}

		pool := c.PoolSize
		if isRetry && pool > 4 {
			pool = 4
		}
		if pool < 1 {
			pool = 1
		}

		failed := c.runWave(ctx, tasks, pool, out, isRetry)
		tasks = failed
		isRetry = true
	}

	out.Failed = tasks
	return out, nil
}

func (c *Coordinator) runWave(ctx context.Context, tasks []Task, pool int, out *CoordinatorResult, isRetry bool) []Task {
	var (
		mu     sync.Mutex
		idx    int
		failed []Task
		wg     sync.WaitGroup
	)

	next := func() (Task, int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if idx >= len(tasks) {
			return Task{}, 0, false
		}
		t := tasks[idx]
		i := idx
		idx++
		return t, i, true
	}

	for w := 0; w < pool; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, i, ok := next()
				if !ok {
					return
				}
				path, err := c.downloadOne(ctx, task, i, len(tasks))
				mu.Lock()
				if err == nil {
					out.ArchivePaths[task.ModIndex] = path
				} else {
					failed = append(failed, task)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	_ = isRetry
	return failed
}

func (c *Coordinator) downloadOne(ctx context.Context, task Task, idx, total int) (string, error) {
	progress := func(downloaded, totalBytes int64) {
		if c.Progress == nil {
			return
		}
		c.Progress(domain.ProgressEvent{
			Phase: domain.PhaseDownload, ModName: task.ModName,
			Current: idx + 1, Total: total, Bytes: downloaded, TotalBytes: totalBytes,
		})
	}

	if task.Direct {
		destPath := filepath.Join(c.DownloadsDir, task.Filename)
		res, err := c.Downloader.Download(ctx, task.URL, destPath, progress)
		if err != nil {
			return "", err
		}
		return res.Path, nil
	}

	links, err := c.API.GetDownloadLinks(ctx, task.ModID, task.FileID)
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "", fmt.Errorf("%w: no download links for %s (premium required or unavailable)", domain.ErrDownloadFailed, task.ModName)
	}

	filename := SanitizeDownloadName(fmt.Sprintf("%s-%d-%d.7z", task.ModName, task.ModID, task.FileID))
	destPath := filepath.Join(c.DownloadsDir, filename)
	res, err := c.Downloader.Download(ctx, links[0].URI, destPath, progress)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// SanitizeDownloadName strips filesystem-illegal characters from a proposed
// download filename, exported so a manually-resolved nxm:// download can use
// the same on-disk naming convention the coordinator does.
func SanitizeDownloadName(name string) string {
	const illegal = `/\:*?"<>|`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(illegal, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
