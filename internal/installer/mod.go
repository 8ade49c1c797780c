package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nexusbridge/internal/archive"
	"nexusbridge/internal/descriptor"
	"nexusbridge/internal/domain"
	"nexusbridge/internal/fomodengine"
)

// folderName computes a mod's MO2 mods/ subdirectory name: direct-download
// mods get their sanitized display name; Nexus-sourced mods get their
// sanitized logical filename (falling back to name) plus a "-modId-fileId"
// suffix so re-running against an updated collection doesn't collide with
// an older file of the same mod.
func folderName(mod domain.Mod) string {
	if mod.Source == "direct" {
		return archive.SanitizeFolderName(mod.Name)
	}
	key := mod.LogicalFilename
	if key == "" {
		key = mod.Name
	}
	return fmt.Sprintf("%s-%d-%d", archive.SanitizeFolderName(key), mod.ModID, mod.FileID)
}

// installMod extracts archivePath into a scratch directory under tempDir,
// normalizes it, and installs its content into destModPath — trying, in
// order, a FOMOD install driven by the mod's recorded choices, a hash-based
// FOMOD install driven by the collection's expected file list, and a plain
// variant-aware copy.
func (in *Installer) installMod(ctx context.Context, task installContext) error {
	extractPath := filepath.Join(task.tempDir, fmt.Sprintf("%s_%d", task.folder, task.index))
	defer os.RemoveAll(extractPath)

	if err := os.RemoveAll(extractPath); err != nil {
		return fmt.Errorf("clearing scratch dir: %w", err)
	}
	if err := in.Extractor.Extract(ctx, task.archivePath, extractPath); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	if err := archive.FixBackslashFilenames(extractPath); err != nil {
		return fmt.Errorf("normalizing filenames: %w", err)
	}

	contentRoot, err := archive.DetectWrapperFolder(extractPath)
	if err != nil {
		return fmt.Errorf("detecting wrapper folder: %w", err)
	}

	fomodXML, err := fomodengine.FindModuleConfig(contentRoot)
	if err != nil {
		return fmt.Errorf("searching for fomod config: %w", err)
	}

	switch {
	case fomodXML != "" && len(task.mod.ChoicesRaw) > 0:
		choices, err := descriptor.ParseChoices(task.mod.ChoicesRaw)
		if err != nil {
			return fmt.Errorf("parsing fomod choices: %w", err)
		}
		if err := fomodengine.Process(contentRoot, task.destPath, choices); err != nil {
			return fmt.Errorf("running fomod install: %w", err)
		}

	case fomodXML != "" && len(task.mod.ExpectedPaths) > 0:
		if err := installByExpectedPaths(contentRoot, task.destPath, task.mod.ExpectedPaths); err != nil {
			return fmt.Errorf("hash-based fomod install: %w", err)
		}

	default:
		installFrom, err := archive.SelectVariantFolder(contentRoot, task.mod.Name)
		if err != nil {
			return fmt.Errorf("selecting variant folder: %w", err)
		}
		if err := os.MkdirAll(task.destPath, 0o755); err != nil {
			return fmt.Errorf("creating destination: %w", err)
		}
		if err := archive.CopyDirMerge(installFrom, task.destPath); err != nil {
			return fmt.Errorf("copying mod files: %w", err)
		}

		// CopyDirMerge can silently under-copy when the variant folder holds
		// files the merge logic skips (e.g. dotfiles, unreadable entries
		// during a flaky extraction). Verify by file count and fall back to
		// an explicit recursive copy before giving up.
		srcCount, dstCount := countFiles(installFrom), countFiles(task.destPath)
		if dstCount < srcCount {
			if err := copyAllFiles(installFrom, task.destPath); err != nil {
				return fmt.Errorf("retrying copy after short count (%d/%d files): %w", dstCount, srcCount, err)
			}
		}
	}

	if err := archive.FlattenDataFolder(task.destPath); err != nil {
		return fmt.Errorf("flattening data folder: %w", err)
	}
	return nil
}

// installContext bundles one mod's install-time parameters, avoiding a
// long installMod argument list.
type installContext struct {
	index       int
	mod         domain.Mod
	folder      string
	archivePath string
	tempDir     string
	destPath    string
}

// countFiles returns the number of regular files under root, used to detect
// a short copy.
func countFiles(root string) int {
	n := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

// copyAllFiles walks src and copies every file into dst, preserving relative
// structure, overwriting anything already there. It's the fallback used when
// CopyDirMerge produces fewer files than the source held.
func copyAllFiles(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(destPath, data, info.Mode())
	})
}

// installByExpectedPaths copies only the archive files named in
// expectedPaths (the collection's recorded file-hash paths), matching
// case-insensitively and allowing a suffix match against a deeper archive
// path — FOMOD archives frequently nest the real payload in a subfolder the
// expected-path list doesn't know about. Falls back to a plain variant copy
// if nothing matched.
func installByExpectedPaths(contentRoot, destPath string, expectedPaths []string) error {
	index := make(map[string]string)
	err := filepath.Walk(contentRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil //nolint:nilerr
		}
		rel, relErr := filepath.Rel(contentRoot, path)
		if relErr != nil {
			return nil
		}
		index[strings.ToLower(filepath.ToSlash(rel))] = path
		return nil
	})
	if err != nil {
		return err
	}

	copied := 0
	for _, expected := range expectedPaths {
		lowerExpected := strings.ToLower(filepath.ToSlash(expected))

		source, ok := index[lowerExpected]
		if !ok {
			for archivePath, fullPath := range index {
				if strings.HasSuffix(archivePath, lowerExpected) {
					source, ok = fullPath, true
					break
				}
			}
		}
		if !ok {
			continue
		}

		dest := filepath.Join(destPath, filepath.FromSlash(expected))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		data, err := os.ReadFile(source)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		copied++
	}

	if copied > 0 {
		return nil
	}

	installFrom, err := archive.SelectVariantFolder(contentRoot, "")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destPath, 0o755); err != nil {
		return err
	}
	return archive.CopyDirMerge(installFrom, destPath)
}
