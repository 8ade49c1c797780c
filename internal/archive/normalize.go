// Package archive extracts mod archives with an external 7-Zip binary and
// normalises the extracted tree into an MO2-ready mod folder: fixing
// Windows-style backslash filenames, unwrapping version/wrapper folders,
// flattening a top-level "Data" folder, selecting a named variant folder,
// and merging directories case-insensitively.
package archive

import (
	"os"
	"path/filepath"
	"strings"
)

// dataFolders are known game-data subfolder names that must NOT be unwrapped
// as if they were a version-wrapper directory.
var dataFolders = map[string]bool{
	"meshes": true, "textures": true, "scripts": true, "sound": true,
	"interface": true, "strings": true, "seq": true, "grass": true,
	"video": true, "music": true, "shaders": true, "shadersfx": true,
	"lodsettings": true, "skse": true, "netscriptframework": true,
	"edit scripts": true, "dialogueviews": true, "facegen": true,
	"caliente tools": true, "actors": true, "fonts": true, "materials": true,
	"platform": true, "source": true, "terrain": true, "trees": true,
	"vis": true, "distantlod": true, "lod": true, "dyndolod": true,
	"nemesis_engine": true,
}

var junkExts = map[string]bool{
	".txt": true, ".md": true, ".pdf": true, ".doc": true, ".docx": true,
	".rtf": true, ".url": true, ".ini": true, ".png": true, ".jpg": true,
	".jpeg": true, ".bmp": true, ".gif": true,
}

var junkNames = []string{"readme", "license", "changelog", "credits", "authors", "install", "instructions"}

// isDataFolder reports whether name is a known mod-content subfolder
// (meshes, textures, scripts, ...) that should stop wrapper unwrapping.
func isDataFolder(name string) bool {
	return dataFolders[strings.ToLower(name)]
}

// isGameDataFolder reports whether name is the game's "Data" folder.
func isGameDataFolder(name string) bool {
	return strings.EqualFold(name, "data")
}

// isJunkFile reports whether name is a readme/license/changelog-style file
// that should be ignored when deciding whether a folder is a pure wrapper.
func isJunkFile(name string) bool {
	lower := strings.ToLower(name)
	if ext := filepath.Ext(lower); junkExts[ext] {
		return true
	}
	for _, junk := range junkNames {
		if strings.Contains(lower, junk) {
			return true
		}
	}
	return false
}

// FixBackslashFilenames renames any regular file whose name contains a
// literal backslash (Windows-zipped archives sometimes embed subpaths this
// way) into the proper nested directory structure.
func FixBackslashFilenames(root string) error {
	var toFix []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), "\\") {
			toFix = append(toFix, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, path := range toFix {
		parent := filepath.Dir(path)
		fixed := strings.ReplaceAll(filepath.Base(path), "\\", "/")
		dest := filepath.Join(parent, filepath.FromSlash(fixed))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			continue
		}
		_ = os.Rename(path, dest)
	}
	return nil
}

// DetectWrapperFolder walks down through single-subdirectory "wrapper"
// folders (version folders, a redundant top-level "Data" folder) until it
// finds the directory that actually holds the mod's content. Folders
// containing only junk files (readmes, license text) alongside the single
// subdirectory are still treated as pure wrappers.
func DetectWrapperFolder(root string) (string, error) {
	current := root
	for {
		entries, err := os.ReadDir(current)
		if err != nil {
			return "", err
		}
		var dirs []os.DirEntry
		var files []os.DirEntry
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, e)
			} else {
				files = append(files, e)
			}
		}
		if len(dirs) != 1 {
			return current, nil
		}
		hasSignificant := false
		for _, f := range files {
			if !isJunkFile(f.Name()) {
				hasSignificant = true
				break
			}
		}
		if hasSignificant {
			return current, nil
		}

		folderName := dirs[0].Name()
		if isGameDataFolder(folderName) {
			current = filepath.Join(current, folderName)
			continue
		}
		if isDataFolder(folderName) {
			return current, nil
		}
		current = filepath.Join(current, folderName)
	}
}

// FindExistingFolder returns the path of a child of destDir whose name
// matches folderName case-insensitively, or "" if none exists.
func FindExistingFolder(destDir, folderName string) string {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), folderName) {
			return filepath.Join(destDir, e.Name())
		}
	}
	return ""
}

// CopyDirMerge recursively copies src into dst, merging into any
// case-insensitively matching existing subdirectory of dst instead of
// creating a duplicate, and overwriting files of the same name.
func CopyDirMerge(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		srcPath := filepath.Join(src, e.Name())
		if e.IsDir() {
			target := FindExistingFolder(dst, e.Name())
			if target == "" {
				target = filepath.Join(dst, e.Name())
			}
			if err := CopyDirMerge(srcPath, target); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// FlattenDataFolder finds a top-level "Data" directory under modRoot (case
// insensitive) and moves its contents up into modRoot, merging into any
// pre-existing same-named entries, then removes the now-empty Data folder.
func FlattenDataFolder(modRoot string) error {
	entries, err := os.ReadDir(modRoot)
	if err != nil {
		return err
	}
	var dataPath string
	for _, e := range entries {
		if e.IsDir() && isGameDataFolder(e.Name()) {
			dataPath = filepath.Join(modRoot, e.Name())
			break
		}
	}
	if dataPath == "" {
		return nil
	}

	items, err := os.ReadDir(dataPath)
	if err != nil {
		return err
	}
	for _, item := range items {
		src := filepath.Join(dataPath, item.Name())
		dst := filepath.Join(modRoot, item.Name())
		if _, err := os.Stat(dst); err == nil {
			if item.IsDir() {
				if err := CopyDirMerge(src, dst); err != nil {
					return err
				}
				if err := os.RemoveAll(src); err != nil {
					return err
				}
				continue
			}
			_ = os.Remove(dst)
		}
		_ = os.Rename(src, dst)
	}
	return os.Remove(dataPath)
}

// SelectVariantFolder handles archives that contain multiple sibling variant
// folders (e.g. "Mod - Option A", "Mod - Option B") and no other significant
// content: if one folder's name matches modName case-insensitively, that
// folder is returned; otherwise contentPath is returned unchanged.
func SelectVariantFolder(contentPath, modName string) (string, error) {
	entries, err := os.ReadDir(contentPath)
	if err != nil {
		return "", err
	}
	var dirs []os.DirEntry
	hasSignificantFile := false
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		} else if !isJunkFile(e.Name()) {
			hasSignificantFile = true
		}
	}
	if len(dirs) <= 1 || hasSignificantFile {
		return contentPath, nil
	}
	for _, d := range dirs {
		if strings.EqualFold(d.Name(), modName) {
			return filepath.Join(contentPath, d.Name()), nil
		}
	}
	return contentPath, nil
}

// SanitizeFolderName strips characters MO2's mod folders can't contain and
// trims trailing dots/spaces, matching Windows filesystem rules.
func SanitizeFolderName(name string) string {
	const illegal = `/\:*?"<>|`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(illegal, r) {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimRight(b.String(), ". ")
	if out == "" {
		return "mod"
	}
	return out
}
