// Package fomodengine interprets a FOMOD (XML-driven conditional mod
// installer) ModuleConfig.xml against a recorded set of user choices,
// installing the resulting file set into a mod's destination folder.
package fomodengine

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"nexusbridge/internal/archive"
	"nexusbridge/internal/domain"
)

// FindModuleConfig searches modRoot recursively for a ModuleConfig.xml file
// whose parent directory is named "fomod" (both matched case-insensitively),
// returning "" if none is found.
func FindModuleConfig(modRoot string) (string, error) {
	var found string
	err := filepath.WalkDir(modRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, matching the reference installer
		}
		if found != "" || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(d.Name(), "ModuleConfig.xml") {
			return nil
		}
		if strings.EqualFold(filepath.Base(filepath.Dir(path)), "fomod") {
			found = path
		}
		return nil
	})
	return found, err
}

// loadConfig reads and decodes a ModuleConfig.xml, transcoding UTF-16 LE/BE
// content (detected from its byte-order mark) to UTF-8 before parsing, since
// encoding/xml only understands ASCII-compatible encodings out of the box.
func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	utf8Bytes, err := transcodeToUTF8(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrFomodXMLInvalid, path, err)
	}

	var cfg Config
	dec := xml.NewDecoder(bytes.NewReader(utf8Bytes))
	// The bytes are UTF-8 by now, whatever encoding the declaration names.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrFomodXMLInvalid, path, err)
	}
	return &cfg, nil
}

func transcodeToUTF8(raw []byte) ([]byte, error) {
	if len(raw) >= 2 {
		switch {
		case raw[0] == 0xFF && raw[1] == 0xFE:
			return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		case raw[0] == 0xFE && raw[1] == 0xFF:
			return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		}
	}
	return raw, nil
}

// resolveCaseInsensitive walks relativePath segment by segment under base,
// matching each segment's name case-insensitively against the real
// directory listing. Returns "" if any segment can't be resolved.
func resolveCaseInsensitive(base, relativePath string) string {
	current := base
	for _, segment := range strings.Split(filepath.ToSlash(relativePath), "/") {
		if segment == "" {
			continue
		}
		direct := filepath.Join(current, segment)
		if _, err := os.Stat(direct); err == nil {
			current = direct
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			return ""
		}
		matched := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), segment) {
				matched = e.Name()
				break
			}
		}
		if matched == "" {
			return ""
		}
		current = filepath.Join(current, matched)
	}
	return current
}

func installFile(entry FileEntry, srcRoot, dstRoot string) {
	src := filepath.ToSlash(entry.Source)
	dst := entry.Destination
	if dst == "" {
		dst = filepath.Base(src)
	}
	dst = filepath.ToSlash(dst)
	if src == "" {
		return
	}
	if dst == "/" || dst == `\` {
		dst = filepath.Base(src)
	}

	sourcePath := filepath.Join(srcRoot, filepath.FromSlash(src))
	destPath := filepath.Join(dstRoot, filepath.FromSlash(dst))

	if _, err := os.Stat(sourcePath); err != nil {
		if resolved := resolveCaseInsensitive(srcRoot, src); resolved != "" {
			sourcePath = resolved
		}
	}

	info, err := os.Stat(sourcePath)
	if err != nil || info.IsDir() {
		return
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return
	}
	_ = os.WriteFile(destPath, data, 0o644)
}

func installFolder(entry FileEntry, srcRoot, dstRoot string) {
	src := filepath.ToSlash(entry.Source)
	dst := filepath.ToSlash(entry.Destination)
	if src == "" {
		return
	}
	if dst == "/" || dst == `\` {
		dst = ""
	}

	sourcePath := filepath.Join(srcRoot, filepath.FromSlash(src))
	destPath := filepath.Join(dstRoot, filepath.FromSlash(dst))

	if _, err := os.Stat(sourcePath); err != nil {
		if resolved := resolveCaseInsensitive(srcRoot, src); resolved != "" {
			sourcePath = resolved
		}
	}

	info, err := os.Stat(sourcePath)
	if err != nil || !info.IsDir() {
		return
	}
	if dst != "" {
		_ = os.MkdirAll(destPath, 0o755)
	}

	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return
	}
	for _, item := range entries {
		itemSrc := filepath.Join(sourcePath, item.Name())
		if item.IsDir() {
			target := archive.FindExistingFolder(destPath, item.Name())
			if target == "" {
				target = filepath.Join(destPath, item.Name())
			}
			_ = archive.CopyDirMerge(itemSrc, target)
			continue
		}
		data, err := os.ReadFile(itemSrc)
		if err != nil {
			continue
		}
		_ = os.MkdirAll(destPath, 0o755)
		_ = os.WriteFile(filepath.Join(destPath, item.Name()), data, 0o644)
	}
}

func installFilesBlock(block *FilesBlock, srcRoot, dstRoot string) {
	if block == nil {
		return
	}
	for _, f := range block.Files {
		installFile(f, srcRoot, dstRoot)
	}
	for _, f := range block.Folders {
		installFolder(f, srcRoot, dstRoot)
	}
}

func collectPluginFlags(p Plugin, flags map[string]string) {
	for _, f := range p.ConditionFlags.Flags {
		if f.Name != "" {
			flags[f.Name] = f.Value
		}
	}
}

func checkFlagDependency(dep FlagDependency, flags map[string]string) bool {
	value, ok := flags[dep.Flag]
	if !ok {
		return false
	}
	return strings.EqualFold(value, dep.Value)
}

// evaluateDependencies implements the FOMOD And/Or operator semantics: And
// (the default) requires every flagDependency and nested dependencies block
// to be satisfied; Or requires at least one. An empty dependencies block is
// true under And, false under Or.
func evaluateDependencies(deps Dependencies, flags map[string]string) bool {
	isAnd := deps.Operator == "" || strings.EqualFold(deps.Operator, "And")

	for _, fd := range deps.FlagDependency {
		satisfied := checkFlagDependency(fd, flags)
		if isAnd && !satisfied {
			return false
		}
		if !isAnd && satisfied {
			return true
		}
	}
	for _, nested := range deps.Nested {
		satisfied := evaluateDependencies(nested, flags)
		if isAnd && !satisfied {
			return false
		}
		if !isAnd && satisfied {
			return true
		}
	}
	return isAnd
}

func installPluginFiles(p Plugin, srcRoot, dstRoot string) {
	if p.Files != nil {
		installFilesBlock(p.Files, srcRoot, dstRoot)
		return
	}
	for _, f := range p.DirectFiles {
		installFile(f, srcRoot, dstRoot)
	}
	for _, f := range p.DirectFolders {
		installFolder(f, srcRoot, dstRoot)
	}
}

// Process locates ModuleConfig.xml under sourceRoot, resolves the selected
// options against choices, and installs the required files, the selected
// optional-group plugins' files, and any conditionalFileInstalls pattern
// whose dependencies are satisfied by the flags those plugins set — into
// destRoot.
func Process(sourceRoot, destRoot string, choices domain.FomodChoices) error {
	xmlPath, err := FindModuleConfig(sourceRoot)
	if err != nil {
		return fmt.Errorf("searching for ModuleConfig.xml: %w", err)
	}
	if xmlPath == "" {
		return fmt.Errorf("%w: ModuleConfig.xml not found under %s", domain.ErrFomodXMLInvalid, sourceRoot)
	}

	// xmlPath = .../fomod/ModuleConfig.xml; its grandparent is the data root.
	srcRoot := filepath.Dir(filepath.Dir(xmlPath))

	cfg, err := loadConfig(xmlPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	flags := make(map[string]string)

	installFilesBlock(cfg.RequiredInstallFiles, srcRoot, destRoot)

	if cfg.InstallSteps != nil {
		for _, step := range cfg.InstallSteps.InstallStep {
			for _, group := range step.OptionalFileGroups.Group {
				selected := choices.GetSelectedOptions(step.Name, group.Name)
				for _, plugin := range group.Plugins.Plugin {
					if !containsFold(selected, plugin.Name) {
						continue
					}
					collectPluginFlags(plugin, flags)
					installPluginFiles(plugin, srcRoot, destRoot)
				}
			}
		}
	}

	if cfg.ConditionalFileInstalls != nil {
		for _, pattern := range cfg.ConditionalFileInstalls.Patterns.Pattern {
			if pattern.Dependencies != nil && !evaluateDependencies(*pattern.Dependencies, flags) {
				continue
			}
			installFilesBlock(pattern.Files, srcRoot, destRoot)
		}
	}

	return nil
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
