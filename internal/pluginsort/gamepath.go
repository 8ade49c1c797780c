package pluginsort

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"nexusbridge/internal/source/steam"
)

// skyrimSEAppID is Steam's App ID for Skyrim Special Edition, used to find
// its Proton compatdata prefix when running under Steam Play on Linux.
const skyrimSEAppID = "489830"

// DiscoverGamePath locates the Skyrim SE game install a profile's plugins
// should be sorted against. It mirrors how MO2 itself resolves this: first
// the portable "Stock Game" folder some MO2 installs vendor directly, then
// the gamePath= entry in ModOrganizer.ini, falling back to a normal Steam
// library scan. Returns "" if none of these resolve.
func DiscoverGamePath(mo2Path string) string {
	stockGame := filepath.Join(mo2Path, "Stock Game")
	if info, err := os.Stat(stockGame); err == nil && info.IsDir() {
		return stockGame
	}

	if p := gamePathFromINI(mo2Path); p != "" {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}

	return findSteamGamePath()
}

// gamePathFromINI extracts gamePath= from ModOrganizer.ini. MO2 stores this
// value either as a plain path or Qt's `@ByteArray(<base>@<relative>)`
// wrapper, in which case the path is relative to mo2Path.
func gamePathFromINI(mo2Path string) string {
	f, err := os.Open(filepath.Join(mo2Path, "ModOrganizer.ini"))
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "gamePath=") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		value := strings.TrimRight(line[idx+1:], "\r\n")
		return resolveByteArrayPath(mo2Path, value)
	}
	return ""
}

// resolveByteArrayPath unwraps Qt's `@ByteArray(...)` encoding, which MO2
// uses so the ini survives round-tripping through QSettings. The payload
// after the second '@' is the path relative to mo2Path.
func resolveByteArrayPath(mo2Path, value string) string {
	if !strings.HasPrefix(value, "@") {
		return value
	}
	value = strings.TrimPrefix(value, "@")
	atPos := strings.Index(value, "@")
	if atPos < 0 {
		return ""
	}
	return filepath.Join(mo2Path, value[atPos+1:])
}

// findSteamGamePath scans every detected Steam library for Skyrim SE's
// install directory, preferring this over a hardcoded path so it also
// works with non-default Steam library setups.
func findSteamGamePath() string {
	const installDirName = "Skyrim Special Edition"

	for _, root := range steam.FindSteamRoots() {
		libraries, err := steam.GetLibraryPaths(root)
		if err != nil {
			continue
		}
		for _, lib := range libraries {
			candidate := filepath.Join(lib, "steamapps", "common", installDirName)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// FindLocalAppData locates Skyrim SE's "Local AppData" folder as seen by a
// Proton prefix, where LOOT keeps its own user data (masterlist cache,
// userlist.yaml) under MO2 on Proton. Sort does not call it.
// Returns "" if no compatdata prefix for Skyrim SE's App ID exists.
func FindLocalAppData() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}

	prefixBase := filepath.Join(home, ".local", "share", "Steam", "steamapps", "compatdata", skyrimSEAppID,
		"pfx", "drive_c", "users", "steamuser", "AppData", "Local")

	skyrimSpecific := filepath.Join(prefixBase, "Skyrim Special Edition")
	if info, err := os.Stat(skyrimSpecific); err == nil && info.IsDir() {
		return skyrimSpecific
	}
	if info, err := os.Stat(prefixBase); err == nil && info.IsDir() {
		return prefixBase
	}
	return ""
}
