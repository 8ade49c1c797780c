package archive

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Extractor drives an external 7-Zip binary to extract .zip, .7z and .rar
// archives uniformly, matching the reference installer's approach of
// shelling out for every format rather than special-casing zip.
type Extractor struct {
	// BinaryPath overrides binary discovery; empty means "search next to the
	// executable, then PATH".
	BinaryPath string
	Timeout    time.Duration
}

// NewExtractor returns an Extractor with the default 5 minute timeout.
func NewExtractor() *Extractor {
	return &Extractor{Timeout: 5 * time.Minute}
}

var sevenZipCandidates = []string{"7zzs", "7za", "7z"}

// ResolveBinary finds a usable 7-Zip executable, preferring the
// statically-linked "7zzs"/"7za" names the reference installer bundles
// before falling back to a system "7z" install.
func ResolveBinary(override string) (string, error) {
	if override != "" {
		if _, err := exec.LookPath(override); err == nil {
			return override, nil
		}
		return "", fmt.Errorf("7-zip binary %q not found", override)
	}
	if exeDir, err := os.Executable(); err == nil {
		dir := filepath.Dir(exeDir)
		for _, name := range sevenZipCandidates {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
	}
	for _, name := range sevenZipCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no 7-zip binary found (tried %v): install p7zip-full or bundle 7zzs", sevenZipCandidates)
}

// DetectFormat returns the archive format implied by filename's extension,
// or "" if unsupported.
func DetectFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return "zip"
	case ".7z":
		return "7z"
	case ".rar":
		return "rar"
	default:
		return ""
	}
}

// CanExtract reports whether filename has a supported archive extension.
func CanExtract(filename string) bool { return DetectFormat(filename) != "" }

// Extract extracts archivePath into destDir using the resolved 7-Zip binary.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if DetectFormat(archivePath) == "" {
		return fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	bin, err := ResolveBinary(e.BinaryPath)
	if err != nil {
		return err
	}

	timeout := e.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, bin, "x", "-y", "-o"+destDir, archivePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("extraction of %s timed out after %v", filepath.Base(archivePath), timeout)
		}
		return fmt.Errorf("extracting %s: %w\noutput: %s", filepath.Base(archivePath), err, output)
	}
	return nil
}
