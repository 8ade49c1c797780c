package download_test

import (
	"os"
	"path/filepath"
	"testing"

	"nexusbridge/internal/domain"
	"nexusbridge/internal/download"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDummy(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
}

func TestScan_LogicalFilenamePrefixMatch(t *testing.T) {
	dir := t.TempDir()
	writeDummy(t, dir, "USSEP-266-1001-ver-4-2-9.7z", 10)

	mods := []domain.Mod{{Name: "Unofficial Patch", ModID: 266, FileID: 1001, LogicalFilename: "USSEP"}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "USSEP-266-1001-ver-4-2-9.7z"), scan.ArchivePaths[0])
	assert.Empty(t, scan.Tasks)
}

func TestScan_CreationClubPrefixStrippedMatch(t *testing.T) {
	dir := t.TempDir()
	writeDummy(t, dir, "Saints and Seducers-266-1001.7z", 10)

	mods := []domain.Mod{{Name: "CC Saints", ModID: 266, FileID: 1001, LogicalFilename: "Creation Club - Saints and Seducers"}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Saints and Seducers-266-1001.7z"), scan.ArchivePaths[0])
}

func TestScan_ExactSizeMatch(t *testing.T) {
	dir := t.TempDir()
	writeDummy(t, dir, "SomeOtherName-266-1001.7z", 555)

	mods := []domain.Mod{{Name: "Unofficial Patch", ModID: 266, FileID: 1001, FileSize: 555}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "SomeOtherName-266-1001.7z"), scan.ArchivePaths[0])
}

func TestScan_FallbackFirstMatch(t *testing.T) {
	dir := t.TempDir()
	writeDummy(t, dir, "WrongSize-266-1001.7z", 1)

	mods := []domain.Mod{{Name: "Unofficial Patch", ModID: 266, FileID: 1001, FileSize: 999}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "WrongSize-266-1001.7z"), scan.ArchivePaths[0])
}

func TestScan_NoMatchProducesTask(t *testing.T) {
	dir := t.TempDir()
	mods := []domain.Mod{{Name: "Brand New Mod", ModID: 999, FileID: 1, FileSize: 10}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Empty(t, scan.ArchivePaths)
	require.Len(t, scan.Tasks, 1)
	assert.Equal(t, "Brand New Mod", scan.Tasks[0].ModName)
}

func TestScan_SkipsModsWithoutIdentifiers(t *testing.T) {
	dir := t.TempDir()
	mods := []domain.Mod{{Name: "Weird Mod"}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, scan.Skipped)
	assert.Empty(t, scan.Tasks)
}

func TestScan_DirectDownloadReuse(t *testing.T) {
	dir := t.TempDir()
	writeDummy(t, dir, "patch.zip", 10)

	mods := []domain.Mod{{Name: "Direct Mod", Source: "direct", URL: "https://example.com/patch.zip"}}
	scan, err := download.Scan(mods, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "patch.zip"), scan.ArchivePaths[0])
	assert.Empty(t, scan.Tasks)
}
