package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusbridge/internal/domain"
)

// This file uses internal (white-box) tests since folderName and its
// helpers are unexported — matching the teacher's split between external
// black-box _test packages for public APIs and internal ones for package
// internals (see internal/storage/db's two test styles).

func TestFolderName_DirectDownloadUsesSanitizedName(t *testing.T) {
	mod := domain.Mod{Name: "My Cool Mod!", Source: "direct"}
	assert.Equal(t, "My Cool Mod!", folderName(mod))
}

func TestFolderName_NexusModUsesLogicalFilenameAndIDs(t *testing.T) {
	mod := domain.Mod{Name: "Display Name", LogicalFilename: "Actual Archive Name", Source: "nexus", ModID: 123, FileID: 456}
	assert.Equal(t, "Actual Archive Name-123-456", folderName(mod))
}

func TestFolderName_FallsBackToNameWhenLogicalFilenameEmpty(t *testing.T) {
	mod := domain.Mod{Name: "Plain Mod", Source: "nexus", ModID: 1, FileID: 2}
	assert.Equal(t, "Plain Mod-1-2", folderName(mod))
}

func TestInstallByExpectedPaths_CopiesExactAndSuffixMatches(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Data", "meshes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "meshes", "thing.nif"), []byte("mesh"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "plugin.esp"), []byte("esp"), 0o644))

	dest := t.TempDir()
	err := installByExpectedPaths(root, dest, []string{"meshes/thing.nif", "plugin.esp"})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dest, "meshes", "thing.nif"))
	require.NoError(t, err)
	assert.Equal(t, "mesh", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "plugin.esp"))
	require.NoError(t, err)
	assert.Equal(t, "esp", string(got))
}

func TestInstallByExpectedPaths_FallsBackToVariantCopyWhenNothingMatches(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "present.esp"), []byte("esp"), 0o644))

	dest := t.TempDir()
	err := installByExpectedPaths(root, dest, []string{"nonexistent/path.esp"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "Data", "present.esp"))
	assert.NoError(t, err, "fallback copy should have brought in the variant folder's files")
}

func TestCountFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0o644))

	assert.Equal(t, 2, countFiles(root))
}

func TestCopyAllFiles_PreservesRelativeStructure(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "file.dat"), []byte("payload"), 0o644))

	dst := t.TempDir()
	require.NoError(t, copyAllFiles(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "sub", "file.dat"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}
