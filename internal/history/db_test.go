package history_test

import (
	"testing"

	"nexusbridge/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_RunsMigrations(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var count int
	assert.NoError(t, db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
	assert.NoError(t, db.QueryRow("SELECT COUNT(*) FROM installed_mods").Scan(&count))
	assert.NoError(t, db.QueryRow("SELECT COUNT(*) FROM archive_index").Scan(&count))
}

func TestRun_StartAndFinish(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.StartRun(history.Run{
		RunID:          "run-1",
		CollectionSlug: "nsfw-free-fun",
		CollectionName: "A Great Collection",
		GameDomain:     "skyrimspecialedition",
		MO2Path:        "/home/user/MO2",
	}))

	require.NoError(t, db.RecordInstalledMod(history.InstalledMod{
		RunID:       "run-1",
		ModKey:      "Unofficial Patch",
		FolderName:  "USSEP-266-1001",
		ArchivePath: "/downloads/USSEP.7z",
		Checksum:    "abc123",
	}))

	require.NoError(t, db.FinishRun("run-1", 1, 0))

	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, 1, runs[0].ModsInstalled)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestArchiveIndex_IndexAndFind(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.IndexArchive("/downloads/a.7z", 266, 1001, 12345, "deadbeef"))

	path, ok, err := db.FindIndexedArchive(266, 1001)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/downloads/a.7z", path)

	_, ok, err = db.FindIndexedArchive(999, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveIndex_UpsertRefreshesMetadata(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.IndexArchive("/downloads/a.7z", 266, 1001, 100, "old"))
	require.NoError(t, db.IndexArchive("/downloads/a.7z", 266, 1001, 200, "new"))

	var size int64
	var checksum string
	require.NoError(t, db.QueryRow("SELECT file_size, checksum FROM archive_index WHERE archive_path = ?", "/downloads/a.7z").Scan(&size, &checksum))
	assert.Equal(t, int64(200), size)
	assert.Equal(t, "new", checksum)
}
