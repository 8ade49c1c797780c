package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one recorded collection-install invocation.
type Run struct {
	RunID          string
	CollectionSlug string
	CollectionName string
	GameDomain     string
	MO2Path        string
	StartedAt      time.Time
	FinishedAt     *time.Time
	ModsInstalled  int
	ModsFailed     int
}

// InstalledMod is one mod installed during a run.
type InstalledMod struct {
	RunID       string
	ModKey      string
	FolderName  string
	ArchivePath string
	Checksum    string
	InstalledAt time.Time
}

// StartRun records the beginning of an install run.
func (d *DB) StartRun(run Run) error {
	_, err := d.Exec(`
		INSERT INTO runs (run_id, collection_slug, collection_name, game_domain, mo2_path)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.CollectionSlug, run.CollectionName, run.GameDomain, run.MO2Path)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// FinishRun records the completion counts for a run.
func (d *DB) FinishRun(runID string, installed, failed int) error {
	_, err := d.Exec(`
		UPDATE runs SET finished_at = ?, mods_installed = ?, mods_failed = ?
		WHERE run_id = ?
	`, time.Now(), installed, failed, runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// RecordInstalledMod logs one successfully installed mod against a run.
func (d *DB) RecordInstalledMod(m InstalledMod) error {
	_, err := d.Exec(`
		INSERT INTO installed_mods (run_id, mod_key, folder_name, archive_path, checksum)
		VALUES (?, ?, ?, ?, ?)
	`, m.RunID, m.ModKey, m.FolderName, m.ArchivePath, m.Checksum)
	if err != nil {
		return fmt.Errorf("recording installed mod: %w", err)
	}
	return nil
}

// IndexArchive records (or refreshes) an archive's identity in the reuse
// index, so a future run's coordinator can query it directly instead of
// re-scanning the downloads directory's file sizes by hand.
func (d *DB) IndexArchive(archivePath string, modID, fileID int, fileSize int64, checksum string) error {
	_, err := d.Exec(`
		INSERT INTO archive_index (archive_path, mod_id, file_id, file_size, checksum)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(archive_path) DO UPDATE SET
			mod_id = excluded.mod_id,
			file_id = excluded.file_id,
			file_size = excluded.file_size,
			checksum = excluded.checksum,
			indexed_at = CURRENT_TIMESTAMP
	`, archivePath, modID, fileID, fileSize, checksum)
	if err != nil {
		return fmt.Errorf("indexing archive: %w", err)
	}
	return nil
}

// FindIndexedArchive looks up a previously indexed archive for a mod/file ID
// pair, returning ("", false) if none is on record.
func (d *DB) FindIndexedArchive(modID, fileID int) (string, bool, error) {
	var path string
	err := d.QueryRow(`
		SELECT archive_path FROM archive_index WHERE mod_id = ? AND file_id = ?
		ORDER BY indexed_at DESC LIMIT 1
	`, modID, fileID).Scan(&path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("querying archive index: %w", err)
	}
	return path, true, nil
}

// RecentRuns returns the most recently started runs, newest first, capped
// at limit.
func (d *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := d.Query(`
		SELECT run_id, collection_slug, collection_name, game_domain, mo2_path,
		       started_at, finished_at, mods_installed, mods_failed
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finishedAt *time.Time
		if err := rows.Scan(&r.RunID, &r.CollectionSlug, &r.CollectionName, &r.GameDomain, &r.MO2Path,
			&r.StartedAt, &finishedAt, &r.ModsInstalled, &r.ModsFailed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.FinishedAt = finishedAt
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
