package history

import "fmt"

func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var version int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	migrations := []func(*DB) error{
		migrateV1,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}
	return nil
}

func migrateV1(d *DB) error {
	statements := []string{
		`CREATE TABLE runs (
			run_id TEXT PRIMARY KEY,
			collection_slug TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			game_domain TEXT NOT NULL,
			mo2_path TEXT NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME,
			mods_installed INTEGER DEFAULT 0,
			mods_failed INTEGER DEFAULT 0
		)`,
		`CREATE TABLE installed_mods (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			mod_key TEXT NOT NULL,
			folder_name TEXT NOT NULL,
			archive_path TEXT,
			checksum TEXT,
			installed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_installed_mods_run ON installed_mods(run_id)`,
		`CREATE TABLE archive_index (
			archive_path TEXT PRIMARY KEY,
			mod_id INTEGER NOT NULL,
			file_id INTEGER NOT NULL,
			file_size INTEGER NOT NULL,
			checksum TEXT,
			indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_archive_index_mod ON archive_index(mod_id, file_id)`,
	}

	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:30], err)
		}
	}
	return nil
}
