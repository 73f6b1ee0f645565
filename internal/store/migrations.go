package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per detector/descriptor/matcher combination run
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			detector TEXT NOT NULL,
			descriptor TEXT NOT NULL,
			matcher TEXT NOT NULL,
			selector TEXT NOT NULL,
			metric TEXT NOT NULL,
			region TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'done', 'failed')),
			error TEXT NOT NULL DEFAULT '',
			frames INTEGER NOT NULL DEFAULT 0,
			keypoints INTEGER NOT NULL DEFAULT 0,
			region_keypoints INTEGER NOT NULL DEFAULT 0,
			matches INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Frame stats table - per-frame counts and timings
		`CREATE TABLE IF NOT EXISTS frame_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			keypoints INTEGER NOT NULL,
			region_keypoints INTEGER NOT NULL,
			descriptors INTEGER NOT NULL,
			matches INTEGER NOT NULL,
			size_mean REAL NOT NULL,
			size_stddev REAL NOT NULL,
			mean_distance REAL NOT NULL,
			change_percent REAL NOT NULL DEFAULT 0,
			motion INTEGER NOT NULL DEFAULT 0,
			detect_ns INTEGER NOT NULL,
			extract_ns INTEGER NOT NULL,
			match_ns INTEGER NOT NULL,
			UNIQUE(run_id, frame_index)
		)`,

		// Frame snapshots table - zstd-compressed keypoints and matches
		`CREATE TABLE IF NOT EXISTS frame_snapshots (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			data BLOB NOT NULL,
			raw_size INTEGER NOT NULL,
			PRIMARY KEY (run_id, frame_index)
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_frame_stats_run_id ON frame_stats(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
