package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/tailgate/internal/frame"
)

// FrameStatsRepository stores per-frame statistics of runs.
type FrameStatsRepository struct {
	db *sql.DB
}

// FrameStats returns the frame statistics repository for this store.
func (s *Store) FrameStats() *FrameStatsRepository {
	return &FrameStatsRepository{db: s.db}
}

// Add inserts the statistics of one frame of run runID. Re-adding a frame
// index replaces the previous row.
func (r *FrameStatsRepository) Add(runID string, st frame.Stats) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO frame_stats (run_id, frame_index, keypoints, region_keypoints, descriptors,
		 matches, size_mean, size_stddev, mean_distance, change_percent, motion, detect_ns, extract_ns, match_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, st.Index, st.Keypoints, st.RegionKeypoints, st.Descriptors,
		st.Matches, st.SizeMean, st.SizeStdDev, st.MeanDistance, st.ChangePercent, st.Motion,
		int64(st.DetectTime), int64(st.ExtractTime), int64(st.MatchTime),
	)
	return err
}

// ListByRun retrieves the statistics of a run ordered by frame index.
func (r *FrameStatsRepository) ListByRun(runID string) ([]frame.Stats, error) {
	rows, err := r.db.Query(
		`SELECT frame_index, keypoints, region_keypoints, descriptors, matches, size_mean, size_stddev,
		 mean_distance, change_percent, motion, detect_ns, extract_ns, match_ns
		 FROM frame_stats WHERE run_id = ? ORDER BY frame_index ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []frame.Stats{}
	for rows.Next() {
		var st frame.Stats
		var detect, extract, match int64
		err := rows.Scan(&st.Index, &st.Keypoints, &st.RegionKeypoints, &st.Descriptors, &st.Matches,
			&st.SizeMean, &st.SizeStdDev, &st.MeanDistance, &st.ChangePercent, &st.Motion,
			&detect, &extract, &match)
		if err != nil {
			return nil, err
		}
		st.DetectTime = time.Duration(detect)
		st.ExtractTime = time.Duration(extract)
		st.MatchTime = time.Duration(match)
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
