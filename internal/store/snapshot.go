package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/frame"
)

// Snapshot is the geometric result of one frame: its keypoints and the
// matches from the previous frame.
type Snapshot struct {
	Index     int                `json:"index"`
	Keypoints []feature.Keypoint `json:"keypoints"`
	Matches   []feature.Match    `json:"matches"`
}

// SnapshotOf extracts the snapshot of f.
func SnapshotOf(f *frame.Frame) Snapshot {
	return Snapshot{Index: f.Index, Keypoints: f.Keypoints, Matches: f.Matches}
}

// Encoder and decoder are safe for concurrent EncodeAll/DecodeAll calls.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// SnapshotRepository stores compressed frame snapshots.
type SnapshotRepository struct {
	db *sql.DB
}

// Snapshots returns the snapshot repository for this store.
func (s *Store) Snapshots() *SnapshotRepository {
	return &SnapshotRepository{db: s.db}
}

// Save stores snap for run runID, replacing any earlier snapshot of the
// same frame.
func (r *SnapshotRepository) Save(runID string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO frame_snapshots (run_id, frame_index, data, raw_size) VALUES (?, ?, ?, ?)`,
		runID, snap.Index, encoder.EncodeAll(raw, nil), len(raw),
	)
	return err
}

// Get retrieves the snapshot of frame index of run runID.
func (r *SnapshotRepository) Get(runID string, index int) (*Snapshot, error) {
	var data []byte
	var rawSize int

	err := r.db.QueryRow(
		`SELECT data, raw_size FROM frame_snapshots WHERE run_id = ? AND frame_index = ?`,
		runID, index,
	).Scan(&data, &rawSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	raw, err := decoder.DecodeAll(data, make([]byte, 0, rawSize))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %d: %w", index, err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
