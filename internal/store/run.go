package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/tailgate/internal/config"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	// RunStatusRunning marks a run that has not finished yet.
	RunStatusRunning RunStatus = "running"
	// RunStatusDone marks a run that processed its whole source.
	RunStatusDone RunStatus = "done"
	// RunStatusFailed marks a run that stopped with an error.
	RunStatusFailed RunStatus = "failed"
)

// Run is one pass of a detector/descriptor/matcher combination over a
// frame source.
type Run struct {
	ID              string    `json:"id"`
	Detector        string    `json:"detector"`
	Descriptor      string    `json:"descriptor"`
	Matcher         string    `json:"matcher"`
	Selector        string    `json:"selector"`
	Metric          string    `json:"metric"`
	Region          string    `json:"region"`
	Source          string    `json:"source"`
	Status          RunStatus `json:"status"`
	Error           string    `json:"error,omitempty"`
	Frames          int       `json:"frames"`
	Keypoints       int       `json:"keypoints"`
	RegionKeypoints int       `json:"region_keypoints"`
	Matches         int       `json:"matches"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewRun describes a run of cfg over source.
func NewRun(cfg config.Config, source string) *Run {
	return &Run{
		Detector:   cfg.Detector.String(),
		Descriptor: cfg.Descriptor.String(),
		Matcher:    cfg.Matcher.String(),
		Selector:   cfg.Selector.String(),
		Metric:     cfg.Metric.String(),
		Region:     config.FormatRegion(cfg.Region),
		Source:     source,
		Status:     RunStatusRunning,
	}
}

// Totals are the aggregate counts written when a run finishes.
type Totals struct {
	Frames          int
	Keypoints       int
	RegionKeypoints int
	Matches         int
	Duration        time.Duration
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

const runColumns = `id, detector, descriptor, matcher, selector, metric, region, source,
	status, error, frames, keypoints, region_keypoints, matches, duration_ms, created_at, updated_at`

// Create inserts a new run. An empty ID is replaced with a fresh UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Detector, run.Descriptor, run.Matcher, run.Selector, run.Metric, run.Region, run.Source,
		string(run.Status), run.Error, run.Frames, run.Keypoints, run.RegionKeypoints, run.Matches, run.DurationMs,
		run.CreatedAt, run.UpdatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	err := row.Scan(&run.ID, &run.Detector, &run.Descriptor, &run.Matcher, &run.Selector, &run.Metric,
		&run.Region, &run.Source, &status, &run.Error, &run.Frames, &run.Keypoints, &run.RegionKeypoints,
		&run.Matches, &run.DurationMs, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return run, nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves all runs, newest first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Finish records the totals of a run and marks it done, or failed when
// runErr is not nil.
func (r *RunRepository) Finish(id string, totals Totals, runErr error) error {
	status, msg := RunStatusDone, ""
	if runErr != nil {
		status, msg = RunStatusFailed, runErr.Error()
	}

	result, err := r.db.Exec(
		`UPDATE runs SET status = ?, error = ?, frames = ?, keypoints = ?, region_keypoints = ?,
		 matches = ?, duration_ms = ?, updated_at = ? WHERE id = ?`,
		string(status), msg, totals.Frames, totals.Keypoints, totals.RegionKeypoints,
		totals.Matches, totals.Duration.Milliseconds(), time.Now(), id,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// Delete removes a run together with its frame results.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
