package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/frame"
)

func createRun(t *testing.T, s *Store) *Run {
	t.Helper()
	run := NewRun(config.Default(), "synthetic")
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return run
}

func TestRunRepository_Create(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)

	if _, err := uuid.Parse(run.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", run.ID, err)
	}

	got, err := s.Runs().GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Detector != "SHITOMASI" || got.Descriptor != "BRIEF" || got.Matcher != "BF" {
		t.Errorf("variants = %s/%s/%s", got.Detector, got.Descriptor, got.Matcher)
	}
	if got.Selector != "NN" || got.Metric != "HAMMING" {
		t.Errorf("selector/metric = %s/%s", got.Selector, got.Metric)
	}
	if got.Region != "535,180,180,150" {
		t.Errorf("Region = %q", got.Region)
	}
	if got.Status != RunStatusRunning {
		t.Errorf("Status = %q, want running", got.Status)
	}
}

func TestRunRepository_KeepsExplicitID(t *testing.T) {
	s := newTestStore(t)
	run := &Run{ID: "fixed", Detector: "FAST", Descriptor: "BRIEF", Matcher: "BF", Selector: "KNN", Metric: "HAMMING", Region: "0,0,1,1"}

	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Runs().GetByID("fixed"); err != nil {
		t.Errorf("GetByID() error = %v", err)
	}
	if err := s.Runs().Create(run); err == nil {
		t.Error("expected error for duplicate ID")
	}
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Runs().GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestRunRepository_List(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.Runs().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("List() = %d runs, want 0", len(runs))
	}

	createRun(t, s)
	createRun(t, s)

	runs, err = s.Runs().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("List() = %d runs, want 2", len(runs))
	}
}

func TestRunRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)

	totals := Totals{Frames: 10, Keypoints: 1200, RegionKeypoints: 130, Matches: 90, Duration: 1500 * time.Millisecond}
	if err := s.Runs().Finish(run.ID, totals, nil); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, _ := s.Runs().GetByID(run.ID)
	if got.Status != RunStatusDone {
		t.Errorf("Status = %q, want done", got.Status)
	}
	if got.Frames != 10 || got.Keypoints != 1200 || got.RegionKeypoints != 130 || got.Matches != 90 {
		t.Errorf("totals = %+v", got)
	}
	if got.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", got.DurationMs)
	}
}

func TestRunRepository_FinishFailed(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)

	if err := s.Runs().Finish(run.ID, Totals{}, errors.New("decode failed")); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, _ := s.Runs().GetByID(run.ID)
	if got.Status != RunStatusFailed || got.Error != "decode failed" {
		t.Errorf("status = %q, error = %q", got.Status, got.Error)
	}

	if err := s.Runs().Finish("missing", Totals{}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRunRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)

	s.FrameStats().Add(run.ID, frame.Stats{Index: 0, Keypoints: 3})
	s.Snapshots().Save(run.ID, Snapshot{Index: 0})

	if err := s.Runs().Delete(run.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	stats, err := s.FrameStats().ListByRun(run.ID)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("frame stats should be deleted with the run, got %d", len(stats))
	}
	if _, err := s.Snapshots().Get(run.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("snapshot should be deleted with the run, got %v", err)
	}

	if err := s.Runs().Delete(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestFrameStatsRepository(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)

	want := []frame.Stats{
		{Index: 1, Keypoints: 120, RegionKeypoints: 14, Descriptors: 14, Matches: 9, SizeMean: 4, SizeStdDev: 0.5,
			MeanDistance: 12.5, ChangePercent: 3.5, Motion: true,
			DetectTime: 2 * time.Millisecond, ExtractTime: time.Millisecond, MatchTime: 300 * time.Microsecond},
		{Index: 0, Keypoints: 118, RegionKeypoints: 15, Descriptors: 15},
	}
	for _, st := range want {
		if err := s.FrameStats().Add(run.ID, st); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	got, err := s.FrameStats().ListByRun(run.ID)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByRun() = %d rows, want 2", len(got))
	}
	if got[0] != want[1] || got[1] != want[0] {
		t.Errorf("ListByRun() = %+v, want ordered by index", got)
	}
}

func TestFrameStatsRepository_RequiresRun(t *testing.T) {
	s := newTestStore(t)

	if err := s.FrameStats().Add("missing", frame.Stats{}); err == nil {
		t.Error("expected foreign key error for an unknown run")
	}
}

func TestSnapshotRepository(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)

	snap := Snapshot{
		Index: 4,
		Keypoints: []feature.Keypoint{
			{X: 10, Y: 20, Size: 4, Angle: -1, Response: 0.5},
			{X: 11.5, Y: 2, Size: 7, Angle: 90, Response: 31, Octave: 1},
		},
		Matches: []feature.Match{{QueryIdx: 1, TrainIdx: 0, Distance: 3}},
	}
	if err := s.Snapshots().Save(run.ID, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Snapshots().Get(run.ID, 4)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Index != 4 || len(got.Keypoints) != 2 || len(got.Matches) != 1 {
		t.Fatalf("Get() = %+v", got)
	}
	if got.Keypoints[1] != snap.Keypoints[1] || got.Matches[0] != snap.Matches[0] {
		t.Errorf("Get() = %+v, want %+v", got, snap)
	}

	if _, err := s.Snapshots().Get(run.ID, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(5) error = %v, want ErrNotFound", err)
	}
}

func TestRecorder(t *testing.T) {
	s := newTestStore(t)
	run := createRun(t, s)
	rec := s.NewRecorder(run.ID, true)

	for i := 0; i < 3; i++ {
		rec.OnFrame(&frame.Frame{
			Index:     i,
			Keypoints: []feature.Keypoint{{X: float64(i), Y: 1}},
			Matches:   []feature.Match{},
			Stats:     frame.Stats{Index: i, Keypoints: 1},
		})
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	stats, _ := s.FrameStats().ListByRun(run.ID)
	if len(stats) != 3 {
		t.Errorf("recorded %d frames, want 3", len(stats))
	}
	snap, err := s.Snapshots().Get(run.ID, 2)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.Keypoints[0].X != 2 {
		t.Errorf("snapshot keypoint X = %f, want 2", snap.Keypoints[0].X)
	}
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	s := newTestStore(t)
	rec := s.NewRecorder("missing", false)

	rec.OnFrame(&frame.Frame{Index: 0})
	if rec.Err() == nil {
		t.Error("expected error recording into an unknown run")
	}
}
