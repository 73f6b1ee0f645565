package store

import (
	"log"
	"sync"

	"github.com/ayusman/tailgate/internal/frame"
)

// Recorder persists every frame a pipeline processes under one run. It
// implements the pipeline's observer interface.
type Recorder struct {
	store     *Store
	runID     string
	snapshots bool

	mu  sync.Mutex
	err error
}

// NewRecorder creates a Recorder for run runID. With snapshots set the
// keypoints and matches of every frame are stored as well.
func (s *Store) NewRecorder(runID string, snapshots bool) *Recorder {
	return &Recorder{store: s, runID: runID, snapshots: snapshots}
}

// OnFrame stores the frame's statistics and, when enabled, its snapshot.
// Failures are logged and the first one is kept for Err.
func (r *Recorder) OnFrame(f *frame.Frame) {
	err := r.store.FrameStats().Add(r.runID, f.Stats)
	if err == nil && r.snapshots {
		err = r.store.Snapshots().Save(r.runID, SnapshotOf(f))
	}
	if err == nil {
		return
	}

	log.Printf("Failed to record frame %d of run %s: %v", f.Index, r.runID, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first recording failure.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
