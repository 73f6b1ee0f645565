package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/frame"
	"github.com/ayusman/tailgate/internal/store"
)

// Launcher starts a pipeline run in the background and returns its record.
type Launcher interface {
	Launch(cfg config.Config) (*store.Run, error)
}

// RunHandler handles HTTP requests for run resources.
type RunHandler struct {
	store    *store.Store
	base     config.Config
	launcher Launcher
}

// NewRunHandler creates a RunHandler. New runs start from base with the
// requested variants applied; a nil launcher disables POST.
func NewRunHandler(s *store.Store, base config.Config, launcher Launcher) *RunHandler {
	return &RunHandler{store: s, base: base, launcher: launcher}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/runs, /api/runs/{id} or /api/runs/{id}/frames/{index}
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case len(parts) == 3 && parts[1] == "frames":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid frame index")
			return
		}
		h.snapshot(w, r, id, index)

	default:
		http.NotFound(w, r)
	}
}

// Request and response types

type createRunRequest struct {
	Detector   string `json:"detector"`
	Descriptor string `json:"descriptor"`
	Matcher    string `json:"matcher"`
	Selector   string `json:"selector"`
}

type runResponse struct {
	ID              string `json:"id"`
	Detector        string `json:"detector"`
	Descriptor      string `json:"descriptor"`
	Matcher         string `json:"matcher"`
	Selector        string `json:"selector"`
	Metric          string `json:"metric"`
	Region          string `json:"region"`
	Source          string `json:"source"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	Frames          int    `json:"frames"`
	Keypoints       int    `json:"keypoints"`
	RegionKeypoints int    `json:"region_keypoints"`
	Matches         int    `json:"matches"`
	DurationMs      int64  `json:"duration_ms"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type runDetailResponse struct {
	runResponse
	FrameStats []frame.Stats `json:"frame_stats"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

// toRunResponse converts a store.Run to a runResponse.
func toRunResponse(run *store.Run) runResponse {
	return runResponse{
		ID:              run.ID,
		Detector:        run.Detector,
		Descriptor:      run.Descriptor,
		Matcher:         run.Matcher,
		Selector:        run.Selector,
		Metric:          run.Metric,
		Region:          run.Region,
		Source:          run.Source,
		Status:          string(run.Status),
		Error:           run.Error,
		Frames:          run.Frames,
		Keypoints:       run.Keypoints,
		RegionKeypoints: run.RegionKeypoints,
		Matches:         run.Matches,
		DurationMs:      run.DurationMs,
		CreatedAt:       run.CreatedAt.Format(timeFormat),
		UpdatedAt:       run.UpdatedAt.Format(timeFormat),
	}
}

// list handles GET /api/runs and returns all runs.
func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Runs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{
		Runs: make([]runResponse, 0, len(runs)),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/runs/{id} and returns a run with its frame statistics.
func (h *RunHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	stats, err := h.store.FrameStats().ListByRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get frame statistics")
		return
	}

	writeJSON(w, http.StatusOK, runDetailResponse{runResponse: toRunResponse(run), FrameStats: stats})
}

// create handles POST /api/runs and starts a run with the requested variants.
func (h *RunHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.launcher == nil {
		writeError(w, http.StatusServiceUnavailable, "Runs cannot be started on this server")
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cfg, err := h.configFor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.launcher.Launch(cfg)
	if err != nil {
		if errors.Is(err, feature.ErrConfiguration) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	writeJSON(w, http.StatusAccepted, toRunResponse(run))
}

// configFor applies the requested variants to the base configuration. The
// metric follows the descriptor.
func (h *RunHandler) configFor(req createRunRequest) (config.Config, error) {
	cfg := h.base
	var err error

	if req.Detector != "" {
		if cfg.Detector, err = config.ParseDetector(req.Detector); err != nil {
			return cfg, err
		}
	}
	if req.Descriptor != "" {
		if cfg.Descriptor, err = config.ParseDescriptor(req.Descriptor); err != nil {
			return cfg, err
		}
	}
	if req.Matcher != "" {
		if cfg.Matcher, err = config.ParseMatcher(req.Matcher); err != nil {
			return cfg, err
		}
	}
	if req.Selector != "" {
		if cfg.Selector, err = config.ParseSelector(req.Selector); err != nil {
			return cfg, err
		}
	}
	cfg.Metric = config.MetricFor(cfg.Descriptor.Kind())

	return cfg, cfg.Validate()
}

// delete handles DELETE /api/runs/{id} and removes a run.
func (h *RunHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Runs().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// snapshot handles GET /api/runs/{id}/frames/{index} and returns the stored
// keypoints and matches of one frame.
func (h *RunHandler) snapshot(w http.ResponseWriter, r *http.Request, id string, index int) {
	snap, err := h.store.Snapshots().Get(id, index)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Frame not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get frame")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}
