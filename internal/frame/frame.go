// Package frame holds processed frames and the bounded ring buffer the
// pipeline keeps them in.
package frame

import (
	"image"
	"time"

	"github.com/ayusman/tailgate/internal/feature"
)

// Frame is one ingested image and the results computed for it. Each pipeline
// stage fills in its own field.
type Frame struct {
	Index       int
	Image       *image.Gray
	Keypoints   []feature.Keypoint
	Descriptors feature.Descriptors
	// Matches relate the previous frame's keypoints (QueryIdx) to this
	// frame's keypoints (TrainIdx).
	Matches []feature.Match
	Stats   Stats
}

// Stats summarises the processing of a single frame.
type Stats struct {
	Index           int           `json:"index"`
	Keypoints       int           `json:"keypoints"`
	RegionKeypoints int           `json:"region_keypoints"`
	Descriptors     int           `json:"descriptors"`
	Matches         int           `json:"matches"`
	SizeMean        float64       `json:"size_mean"`
	SizeStdDev      float64       `json:"size_stddev"`
	MeanDistance    float64       `json:"mean_distance"`
	ChangePercent   float64       `json:"change_percent"`
	Motion          bool          `json:"motion"`
	DetectTime      time.Duration `json:"detect_ns"`
	ExtractTime     time.Duration `json:"extract_ns"`
	MatchTime       time.Duration `json:"match_ns"`
}
