// Package detector finds keypoints in grayscale images.
package detector

import (
	"image"
	"sort"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
)

// Detector defines the interface for keypoint detection implementations.
type Detector interface {
	// Detect returns the keypoints found in img. Returns an empty slice,
	// not an error, when nothing is found.
	Detect(img *image.Gray) ([]feature.Keypoint, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Factory builds a detector variant.
type Factory func() (Detector, error)

// registry is the dispatch table from variant to constructor. Native
// variants are added by the gocv build.
var registry = map[config.DetectorType]Factory{
	config.ShiTomasi: func() (Detector, error) { return NewShiTomasi(DefaultCornerConfig()), nil },
	config.Harris:    func() (Detector, error) { return NewHarris(DefaultCornerConfig()), nil },
	config.FAST:      func() (Detector, error) { return NewFAST(DefaultFASTConfig()), nil },
}

// New builds the detector selected by t.
func New(t config.DetectorType) (Detector, error) {
	if !t.Valid() {
		return nil, feature.NewConfigError("detector", t.String(), "unknown detector")
	}

	factory, ok := registry[t]
	if !ok {
		return nil, feature.NewConfigError("detector", t.String(), unavailableReason)
	}

	return factory()
}

// Available lists the detectors this build can construct.
func Available() []config.DetectorType {
	var out []config.DetectorType
	for _, t := range config.DetectorTypes() {
		if _, ok := registry[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Limit keeps the n strongest keypoints, ties in detection order. n <= 0
// returns kps unchanged.
func Limit(kps []feature.Keypoint, n int) []feature.Keypoint {
	if n <= 0 || len(kps) <= n {
		return kps
	}

	out := make([]feature.Keypoint, len(kps))
	copy(out, kps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Response > out[j].Response
	})
	return out[:n]
}
