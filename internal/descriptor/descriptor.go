// Package descriptor computes one feature vector per keypoint.
package descriptor

import (
	"image"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
)

// Capabilities describes how an extractor treats the keypoints it is given.
type Capabilities struct {
	// Kind is the vector family of the produced descriptors.
	Kind feature.Kind

	// ProducesOwnKeypoints is set when the extractor detects keypoints
	// itself if none are supplied.
	ProducesOwnKeypoints bool

	// MayDropKeypoints is set when keypoints the extractor cannot describe
	// (e.g. too close to the border) are removed from its result.
	MayDropKeypoints bool
}

// PreservesKeypoints reports whether the returned keypoints are always the
// supplied ones.
func (c Capabilities) PreservesKeypoints() bool {
	return !c.ProducesOwnKeypoints && !c.MayDropKeypoints
}

// Extractor defines the interface for descriptor extraction implementations.
type Extractor interface {
	// Extract returns the keypoints the descriptors belong to and the
	// descriptors, row i describing keypoint i. Callers must keep the
	// returned keypoints, which may differ from kps when the extractor's
	// capabilities say so.
	Extract(img *image.Gray, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error)

	// Capabilities returns the extractor's keypoint handling and vector kind.
	Capabilities() Capabilities

	// Close releases any resources held by the extractor.
	Close() error
}

// Factory builds an extractor variant.
type Factory func() (Extractor, error)

var registry = map[config.DescriptorType]Factory{
	config.BRIEF: func() (Extractor, error) { return NewBRIEF(DefaultBRIEFConfig()), nil },
	config.HOG:   func() (Extractor, error) { return NewHOG(DefaultHOGConfig()), nil },
}

// New builds the extractor selected by t.
func New(t config.DescriptorType) (Extractor, error) {
	if !t.Valid() {
		return nil, feature.NewConfigError("descriptor", t.String(), "unknown descriptor")
	}

	factory, ok := registry[t]
	if !ok {
		return nil, feature.NewConfigError("descriptor", t.String(), unavailableReason)
	}

	return factory()
}

// Available lists the descriptors this build can construct.
func Available() []config.DescriptorType {
	var out []config.DescriptorType
	for _, t := range config.DescriptorTypes() {
		if _, ok := registry[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
