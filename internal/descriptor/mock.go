package descriptor

import (
	"image"

	"github.com/ayusman/tailgate/internal/feature"
)

// MockExtractor is a test implementation of the Extractor interface. It
// describes keypoint i with a row derived from its coordinates, or returns
// its own keypoints when configured to.
type MockExtractor struct {
	caps      Capabilities
	keypoints []feature.Keypoint
	err       error
}

// NewMockExtractor creates a MockExtractor with the given capabilities.
func NewMockExtractor(caps Capabilities) *MockExtractor {
	return &MockExtractor{caps: caps}
}

// SetKeypoints sets the keypoints returned when the mock produces its own.
func (m *MockExtractor) SetKeypoints(kps []feature.Keypoint) {
	m.keypoints = kps
}

// SetError sets the error that will be returned by Extract.
func (m *MockExtractor) SetError(err error) {
	m.err = err
}

// Extract returns the pre-configured error, or coordinate-derived descriptors.
func (m *MockExtractor) Extract(img *image.Gray, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error) {
	if m.err != nil {
		return nil, feature.Descriptors{Kind: m.caps.Kind}, m.err
	}

	if m.caps.ProducesOwnKeypoints && len(kps) == 0 {
		kps = m.keypoints
	}

	desc := feature.Descriptors{Kind: m.caps.Kind}
	for _, kp := range kps {
		if m.caps.Kind == feature.KindFloat {
			desc.Float = append(desc.Float, []float64{kp.X, kp.Y})
		} else {
			desc.Binary = append(desc.Binary, []byte{byte(kp.X), byte(kp.Y)})
		}
	}
	return kps, desc, nil
}

// Capabilities returns the configured capabilities.
func (m *MockExtractor) Capabilities() Capabilities {
	return m.caps
}

// Close is a no-op for the mock extractor.
func (m *MockExtractor) Close() error {
	return nil
}
