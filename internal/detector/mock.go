package detector

import (
	"image"

	"github.com/ayusman/tailgate/internal/feature"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	keypoints []feature.Keypoint
	err       error
	calls     int
	closed    bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetKeypoints sets the keypoints that will be returned by Detect.
func (m *MockDetector) SetKeypoints(kps []feature.Keypoint) {
	m.keypoints = kps
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns a copy of the pre-configured keypoints or error.
func (m *MockDetector) Detect(img *image.Gray) ([]feature.Keypoint, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]feature.Keypoint, len(m.keypoints))
	copy(out, m.keypoints)
	return out, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// GridKeypoints returns keypoints on a regular grid, a preset for tests that
// need predictable detector output.
func GridKeypoints(x0, y0, step, cols, rows int) []feature.Keypoint {
	kps := make([]feature.Keypoint, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			kps = append(kps, feature.Keypoint{
				X:        float64(x0 + c*step),
				Y:        float64(y0 + r*step),
				Size:     7,
				Angle:    -1,
				Response: float64(cols*rows - len(kps)),
			})
		}
	}
	return kps
}
