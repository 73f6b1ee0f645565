package capture

import (
	"image"
	"sync"

	"github.com/ayusman/tailgate/internal/imgproc"
)

// MotionDetector measures how much of the scene changes between consecutive
// frames using blurred frame differencing.
type MotionDetector struct {
	threshold float64
	prev      *image.Gray
	mu        sync.Mutex
}

// Motion detection constants
const (
	// BlurSigma approximates a 21x21 Gaussian kernel.
	BlurSigma = 3.5
	// DiffThreshold is the per-pixel intensity change counted as motion.
	DiffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels that counts
	// as motion.
	DefaultMotionThreshold = 1.0
)

// NewMotionDetector creates a new MotionDetector with the given threshold.
// The threshold is the percentage of pixels that must change to detect motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{threshold: threshold}
}

// Detect compares frame with the previous one and returns whether motion was
// detected along with the percentage of pixels that changed. The first frame
// only establishes the baseline. Frames of a different size reset it.
func (m *MotionDetector) Detect(frame *image.Gray) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Bounds().Empty() {
		return false, 0
	}

	blurred := imgproc.Blur(imgproc.ToGray(frame), BlurSigma)
	prev := m.prev
	m.prev = blurred

	if prev == nil || prev.Bounds().Size() != blurred.Bounds().Size() {
		return false, 0
	}

	w, h := blurred.Bounds().Dx(), blurred.Bounds().Dy()
	changed := 0
	for y := 0; y < h; y++ {
		a := blurred.Pix[y*blurred.Stride : y*blurred.Stride+w]
		b := prev.Pix[y*prev.Stride : y*prev.Stride+w]
		for x := range a {
			d := int(a[x]) - int(b[x])
			if d > DiffThreshold || d < -DiffThreshold {
				changed++
			}
		}
	}

	changePercent := float64(changed) / float64(w*h) * 100.0
	return changePercent > m.threshold, changePercent
}

// Reset clears the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev = nil
}

// SetThreshold sets the motion detection threshold.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Threshold returns the current threshold.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
