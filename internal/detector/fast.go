package detector

import (
	"image"

	"github.com/ayusman/tailgate/internal/feature"
)

// FASTConfig holds the parameters of the FAST segment test.
type FASTConfig struct {
	// Threshold is the intensity difference a circle pixel needs to count
	// as brighter or darker than the centre.
	Threshold int

	// Arc is the number of contiguous circle pixels required (9 for FAST-9).
	Arc int

	// NonMaxSuppression keeps only corners whose score is a 3x3 local maximum.
	NonMaxSuppression bool
}

// DefaultFASTConfig returns a FASTConfig with sensible default values.
func DefaultFASTConfig() FASTConfig {
	return FASTConfig{
		Threshold:         30,
		Arc:               9,
		NonMaxSuppression: true,
	}
}

// fastKeypointSize is the diameter of the Bresenham circle.
const fastKeypointSize = 7

// circle is the radius-3 Bresenham circle, clockwise from 12 o'clock.
var circle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// FASTDetector implements the FAST segment-test corner detector.
type FASTDetector struct {
	config FASTConfig
}

// NewFAST creates a FAST detector.
func NewFAST(cfg FASTConfig) *FASTDetector {
	if cfg.Arc <= 0 || cfg.Arc > len(circle) {
		cfg.Arc = 9
	}
	return &FASTDetector{config: cfg}
}

// Detect returns FAST corners in raster order.
func (d *FASTDetector) Detect(img *image.Gray) ([]feature.Keypoint, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	kps := make([]feature.Keypoint, 0)
	if w < 7 || h < 7 {
		return kps, nil
	}

	scores := make([]int, w*h)
	for y := 3; y < h-3; y++ {
		for x := 3; x < w-3; x++ {
			scores[y*w+x] = d.score(img, x, y)
		}
	}

	for y := 3; y < h-3; y++ {
		for x := 3; x < w-3; x++ {
			s := scores[y*w+x]
			if s == 0 {
				continue
			}
			if d.config.NonMaxSuppression && !isMaxScore(scores, w, x, y) {
				continue
			}
			kps = append(kps, feature.Keypoint{
				X:        float64(x),
				Y:        float64(y),
				Size:     fastKeypointSize,
				Angle:    -1,
				Response: float64(s),
			})
		}
	}

	return kps, nil
}

// Close is a no-op for the pure-Go detector.
func (d *FASTDetector) Close() error {
	return nil
}

// score returns 0 when (x, y) fails the segment test, otherwise the sum of
// absolute differences beyond the threshold over the passing class.
func (d *FASTDetector) score(img *image.Gray, x, y int) int {
	center := int(img.Pix[y*img.Stride+x])
	t := d.config.Threshold

	var brighter, darker [16]bool
	var brightSum, darkSum int
	for i, o := range circle {
		v := int(img.Pix[(y+o[1])*img.Stride+x+o[0]])
		switch {
		case v > center+t:
			brighter[i] = true
			brightSum += v - center - t
		case v < center-t:
			darker[i] = true
			darkSum += center - t - v
		}
	}

	score := 0
	if hasArc(brighter, d.config.Arc) {
		score = brightSum
	}
	if hasArc(darker, d.config.Arc) && darkSum > score {
		score = darkSum
	}
	return score
}

// hasArc reports whether set contains n contiguous true values, wrapping
// around the circle.
func hasArc(set [16]bool, n int) bool {
	run := 0
	for i := 0; i < 2*len(set); i++ {
		if set[i%len(set)] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// isMaxScore reports whether no 8-neighbour scores strictly higher, and no
// equal-scoring neighbour precedes (x, y) in raster order.
func isMaxScore(scores []int, w, x, y int) bool {
	s := scores[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := scores[(y+dy)*w+x+dx]
			if n > s {
				return false
			}
			if n == s && (dy < 0 || (dy == 0 && dx < 0)) {
				return false
			}
		}
	}
	return true
}
