package descriptor

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/imgproc"
)

// HOGConfig holds the parameters of the gradient-histogram descriptor.
type HOGConfig struct {
	// Cells is the number of cells per side of the patch.
	Cells int

	// CellSize is the side of one cell in pixels.
	CellSize int

	// Bins is the number of orientation bins per cell.
	Bins int

	// Clip caps each normalised component before renormalising.
	Clip float64
}

// DefaultHOGConfig returns the 4x4x8 layout, 128 values per keypoint.
func DefaultHOGConfig() HOGConfig {
	return HOGConfig{
		Cells:    4,
		CellSize: 4,
		Bins:     8,
		Clip:     0.2,
	}
}

// Len returns the descriptor length.
func (c HOGConfig) Len() int {
	return c.Cells * c.Cells * c.Bins
}

// HOG computes magnitude-weighted gradient orientation histograms over a
// grid of cells centred on each keypoint.
type HOG struct {
	config HOGConfig
}

// NewHOG creates a HOG extractor.
func NewHOG(cfg HOGConfig) *HOG {
	return &HOG{config: cfg}
}

// Extract computes one descriptor per keypoint.
func (h *HOG) Extract(img *image.Gray, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error) {
	desc := feature.Descriptors{
		Kind:  feature.KindFloat,
		Float: make([][]float64, len(kps)),
	}
	if len(kps) == 0 {
		return kps, desc, nil
	}

	g := imgproc.Sobel(img)
	side := h.config.Cells * h.config.CellSize
	binWidth := 2 * math.Pi / float64(h.config.Bins)

	for i, kp := range kps {
		x0 := int(math.Round(kp.X)) - side/2
		y0 := int(math.Round(kp.Y)) - side/2

		v := make([]float64, h.config.Len())
		for py := 0; py < side; py++ {
			for px := 0; px < side; px++ {
				dx, dy := g.At(x0+px, y0+py)
				mag := math.Hypot(dx, dy)
				if mag == 0 {
					continue
				}

				angle := math.Atan2(dy, dx)
				if angle < 0 {
					angle += 2 * math.Pi
				}
				bin := int(angle/binWidth) % h.config.Bins
				cell := (py/h.config.CellSize)*h.config.Cells + px/h.config.CellSize
				v[cell*h.config.Bins+bin] += mag
			}
		}

		h.normalize(v)
		desc.Float[i] = v
	}

	return kps, desc, nil
}

// normalize scales v to unit length, clips large components and rescales.
// An all-zero vector is left as is.
func (h *HOG) normalize(v []float64) {
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return
	}
	floats.Scale(1/norm, v)

	for i := range v {
		if v[i] > h.config.Clip {
			v[i] = h.config.Clip
		}
	}

	if norm = floats.Norm(v, 2); norm > 0 {
		floats.Scale(1/norm, v)
	}
}

// Capabilities reports float descriptors computed on the supplied keypoints.
func (h *HOG) Capabilities() Capabilities {
	return Capabilities{Kind: feature.KindFloat}
}

// Close is a no-op for the pure-Go extractor.
func (h *HOG) Close() error {
	return nil
}
