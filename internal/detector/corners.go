package detector

import (
	"image"
	"math"
	"sort"

	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/imgproc"
)

// CornerConfig holds the parameters of the structure-tensor corner detectors.
type CornerConfig struct {
	// BlockSize is the side of the window the structure tensor is summed over.
	BlockSize int

	// MaxOverlap is the allowed overlap between neighbouring windows (0.0-1.0).
	// The minimum distance between corners is (1 - MaxOverlap) * BlockSize.
	MaxOverlap float64

	// QualityLevel is the minimum accepted response relative to the strongest.
	QualityLevel float64

	// K is the Harris free parameter.
	K float64
}

// DefaultCornerConfig returns a CornerConfig with sensible default values.
func DefaultCornerConfig() CornerConfig {
	return CornerConfig{
		BlockSize:    4,
		MaxOverlap:   0.0,
		QualityLevel: 0.01,
		K:            0.04,
	}
}

// MinDistance returns the minimum distance kept between two corners.
func (c CornerConfig) MinDistance() float64 {
	return (1.0 - c.MaxOverlap) * float64(c.BlockSize)
}

// MaxCorners bounds the number of corners for an image of the given size.
func (c CornerConfig) MaxCorners(width, height int) int {
	return int(float64(width*height) / math.Max(1.0, c.MinDistance()))
}

// CornerDetector implements Shi-Tomasi (minimum eigenvalue) and Harris
// corner detection with greedy minimum-distance suppression.
type CornerDetector struct {
	config CornerConfig
	harris bool
}

// NewShiTomasi creates a minimum-eigenvalue corner detector.
func NewShiTomasi(cfg CornerConfig) *CornerDetector {
	return &CornerDetector{config: cfg}
}

// NewHarris creates a Harris corner detector.
func NewHarris(cfg CornerConfig) *CornerDetector {
	return &CornerDetector{config: cfg, harris: true}
}

// Detect returns corners sorted by decreasing response.
func (d *CornerDetector) Detect(img *image.Gray) ([]feature.Keypoint, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	kps := make([]feature.Keypoint, 0)
	if w < 3 || h < 3 {
		return kps, nil
	}

	resp := d.response(imgproc.Sobel(img))

	maxResp := 0.0
	for _, r := range resp {
		if r > maxResp {
			maxResp = r
		}
	}
	if maxResp <= 0 {
		return kps, nil
	}
	threshold := maxResp * d.config.QualityLevel

	// Candidates are 3x3 local maxima above the quality threshold
	type candidate struct {
		x, y int
		r    float64
	}
	var candidates []candidate
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			r := resp[y*w+x]
			if r <= threshold || !isLocalMax(resp, w, x, y) {
				continue
			}
			candidates = append(candidates, candidate{x: x, y: y, r: r})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].r > candidates[j].r
	})

	minDist := d.config.MinDistance()
	maxCorners := d.config.MaxCorners(w, h)
	grid := newCornerGrid(w, h, minDist)

	for _, c := range candidates {
		if len(kps) >= maxCorners {
			break
		}
		if !grid.accept(float64(c.x), float64(c.y)) {
			continue
		}
		kps = append(kps, feature.Keypoint{
			X:        float64(c.x),
			Y:        float64(c.y),
			Size:     float64(d.config.BlockSize),
			Angle:    -1,
			Response: c.r,
		})
	}

	return kps, nil
}

// Close is a no-op for the pure-Go detector.
func (d *CornerDetector) Close() error {
	return nil
}

// response computes the per-pixel corner response from the structure tensor
// summed over a BlockSize window.
func (d *CornerDetector) response(g *imgproc.Gradients) []float64 {
	w, h := g.Width, g.Height
	lo := -d.config.BlockSize / 2
	hi := lo + d.config.BlockSize - 1

	resp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var a, b, c float64
			for wy := y + lo; wy <= y+hi; wy++ {
				for wx := x + lo; wx <= x+hi; wx++ {
					dx, dy := g.At(wx, wy)
					a += dx * dx
					b += dx * dy
					c += dy * dy
				}
			}

			if d.harris {
				det := a*c - b*b
				trace := a + c
				resp[y*w+x] = det - d.config.K*trace*trace
			} else {
				half := (a - c) / 2
				resp[y*w+x] = (a+c)/2 - math.Sqrt(half*half+b*b)
			}
		}
	}
	return resp
}

func isLocalMax(resp []float64, w, x, y int) bool {
	r := resp[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if resp[(y+dy)*w+x+dx] > r {
				return false
			}
		}
	}
	return true
}

// cornerGrid buckets accepted corners so the minimum-distance check only
// looks at neighbouring cells.
type cornerGrid struct {
	cell    float64
	cols    int
	rows    int
	minDist float64
	cells   [][][2]float64
}

func newCornerGrid(w, h int, minDist float64) *cornerGrid {
	cell := math.Max(minDist, 1)
	cols := int(math.Ceil(float64(w)/cell)) + 1
	rows := int(math.Ceil(float64(h)/cell)) + 1
	return &cornerGrid{
		cell:    cell,
		cols:    cols,
		rows:    rows,
		minDist: minDist,
		cells:   make([][][2]float64, cols*rows),
	}
}

// accept records (x, y) unless an accepted corner lies closer than minDist.
func (g *cornerGrid) accept(x, y float64) bool {
	cx, cy := int(x/g.cell), int(y/g.cell)

	if g.minDist > 0 {
		for yy := cy - 1; yy <= cy+1; yy++ {
			for xx := cx - 1; xx <= cx+1; xx++ {
				if xx < 0 || yy < 0 || xx >= g.cols || yy >= g.rows {
					continue
				}
				for _, p := range g.cells[yy*g.cols+xx] {
					dx, dy := p[0]-x, p[1]-y
					if dx*dx+dy*dy < g.minDist*g.minDist {
						return false
					}
				}
			}
		}
	}

	g.cells[cy*g.cols+cx] = append(g.cells[cy*g.cols+cx], [2]float64{x, y})
	return true
}
