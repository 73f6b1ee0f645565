package descriptor

import (
	"image"
	"math"
	"math/rand"

	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/imgproc"
)

// BRIEFConfig holds the parameters of the BRIEF binary descriptor.
type BRIEFConfig struct {
	// Bytes is the descriptor length; each byte packs 8 intensity tests.
	Bytes int

	// PatchSize is the side of the square window the tests are drawn from.
	PatchSize int

	// Sigma is the Gaussian pre-smoothing applied to the image.
	Sigma float64

	// Seed fixes the test pattern so descriptors are comparable across runs.
	Seed int64
}

// DefaultBRIEFConfig returns a BRIEFConfig with sensible default values.
func DefaultBRIEFConfig() BRIEFConfig {
	return BRIEFConfig{
		Bytes:     32,
		PatchSize: 31,
		Sigma:     2,
		Seed:      0x5eed,
	}
}

// testPair is one intensity comparison, as offsets from the keypoint.
type testPair struct {
	x1, y1, x2, y2 int
}

// BRIEF computes binary descriptors from pairwise intensity comparisons
// around each keypoint.
type BRIEF struct {
	config BRIEFConfig
	pairs  []testPair
}

// NewBRIEF creates a BRIEF extractor. The test pattern is drawn once from an
// isotropic Gaussian with sigma PatchSize/5 and clipped to the patch.
func NewBRIEF(cfg BRIEFConfig) *BRIEF {
	half := cfg.PatchSize / 2
	sigma := float64(cfg.PatchSize) / 5
	rng := rand.New(rand.NewSource(cfg.Seed))

	sample := func() int {
		v := int(math.Round(rng.NormFloat64() * sigma))
		return imgproc.Clamp(v, -half, half)
	}

	pairs := make([]testPair, cfg.Bytes*8)
	for i := range pairs {
		pairs[i] = testPair{x1: sample(), y1: sample(), x2: sample(), y2: sample()}
	}

	return &BRIEF{config: cfg, pairs: pairs}
}

// Extract computes one descriptor per keypoint. Tests that fall outside the
// image sample the nearest border pixel, so no keypoint is dropped.
func (b *BRIEF) Extract(img *image.Gray, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error) {
	desc := feature.Descriptors{
		Kind:   feature.KindBinary,
		Binary: make([][]byte, len(kps)),
	}
	if len(kps) == 0 {
		return kps, desc, nil
	}

	smooth := imgproc.Blur(img, b.config.Sigma)

	for i, kp := range kps {
		x := int(math.Round(kp.X))
		y := int(math.Round(kp.Y))

		row := make([]byte, b.config.Bytes)
		for j, p := range b.pairs {
			if imgproc.At(smooth, x+p.x1, y+p.y1) < imgproc.At(smooth, x+p.x2, y+p.y2) {
				row[j/8] |= 1 << uint(j%8)
			}
		}
		desc.Binary[i] = row
	}

	return kps, desc, nil
}

// Capabilities reports binary descriptors computed on the supplied keypoints.
func (b *BRIEF) Capabilities() Capabilities {
	return Capabilities{Kind: feature.KindBinary}
}

// Close is a no-op for the pure-Go extractor.
func (b *BRIEF) Close() error {
	return nil
}
