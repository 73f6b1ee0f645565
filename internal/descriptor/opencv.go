//go:build gocv

package descriptor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/detector"
	"github.com/ayusman/tailgate/internal/feature"
)

const unavailableReason = "not supported by this build"

func init() {
	registry[config.BRISKDescriptor] = func() (Extractor, error) {
		b := gocv.NewBRISK()
		return &opencvExtractor{name: "BRISK", impl: &b, caps: Capabilities{
			Kind:             feature.KindBinary,
			MayDropKeypoints: true,
		}}, nil
	}
	registry[config.ORBDescriptor] = func() (Extractor, error) {
		o := gocv.NewORB()
		return &opencvExtractor{name: "ORB", impl: &o, caps: Capabilities{
			Kind:                 feature.KindBinary,
			ProducesOwnKeypoints: true,
			MayDropKeypoints:     true,
		}}, nil
	}
	registry[config.AKAZEDescriptor] = func() (Extractor, error) {
		a := gocv.NewAKAZE()
		return &opencvExtractor{name: "AKAZE", impl: &a, caps: Capabilities{
			Kind:                 feature.KindBinary,
			ProducesOwnKeypoints: true,
			MayDropKeypoints:     true,
		}}, nil
	}
	registry[config.SIFTDescriptor] = func() (Extractor, error) {
		s := gocv.NewSIFT()
		return &opencvExtractor{name: "SIFT", impl: &s, caps: Capabilities{
			Kind:             feature.KindFloat,
			MayDropKeypoints: true,
		}}, nil
	}
}

// featureComputer is the subset of the gocv feature2d algorithms used here.
type featureComputer interface {
	Compute(src gocv.Mat, mask gocv.Mat, kps []gocv.KeyPoint) ([]gocv.KeyPoint, gocv.Mat)
	DetectAndCompute(src gocv.Mat, mask gocv.Mat) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// opencvExtractor adapts a gocv feature2d algorithm to the Extractor interface.
type opencvExtractor struct {
	name string
	impl featureComputer
	caps Capabilities
}

// Extract computes descriptors on kps, or detects and describes its own
// keypoints when kps is empty and the variant supports it.
func (e *opencvExtractor) Extract(img *image.Gray, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error) {
	empty := feature.Descriptors{Kind: e.caps.Kind}
	if len(kps) == 0 && !e.caps.ProducesOwnKeypoints {
		return kps, empty, nil
	}

	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, empty, fmt.Errorf("%s: converting image: %w", e.name, err)
	}
	defer mat.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	var out []gocv.KeyPoint
	var desc gocv.Mat
	if len(kps) == 0 {
		out, desc = e.impl.DetectAndCompute(mat, mask)
	} else {
		out, desc = e.impl.Compute(mat, mask, detector.ToOpenCV(kps))
	}
	defer desc.Close()

	d, err := fromMat(desc, e.caps.Kind)
	if err != nil {
		return nil, empty, fmt.Errorf("%s: %w", e.name, err)
	}
	if d.Len() != len(out) {
		return nil, empty, fmt.Errorf("%s: %d descriptors for %d keypoints", e.name, d.Len(), len(out))
	}

	return detector.FromOpenCV(out), d, nil
}

// Capabilities returns the variant's keypoint handling and vector kind.
func (e *opencvExtractor) Capabilities() Capabilities {
	return e.caps
}

// Close releases the native algorithm.
func (e *opencvExtractor) Close() error {
	return e.impl.Close()
}

// fromMat copies a descriptor matrix, one row per keypoint.
func fromMat(m gocv.Mat, kind feature.Kind) (feature.Descriptors, error) {
	d := feature.Descriptors{Kind: kind}
	if m.Empty() {
		return d, nil
	}

	rows, cols := m.Rows(), m.Cols()
	switch kind {
	case feature.KindBinary:
		if m.Type() != gocv.MatTypeCV8U {
			return d, fmt.Errorf("expected 8-bit descriptors, got %v", m.Type())
		}
		d.Binary = make([][]byte, rows)
		for r := 0; r < rows; r++ {
			row := make([]byte, cols)
			for c := 0; c < cols; c++ {
				row[c] = m.GetUCharAt(r, c)
			}
			d.Binary[r] = row
		}
	case feature.KindFloat:
		if m.Type() != gocv.MatTypeCV32F {
			return d, fmt.Errorf("expected 32-bit float descriptors, got %v", m.Type())
		}
		d.Float = make([][]float64, rows)
		for r := 0; r < rows; r++ {
			row := make([]float64, cols)
			for c := 0; c < cols; c++ {
				row[c] = float64(m.GetFloatAt(r, c))
			}
			d.Float[r] = row
		}
	}

	return d, nil
}

// ToMat copies descriptors into a CV_8U (binary) or CV_32F (float) matrix.
// The caller owns the returned Mat.
func ToMat(d feature.Descriptors) gocv.Mat {
	if d.Len() == 0 {
		return gocv.NewMat()
	}

	if d.Kind == feature.KindBinary {
		m := gocv.NewMatWithSize(d.Len(), d.Width(), gocv.MatTypeCV8U)
		for r, row := range d.Binary {
			for c, v := range row {
				m.SetUCharAt(r, c, v)
			}
		}
		return m
	}

	m := gocv.NewMatWithSize(d.Len(), d.Width(), gocv.MatTypeCV32F)
	for r, row := range d.Float {
		for c, v := range row {
			m.SetFloatAt(r, c, float32(v))
		}
	}
	return m
}
