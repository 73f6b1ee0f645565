//go:build gocv

package detector

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
)

const unavailableReason = "not supported by this build"

// init replaces the pure-Go corner detectors with OpenCV's and adds the
// binary and scale-invariant variants.
func init() {
	registry[config.ShiTomasi] = func() (Detector, error) {
		return &gfttDetector{name: "SHITOMASI", config: DefaultCornerConfig()}, nil
	}
	registry[config.Harris] = func() (Detector, error) {
		return &gfttDetector{name: "HARRIS", config: DefaultCornerConfig(), harris: true}, nil
	}
	registry[config.FAST] = func() (Detector, error) {
		cfg := DefaultFASTConfig()
		f := gocv.NewFastFeatureDetectorWithParams(cfg.Threshold, cfg.NonMaxSuppression, gocv.FastFeatureDetectorType916)
		return &opencvDetector{name: "FAST", impl: &f}, nil
	}
	registry[config.BRISK] = func() (Detector, error) {
		b := gocv.NewBRISK()
		return &opencvDetector{name: "BRISK", impl: &b}, nil
	}
	registry[config.ORB] = func() (Detector, error) {
		o := gocv.NewORB()
		return &opencvDetector{name: "ORB", impl: &o}, nil
	}
	registry[config.AKAZE] = func() (Detector, error) {
		a := gocv.NewAKAZE()
		return &opencvDetector{name: "AKAZE", impl: &a}, nil
	}
	registry[config.SIFT] = func() (Detector, error) {
		s := gocv.NewSIFT()
		return &opencvDetector{name: "SIFT", impl: &s}, nil
	}
}

// featureDetector is the subset of the gocv feature2d algorithms used here.
type featureDetector interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// opencvDetector adapts a gocv feature2d algorithm to the Detector interface.
type opencvDetector struct {
	name string
	impl featureDetector
}

// Detect runs the OpenCV detector on img.
func (d *opencvDetector) Detect(img *image.Gray) ([]feature.Keypoint, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("%s: converting image: %w", d.name, err)
	}
	defer mat.Close()

	return FromOpenCV(d.impl.Detect(mat)), nil
}

// Close releases the native algorithm.
func (d *opencvDetector) Close() error {
	return d.impl.Close()
}

// gfttDetector runs OpenCV's good-features-to-track. The corner budget
// depends on the image size, so the native detector is built per call.
type gfttDetector struct {
	name   string
	config CornerConfig
	harris bool
}

// Detect runs GFTT on img.
func (d *gfttDetector) Detect(img *image.Gray) ([]feature.Keypoint, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("%s: converting image: %w", d.name, err)
	}
	defer mat.Close()

	b := img.Bounds()
	gftt := gocv.NewGFTTDetectorWithParams(gocv.GFTTDetectorParams{
		MaxCorners:        d.config.MaxCorners(b.Dx(), b.Dy()),
		QualityLevel:      d.config.QualityLevel,
		MinDistance:       d.config.MinDistance(),
		BlockSize:         d.config.BlockSize,
		UseHarrisDetector: d.harris,
		K:                 d.config.K,
	})
	defer gftt.Close()

	return FromOpenCV(gftt.Detect(mat)), nil
}

// Close is a no-op; the native detector lives for one call.
func (d *gfttDetector) Close() error {
	return nil
}

// FromOpenCV converts gocv keypoints.
func FromOpenCV(kps []gocv.KeyPoint) []feature.Keypoint {
	out := make([]feature.Keypoint, len(kps))
	for i, kp := range kps {
		out[i] = feature.Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}
	return out
}

// ToOpenCV converts keypoints for gocv.
func ToOpenCV(kps []feature.Keypoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = gocv.KeyPoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
			ClassID:  -1,
		}
	}
	return out
}
