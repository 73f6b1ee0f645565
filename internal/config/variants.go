package config

import (
	"strings"

	"github.com/ayusman/tailgate/internal/feature"
)

// DetectorType selects a keypoint detector.
type DetectorType int

const (
	ShiTomasi DetectorType = iota
	Harris
	FAST
	BRISK
	ORB
	AKAZE
	SIFT
)

var detectorNames = []string{"SHITOMASI", "HARRIS", "FAST", "BRISK", "ORB", "AKAZE", "SIFT"}

// String returns the detector's name.
func (t DetectorType) String() string {
	if t < 0 || int(t) >= len(detectorNames) {
		return "UNKNOWN"
	}
	return detectorNames[t]
}

// Valid reports whether t is one of the declared detectors.
func (t DetectorType) Valid() bool {
	return t >= 0 && int(t) < len(detectorNames)
}

// Family groups detectors by approach.
type Family string

const (
	FamilyCorner         Family = "corner"
	FamilyBinary         Family = "binary"
	FamilyScaleInvariant Family = "scale-invariant"
)

// Family returns the detector family of t.
func (t DetectorType) Family() Family {
	switch t {
	case ShiTomasi, Harris, FAST:
		return FamilyCorner
	case SIFT:
		return FamilyScaleInvariant
	default:
		return FamilyBinary
	}
}

// DetectorTypes lists every detector.
func DetectorTypes() []DetectorType {
	return []DetectorType{ShiTomasi, Harris, FAST, BRISK, ORB, AKAZE, SIFT}
}

// ParseDetector resolves a detector name, case-insensitively.
func ParseDetector(s string) (DetectorType, error) {
	for i, name := range detectorNames {
		if strings.EqualFold(s, name) {
			return DetectorType(i), nil
		}
	}
	return 0, feature.NewConfigError("detector", s, "unknown detector")
}

// DescriptorType selects a descriptor extractor.
type DescriptorType int

const (
	BRIEF DescriptorType = iota
	HOG
	BRISKDescriptor
	ORBDescriptor
	AKAZEDescriptor
	SIFTDescriptor
)

var descriptorNames = []string{"BRIEF", "HOG", "BRISK", "ORB", "AKAZE", "SIFT"}

// String returns the descriptor's name.
func (t DescriptorType) String() string {
	if t < 0 || int(t) >= len(descriptorNames) {
		return "UNKNOWN"
	}
	return descriptorNames[t]
}

// Valid reports whether t is one of the declared descriptors.
func (t DescriptorType) Valid() bool {
	return t >= 0 && int(t) < len(descriptorNames)
}

// Kind returns the vector family produced by t.
func (t DescriptorType) Kind() feature.Kind {
	switch t {
	case HOG, SIFTDescriptor:
		return feature.KindFloat
	default:
		return feature.KindBinary
	}
}

// DescriptorTypes lists every descriptor.
func DescriptorTypes() []DescriptorType {
	return []DescriptorType{BRIEF, HOG, BRISKDescriptor, ORBDescriptor, AKAZEDescriptor, SIFTDescriptor}
}

// ParseDescriptor resolves a descriptor name, case-insensitively.
func ParseDescriptor(s string) (DescriptorType, error) {
	for i, name := range descriptorNames {
		if strings.EqualFold(s, name) {
			return DescriptorType(i), nil
		}
	}
	return 0, feature.NewConfigError("descriptor", s, "unknown descriptor")
}

// MatcherType selects the neighbour search backend.
type MatcherType int

const (
	BruteForce MatcherType = iota
	FLANN
)

// String returns the matcher's name.
func (t MatcherType) String() string {
	switch t {
	case BruteForce:
		return "BF"
	case FLANN:
		return "FLANN"
	default:
		return "UNKNOWN"
	}
}

// ParseMatcher resolves a matcher name, case-insensitively.
func ParseMatcher(s string) (MatcherType, error) {
	switch strings.ToUpper(s) {
	case "BF", "MAT_BF":
		return BruteForce, nil
	case "FLANN", "MAT_FLANN":
		return FLANN, nil
	}
	return 0, feature.NewConfigError("matcher", s, "unknown matcher")
}

// SelectorType selects the match selection strategy.
type SelectorType int

const (
	// NearestNeighbor keeps the closest reference descriptor.
	NearestNeighbor SelectorType = iota
	// KNearest keeps the closest of two candidates when it passes the ratio test.
	KNearest
)

// String returns the selector's name.
func (t SelectorType) String() string {
	switch t {
	case NearestNeighbor:
		return "NN"
	case KNearest:
		return "KNN"
	default:
		return "UNKNOWN"
	}
}

// ParseSelector resolves a selector name, case-insensitively.
func ParseSelector(s string) (SelectorType, error) {
	switch strings.ToUpper(s) {
	case "NN", "SEL_NN":
		return NearestNeighbor, nil
	case "KNN", "SEL_KNN":
		return KNearest, nil
	}
	return 0, feature.NewConfigError("selector", s, "unknown selector")
}

// Metric is the descriptor distance function.
type Metric int

const (
	Hamming Metric = iota
	L2
)

// String returns the metric's name.
func (m Metric) String() string {
	switch m {
	case Hamming:
		return "HAMMING"
	case L2:
		return "L2"
	default:
		return "UNKNOWN"
	}
}

// Kind returns the descriptor kind the metric applies to.
func (m Metric) Kind() feature.Kind {
	if m == L2 {
		return feature.KindFloat
	}
	return feature.KindBinary
}

// ParseMetric resolves a metric name, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToUpper(s) {
	case "HAMMING", "DES_BINARY":
		return Hamming, nil
	case "L2", "EUCLIDEAN", "DES_HOG":
		return L2, nil
	}
	return 0, feature.NewConfigError("metric", s, "unknown metric")
}

// MetricFor returns the metric compatible with descriptors of kind k.
func MetricFor(k feature.Kind) Metric {
	if k == feature.KindFloat {
		return L2
	}
	return Hamming
}

// Compatible reports whether descriptors of type desc can be computed on
// keypoints from detector det. AKAZE descriptors need the octave data only
// AKAZE keypoints carry, and ORB descriptors on SIFT keypoints exhaust
// memory in OpenCV.
func Compatible(det DetectorType, desc DescriptorType) bool {
	switch {
	case desc == AKAZEDescriptor && det != AKAZE:
		return false
	case desc == ORBDescriptor && det == SIFT:
		return false
	}
	return true
}

// Combination is one detector/descriptor pairing with the metric its
// descriptors require.
type Combination struct {
	Detector   DetectorType
	Descriptor DescriptorType
	Metric     Metric
}

// String returns e.g. "FAST/BRIEF".
func (c Combination) String() string {
	return c.Detector.String() + "/" + c.Descriptor.String()
}

// Combinations returns every compatible pairing of the given detectors and
// descriptors, detector-major.
func Combinations(detectors []DetectorType, descriptors []DescriptorType) []Combination {
	var out []Combination
	for _, det := range detectors {
		for _, desc := range descriptors {
			if Compatible(det, desc) {
				out = append(out, Combination{Detector: det, Descriptor: desc, Metric: MetricFor(desc.Kind())})
			}
		}
	}
	return out
}

// With returns cfg set up for combination c. FLANN falls back to brute force
// for binary descriptors.
func (c Combination) With(cfg Config) Config {
	cfg.Detector = c.Detector
	cfg.Descriptor = c.Descriptor
	cfg.Metric = c.Metric
	if cfg.Matcher == FLANN && c.Descriptor.Kind() != feature.KindFloat {
		cfg.Matcher = BruteForce
	}
	return cfg
}
