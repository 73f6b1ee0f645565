// Package feature defines the keypoint, descriptor and match types shared by
// every stage of the tailgate pipeline.
package feature

// Keypoint is a salient image location produced by a detector.
// Keypoints are values and are identified by their position in the slice
// that owns them.
type Keypoint struct {
	X, Y     float64
	Size     float64
	Angle    float64 // -1 when the detector computes no orientation
	Response float64 // 0 when the detector reports no score
	Octave   int
}

// Kind is the vector family of a descriptor set.
type Kind int

const (
	// KindBinary descriptors are bit-packed bytes compared with Hamming distance.
	KindBinary Kind = iota
	// KindFloat descriptors are float vectors compared with Euclidean distance.
	KindFloat
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Descriptors holds one descriptor row per keypoint, with the same ordinal
// index as the keypoint it describes. Only the slice matching Kind is used.
type Descriptors struct {
	Kind   Kind
	Binary [][]byte
	Float  [][]float64
}

// Len returns the number of descriptor rows of the active kind.
func (d Descriptors) Len() int {
	if d.Kind == KindFloat {
		return len(d.Float)
	}
	return len(d.Binary)
}

// Width returns the row width in bytes (binary) or elements (float),
// or 0 for an empty set.
func (d Descriptors) Width() int {
	if d.Len() == 0 {
		return 0
	}
	if d.Kind == KindFloat {
		return len(d.Float[0])
	}
	return len(d.Binary[0])
}

// Match is a correspondence between a source keypoint (previous frame) and a
// reference keypoint (current frame).
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}
