package matcher

import (
	"github.com/steakknife/hamming"
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
)

// DistanceFunc returns the distance between source row i and reference row j.
type DistanceFunc func(src, ref feature.Descriptors, i, j int) float64

// Distance returns the distance function for m.
func Distance(m config.Metric) DistanceFunc {
	switch m {
	case config.L2:
		return func(src, ref feature.Descriptors, i, j int) float64 {
			return floats.Distance(src.Float[i], ref.Float[j], 2)
		}
	default:
		return func(src, ref feature.Descriptors, i, j int) float64 {
			return float64(Hamming(src.Binary[i], ref.Binary[j]))
		}
	}
}

// Hamming returns the number of differing bits between a and b, which must
// have the same length.
func Hamming(a, b []byte) int {
	return hamming.Bytes(a, b)
}

// bruteForce compares every source row with every reference row.
type bruteForce struct {
	distance DistanceFunc
}

func newBruteForce(m config.Metric) (searcher, error) {
	return &bruteForce{distance: Distance(m)}, nil
}

// knn keeps the k closest reference rows per source row. Equal distances
// keep the lower reference index first.
func (b *bruteForce) knn(src, ref feature.Descriptors, k int) ([][]feature.Match, error) {
	out := make([][]feature.Match, src.Len())
	for i := range out {
		best := make([]feature.Match, 0, k)
		for j := 0; j < ref.Len(); j++ {
			d := b.distance(src, ref, i, j)
			if len(best) == k && d >= best[k-1].Distance {
				continue
			}

			m := feature.Match{QueryIdx: i, TrainIdx: j, Distance: d}
			pos := len(best)
			for pos > 0 && best[pos-1].Distance > d {
				pos--
			}
			if len(best) < k {
				best = append(best, feature.Match{})
			}
			copy(best[pos+1:], best[pos:len(best)-1])
			best[pos] = m
		}
		out[i] = best
	}
	return out, nil
}

func (b *bruteForce) close() error {
	return nil
}
