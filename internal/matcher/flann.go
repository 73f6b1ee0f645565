//go:build gocv

package matcher

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/descriptor"
	"github.com/ayusman/tailgate/internal/feature"
)

const unavailableReason = "not supported by this build"

func init() {
	searchers[config.FLANN] = newFLANN
}

// flann searches with OpenCV's FLANN-based matcher. It only indexes float
// descriptors under the Euclidean metric.
type flann struct {
	m gocv.FlannBasedMatcher
}

func newFLANN(metric config.Metric) (searcher, error) {
	if metric != config.L2 {
		return nil, feature.NewConfigError("matcher", config.FLANN.String(), "FLANN requires the L2 metric")
	}
	return &flann{m: gocv.NewFlannBasedMatcher()}, nil
}

func (f *flann) knn(src, ref feature.Descriptors, k int) ([][]feature.Match, error) {
	query := descriptor.ToMat(src)
	defer query.Close()
	train := descriptor.ToMat(ref)
	defer train.Close()

	res := f.m.KnnMatch(query, train, k)

	out := make([][]feature.Match, src.Len())
	for _, row := range res {
		for _, dm := range row {
			if dm.QueryIdx < 0 || dm.QueryIdx >= len(out) {
				continue
			}
			out[dm.QueryIdx] = append(out[dm.QueryIdx], feature.Match{
				QueryIdx: dm.QueryIdx,
				TrainIdx: dm.TrainIdx,
				Distance: dm.Distance,
			})
		}
	}
	return out, nil
}

func (f *flann) close() error {
	return f.m.Close()
}
