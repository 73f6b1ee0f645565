// Package matcher finds correspondences between two descriptor sets.
package matcher

import (
	"math"
	"sort"
	"strconv"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
)

// Options configures a Matcher.
type Options struct {
	Type     config.MatcherType
	Selector config.SelectorType
	Metric   config.Metric

	// RatioThreshold is the KNN ratio test threshold.
	RatioThreshold float64
	// DistanceCoef bounds worst/best distance among the kept matches.
	DistanceCoef float64
	// MaxMatches caps the number of kept matches.
	MaxMatches int
}

// DefaultOptions returns brute-force nearest-neighbour Hamming matching.
func DefaultOptions() Options {
	return Options{
		Type:           config.BruteForce,
		Selector:       config.NearestNeighbor,
		Metric:         config.Hamming,
		RatioThreshold: config.DefaultRatioThreshold,
		DistanceCoef:   config.DefaultDistanceCoef,
		MaxMatches:     config.DefaultMaxMatches,
	}
}

// OptionsFrom extracts the matcher options of a run configuration.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Type:           cfg.Matcher,
		Selector:       cfg.Selector,
		Metric:         cfg.Metric,
		RatioThreshold: cfg.RatioThreshold,
		DistanceCoef:   cfg.DistanceCoef,
		MaxMatches:     cfg.MaxMatches,
	}
}

// searcher finds, for every source row, up to k reference rows ordered by
// increasing distance.
type searcher interface {
	knn(src, ref feature.Descriptors, k int) ([][]feature.Match, error)
	close() error
}

// searchers is the dispatch table from matcher type to backend. FLANN is
// added by the gocv build.
var searchers = map[config.MatcherType]func(config.Metric) (searcher, error){
	config.BruteForce: newBruteForce,
}

// Available lists the matcher types this build can construct.
func Available() []config.MatcherType {
	var out []config.MatcherType
	for _, t := range []config.MatcherType{config.BruteForce, config.FLANN} {
		if _, ok := searchers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Matcher matches descriptor sets of one kind with a fixed strategy and metric.
type Matcher struct {
	opts   Options
	kind   feature.Kind
	search searcher
}

// New validates opts against the descriptor kind and builds a Matcher.
// Incompatible settings are reported as *feature.ConfigError.
func New(opts Options, kind feature.Kind) (*Matcher, error) {
	if opts.Selector != config.NearestNeighbor && opts.Selector != config.KNearest {
		return nil, feature.NewConfigError("selector", opts.Selector.String(), "unknown selector")
	}
	if opts.Metric != config.Hamming && opts.Metric != config.L2 {
		return nil, feature.NewConfigError("metric", opts.Metric.String(), "unknown metric")
	}
	if opts.Metric.Kind() != kind {
		return nil, feature.NewConfigError("metric", opts.Metric.String(), "incompatible with "+kind.String()+" descriptors")
	}
	if opts.RatioThreshold <= 0 || opts.RatioThreshold > 1 {
		return nil, feature.NewConfigError("ratio threshold", strconv.FormatFloat(opts.RatioThreshold, 'g', -1, 64), "must be in (0, 1]")
	}
	if opts.DistanceCoef < 1 {
		return nil, feature.NewConfigError("distance coefficient", strconv.FormatFloat(opts.DistanceCoef, 'g', -1, 64), "must be at least 1")
	}
	if opts.MaxMatches < 1 {
		return nil, feature.NewConfigError("max matches", strconv.Itoa(opts.MaxMatches), "must be at least 1")
	}

	factory, ok := searchers[opts.Type]
	if !ok {
		return nil, feature.NewConfigError("matcher", opts.Type.String(), unavailableReason)
	}
	s, err := factory(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Matcher{opts: opts, kind: kind, search: s}, nil
}

// Options returns the matcher's options.
func (m *Matcher) Options() Options {
	return m.opts
}

// Match relates src (previous frame) to ref (current frame). The result is
// sorted by increasing distance and pruned. An empty src or ref yields no
// matches and no error.
func (m *Matcher) Match(src, ref feature.Descriptors) ([]feature.Match, error) {
	if src.Kind != m.kind {
		return nil, feature.NewConfigError("descriptor kind", src.Kind.String(), "matcher expects "+m.kind.String())
	}
	if ref.Kind != m.kind {
		return nil, feature.NewConfigError("descriptor kind", ref.Kind.String(), "matcher expects "+m.kind.String())
	}

	matches := make([]feature.Match, 0)
	if src.Len() == 0 || ref.Len() == 0 {
		return matches, nil
	}
	if src.Width() != ref.Width() {
		return nil, feature.NewConfigError("descriptor width", strconv.Itoa(ref.Width()), "expected "+strconv.Itoa(src.Width()))
	}

	switch m.opts.Selector {
	case config.KNearest:
		neighbours, err := m.search.knn(src, ref, 2)
		if err != nil {
			return nil, err
		}
		matches = RatioTest(neighbours, m.opts.RatioThreshold)

	default:
		neighbours, err := m.search.knn(src, ref, 1)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbours {
			if len(n) > 0 {
				matches = append(matches, n[0])
			}
		}
	}

	return Prune(matches, m.opts.DistanceCoef, m.opts.MaxMatches), nil
}

// Close releases the search backend.
func (m *Matcher) Close() error {
	return m.search.close()
}

// RatioTest keeps the best candidate of each neighbour list when it is
// strictly closer than ratio times the second candidate. A list with a single
// candidate has no competitor and is kept.
func RatioTest(neighbours [][]feature.Match, ratio float64) []feature.Match {
	out := make([]feature.Match, 0, len(neighbours))
	for _, n := range neighbours {
		if len(n) == 0 {
			continue
		}
		second := math.Inf(1)
		if len(n) > 1 {
			second = n[1].Distance
		}
		if n[0].Distance < ratio*second {
			out = append(out, n[0])
		}
	}
	return out
}

// Prune sorts matches by increasing distance, drops the worst match while
// best*coef < worst, then keeps at most max matches. Inputs of 0 or 1 matches
// are returned unchanged. The input slice is not modified.
func Prune(matches []feature.Match, coef float64, max int) []feature.Match {
	if len(matches) <= 1 {
		return matches
	}

	out := make([]feature.Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})

	for len(out) > 1 && out[0].Distance*coef < out[len(out)-1].Distance {
		out = out[:len(out)-1]
	}

	if max > 0 && len(out) > max {
		out = out[:max]
	}

	return out
}
