package matcher

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/feature"
)

func binary(rows ...[]byte) feature.Descriptors {
	return feature.Descriptors{Kind: feature.KindBinary, Binary: rows}
}

func float(rows ...[]float64) feature.Descriptors {
	return feature.Descriptors{Kind: feature.KindFloat, Float: rows}
}

func newMatcher(t *testing.T, mutate func(*Options), kind feature.Kind) *Matcher {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	m, err := New(opts, kind)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestHamming(t *testing.T) {
	assert.Equal(t, 0, Hamming([]byte{0xAB, 0xCD}, []byte{0xAB, 0xCD}))
	assert.Equal(t, 8, Hamming([]byte{0xFF}, []byte{0x00}))
	assert.Equal(t, 4, Hamming([]byte{0x01, 0x80}, []byte{0x00, 0x03}))
	assert.Equal(t, 11, Hamming([]byte{0x0F, 0xF0, 0x01}, []byte{0xF0, 0x70, 0x02}))
}

func TestMatch_NearestNeighbor(t *testing.T) {
	m := newMatcher(t, nil, feature.KindBinary)

	src := binary([]byte{0x00, 0x00}, []byte{0xFF, 0xFF}, []byte{0x0F, 0x00})
	ref := binary([]byte{0xFF, 0xFE}, []byte{0x00, 0x01}, []byte{0x0F, 0x01})

	matches, err := m.Match(src, ref)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	byQuery := map[int]feature.Match{}
	for _, mt := range matches {
		byQuery[mt.QueryIdx] = mt
	}
	assert.Equal(t, feature.Match{QueryIdx: 0, TrainIdx: 1, Distance: 1}, byQuery[0])
	assert.Equal(t, feature.Match{QueryIdx: 1, TrainIdx: 0, Distance: 1}, byQuery[1])
	assert.Equal(t, feature.Match{QueryIdx: 2, TrainIdx: 2, Distance: 1}, byQuery[2])
}

func TestMatch_NearestNeighborManyToOne(t *testing.T) {
	m := newMatcher(t, nil, feature.KindBinary)

	src := binary([]byte{0x01}, []byte{0x02}, []byte{0x04})
	ref := binary([]byte{0x00}, []byte{0xFF})

	matches, err := m.Match(src, ref)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, mt := range matches {
		assert.Equal(t, 0, mt.TrainIdx)
		assert.Equal(t, 1.0, mt.Distance)
	}
}

func TestMatch_TiesKeepLowestReference(t *testing.T) {
	m := newMatcher(t, nil, feature.KindBinary)

	matches, err := m.Match(binary([]byte{0x00}), binary([]byte{0x01}, []byte{0x02}, []byte{0x04}))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].TrainIdx)
}

func TestMatch_EmptySets(t *testing.T) {
	m := newMatcher(t, nil, feature.KindBinary)

	matches, err := m.Match(binary([]byte{0x00}), binary())
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	matches, err = m.Match(binary(), binary([]byte{0x00}))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatch_KNearestRatioTest(t *testing.T) {
	m := newMatcher(t, func(o *Options) { o.Selector = config.KNearest }, feature.KindBinary)

	t.Run("distinct best is kept", func(t *testing.T) {
		// distances 1 and 8: 1 < 6.4
		matches, err := m.Match(binary([]byte{0x00}), binary([]byte{0xFF}, []byte{0x01}))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 1, matches[0].TrainIdx)
	})

	t.Run("boundary is rejected", func(t *testing.T) {
		// distances 8 and 10: 8 is not < 0.8*10
		src := binary([]byte{0x00, 0x00})
		ref := binary([]byte{0xFF, 0x00}, []byte{0xFF, 0x03})
		matches, err := m.Match(src, ref)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("ambiguous equal candidates are rejected", func(t *testing.T) {
		matches, err := m.Match(binary([]byte{0x00}), binary([]byte{0x01}, []byte{0x02}))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("single reference is kept", func(t *testing.T) {
		matches, err := m.Match(binary([]byte{0x00}), binary([]byte{0x0F}))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 4.0, matches[0].Distance)
	})
}

func TestRatioTest(t *testing.T) {
	neighbours := [][]feature.Match{
		{{QueryIdx: 0, Distance: 2}, {QueryIdx: 0, Distance: 4}},
		{{QueryIdx: 1, Distance: 1.9}, {QueryIdx: 1, Distance: 4}},
		{{QueryIdx: 2, Distance: 3}},
		{},
	}

	got := RatioTest(neighbours, 0.5)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].QueryIdx)
	assert.Equal(t, 2, got[1].QueryIdx)
}

func TestMatch_Euclidean(t *testing.T) {
	m := newMatcher(t, func(o *Options) { o.Metric = config.L2 }, feature.KindFloat)

	src := float([]float64{0, 0}, []float64{10, 10})
	ref := float([]float64{0, 3}, []float64{10, 11}, []float64{100, 100})

	matches, err := m.Match(src, ref)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// sorted by distance: (1 -> 1, 1.0) then (0 -> 0, 3.0)
	assert.Equal(t, feature.Match{QueryIdx: 1, TrainIdx: 1, Distance: 1}, matches[0])
	assert.Equal(t, feature.Match{QueryIdx: 0, TrainIdx: 0, Distance: 3}, matches[1])
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		kind   feature.Kind
	}{
		{"hamming on float descriptors", nil, feature.KindFloat},
		{"l2 on binary descriptors", func(o *Options) { o.Metric = config.L2 }, feature.KindBinary},
		{"unknown selector", func(o *Options) { o.Selector = config.SelectorType(9) }, feature.KindBinary},
		{"unknown matcher", func(o *Options) { o.Type = config.MatcherType(9) }, feature.KindBinary},
		{"ratio above one", func(o *Options) { o.RatioThreshold = 1.5 }, feature.KindBinary},
		{"coefficient below one", func(o *Options) { o.DistanceCoef = 0 }, feature.KindBinary},
		{"zero max matches", func(o *Options) { o.MaxMatches = 0 }, feature.KindBinary},
		{"flann on binary descriptors", func(o *Options) { o.Type = config.FLANN }, feature.KindBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			_, err := New(opts, tt.kind)
			assert.True(t, errors.Is(err, feature.ErrConfiguration), "got %v", err)
		})
	}
}

func TestMatch_KindMismatch(t *testing.T) {
	m := newMatcher(t, nil, feature.KindBinary)

	_, err := m.Match(float([]float64{1}), binary([]byte{1}))
	assert.ErrorIs(t, err, feature.ErrConfiguration)

	_, err = m.Match(binary([]byte{1}), float([]float64{1}))
	assert.ErrorIs(t, err, feature.ErrConfiguration)

	_, err = m.Match(binary([]byte{1, 2}), binary([]byte{1}))
	assert.ErrorIs(t, err, feature.ErrConfiguration)
}

func TestPrune(t *testing.T) {
	t.Run("empty and single inputs are unchanged", func(t *testing.T) {
		assert.Nil(t, Prune(nil, 4, 50))

		empty := []feature.Match{}
		assert.Equal(t, empty, Prune(empty, 4, 50))

		single := []feature.Match{{QueryIdx: 3, TrainIdx: 1, Distance: 99}}
		assert.Equal(t, single, Prune(single, 4, 50))
	})

	t.Run("drops the tail beyond the distance spread", func(t *testing.T) {
		in := []feature.Match{
			{QueryIdx: 0, Distance: 10},
			{QueryIdx: 1, Distance: 2},
			{QueryIdx: 2, Distance: 5},
			{QueryIdx: 3, Distance: 1},
			{QueryIdx: 4, Distance: 3},
			{QueryIdx: 5, Distance: 4},
		}

		got := Prune(in, 4, 50)

		require.Len(t, got, 4)
		assert.Equal(t, []float64{1, 2, 3, 4}, distances(got))
		assert.Equal(t, 10.0, in[0].Distance, "input must not be modified")
	})

	t.Run("zero best distance keeps only exact matches", func(t *testing.T) {
		in := []feature.Match{{QueryIdx: 0, Distance: 3}, {QueryIdx: 1, Distance: 0}, {QueryIdx: 2, Distance: 0}}
		got := Prune(in, 4, 50)
		assert.Equal(t, []float64{0, 0}, distances(got))
		assert.Equal(t, []int{1, 2}, []int{got[0].QueryIdx, got[1].QueryIdx})
	})

	t.Run("caps the count", func(t *testing.T) {
		in := make([]feature.Match, 80)
		for i := range in {
			in[i] = feature.Match{QueryIdx: i, Distance: float64(10 + i%7)}
		}
		got := Prune(in, 4, 50)
		require.Len(t, got, 50)
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
		}
	})
}

func TestMatch_OutputProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	randomRows := func(n int) feature.Descriptors {
		d := feature.Descriptors{Kind: feature.KindBinary}
		for i := 0; i < n; i++ {
			row := make([]byte, 32)
			rng.Read(row)
			d.Binary = append(d.Binary, row)
		}
		return d
	}

	for _, sel := range []config.SelectorType{config.NearestNeighbor, config.KNearest} {
		m := newMatcher(t, func(o *Options) { o.Selector = sel }, feature.KindBinary)
		for trial := 0; trial < 5; trial++ {
			matches, err := m.Match(randomRows(120), randomRows(90))
			require.NoError(t, err)
			assert.LessOrEqual(t, len(matches), 50)
			for i := 1; i < len(matches); i++ {
				assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
			}
		}
	}
}

func TestNew_FLANNAvailability(t *testing.T) {
	opts := DefaultOptions()
	opts.Type = config.FLANN
	opts.Metric = config.L2

	m, err := New(opts, feature.KindFloat)
	if _, ok := searchers[config.FLANN]; !ok {
		assert.ErrorIs(t, err, feature.ErrConfiguration)
		return
	}
	require.NoError(t, err)
	m.Close()
}

func distances(ms []feature.Match) []float64 {
	out := make([]float64, len(ms))
	for i, m := range ms {
		out[i] = m.Distance
	}
	return out
}

func TestAvailable(t *testing.T) {
	got := Available()
	require.NotEmpty(t, got)
	assert.Equal(t, config.BruteForce, got[0])
}
