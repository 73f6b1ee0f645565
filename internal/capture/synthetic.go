package capture

import (
	"image"
	"io"
	"math/rand"

	"github.com/anthonynsimon/bild/transform"

	"github.com/ayusman/tailgate/internal/imgproc"
)

// SyntheticConfig describes a generated sequence: a random block texture
// translated horizontally by Shift pixels per frame.
type SyntheticConfig struct {
	Width     int
	Height    int
	Frames    int
	Shift     int
	BlockSize int
	Seed      int64
}

// DefaultSyntheticConfig returns two 100x100 frames 5 pixels apart.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Width:     100,
		Height:    100,
		Frames:    2,
		Shift:     5,
		BlockSize: 5,
		Seed:      11,
	}
}

// SyntheticSource generates frames in memory.
type SyntheticSource struct {
	config SyntheticConfig
	base   *image.Gray
	next   int
	open   bool
}

// NewSyntheticSource creates a SyntheticSource. The base texture is fixed
// by the seed.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 1
	}
	return &SyntheticSource{
		config: cfg,
		base:   Texture(cfg.Width, cfg.Height, cfg.BlockSize, cfg.Seed),
	}
}

// Open rewinds the sequence.
func (s *SyntheticSource) Open() error {
	s.next = 0
	s.open = true
	return nil
}

// Close ends the sequence.
func (s *SyntheticSource) Close() error {
	s.open = false
	return nil
}

// Next returns frame i, the base texture moved right by i*Shift pixels.
// Uncovered pixels are black.
func (s *SyntheticSource) Next() (int, *image.Gray, error) {
	if !s.open {
		return 0, nil, ErrSourceNotOpen
	}
	if s.next >= s.config.Frames {
		return 0, nil, io.EOF
	}

	index := s.next
	s.next++
	return index, s.Frame(index), nil
}

// Frame renders frame index without advancing the sequence.
func (s *SyntheticSource) Frame(index int) *image.Gray {
	if index == 0 || s.config.Shift == 0 {
		return imgproc.Clone(s.base)
	}
	return imgproc.ToGray(transform.Translate(s.base, index*s.config.Shift, 0))
}

// Texture returns a w x h image of block x block squares with random
// intensities drawn from seed.
func Texture(w, h, block int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	cols, rows := w/block+1, h/block+1
	levels := make([]uint8, cols*rows)
	for i := range levels {
		levels[i] = uint8(rng.Intn(256))
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = levels[(y/block)*cols+x/block]
		}
	}
	return img
}
