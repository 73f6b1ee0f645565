// Package capture supplies decoded grayscale frames to the pipeline.
package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/imgproc"
)

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("source is not open")

// Source yields (index, image) pairs in sequence. Next returns io.EOF once
// the sequence is exhausted.
type Source interface {
	Open() error
	Next() (int, *image.Gray, error)
	Close() error
}

// DirSource reads a numbered image sequence from disk, e.g. the KITTI layout
// <dir>/0000000000.png ... <dir>/0000000009.png.
type DirSource struct {
	config SourceConfig
	next   int
	open   bool
}

// SourceConfig is the on-disk layout of an image sequence.
type SourceConfig = config.SourceConfig

// NewDirSource creates a DirSource for the given layout.
func NewDirSource(cfg SourceConfig) *DirSource {
	return &DirSource{config: cfg}
}

// Open rewinds the source to its first index.
func (s *DirSource) Open() error {
	if s.config.LastIndex < s.config.FirstIndex {
		return fmt.Errorf("image range %d..%d is empty", s.config.FirstIndex, s.config.LastIndex)
	}
	s.next = s.config.FirstIndex
	s.open = true
	return nil
}

// Close ends the sequence.
func (s *DirSource) Close() error {
	s.open = false
	return nil
}

// Path returns the file name of image index.
func (s *DirSource) Path(index int) string {
	name := fmt.Sprintf("%s%0*d%s", s.config.Prefix, s.config.IndexWidth, index, s.config.Ext)
	return filepath.Join(s.config.Dir, name)
}

// Next decodes the next image and converts it to grayscale.
func (s *DirSource) Next() (int, *image.Gray, error) {
	if !s.open {
		return 0, nil, ErrSourceNotOpen
	}
	if s.next > s.config.LastIndex {
		return 0, nil, io.EOF
	}

	index := s.next
	img, err := imaging.Open(s.Path(index))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load image %d: %w", index, err)
	}
	s.next++

	return index, imgproc.ToGray(img), nil
}
