package capture

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/ayusman/tailgate/internal/imgproc"
)

// MockSource plays back pre-recorded frames for testing
type MockSource struct {
	frames  []*image.Gray
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
}

func NewMockSource(frames []*image.Gray, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Next returns a copy of the next frame, numbered from 0 across loops.
func (s *MockSource) Next() (int, *image.Gray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return 0, nil, ErrSourceNotOpen
	}

	if len(s.frames) == 0 {
		return 0, nil, fmt.Errorf("no frames available")
	}

	if s.index >= len(s.frames) && !s.loop {
		return 0, nil, io.EOF
	}

	// Clone the frame so the original isn't modified
	frame := imgproc.Clone(s.frames[s.index%len(s.frames)])
	index := s.index
	s.index++

	return index, frame, nil
}

// SetFrames replaces the frame sequence
func (s *MockSource) SetFrames(frames []*image.Gray) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// Reset restarts playback from the beginning
func (s *MockSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}
