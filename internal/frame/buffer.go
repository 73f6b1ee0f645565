package frame

import (
	"fmt"

	"github.com/ayusman/tailgate/internal/feature"
)

// Buffer is a fixed-capacity FIFO of frames. Pushing into a full buffer
// evicts the oldest frame. A Buffer has a single owner and is not safe for
// concurrent use.
type Buffer struct {
	frames   []*Frame
	capacity int
}

// NewBuffer creates a Buffer holding at most capacity frames. Capacities
// below 1 are treated as 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		frames:   make([]*Frame, 0, capacity),
		capacity: capacity,
	}
}

// Push appends f, evicting the oldest frame first when the buffer is full.
func (b *Buffer) Push(f *Frame) {
	if len(b.frames) >= b.capacity {
		// Shift left by 1, dropping the oldest frame
		copy(b.frames, b.frames[1:])
		b.frames[len(b.frames)-1] = nil
		b.frames = b.frames[:len(b.frames)-1]
	}
	b.frames = append(b.frames, f)
}

// Latest returns the most recently pushed frame.
func (b *Buffer) Latest() (*Frame, error) {
	if len(b.frames) == 0 {
		return nil, fmt.Errorf("latest frame: %w", feature.ErrInsufficientFrames)
	}
	return b.frames[len(b.frames)-1], nil
}

// Previous returns the frame pushed before the latest one.
func (b *Buffer) Previous() (*Frame, error) {
	if len(b.frames) < 2 {
		return nil, fmt.Errorf("previous frame: have %d of 2: %w", len(b.frames), feature.ErrInsufficientFrames)
	}
	return b.frames[len(b.frames)-2], nil
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Frames returns the buffered frames, oldest first.
func (b *Buffer) Frames() []*Frame {
	out := make([]*Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// Reset drops every buffered frame.
func (b *Buffer) Reset() {
	for i := range b.frames {
		b.frames[i] = nil
	}
	b.frames = b.frames[:0]
}
