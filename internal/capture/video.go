//go:build gocv

package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// VideoSource reads frames from a video file or capture device through
// OpenCV and converts them to grayscale.
type VideoSource struct {
	device  string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	next    int
}

// NewVideoSource creates a VideoSource for a file path, URL or device ID.
func NewVideoSource(device string) (*VideoSource, error) {
	return &VideoSource{device: device}, nil
}

func (v *VideoSource) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(v.device)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", v.device, err)
	}

	v.capture = capture
	v.running = true
	v.next = 0

	return nil
}

func (v *VideoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

// Next reads a single frame. A failed read at the end of a file is io.EOF.
func (v *VideoSource) Next() (int, *image.Gray, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return 0, nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		return 0, nil, io.EOF
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	img, err := gray.ToImage()
	if err != nil {
		return 0, nil, err
	}
	g, ok := img.(*image.Gray)
	if !ok {
		return 0, nil, errors.New("captured frame is not grayscale")
	}

	index := v.next
	v.next++
	return index, g, nil
}
