//go:build !gocv

package capture

import (
	"errors"
	"image"
)

var errNoVideo = errors.New("video capture requires a build with -tags gocv")

// VideoSource is only available in builds with OpenCV.
type VideoSource struct{}

// NewVideoSource reports that video capture needs OpenCV.
func NewVideoSource(device string) (*VideoSource, error) {
	return nil, errNoVideo
}

func (v *VideoSource) Open() error                     { return errNoVideo }
func (v *VideoSource) Close() error                    { return nil }
func (v *VideoSource) Next() (int, *image.Gray, error) { return 0, nil, errNoVideo }
