// Package roi restricts keypoints to a rectangular region of interest.
package roi

import (
	"image"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"github.com/ayusman/tailgate/internal/feature"
)

// Rect is a region given by its top-left corner, width and height in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Full returns a rectangle whose interior covers every pixel of b.
func Full(b image.Rectangle) Rect {
	return Rect{X: b.Min.X - 1, Y: b.Min.Y - 1, Width: b.Dx() + 1, Height: b.Dy() + 1}
}

// Empty reports whether no point can lie strictly inside r.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Bounds returns r as a closed r2.Rect.
func (r Rect) Bounds() r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: float64(r.X), Hi: float64(r.X + r.Width)},
		Y: r1.Interval{Lo: float64(r.Y), Hi: float64(r.Y + r.Height)},
	}
}

// Contains reports whether (x, y) lies strictly inside r. Points on the
// border are outside.
func (r Rect) Contains(x, y float64) bool {
	return r.Bounds().InteriorContainsPoint(r2.Point{X: x, Y: y})
}

// Image returns the same rectangle as an image.Rectangle, for overlays.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Filter returns the keypoints of kps that lie strictly inside r, in their
// original order. kps is not modified.
func Filter(kps []feature.Keypoint, r Rect) []feature.Keypoint {
	out := make([]feature.Keypoint, 0, len(kps))
	if r.Empty() {
		return out
	}

	bounds := r.Bounds()
	for _, kp := range kps {
		if bounds.InteriorContainsPoint(r2.Point{X: kp.X, Y: kp.Y}) {
			out = append(out, kp)
		}
	}
	return out
}
