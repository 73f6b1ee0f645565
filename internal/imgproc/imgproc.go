// Package imgproc provides the small set of grayscale image operations the
// pure-Go detectors and descriptors share.
package imgproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// Gradients holds per-pixel Sobel derivatives, row-major.
type Gradients struct {
	Width, Height int
	DX, DY        []float64
}

// At returns the derivatives at (x, y), clamping to the image border.
func (g *Gradients) At(x, y int) (float64, float64) {
	i := Clamp(y, 0, g.Height-1)*g.Width + Clamp(x, 0, g.Width-1)
	return g.DX[i], g.DY[i]
}

// Sobel computes 3x3 Sobel derivatives of img. Pixels outside the image
// replicate the nearest border pixel.
func Sobel(img *image.Gray) *Gradients {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &Gradients{
		Width:  w,
		Height: h,
		DX:     make([]float64, w*h),
		DY:     make([]float64, w*h),
	}

	px := func(x, y int) float64 {
		return float64(At(img, x, y))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, t, tr := px(x-1, y-1), px(x, y-1), px(x+1, y-1)
			l, r := px(x-1, y), px(x+1, y)
			bl, bm, br := px(x-1, y+1), px(x, y+1), px(x+1, y+1)

			g.DX[y*w+x] = (tr + 2*r + br) - (tl + 2*l + bl)
			g.DY[y*w+x] = (bl + 2*bm + br) - (tl + 2*t + tr)
		}
	}

	return g
}

// At returns the intensity at (x, y) relative to the image origin, clamping
// coordinates to the image.
func At(img *image.Gray, x, y int) uint8 {
	b := img.Bounds()
	x = Clamp(x, 0, b.Dx()-1)
	y = Clamp(y, 0, b.Dy()-1)
	return img.Pix[y*img.Stride+x]
}

// Blur returns a Gaussian-smoothed copy of img. img is left untouched.
func Blur(img *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return Clone(img)
	}
	return ToGray(imaging.Blur(img, sigma))
}

// ToGray converts img to an 8-bit grayscale image anchored at the origin.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}

	// imaging.Grayscale keeps luminance in every channel of an NRGBA image
	src := imaging.Grayscale(img)
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}

// Clone returns a copy of img anchored at the origin.
func Clone(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], img.Pix[y*img.Stride:])
	}
	return out
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
