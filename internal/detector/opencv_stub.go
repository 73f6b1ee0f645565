//go:build !gocv

package detector

// Without OpenCV only the pure-Go variants are registered.
const unavailableReason = "requires a build with -tags gocv"
