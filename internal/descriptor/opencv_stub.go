//go:build !gocv

package descriptor

// Without OpenCV only the pure-Go variants are registered.
const unavailableReason = "requires a build with -tags gocv"
