//go:build !gocv

package matcher

// Without OpenCV only brute-force matching is registered.
const unavailableReason = "requires a build with -tags gocv"
