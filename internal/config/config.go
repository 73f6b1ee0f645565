// Package config holds the immutable run configuration of the tailgate
// pipeline and the closed set of detector, descriptor and matcher variants.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/roi"
)

// Matching and buffering defaults.
const (
	// DefaultRatioThreshold is the KNN ratio test threshold.
	DefaultRatioThreshold = 0.8
	// DefaultDistanceCoef bounds the worst/best distance spread kept after matching.
	DefaultDistanceCoef = 4.0
	// DefaultMaxMatches caps the number of matches kept per frame pair.
	DefaultMaxMatches = 50
	// DefaultBufferCapacity is the number of frames held by the ring buffer.
	DefaultBufferCapacity = 2
	// DefaultKeypointLimit is the keypoint limit used when limiting is enabled
	// without an explicit value.
	DefaultKeypointLimit = 50
)

// DefaultRegion is the preceding-vehicle region for KITTI image_00 frames.
var DefaultRegion = roi.Rect{X: 535, Y: 180, Width: 180, Height: 150}

// Config is constructed once per run and passed to every component.
type Config struct {
	Detector   DetectorType
	Descriptor DescriptorType
	Matcher    MatcherType
	Selector   SelectorType
	Metric     Metric

	Region        roi.Rect
	FocusOnRegion bool
	// KeypointLimit keeps at most this many keypoints per frame; 0 disables it.
	KeypointLimit int

	RatioThreshold float64
	DistanceCoef   float64
	MaxMatches     int
	BufferCapacity int

	Source SourceConfig
}

// SourceConfig describes where frames come from.
type SourceConfig struct {
	// Dir, Prefix and Ext form image paths as Dir/Prefix<index>Ext, with the
	// index zero-padded to IndexWidth digits.
	Dir        string
	Prefix     string
	Ext        string
	FirstIndex int
	LastIndex  int
	IndexWidth int
	// FPS paces the source; 0 processes frames as fast as possible.
	FPS float64
}

// Default returns a Config with the classic Shi-Tomasi/BRIEF/BF/NN setup.
func Default() Config {
	return Config{
		Detector:       ShiTomasi,
		Descriptor:     BRIEF,
		Matcher:        BruteForce,
		Selector:       NearestNeighbor,
		Metric:         Hamming,
		Region:         DefaultRegion,
		FocusOnRegion:  true,
		RatioThreshold: DefaultRatioThreshold,
		DistanceCoef:   DefaultDistanceCoef,
		MaxMatches:     DefaultMaxMatches,
		BufferCapacity: DefaultBufferCapacity,
		Source: SourceConfig{
			Dir:        "images/KITTI/2011_09_26/image_00/data",
			Prefix:     "",
			Ext:        ".png",
			FirstIndex: 0,
			LastIndex:  9,
			IndexWidth: 10,
		},
	}
}

// Load returns the defaults overridden by TAILGATE_* environment variables.
// A .env file in the working directory is read first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	cfg := Default()
	var err error

	if v := getEnv("TAILGATE_DETECTOR", ""); v != "" {
		if cfg.Detector, err = ParseDetector(v); err != nil {
			return Config{}, err
		}
	}
	if v := getEnv("TAILGATE_DESCRIPTOR", ""); v != "" {
		if cfg.Descriptor, err = ParseDescriptor(v); err != nil {
			return Config{}, err
		}
		cfg.Metric = MetricFor(cfg.Descriptor.Kind())
	}
	if v := getEnv("TAILGATE_MATCHER", ""); v != "" {
		if cfg.Matcher, err = ParseMatcher(v); err != nil {
			return Config{}, err
		}
	}
	if v := getEnv("TAILGATE_SELECTOR", ""); v != "" {
		if cfg.Selector, err = ParseSelector(v); err != nil {
			return Config{}, err
		}
	}
	if v := getEnv("TAILGATE_METRIC", ""); v != "" {
		if cfg.Metric, err = ParseMetric(v); err != nil {
			return Config{}, err
		}
	}
	if v := getEnv("TAILGATE_REGION", ""); v != "" {
		if cfg.Region, err = ParseRegion(v); err != nil {
			return Config{}, err
		}
	}

	env := &envReader{}
	cfg.FocusOnRegion = env.getBool("TAILGATE_FOCUS_ON_REGION", cfg.FocusOnRegion)
	cfg.KeypointLimit = env.getInt("TAILGATE_KEYPOINT_LIMIT", cfg.KeypointLimit)
	cfg.RatioThreshold = env.getFloat("TAILGATE_RATIO_THRESHOLD", cfg.RatioThreshold)
	cfg.DistanceCoef = env.getFloat("TAILGATE_DISTANCE_COEF", cfg.DistanceCoef)
	cfg.MaxMatches = env.getInt("TAILGATE_MAX_MATCHES", cfg.MaxMatches)
	cfg.BufferCapacity = env.getInt("TAILGATE_BUFFER_CAPACITY", cfg.BufferCapacity)

	cfg.Source.Dir = getEnv("TAILGATE_IMAGE_DIR", cfg.Source.Dir)
	cfg.Source.Prefix = getEnv("TAILGATE_IMAGE_PREFIX", cfg.Source.Prefix)
	cfg.Source.Ext = getEnv("TAILGATE_IMAGE_EXT", cfg.Source.Ext)
	cfg.Source.FirstIndex = env.getInt("TAILGATE_FIRST_INDEX", cfg.Source.FirstIndex)
	cfg.Source.LastIndex = env.getInt("TAILGATE_LAST_INDEX", cfg.Source.LastIndex)
	cfg.Source.IndexWidth = env.getInt("TAILGATE_INDEX_WIDTH", cfg.Source.IndexWidth)
	cfg.Source.FPS = env.getFloat("TAILGATE_FPS", cfg.Source.FPS)

	if env.err != nil {
		return Config{}, env.err
	}
	return cfg, nil
}

// Validate reports the first invalid or incompatible setting as a
// *feature.ConfigError.
func (c Config) Validate() error {
	if !c.Detector.Valid() {
		return feature.NewConfigError("detector", c.Detector.String(), "unknown detector")
	}
	if !c.Descriptor.Valid() {
		return feature.NewConfigError("descriptor", c.Descriptor.String(), "unknown descriptor")
	}
	if c.Matcher != BruteForce && c.Matcher != FLANN {
		return feature.NewConfigError("matcher", c.Matcher.String(), "unknown matcher")
	}
	if c.Selector != NearestNeighbor && c.Selector != KNearest {
		return feature.NewConfigError("selector", c.Selector.String(), "unknown selector")
	}
	if c.Metric != Hamming && c.Metric != L2 {
		return feature.NewConfigError("metric", c.Metric.String(), "unknown metric")
	}

	if !Compatible(c.Detector, c.Descriptor) {
		return feature.NewConfigError("descriptor", c.Descriptor.String(),
			"incompatible with "+c.Detector.String()+" keypoints")
	}
	if kind := c.Descriptor.Kind(); c.Metric.Kind() != kind {
		return feature.NewConfigError("metric", c.Metric.String(),
			c.Descriptor.String()+" produces "+kind.String()+" descriptors")
	}
	if c.Matcher == FLANN && c.Descriptor.Kind() != feature.KindFloat {
		return feature.NewConfigError("matcher", c.Matcher.String(), "FLANN requires float descriptors")
	}

	if c.Region.Width < 0 || c.Region.Height < 0 {
		return feature.NewConfigError("region", FormatRegion(c.Region), "width and height must not be negative")
	}
	if c.KeypointLimit < 0 {
		return feature.NewConfigError("keypoint limit", strconv.Itoa(c.KeypointLimit), "must not be negative")
	}
	if c.RatioThreshold <= 0 || c.RatioThreshold > 1 {
		return feature.NewConfigError("ratio threshold", formatFloat(c.RatioThreshold), "must be in (0, 1]")
	}
	if c.DistanceCoef < 1 {
		return feature.NewConfigError("distance coefficient", formatFloat(c.DistanceCoef), "must be at least 1")
	}
	if c.MaxMatches < 1 {
		return feature.NewConfigError("max matches", strconv.Itoa(c.MaxMatches), "must be at least 1")
	}
	if c.BufferCapacity < 2 {
		return feature.NewConfigError("buffer capacity", strconv.Itoa(c.BufferCapacity), "must hold at least 2 frames")
	}

	return nil
}

// ParseRegion parses "x,y,width,height".
func ParseRegion(s string) (roi.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return roi.Rect{}, feature.NewConfigError("region", s, "expected x,y,width,height")
	}

	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return roi.Rect{}, feature.NewConfigError("region", s, "expected integers")
		}
		vals[i] = v
	}

	return roi.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// FormatRegion is the inverse of ParseRegion.
func FormatRegion(r roi.Rect) string {
	return strconv.Itoa(r.X) + "," + strconv.Itoa(r.Y) + "," + strconv.Itoa(r.Width) + "," + strconv.Itoa(r.Height)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader reads typed environment values and keeps the first one that
// does not parse.
type envReader struct {
	err error
}

func (e *envReader) fail(key, value, reason string) {
	if e.err == nil {
		e.err = feature.NewConfigError(key, value, reason)
	}
}

func (e *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, "not an integer")
		return defaultValue
	}
	return intValue
}

func (e *envReader) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value, "not a number")
		return defaultValue
	}
	return floatValue
}

func (e *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value, "not a boolean")
		return defaultValue
	}
	return boolValue
}
