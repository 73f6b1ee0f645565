package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/tailgate/internal/capture"
	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/roi"
	"github.com/ayusman/tailgate/internal/runner"
)

// options are the flags shared by every command that runs pipelines.
type options struct {
	fs  *flag.FlagSet
	cfg config.Config

	detector, descriptor, matcher, selector, metric, region string

	db        string
	synthetic bool
	video     string
	quiet     bool
	snapshots bool
}

// newOptions registers the pipeline flags on fs. Defaults come from the
// environment (see config.Load).
func newOptions(fs *flag.FlagSet) (*options, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	o := &options{fs: fs, cfg: cfg}

	fs.StringVar(&o.detector, "detector", cfg.Detector.String(), "keypoint detector")
	fs.StringVar(&o.descriptor, "descriptor", cfg.Descriptor.String(), "descriptor extractor")
	fs.StringVar(&o.matcher, "matcher", cfg.Matcher.String(), "matcher type (BF, FLANN)")
	fs.StringVar(&o.selector, "selector", cfg.Selector.String(), "match selector (NN, KNN)")
	fs.StringVar(&o.metric, "metric", "", "distance metric (HAMMING, L2); defaults to the descriptor's")
	fs.StringVar(&o.region, "region", config.FormatRegion(cfg.Region), "region of interest as x,y,width,height")

	fs.BoolVar(&o.cfg.FocusOnRegion, "focus", cfg.FocusOnRegion, "keep only keypoints inside the region")
	fs.IntVar(&o.cfg.KeypointLimit, "limit", cfg.KeypointLimit, "keep at most this many keypoints per frame (0 = all)")
	fs.Float64Var(&o.cfg.RatioThreshold, "ratio", cfg.RatioThreshold, "KNN ratio test threshold")
	fs.Float64Var(&o.cfg.DistanceCoef, "coef", cfg.DistanceCoef, "maximum worst/best match distance ratio")
	fs.IntVar(&o.cfg.MaxMatches, "max-matches", cfg.MaxMatches, "maximum matches per frame pair")
	fs.IntVar(&o.cfg.BufferCapacity, "capacity", cfg.BufferCapacity, "frame buffer capacity")

	fs.StringVar(&o.cfg.Source.Dir, "dir", cfg.Source.Dir, "image directory")
	fs.StringVar(&o.cfg.Source.Prefix, "prefix", cfg.Source.Prefix, "image file name prefix")
	fs.StringVar(&o.cfg.Source.Ext, "ext", cfg.Source.Ext, "image file extension")
	fs.IntVar(&o.cfg.Source.FirstIndex, "first", cfg.Source.FirstIndex, "first image index")
	fs.IntVar(&o.cfg.Source.LastIndex, "last", cfg.Source.LastIndex, "last image index")
	fs.IntVar(&o.cfg.Source.IndexWidth, "width", cfg.Source.IndexWidth, "zero-padded index width")
	fs.Float64Var(&o.cfg.Source.FPS, "fps", cfg.Source.FPS, "frames per second (0 = unpaced)")

	fs.StringVar(&o.db, "db", os.Getenv("TAILGATE_DB"), "database path (default ~/.tailgate/tailgate.db)")
	fs.BoolVar(&o.synthetic, "synthetic", false, "use a generated sequence instead of image files")
	fs.StringVar(&o.video, "video", "", "read frames from a video file or device (requires -tags gocv)")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress per-frame log lines")
	fs.BoolVar(&o.snapshots, "snapshots", false, "store keypoints and matches of every frame")

	return o, nil
}

// config resolves the parsed flags into a run configuration.
func (o *options) config() (config.Config, error) {
	cfg := o.cfg
	var err error

	if cfg.Detector, err = config.ParseDetector(o.detector); err != nil {
		return cfg, err
	}
	if cfg.Descriptor, err = config.ParseDescriptor(o.descriptor); err != nil {
		return cfg, err
	}
	if cfg.Matcher, err = config.ParseMatcher(o.matcher); err != nil {
		return cfg, err
	}
	if cfg.Selector, err = config.ParseSelector(o.selector); err != nil {
		return cfg, err
	}

	cfg.Metric = config.MetricFor(cfg.Descriptor.Kind())
	if o.metric != "" {
		if cfg.Metric, err = config.ParseMetric(o.metric); err != nil {
			return cfg, err
		}
	}

	if cfg.Region, err = config.ParseRegion(o.region); err != nil {
		return cfg, err
	}
	// The KITTI region lies outside the generated frames
	if o.synthetic && !o.isSet("region") {
		sc := o.syntheticConfig(cfg)
		cfg.Region = roi.Full(image.Rect(0, 0, sc.Width, sc.Height))
	}

	return cfg, nil
}

func (o *options) isSet(name string) bool {
	set := false
	o.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// syntheticConfig sizes the generated sequence like the configured index
// range.
func (o *options) syntheticConfig(cfg config.Config) capture.SyntheticConfig {
	sc := capture.DefaultSyntheticConfig()
	if n := cfg.Source.LastIndex - cfg.Source.FirstIndex + 1; n > 0 {
		sc.Frames = n
	}
	return sc
}

// source returns the frame source factory selected by the flags.
func (o *options) source() runner.SourceFunc {
	return func(cfg config.Config) (capture.Source, string, error) {
		switch {
		case o.synthetic:
			return capture.NewSyntheticSource(o.syntheticConfig(cfg)), "synthetic", nil
		case o.video != "":
			src, err := capture.NewVideoSource(o.video)
			if err != nil {
				return nil, "", err
			}
			return src, o.video, nil
		default:
			return capture.NewDirSource(cfg.Source), cfg.Source.Dir, nil
		}
	}
}

// logger returns the per-frame logger.
func (o *options) logger() *log.Logger {
	if o.quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.Default()
}

// dbPath returns the database path, creating the default data directory.
func (o *options) dbPath() (string, error) {
	if o.db != "" {
		return o.db, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dbDir := filepath.Join(homeDir, ".tailgate")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return filepath.Join(dbDir, "tailgate.db"), nil
}
