package app

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"testing"

	"github.com/ayusman/tailgate/internal/capture"
	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/descriptor"
	"github.com/ayusman/tailgate/internal/detector"
	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/frame"
	"github.com/ayusman/tailgate/internal/roi"
)

func blank() *image.Gray {
	return image.NewGray(image.Rect(0, 0, 100, 100))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Region = roi.Rect{X: 0, Y: 0, Width: 50, Height: 50}
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config, opts ...Option) (*App, *detector.MockDetector) {
	t.Helper()

	det := detector.NewMockDetector()
	det.SetKeypoints(detector.GridKeypoints(10, 10, 20, 5, 5))
	ext := descriptor.NewMockExtractor(descriptor.Capabilities{Kind: feature.KindBinary})

	opts = append([]Option{
		WithDetector(det),
		WithExtractor(ext),
		WithLogger(log.New(io.Discard, "", 0)),
	}, opts...)

	a, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, det
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"metric incompatible with descriptor", func(c *config.Config) { c.Metric = config.L2 }},
		{"negative region", func(c *config.Config) { c.Region.Width = -1 }},
		{"buffer too small", func(c *config.Config) { c.BufferCapacity = 1 }},
		{"flann with binary descriptors", func(c *config.Config) { c.Matcher = config.FLANN }},
		{"akaze descriptor on fast keypoints", func(c *config.Config) {
			c.Detector = config.FAST
			c.Descriptor = config.AKAZEDescriptor
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			_, err := New(cfg)
			if !errors.Is(err, feature.ErrConfiguration) {
				t.Errorf("New() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestNew_ExtractorKindMismatch(t *testing.T) {
	ext := descriptor.NewMockExtractor(descriptor.Capabilities{Kind: feature.KindFloat})
	det := detector.NewMockDetector()

	_, err := New(config.Default(), WithDetector(det), WithExtractor(ext))
	if !errors.Is(err, feature.ErrConfiguration) {
		t.Fatalf("New() error = %v, want ErrConfiguration", err)
	}
	if !det.Closed() {
		t.Error("components built before the error should be closed")
	}
}

func TestNew_DefaultComponents(t *testing.T) {
	a, err := New(config.Default(), WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if got, want := a.Name(), "SHITOMASI/BRIEF/BF/NN"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestProcess_FirstFrameHasNoMatches(t *testing.T) {
	a, det := newTestApp(t, testConfig())

	f, err := a.Process(0, blank())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if det.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", det.Calls())
	}
	if f.Stats.Keypoints != 25 {
		t.Errorf("Keypoints = %d, want 25", f.Stats.Keypoints)
	}
	// strict interior of (0,0)-(50,50) holds x,y in {10,30}
	if f.Stats.RegionKeypoints != 4 || len(f.Keypoints) != 4 {
		t.Errorf("region keypoints = %d/%d, want 4", f.Stats.RegionKeypoints, len(f.Keypoints))
	}
	if f.Descriptors.Len() != len(f.Keypoints) {
		t.Errorf("descriptors = %d, want %d", f.Descriptors.Len(), len(f.Keypoints))
	}
	if f.Matches == nil || len(f.Matches) != 0 {
		t.Errorf("Matches = %v, want empty", f.Matches)
	}
}

func TestProcess_MatchesPreviousFrame(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	if _, err := a.Process(0, blank()); err != nil {
		t.Fatalf("Process(0) error = %v", err)
	}
	f, err := a.Process(1, blank())
	if err != nil {
		t.Fatalf("Process(1) error = %v", err)
	}

	if len(f.Matches) != 4 {
		t.Fatalf("matches = %d, want 4", len(f.Matches))
	}
	for _, m := range f.Matches {
		if m.Distance != 0 || m.QueryIdx != m.TrainIdx {
			t.Errorf("unexpected match %+v", m)
		}
	}
	if f.Stats.Matches != 4 || f.Stats.MeanDistance != 0 {
		t.Errorf("stats = %+v", f.Stats)
	}

	latest, err := a.Buffer().Latest()
	if err != nil || latest != f {
		t.Errorf("Latest() = %v, %v; want the processed frame", latest, err)
	}
}

func TestProcess_FocusOnRegionDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.FocusOnRegion = false
	a, _ := newTestApp(t, cfg)

	f, err := a.Process(0, blank())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.Keypoints) != 25 {
		t.Errorf("keypoints = %d, want 25", len(f.Keypoints))
	}
}

func TestProcess_ZeroWidthRegion(t *testing.T) {
	cfg := testConfig()
	cfg.Region = roi.Rect{X: 10, Y: 0, Width: 0, Height: 100}
	a, _ := newTestApp(t, cfg)

	for i := 0; i < 3; i++ {
		f, err := a.Process(i, blank())
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(f.Keypoints) != 0 || len(f.Matches) != 0 {
			t.Errorf("frame %d: %d keypoints, %d matches; want none", i, len(f.Keypoints), len(f.Matches))
		}
	}
}

func TestProcess_OwnKeypointsStayInRegion(t *testing.T) {
	cfg := testConfig()
	cfg.Region = roi.Rect{X: 10, Y: 0, Width: 0, Height: 100}

	ext := descriptor.NewMockExtractor(descriptor.Capabilities{Kind: feature.KindBinary, ProducesOwnKeypoints: true})
	ext.SetKeypoints([]feature.Keypoint{{X: 5, Y: 5}, {X: 30, Y: 30}})
	a, _ := newTestApp(t, cfg, WithExtractor(ext))

	f, err := a.Process(0, blank())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.Keypoints) != 0 || f.Descriptors.Len() != 0 {
		t.Errorf("got %d keypoints and %d descriptors outside an empty region", len(f.Keypoints), f.Descriptors.Len())
	}

	cfg.Region = roi.Rect{X: 20, Y: 20, Width: 30, Height: 30}
	b, _ := newTestApp(t, cfg, WithDetector(detector.NewMockDetector()), WithExtractor(ext))

	f, err = b.Process(0, blank())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.Keypoints) != 1 || f.Keypoints[0].X != 30 {
		t.Fatalf("keypoints = %+v, want only (30,30)", f.Keypoints)
	}
	if f.Descriptors.Len() != 1 || f.Descriptors.Binary[0][0] != 30 {
		t.Errorf("descriptors = %v, want the row of (30,30)", f.Descriptors.Binary)
	}
}

func TestProcess_KeypointLimit(t *testing.T) {
	cfg := testConfig()
	cfg.FocusOnRegion = false
	cfg.KeypointLimit = 3
	a, _ := newTestApp(t, cfg)

	f, err := a.Process(0, blank())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.Keypoints) != 3 {
		t.Fatalf("keypoints = %d, want 3", len(f.Keypoints))
	}
	// the grid's responses decrease in raster order
	if f.Keypoints[0].X != 10 || f.Keypoints[2].X != 50 {
		t.Errorf("kept keypoints = %+v", f.Keypoints)
	}
}

func TestProcess_DetectorError(t *testing.T) {
	a, det := newTestApp(t, testConfig())
	boom := errors.New("boom")
	det.SetError(boom)

	if _, err := a.Process(0, blank()); !errors.Is(err, boom) {
		t.Errorf("Process() error = %v, want wrapped boom", err)
	}
}

func TestProcess_Observer(t *testing.T) {
	var seen []frame.Stats
	a, _ := newTestApp(t, testConfig(), WithObserver(ObserverFunc(func(f *frame.Frame) {
		seen = append(seen, f.Stats)
	})))

	for i := 0; i < 3; i++ {
		a.Process(i+10, blank())
	}

	if len(seen) != 3 {
		t.Fatalf("observer calls = %d, want 3", len(seen))
	}
	if seen[0].Index != 10 || seen[2].Index != 12 {
		t.Errorf("indices = %d..%d, want 10..12", seen[0].Index, seen[2].Index)
	}
	if seen[0].Matches != 0 || seen[1].Matches != 4 {
		t.Errorf("matches = %d, %d; want 0, 4", seen[0].Matches, seen[1].Matches)
	}
}

func TestRun_KeepsMostRecentFrames(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	frames := make([]*image.Gray, 5)
	for i := range frames {
		frames[i] = blank()
	}

	sum, err := a.Run(context.Background(), capture.NewMockSource(frames, false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Frames != 5 {
		t.Errorf("Frames = %d, want 5", sum.Frames)
	}
	if sum.Matches != 16 {
		t.Errorf("Matches = %d, want 16", sum.Matches)
	}

	held := a.Buffer().Frames()
	if len(held) != 2 || held[0].Index != 3 || held[1].Index != 4 {
		t.Errorf("buffer holds %d frames, want indices 3 and 4", len(held))
	}
}

func TestRun_Cancelled(t *testing.T) {
	a, det := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, capture.NewMockSource([]*image.Gray{blank()}, true))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if det.Calls() != 0 {
		t.Errorf("detector calls = %d, want 0", det.Calls())
	}
}

func TestRun_Paced(t *testing.T) {
	cfg := testConfig()
	cfg.Source.FPS = 1000
	a, _ := newTestApp(t, cfg)

	sum, err := a.Run(context.Background(), capture.NewMockSource([]*image.Gray{blank(), blank(), blank()}, false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Frames != 3 {
		t.Errorf("Frames = %d, want 3", sum.Frames)
	}
}

func TestRun_SourceNotOpenable(t *testing.T) {
	a, _ := newTestApp(t, testConfig())

	src := capture.NewDirSource(capture.SourceConfig{FirstIndex: 2, LastIndex: 1})
	if _, err := a.Run(context.Background(), src); err == nil {
		t.Error("expected error for a source that cannot open")
	}
}

func TestClose(t *testing.T) {
	det := detector.NewMockDetector()
	a, err := New(config.Default(), WithDetector(det))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !det.Closed() {
		t.Error("detector should be closed")
	}
}

func TestSizeStats(t *testing.T) {
	mean, std := sizeStats(nil)
	if mean != 0 || std != 0 {
		t.Errorf("empty = (%f, %f)", mean, std)
	}

	mean, std = sizeStats([]feature.Keypoint{{Size: 4}})
	if mean != 4 || std != 0 {
		t.Errorf("single = (%f, %f)", mean, std)
	}

	mean, std = sizeStats([]feature.Keypoint{{Size: 2}, {Size: 4}, {Size: 6}})
	if mean != 4 || std != 2 {
		t.Errorf("three = (%f, %f), want (4, 2)", mean, std)
	}
}
