// Package app drives the keypoint tracking pipeline: frames flow through
// detection, region filtering, description and matching against the previous
// frame.
package app

import (
	"errors"
	"fmt"
	"log"

	"github.com/ayusman/tailgate/internal/capture"
	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/descriptor"
	"github.com/ayusman/tailgate/internal/detector"
	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/frame"
	"github.com/ayusman/tailgate/internal/matcher"
)

// Observer is notified after every processed frame. Observers must not
// modify the frame.
type Observer interface {
	OnFrame(f *frame.Frame)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(f *frame.Frame)

// OnFrame calls fn(f).
func (fn ObserverFunc) OnFrame(f *frame.Frame) { fn(f) }

// Option customizes an App.
type Option func(*App)

// WithObserver registers an observer for processed frames.
func WithObserver(o Observer) Option {
	return func(a *App) {
		a.observers = append(a.observers, o)
	}
}

// WithDetector replaces the configured detector. The App takes ownership.
func WithDetector(d detector.Detector) Option {
	return func(a *App) {
		a.detector = d
	}
}

// WithExtractor replaces the configured extractor. The App takes ownership.
func WithExtractor(e descriptor.Extractor) Option {
	return func(a *App) {
		a.extractor = e
	}
}

// WithLogger sets the logger used for per-frame progress lines.
func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// App runs one detector/descriptor/matcher combination over a frame
// sequence. It is not safe for concurrent use; run one App per goroutine.
type App struct {
	config    config.Config
	detector  detector.Detector
	extractor descriptor.Extractor
	matcher   *matcher.Matcher
	buffer    *frame.Buffer
	motion    *capture.MotionDetector
	observers []Observer
	logger    *log.Logger
}

// New validates cfg and builds every pipeline component. Configuration
// errors are returned here, before any frame is processed.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		buffer: frame.NewBuffer(cfg.BufferCapacity),
		motion: capture.NewMotionDetector(capture.DefaultMotionThreshold),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) build() error {
	var err error

	if a.detector == nil {
		if a.detector, err = detector.New(a.config.Detector); err != nil {
			return err
		}
	}
	if a.extractor == nil {
		if a.extractor, err = descriptor.New(a.config.Descriptor); err != nil {
			return err
		}
	}

	kind := a.extractor.Capabilities().Kind
	if kind != a.config.Metric.Kind() {
		return feature.NewConfigError("metric", a.config.Metric.String(), "extractor produces "+kind.String()+" descriptors")
	}

	if a.matcher, err = matcher.New(matcher.OptionsFrom(a.config), kind); err != nil {
		return err
	}

	return nil
}

// Config returns the run configuration.
func (a *App) Config() config.Config {
	return a.config
}

// Buffer returns the frame buffer.
func (a *App) Buffer() *frame.Buffer {
	return a.buffer
}

// Name identifies the component combination, e.g. "SHITOMASI/BRIEF/BF/NN".
func (a *App) Name() string {
	return fmt.Sprintf("%s/%s/%s/%s", a.config.Detector, a.config.Descriptor, a.config.Matcher, a.config.Selector)
}

// Close releases the detector, extractor and matcher.
func (a *App) Close() error {
	var errs []error
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
		a.detector = nil
	}
	if a.extractor != nil {
		errs = append(errs, a.extractor.Close())
		a.extractor = nil
	}
	if a.matcher != nil {
		errs = append(errs, a.matcher.Close())
		a.matcher = nil
	}
	return errors.Join(errs...)
}
