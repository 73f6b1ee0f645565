// Package runner executes recorded pipeline runs: one at a time, in the
// background for the HTTP API, or as a parallel comparison of variant
// combinations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/tailgate/internal/app"
	"github.com/ayusman/tailgate/internal/capture"
	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/store"
)

// SourceFunc opens a fresh frame source and names it for the run record.
type SourceFunc func(cfg config.Config) (capture.Source, string, error)

// Option customizes a Runner.
type Option func(*Runner)

// WithLive adds an observer per run, e.g. a live broadcast.
func WithLive(live func(runID string) app.Observer) Option {
	return func(r *Runner) {
		r.live = live
	}
}

// WithSnapshots stores keypoints and matches of every frame.
func WithSnapshots(enabled bool) Option {
	return func(r *Runner) {
		r.snapshots = enabled
	}
}

// WithLogger sets the logger handed to every pipeline.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// Runner creates a store record for every run and keeps it up to date.
type Runner struct {
	store     *store.Store
	source    SourceFunc
	live      func(runID string) app.Observer
	snapshots bool
	logger    *log.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a Runner recording into s and reading frames from source.
// Background runs stop when ctx is cancelled.
func New(ctx context.Context, s *store.Store, source SourceFunc, opts ...Option) *Runner {
	r := &Runner{
		store:  s,
		source: source,
		logger: log.Default(),
		ctx:    ctx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of one run.
type Result struct {
	Run     *store.Run
	Summary app.Summary
	// Err is the pipeline failure, if any. The run record is marked failed.
	Err error
}

// prepared is a run whose pipeline and source are built but not started.
type prepared struct {
	run *store.Run
	app *app.App
	src capture.Source
	rec *store.Recorder
}

// prepare builds the pipeline before the run is stored, so configuration
// errors leave no record behind.
func (r *Runner) prepare(cfg config.Config) (*prepared, error) {
	src, name, err := r.source(cfg)
	if err != nil {
		return nil, fmt.Errorf("frame source: %w", err)
	}

	run := store.NewRun(cfg, name)
	run.ID = uuid.New().String()

	rec := r.store.NewRecorder(run.ID, r.snapshots)
	opts := []app.Option{
		app.WithLogger(r.logger),
		app.WithObserver(rec),
	}
	if r.live != nil {
		opts = append(opts, app.WithObserver(r.live(run.ID)))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	if err := r.store.Runs().Create(run); err != nil {
		a.Close()
		return nil, fmt.Errorf("create run: %w", err)
	}

	return &prepared{run: run, app: a, src: src, rec: rec}, nil
}

// execute runs p to completion and records the totals.
func (r *Runner) execute(ctx context.Context, p *prepared) (Result, error) {
	defer p.app.Close()

	sum, runErr := p.app.Run(ctx, p.src)
	if err := p.rec.Err(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("record frames: %w", err))
	}
	totals := store.Totals{
		Frames:          sum.Frames,
		Keypoints:       sum.Keypoints,
		RegionKeypoints: sum.RegionKeypoints,
		Matches:         sum.Matches,
		Duration:        sum.Duration,
	}
	if err := r.store.Runs().Finish(p.run.ID, totals, runErr); err != nil {
		return Result{}, fmt.Errorf("finish run %s: %w", p.run.ID, err)
	}

	run, err := r.store.Runs().GetByID(p.run.ID)
	if err != nil {
		return Result{}, err
	}

	if runErr != nil {
		log.Printf("Run %s (%s) failed: %v", run.ID, p.app.Name(), runErr)
	} else {
		log.Printf("Run %s (%s): %d frames, %d matches in %v", run.ID, p.app.Name(), sum.Frames, sum.Matches, sum.Duration)
	}

	return Result{Run: run, Summary: sum, Err: runErr}, nil
}

// Run executes cfg synchronously. The returned error covers setup and
// storage failures; pipeline failures and failed frame writes are reported
// in Result.Err.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Result, error) {
	p, err := r.prepare(cfg)
	if err != nil {
		return Result{}, err
	}
	return r.execute(ctx, p)
}

// Launch starts cfg in the background and returns its record once the
// pipeline is built.
func (r *Runner) Launch(cfg config.Config) (*store.Run, error) {
	p, err := r.prepare(cfg)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.execute(r.ctx, p); err != nil {
			log.Printf("Run %s: %v", p.run.ID, err)
		}
	}()

	return p.run, nil
}

// Wait blocks until every launched run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Compare runs every combination over its own source, at most parallel at a
// time (parallel <= 0 means unlimited). Results are in combination order. A
// storage failure cancels the remaining runs.
func (r *Runner) Compare(ctx context.Context, base config.Config, combos []config.Combination, parallel int) ([]Result, error) {
	results := make([]Result, len(combos))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, c := range combos {
		i := i
		cfg := c.With(base)
		g.Go(func() error {
			p, err := r.prepare(cfg)
			if err != nil {
				results[i] = Result{Err: err}
				return nil
			}

			res, err := r.execute(ctx, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
