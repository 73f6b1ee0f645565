package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/descriptor"
	"github.com/ayusman/tailgate/internal/detector"
	"github.com/ayusman/tailgate/internal/matcher"
	"github.com/ayusman/tailgate/internal/runner"
	"github.com/ayusman/tailgate/internal/server"
	"github.com/ayusman/tailgate/internal/store"
)

// setup parses args and opens the store. The caller closes the store.
func setup(name string, args []string, extra func(fs *flag.FlagSet)) (*options, config.Config, *store.Store, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	opts, err := newOptions(fs)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, config.Config{}, nil, err
	}

	cfg, err := opts.config()
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	dbPath, err := opts.dbPath()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return opts, cfg, st, nil
}

func runCommand(args []string) error {
	opts, cfg, st, err := setup("run", args, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(ctx, st, opts.source(),
		runner.WithLogger(opts.logger()),
		runner.WithSnapshots(opts.snapshots),
	)

	res, err := r.Run(ctx, cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run\t%s\n", res.Run.ID)
	fmt.Fprintf(w, "Variants\t%s/%s/%s/%s\n", res.Run.Detector, res.Run.Descriptor, res.Run.Matcher, res.Run.Selector)
	fmt.Fprintf(w, "Frames\t%d\n", res.Summary.Frames)
	fmt.Fprintf(w, "Keypoints\t%d\n", res.Summary.Keypoints)
	fmt.Fprintf(w, "In region\t%d\n", res.Summary.RegionKeypoints)
	fmt.Fprintf(w, "Matches\t%d\n", res.Summary.Matches)
	fmt.Fprintf(w, "Duration\t%v\n", res.Summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Status\t%s\n", res.Run.Status)
	w.Flush()

	return res.Err
}

func compareCommand(args []string) error {
	var parallel int
	opts, base, st, err := setup("compare", args, func(fs *flag.FlagSet) {
		fs.IntVar(&parallel, "parallel", runtime.NumCPU(), "maximum concurrent runs")
	})
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(ctx, st, opts.source(),
		runner.WithLogger(opts.logger()),
		runner.WithSnapshots(opts.snapshots),
	)

	combos := config.Combinations(detector.Available(), descriptor.Available())
	fmt.Printf("Comparing %d combinations (%d at a time)\n", len(combos), parallel)

	results, err := r.Compare(ctx, base, combos, parallel)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "COMBINATION\tFRAMES\tKEYPOINTS\tIN REGION\tMATCHES\tMATCHES/PAIR\tTIME\tSTATUS\t")
	failed := 0
	for i, c := range combos {
		res := results[i]
		status := "done"
		if res.Err != nil {
			failed++
			status = "failed: " + res.Err.Error()
		}

		perPair := 0.0
		if pairs := res.Summary.Frames - 1; pairs > 0 {
			perPair = float64(res.Summary.Matches) / float64(pairs)
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\t%v\t%s\t\n",
			c, res.Summary.Frames, res.Summary.Keypoints, res.Summary.RegionKeypoints,
			res.Summary.Matches, perPair, res.Summary.Duration.Round(time.Millisecond), status)
	}
	w.Flush()

	if failed > 0 {
		fmt.Printf("%d of %d combinations failed\n", failed, len(combos))
	}
	return nil
}

func serveCommand(args []string) error {
	var addr, staticDir string
	opts, base, st, err := setup("serve", args, func(fs *flag.FlagSet) {
		fs.StringVar(&addr, "addr", ":8080", "listen address")
		fs.StringVar(&staticDir, "static", "", "static file directory (default: search for web/)")
	})
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewLiveHub()
	r := runner.New(ctx, st, opts.source(),
		runner.WithLogger(opts.logger()),
		runner.WithSnapshots(opts.snapshots),
		runner.WithLive(hub.Observer),
	)

	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := &http.Server{
		Addr: addr,
		Handler: server.New(server.Config{
			StaticDir: staticDir,
			Store:     st,
			Base:      base,
			Launcher:  r,
			Hub:       hub,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Starting server on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	r.Wait()
	return nil
}

func variantsCommand() {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	detectors := detector.Available()
	fmt.Fprintln(w, "DETECTOR\tFAMILY\tAVAILABLE")
	for _, t := range config.DetectorTypes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t, t.Family(), yesNo(slices.Contains(detectors, t)))
	}
	fmt.Fprintln(w)

	descriptors := descriptor.Available()
	fmt.Fprintln(w, "DESCRIPTOR\tKIND\tAVAILABLE")
	for _, t := range config.DescriptorTypes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t, t.Kind(), yesNo(slices.Contains(descriptors, t)))
	}
	fmt.Fprintln(w)

	matchers := matcher.Available()
	names := make([]string, len(matchers))
	for i, m := range matchers {
		names[i] = m.String()
	}
	fmt.Fprintf(w, "MATCHERS\t%s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "COMBINATIONS\t%d\n", len(config.Combinations(detectors, descriptors)))
	w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.tailgate/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".tailgate", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
