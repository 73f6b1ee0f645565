package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/tailgate/internal/capture"
	"github.com/ayusman/tailgate/internal/detector"
	"github.com/ayusman/tailgate/internal/feature"
	"github.com/ayusman/tailgate/internal/frame"
	"github.com/ayusman/tailgate/internal/roi"
)

// Summary aggregates the statistics of a run.
type Summary struct {
	Frames          int           `json:"frames"`
	Keypoints       int           `json:"keypoints"`
	RegionKeypoints int           `json:"region_keypoints"`
	Matches         int           `json:"matches"`
	Duration        time.Duration `json:"duration_ns"`
}

func (s *Summary) add(st frame.Stats) {
	s.Frames++
	s.Keypoints += st.Keypoints
	s.RegionKeypoints += st.RegionKeypoints
	s.Matches += st.Matches
}

// Process runs one image through the pipeline:
//
//  1. push a new frame into the buffer
//  2. detect keypoints
//  3. keep the keypoints inside the region when focusing on it
//  4. apply the keypoint limit
//  5. extract descriptors, keeping the keypoints the extractor returns
//  6. match the previous frame against this one once two frames are buffered
//
// The returned frame is the one held by the buffer.
func (a *App) Process(index int, img *image.Gray) (*frame.Frame, error) {
	f := &frame.Frame{
		Index:       index,
		Image:       img,
		Keypoints:   []feature.Keypoint{},
		Descriptors: feature.Descriptors{Kind: a.extractor.Capabilities().Kind},
		Matches:     []feature.Match{},
		Stats:       frame.Stats{Index: index},
	}
	a.buffer.Push(f)

	f.Stats.Motion, f.Stats.ChangePercent = a.motion.Detect(img)

	start := time.Now()
	kps, err := a.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("frame %d: detect: %w", index, err)
	}
	f.Stats.DetectTime = time.Since(start)
	f.Stats.Keypoints = len(kps)

	if a.config.FocusOnRegion {
		kps = roi.Filter(kps, a.config.Region)
	}
	f.Stats.RegionKeypoints = len(kps)
	kps = detector.Limit(kps, a.config.KeypointLimit)

	start = time.Now()
	kps, desc, err := a.extractor.Extract(img, kps)
	if err != nil {
		return nil, fmt.Errorf("frame %d: extract: %w", index, err)
	}
	f.Stats.ExtractTime = time.Since(start)
	// Extractors that detect for themselves search the whole image.
	if a.config.FocusOnRegion && a.extractor.Capabilities().ProducesOwnKeypoints {
		kps, desc = inRegion(kps, desc, a.config.Region)
	}
	f.Keypoints = kps
	f.Descriptors = desc
	f.Stats.Descriptors = desc.Len()
	f.Stats.SizeMean, f.Stats.SizeStdDev = sizeStats(kps)

	if a.buffer.Len() >= 2 {
		prev, err := a.buffer.Previous()
		if err != nil {
			return nil, err
		}

		start = time.Now()
		matches, err := a.matcher.Match(prev.Descriptors, f.Descriptors)
		if err != nil {
			return nil, fmt.Errorf("frame %d: match: %w", index, err)
		}
		f.Stats.MatchTime = time.Since(start)
		f.Matches = matches
		f.Stats.Matches = len(matches)
		f.Stats.MeanDistance = meanDistance(matches)
	}

	a.logger.Printf("%s frame %d: %d keypoints (%d in region), %d matches",
		a.Name(), index, f.Stats.Keypoints, f.Stats.RegionKeypoints, f.Stats.Matches)

	for _, o := range a.observers {
		o.OnFrame(f)
	}

	return f, nil
}

// Run processes every frame of src until it is exhausted. Cancellation is
// checked between frames. With a positive Source.FPS frames are paced to that
// rate.
func (a *App) Run(ctx context.Context, src capture.Source) (Summary, error) {
	var sum Summary

	if err := src.Open(); err != nil {
		return sum, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	var limiter *rate.Limiter
	if fps := a.config.Source.FPS; fps > 0 {
		limiter = rate.NewLimiter(rate.Limit(fps), 1)
	}

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return sum, err
			}
		}

		index, img, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read frame: %w", err)
		}

		f, err := a.Process(index, img)
		if err != nil {
			return sum, err
		}
		sum.add(f.Stats)
	}
	sum.Duration = time.Since(start)

	return sum, nil
}

func sizeStats(kps []feature.Keypoint) (mean, stddev float64) {
	switch len(kps) {
	case 0:
		return 0, 0
	case 1:
		return kps[0].Size, 0
	}

	sizes := make([]float64, len(kps))
	for i, kp := range kps {
		sizes[i] = kp.Size
	}
	return stat.MeanStdDev(sizes, nil)
}

func meanDistance(matches []feature.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	d := make([]float64, len(matches))
	for i, m := range matches {
		d[i] = m.Distance
	}
	return stat.Mean(d, nil)
}

// inRegion keeps the keypoints inside r together with their descriptor rows.
func inRegion(kps []feature.Keypoint, desc feature.Descriptors, r roi.Rect) ([]feature.Keypoint, feature.Descriptors) {
	keptKps := make([]feature.Keypoint, 0, len(kps))
	kept := feature.Descriptors{Kind: desc.Kind}
	for i, kp := range kps {
		if !r.Contains(kp.X, kp.Y) {
			continue
		}
		keptKps = append(keptKps, kp)
		if desc.Kind == feature.KindFloat {
			kept.Float = append(kept.Float, desc.Float[i])
		} else {
			kept.Binary = append(kept.Binary, desc.Binary[i])
		}
	}
	return keptKps, kept
}
