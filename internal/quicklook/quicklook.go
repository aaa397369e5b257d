// Package quicklook computes summary statistics over decoded thermal frames
// for the acquisition log. A glance at the numbers tells an operator whether
// the scene is alive or the camera is staring at its own shutter.
package quicklook

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lupm-obs/tau2grab/internal/frame"
)

// Stats summarises one frame's 14-bit counts.
type Stats struct {
	Min    int16
	Max    int16
	Mean   float64
	StdDev float64
	Median float64
	P05    float64
	P95    float64
}

// Summarize computes statistics for one frame. Nil for a nil (damaged)
// frame.
func Summarize(im *frame.Image) *Stats {
	if im == nil || len(im.Pixels) == 0 {
		return nil
	}

	samples := make([]float64, len(im.Pixels))
	min, max := im.Pixels[0], im.Pixels[0]
	for i, v := range im.Pixels {
		samples[i] = float64(v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	sort.Float64s(samples)

	mean, std := stat.MeanStdDev(samples, nil)
	return &Stats{
		Min:    min,
		Max:    max,
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, samples, nil),
		P05:    stat.Quantile(0.05, stat.Empirical, samples, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, samples, nil),
	}
}

func (s *Stats) String() string {
	return fmt.Sprintf("counts %d..%d, mean %.1f ± %.1f, median %.0f, p05/p95 %.0f/%.0f",
		s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.P05, s.P95)
}

// Flat reports whether the frame looks featureless: the central 90% of
// samples span fewer than spread counts. Useful for catching a closed
// shutter or a disconnected sensor during unattended runs.
func (s *Stats) Flat(spread float64) bool {
	return s.P95-s.P05 < spread
}
