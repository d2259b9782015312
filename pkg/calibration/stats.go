package calibration

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"framecal/internal/models"
	"framecal/pkg/reduction"
)

// Report summarizes one frame: the sample range from the two-level
// reduction plus mean and standard deviation.
type Report struct {
	Min    uint16
	Max    uint16
	Mean   float64
	StdDev float64
}

// Describe computes a summary report for the frame.
func Describe(frame *models.Frame, opts reduction.Options) Report {
	s := reduction.MinMax(frame.Data, frame.Width, frame.Height, opts)

	samples := toFloat(frame.Data)
	mean := stat.Mean(samples, nil)
	variance := stat.Variance(samples, nil)

	return Report{
		Min:    s.Min,
		Max:    s.Max,
		Mean:   mean,
		StdDev: math.Sqrt(variance),
	}
}

// Correlation measures how strongly a corrected frame still follows the
// raw frame it was derived from. A correction that preserves scene
// structure keeps this high; a value near zero after a calibration change
// usually means a bad map was loaded.
func Correlation(raw, corrected []uint16) float64 {
	if len(raw) != len(corrected) || len(raw) == 0 {
		return 0
	}
	return stat.Correlation(toFloat(raw), toFloat(corrected), nil)
}

func toFloat(samples []uint16) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v)
	}
	return out
}
