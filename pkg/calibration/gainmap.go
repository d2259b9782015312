// Package calibration derives inputs for the correction pipeline from
// raw calibration captures and summarizes frames for diagnostics.
package calibration

import (
	"fmt"

	"framecal/internal/models"
	"framecal/pkg/reduction"
)

// NormalizeGainMap converts a raw flat-field capture into a normalized
// gain map. The smallest flat-field response, computed with the min-only
// reduction, is the reference: every multiplier is min/flat <= 1, so
// scaling a well-exposed sample can never push it past the pixel depth.
// Pixels with zero flat-field response get gain 1 and pass through
// unscaled; those are dead pixels the defect pass is expected to handle.
func NormalizeGainMap(flat []uint16, width, height int, opts reduction.Options) (*models.GainMap, error) {
	if len(flat) != width*height {
		return nil, fmt.Errorf("flat-field buffer has %d samples, expected %d", len(flat), width*height)
	}

	ref := reduction.Min(flat, width, height, opts)
	if ref == 0 {
		// Dead pixels respond with zero and cannot serve as the
		// reference; fall back to the smallest live response.
		ref = minNonZero(flat)
	}

	gains := make([]float64, len(flat))
	for i, v := range flat {
		if v == 0 || ref == 0 {
			gains[i] = 1.0
			continue
		}
		gains[i] = float64(ref) / float64(v)
	}
	return models.NewGainMap(gains, width, height)
}

func minNonZero(samples []uint16) uint16 {
	var ref uint16
	for _, v := range samples {
		if v == 0 {
			continue
		}
		if ref == 0 || v < ref {
			ref = v
		}
	}
	return ref
}
