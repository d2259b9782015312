package calibration

import (
	"math"
	"testing"

	"framecal/internal/models"
	"framecal/pkg/reduction"
)

// TestNormalizeGainMap verifies multipliers are the flat-field minimum
// over each response, so the brightest pixels are pulled down hardest.
func TestNormalizeGainMap(t *testing.T) {
	flat := []uint16{100, 200, 400, 100}

	gain, err := NormalizeGainMap(flat, 2, 2, reduction.DefaultOptions())
	if err != nil {
		t.Fatalf("NormalizeGainMap failed: %v", err)
	}

	want := []float64{1.0, 0.5, 0.25, 1.0}
	for i, w := range want {
		if math.Abs(gain.Data[i]-w) > 1e-12 {
			t.Errorf("gain[%d]: got %f, want %f", i, gain.Data[i], w)
		}
	}
}

// TestNormalizeGainMapDeadPixels verifies zero responses neither become
// the reference nor receive a scaling multiplier.
func TestNormalizeGainMapDeadPixels(t *testing.T) {
	flat := []uint16{0, 200, 400, 100}

	gain, err := NormalizeGainMap(flat, 2, 2, reduction.DefaultOptions())
	if err != nil {
		t.Fatalf("NormalizeGainMap failed: %v", err)
	}

	// reference is the smallest live response (100)
	want := []float64{1.0, 0.5, 0.25, 1.0}
	for i, w := range want {
		if math.Abs(gain.Data[i]-w) > 1e-12 {
			t.Errorf("gain[%d]: got %f, want %f", i, gain.Data[i], w)
		}
	}
}

// TestNormalizeGainMapBadLength verifies the buffer length is validated.
func TestNormalizeGainMapBadLength(t *testing.T) {
	if _, err := NormalizeGainMap([]uint16{1, 2, 3}, 2, 2, reduction.DefaultOptions()); err == nil {
		t.Error("expected an error for a 3-sample buffer on a 2x2 map")
	}
}

// TestDescribe verifies the summary report against hand-computed values.
func TestDescribe(t *testing.T) {
	frame, err := models.NewFrame([]uint16{10, 20, 30, 40}, 2, 2, 14)
	if err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	report := Describe(frame, reduction.DefaultOptions())

	if report.Min != 10 || report.Max != 40 {
		t.Errorf("range: got min=%d max=%d, want min=10 max=40", report.Min, report.Max)
	}
	if math.Abs(report.Mean-25) > 1e-9 {
		t.Errorf("mean: got %f, want 25", report.Mean)
	}
	if report.StdDev <= 0 {
		t.Errorf("stddev: got %f, want positive", report.StdDev)
	}
}

// TestCorrelation verifies a linear rescale of a frame correlates
// perfectly with the original and a length mismatch yields zero.
func TestCorrelation(t *testing.T) {
	raw := []uint16{10, 20, 30, 40}
	scaled := []uint16{20, 40, 60, 80}

	if c := Correlation(raw, scaled); math.Abs(c-1.0) > 1e-9 {
		t.Errorf("linear rescale: got correlation %f, want 1.0", c)
	}
	if c := Correlation(raw, scaled[:2]); c != 0 {
		t.Errorf("length mismatch: got %f, want 0", c)
	}
}
