package correction

import (
	"errors"
	"math/rand"
	"runtime"
	"testing"

	"framecal/internal/models"
)

// newConfiguredPipeline builds a pipeline with trivially-neutral maps so
// individual tests can swap in the map they care about.
func newConfiguredPipeline(t *testing.T, width, height int) *Pipeline {
	t.Helper()
	pl, err := NewPipeline(width, height, 2)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	n := width * height
	if err := pl.SetDarkMap(newTestDarkMap(t, make([]uint16, n), width, height), 0); err != nil {
		t.Fatalf("failed to set dark map: %v", err)
	}
	if err := pl.SetGainMap(newTestGainMap(t, constantGain(1.0, n), width, height)); err != nil {
		t.Fatalf("failed to set gain map: %v", err)
	}
	if err := pl.SetDefectMap(newTestDefectMap(t, make([]uint8, n), width, height), StrategyLine); err != nil {
		t.Fatalf("failed to set defect map: %v", err)
	}
	return pl
}

// TestPipelineBasicCorrection runs the documented scenario: constant
// frame 100 with constant dark 10 comes out as constant 90.
func TestPipelineBasicCorrection(t *testing.T) {
	pl := newConfiguredPipeline(t, 4, 4)
	if err := pl.SetDarkMap(newTestDarkMap(t, constant(10, 16), 4, 4), 0); err != nil {
		t.Fatalf("failed to set dark map: %v", err)
	}

	frame := newTestFrame(t, constant(100, 16), 4, 4)
	if err := pl.Process(frame); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for i, v := range frame.Data {
		if v != 90 {
			t.Errorf("pixel %d: got %d, want 90", i, v)
		}
	}
}

// TestPipelinePassOrdering verifies the defect pass sees gain-corrected
// values: a defective pixel is re-estimated from neighbors that were
// already dark-subtracted and rescaled.
func TestPipelinePassOrdering(t *testing.T) {
	width, height := 4, 4
	pl := newConfiguredPipeline(t, width, height)

	if err := pl.SetDarkMap(newTestDarkMap(t, constant(10, 16), width, height), 0); err != nil {
		t.Fatalf("failed to set dark map: %v", err)
	}
	if err := pl.SetGainMap(newTestGainMap(t, constantGain(2.0, 16), width, height)); err != nil {
		t.Fatalf("failed to set gain map: %v", err)
	}
	defects := make([]uint8, 16)
	defects[1*4+1] = 1
	if err := pl.SetDefectMap(newTestDefectMap(t, defects, width, height), StrategyLine); err != nil {
		t.Fatalf("failed to set defect map: %v", err)
	}

	data := constant(100, 16)
	data[1*4+1] = 9999 // hot pixel
	frame := newTestFrame(t, data, width, height)

	if err := pl.Process(frame); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// clean pixels: (100-10)*2 = 180; the hot pixel is re-estimated from
	// its corrected neighbors, so it must be 180 as well
	for i, v := range frame.Data {
		if v != 180 {
			t.Errorf("pixel %d: got %d, want 180", i, v)
		}
	}
}

// TestPipelineWithConvolution verifies the optional smoothing pass runs
// after defect correction and an identity kernel changes nothing.
func TestPipelineWithConvolution(t *testing.T) {
	pl := newConfiguredPipeline(t, 4, 4)
	if err := pl.SetConvolution(models.Kernel{Weights: []float64{0, 1, 0}}, false); err != nil {
		t.Fatalf("failed to enable convolution: %v", err)
	}

	frame := newTestFrame(t, constant(500, 16), 4, 4)
	if err := pl.Process(frame); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for i, v := range frame.Data {
		if v != 500 {
			t.Errorf("pixel %d: got %d, want 500", i, v)
		}
	}
}

// TestPipelineMissingMaps verifies Process fails synchronously with
// ErrMapNotSet while any required map is absent.
func TestPipelineMissingMaps(t *testing.T) {
	pl, err := NewPipeline(4, 4, 1)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	frame := newTestFrame(t, constant(1, 16), 4, 4)

	if err := pl.Process(frame); !errors.Is(err, ErrMapNotSet) {
		t.Errorf("no maps: got %v, want ErrMapNotSet", err)
	}

	if err := pl.SetDarkMap(newTestDarkMap(t, make([]uint16, 16), 4, 4), 0); err != nil {
		t.Fatalf("failed to set dark map: %v", err)
	}
	if err := pl.Process(frame); !errors.Is(err, ErrMapNotSet) {
		t.Errorf("dark only: got %v, want ErrMapNotSet", err)
	}
}

// TestPipelineDimensionMismatch verifies mismatched maps and frames are
// rejected before any dispatch.
func TestPipelineDimensionMismatch(t *testing.T) {
	pl := newConfiguredPipeline(t, 4, 4)

	if err := pl.SetDarkMap(newTestDarkMap(t, make([]uint16, 9), 3, 3), 0); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("3x3 dark map on 4x4 pipeline: got %v, want ErrDimensionMismatch", err)
	}

	small := newTestFrame(t, constant(1, 9), 3, 3)
	if err := pl.Process(small); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("3x3 frame on 4x4 pipeline: got %v, want ErrDimensionMismatch", err)
	}
}

// TestPipelineInvalidDimensions verifies impossible dimensions surface as
// resource exhaustion at creation time.
func TestPipelineInvalidDimensions(t *testing.T) {
	if _, err := NewPipeline(0, 4, 1); !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("zero width: got %v, want ErrResourceExhausted", err)
	}
	if _, err := NewPipeline(1<<20, 1<<20, 1); !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("absurd dimensions: got %v, want ErrResourceExhausted", err)
	}
}

// BenchmarkPipelineProcess measures a full correction run at a realistic
// frame size.
func BenchmarkPipelineProcess(b *testing.B) {
	width, height := 2048, 2048
	n := width * height

	pl, err := NewPipeline(width, height, runtime.NumCPU())
	if err != nil {
		b.Fatalf("failed to create pipeline: %v", err)
	}
	dark, _ := models.NewDarkMap(make([]uint16, n), width, height)
	pl.SetDarkMap(dark, 300)
	gains := make([]float64, n)
	for i := range gains {
		gains[i] = 0.5
	}
	gain, _ := models.NewGainMap(gains, width, height)
	pl.SetGainMap(gain)
	defectData := make([]uint8, n)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < n/1000; i++ {
		defectData[rng.Intn(n)] = 1
	}
	defects, _ := models.NewDefectMap(defectData, width, height)
	pl.SetDefectMap(defects, StrategyLine)

	data := make([]uint16, n)
	for i := range data {
		data[i] = 8000
	}
	frame, _ := models.NewFrame(data, width, height, 14)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := pl.Process(frame); err != nil {
			b.Fatalf("Process failed: %v", err)
		}
	}
}
