package models

import "testing"

// TestNewFrameValidation verifies dimension, depth and buffer length
// checks reject malformed frames before any processing can touch them.
func TestNewFrameValidation(t *testing.T) {
	buf := make([]uint16, 16)

	if _, err := NewFrame(buf, 4, 4, 14); err != nil {
		t.Errorf("valid frame rejected: %v", err)
	}
	if _, err := NewFrame(buf, 0, 4, 14); err == nil {
		t.Error("expected an error for zero width")
	}
	if _, err := NewFrame(buf, 4, -1, 14); err == nil {
		t.Error("expected an error for negative height")
	}
	if _, err := NewFrame(buf, 4, 4, 0); err == nil {
		t.Error("expected an error for zero depth")
	}
	if _, err := NewFrame(buf, 4, 4, 17); err == nil {
		t.Error("expected an error for a 17-bit depth")
	}
	if _, err := NewFrame(buf[:15], 4, 4, 14); err == nil {
		t.Error("expected an error for a short buffer")
	}
}

// TestMaxPixelValue verifies the full-scale value for common depths.
func TestMaxPixelValue(t *testing.T) {
	cases := []struct {
		depth int
		want  uint16
	}{
		{8, 255},
		{12, 4095},
		{14, 16383},
		{16, 65535},
	}

	for _, c := range cases {
		frame, err := NewFrame(make([]uint16, 1), 1, 1, c.depth)
		if err != nil {
			t.Fatalf("depth %d: failed to create frame: %v", c.depth, err)
		}
		if got := frame.MaxPixelValue(); got != c.want {
			t.Errorf("depth %d: got %d, want %d", c.depth, got, c.want)
		}
	}
}

// TestKernelValidate verifies only odd, non-empty kernels pass.
func TestKernelValidate(t *testing.T) {
	if err := (Kernel{Weights: []float64{0.25, 0.5, 0.25}}).Validate(); err != nil {
		t.Errorf("valid kernel rejected: %v", err)
	}
	if err := (Kernel{}).Validate(); err == nil {
		t.Error("expected an error for an empty kernel")
	}
	if err := (Kernel{Weights: []float64{0.5, 0.5}}).Validate(); err == nil {
		t.Error("expected an error for an even-length kernel")
	}
}

// TestDefectMapDefective verifies flag lookup by coordinate.
func TestDefectMapDefective(t *testing.T) {
	m, err := NewDefectMap([]uint8{0, 0, 0, 1}, 2, 2)
	if err != nil {
		t.Fatalf("failed to create defect map: %v", err)
	}
	if m.Defective(0, 0) {
		t.Error("pixel (0,0) reported defective")
	}
	if !m.Defective(1, 1) {
		t.Error("pixel (1,1) not reported defective")
	}
}
