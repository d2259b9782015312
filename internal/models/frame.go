// Package models defines the data types shared by the correction core:
// detector frames, the three calibration maps, convolution kernels and
// reduction statistics.
package models

import "fmt"

// Frame represents one detector frame as row-major unsigned samples.
type Frame struct {
	// Data is the pixel buffer in row-major order, length Width*Height.
	Data []uint16

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// Depth is the pixel depth in bits (e.g. 14 for a 14-bit sensor).
	// Every pass keeps samples within this depth.
	Depth int
}

// NewFrame wraps an existing sample buffer as a Frame. The buffer is not
// copied, so mutations made by the correction passes are visible to the
// caller.
func NewFrame(data []uint16, width, height, depth int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if depth < 1 || depth > 16 {
		return nil, fmt.Errorf("pixel depth %d out of range [1,16]", depth)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("frame buffer has %d samples, expected %d", len(data), width*height)
	}
	return &Frame{Data: data, Width: width, Height: height, Depth: depth}, nil
}

// MaxPixelValue returns the full-scale sample value for the frame's depth,
// e.g. 16383 for 14-bit data.
func (f *Frame) MaxPixelValue() uint16 {
	return uint16(1<<f.Depth - 1)
}

// DarkMap holds the per-pixel fixed offset measured with no incident
// signal, subtracted from raw frames.
type DarkMap struct {
	Data   []uint16
	Width  int
	Height int
}

// NewDarkMap validates the buffer length against the map dimensions.
func NewDarkMap(data []uint16, width, height int) (*DarkMap, error) {
	if len(data) != width*height {
		return nil, fmt.Errorf("dark map buffer has %d samples, expected %d", len(data), width*height)
	}
	return &DarkMap{Data: data, Width: width, Height: height}, nil
}

// Matches reports whether the map covers a frame of the given dimensions.
func (m *DarkMap) Matches(width, height int) bool {
	return m.Width == width && m.Height == height
}

// GainMap holds per-pixel normalized sensitivity multipliers. Multipliers
// are normalized so that scaling a well-behaved sample keeps it within the
// frame's pixel depth.
type GainMap struct {
	Data   []float64
	Width  int
	Height int
}

// NewGainMap validates the buffer length against the map dimensions.
func NewGainMap(data []float64, width, height int) (*GainMap, error) {
	if len(data) != width*height {
		return nil, fmt.Errorf("gain map buffer has %d samples, expected %d", len(data), width*height)
	}
	return &GainMap{Data: data, Width: width, Height: height}, nil
}

// Matches reports whether the map covers a frame of the given dimensions.
func (m *GainMap) Matches(width, height int) bool {
	return m.Width == width && m.Height == height
}

// DefectMap flags unreliable sensor elements; a non-zero entry marks the
// pixel as defective.
type DefectMap struct {
	Data   []uint8
	Width  int
	Height int
}

// NewDefectMap validates the buffer length against the map dimensions.
func NewDefectMap(data []uint8, width, height int) (*DefectMap, error) {
	if len(data) != width*height {
		return nil, fmt.Errorf("defect map buffer has %d entries, expected %d", len(data), width*height)
	}
	return &DefectMap{Data: data, Width: width, Height: height}, nil
}

// Matches reports whether the map covers a frame of the given dimensions.
func (m *DefectMap) Matches(width, height int) bool {
	return m.Width == width && m.Height == height
}

// Defective reports whether the pixel at (x, y) is flagged.
func (m *DefectMap) Defective(x, y int) bool {
	return m.Data[y*m.Width+x] != 0
}

// Kernel is an odd-length sequence of weights applied along one axis at a
// time; two orthogonal passes give a separable 2D smoothing.
type Kernel struct {
	Weights []float64
}

// Validate checks the kernel has an odd, non-zero number of taps.
func (k Kernel) Validate() error {
	if len(k.Weights) == 0 {
		return fmt.Errorf("kernel has no weights")
	}
	if len(k.Weights)%2 == 0 {
		return fmt.Errorf("kernel length %d is even, must be odd", len(k.Weights))
	}
	return nil
}

// HalfWidth returns the tap offset k such that the kernel spans -k..+k.
func (k Kernel) HalfWidth() int {
	return len(k.Weights) / 2
}

// Statistics is the result of a range reduction over an image.
type Statistics struct {
	Min uint16
	Max uint16
}
