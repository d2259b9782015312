// Package correction implements the frame correction passes and the
// pipeline that sequences them: dark/offset subtraction, gain scaling,
// defect interpolation and separable smoothing. Each pass is a pure
// elementwise or neighborhood transform over a row-major uint16 frame,
// executed by row-partitioned workers.
package correction

import "framecal/internal/models"

// OffsetPass subtracts the per-pixel dark map from the frame, clamping
// underflow at zero, then adds a fixed non-negative bias. Unsigned
// wraparound is never produced: a dark value above the sample yields 0
// before the bias is applied.
type OffsetPass struct {
	Dark *models.DarkMap

	// Bias is added after the subtraction, keeping low-signal pixels
	// away from the zero clamp of downstream processing.
	Bias uint16
}

// Apply runs the offset correction in place. The pass is elementwise, so
// no double buffering is needed.
func (p *OffsetPass) Apply(frame *models.Frame, workers int) {
	maxPix := uint32(frame.MaxPixelValue())
	bias := uint32(p.Bias)

	parallelRows(frame.Height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * frame.Width
			for x := 0; x < frame.Width; x++ {
				idx := row + x
				in := frame.Data[idx]
				dark := p.Dark.Data[idx]

				var v uint32
				if in > dark {
					v = uint32(in - dark)
				}
				v += bias
				if v > maxPix {
					v = maxPix
				}
				frame.Data[idx] = uint16(v)
			}
		}
	})
}
