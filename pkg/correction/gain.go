package correction

import (
	"math"

	"framecal/internal/models"
)

// GainPass multiplies every unsaturated pixel by its normalized gain
// multiplier, rounding to the nearest sample value. Pixels at or above
// full scale are left bit-exact unchanged so an already-saturated sample
// is never rescaled past the top of range.
type GainPass struct {
	Gain *models.GainMap
}

// Apply runs the gain correction in place. Results are clamped to the
// frame's pixel depth if rounding would exceed it.
func (p *GainPass) Apply(frame *models.Frame, workers int) {
	maxPix := frame.MaxPixelValue()

	parallelRows(frame.Height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * frame.Width
			for x := 0; x < frame.Width; x++ {
				idx := row + x
				in := frame.Data[idx]
				if in >= maxPix {
					continue
				}
				v := math.Round(float64(in) * p.Gain.Data[idx])
				if v < 0 {
					v = 0
				}
				if v > float64(maxPix) {
					v = float64(maxPix)
				}
				frame.Data[idx] = uint16(v)
			}
		}
	})
}
