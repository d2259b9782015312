package correction

import (
	"math"

	"framecal/internal/models"
)

// Axis selects the direction of a 1D convolution pass.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// ConvolvePass applies a separable smoothing kernel as two 1D passes.
// Taps that fall outside the frame or on defective pixels are skipped.
// With Renormalize unset the remaining weights are not rescaled, so
// pixels near borders or defect clusters sum fewer contributions and come
// out attenuated; setting Renormalize divides by the total weight of the
// taps that were included.
type ConvolvePass struct {
	Kernel      models.Kernel
	Defects     *models.DefectMap
	Renormalize bool
}

// Apply runs the horizontal pass from src into scratch and the vertical
// pass from scratch into dst. Each 1D pass reads only its input snapshot,
// so concurrent workers never observe a partially-written row.
func (p *ConvolvePass) Apply(dst, src, scratch []uint16, width, height, workers int, maxPix uint16) {
	p.convolve1D(scratch, src, width, height, Horizontal, workers, maxPix)
	p.convolve1D(dst, scratch, width, height, Vertical, workers, maxPix)
}

func (p *ConvolvePass) convolve1D(dst, src []uint16, width, height int, axis Axis, workers int, maxPix uint16) {
	k := p.Kernel.HalfWidth()

	parallelRows(height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * width
			for x := 0; x < width; x++ {
				var sum, total float64
				for i := -k; i <= k; i++ {
					nx, ny := x, y
					if axis == Horizontal {
						nx = x + i
					} else {
						ny = y + i
					}
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					idx := ny*width + nx
					if p.Defects != nil && p.Defects.Data[idx] != 0 {
						continue
					}
					w := p.Kernel.Weights[i+k]
					sum += w * float64(src[idx])
					total += w
				}

				v := sum
				if p.Renormalize {
					if total != 0 {
						v = sum / total
					} else {
						v = 0
					}
				}
				r := math.Round(v)
				if r < 0 {
					r = 0
				}
				if r > float64(maxPix) {
					r = float64(maxPix)
				}
				dst[row+x] = uint16(r)
			}
		}
	})
}
