package correction

import (
	"sync/atomic"

	"framecal/internal/models"
)

// DefectStrategy selects how flagged pixels are re-estimated.
type DefectStrategy int

const (
	// StrategyLine estimates from the minimum-contrast symmetric neighbor
	// pair and falls back to the 8-neighbor average.
	StrategyLine DefectStrategy = iota

	// StrategyWeighted interpolates from a 5x5 distance-weighted window
	// of non-defective neighbors.
	StrategyWeighted
)

// pairOffsets lists the symmetric neighbor pairs in the fixed tie-break
// order: horizontal, vertical, then the two diagonals.
var pairOffsets = [4][2][2]int{
	{{-1, 0}, {1, 0}},
	{{0, -1}, {0, 1}},
	{{-1, -1}, {1, 1}},
	{{1, -1}, {-1, 1}},
}

// defectWeights is the 5x5 window used by StrategyWeighted. The center is
// zero so the defective pixel never contributes to its own estimate.
var defectWeights = [5][5]float64{
	{1, 2, 3, 2, 1},
	{2, 3, 4, 3, 2},
	{3, 4, 0, 4, 3},
	{2, 3, 4, 3, 2},
	{1, 2, 3, 2, 1},
}

// DefectPass replaces pixels flagged in the defect map with a value
// interpolated from their non-defective neighbors. Every pixel that is
// not flagged is copied through bit-exact; the defect map is the only
// thing that decides whether a pixel may change.
type DefectPass struct {
	Defects  *models.DefectMap
	Strategy DefectStrategy

	// uncorrected counts flagged pixels for which no estimate was
	// available; those keep their input value.
	uncorrected atomic.Uint64
}

// Apply reads src and writes dst. The two buffers must not alias: a
// pixel's estimate has to see the unmodified neighborhood even while
// neighboring workers are writing their own outputs.
func (p *DefectPass) Apply(dst, src []uint16, width, height, workers int) {
	parallelRows(height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * width
			for x := 0; x < width; x++ {
				idx := row + x
				if p.Defects.Data[idx] == 0 {
					dst[idx] = src[idx]
					continue
				}
				v, ok := p.estimate(src, width, height, x, y)
				if !ok {
					// No usable neighbors at all; keep the input value.
					p.uncorrected.Add(1)
					dst[idx] = src[idx]
					continue
				}
				dst[idx] = v
			}
		}
	})
}

// Uncorrected returns how many flagged pixels could not be estimated
// since the pass was created.
func (p *DefectPass) Uncorrected() uint64 {
	return p.uncorrected.Load()
}

func (p *DefectPass) estimate(src []uint16, width, height, x, y int) (uint16, bool) {
	if p.Strategy == StrategyWeighted {
		return p.weightedEstimate(src, width, height, x, y)
	}
	if v, ok := p.lineEstimate(src, width, height, x, y); ok {
		return v, true
	}
	return p.neighborAverage(src, width, height, x, y)
}

// lineEstimate examines the 4 symmetric neighbor pairs around (x, y) and
// returns the contrast (pair mean) of the valid pair with the smallest
// contrast. A pair is valid when both members are in-bounds and not
// flagged. The strict comparison keeps the first pair in the fixed order
// when contrasts tie.
func (p *DefectPass) lineEstimate(src []uint16, width, height, x, y int) (uint16, bool) {
	best := -1
	for _, pair := range pairOffsets {
		ax, ay := x+pair[0][0], y+pair[0][1]
		bx, by := x+pair[1][0], y+pair[1][1]
		if !p.usable(ax, ay, width, height) || !p.usable(bx, by, width, height) {
			continue
		}
		contrast := (int(src[ay*width+ax]) + int(src[by*width+bx])) / 2
		if best < 0 || contrast < best {
			best = contrast
		}
	}
	if best < 0 {
		return 0, false
	}
	return uint16(best), true
}

// neighborAverage returns the mean of the usable immediate neighbors of
// (x, y). Out-of-bounds and defective neighbors are excluded from both
// the sum and the count; zero usable neighbors leaves the estimate
// undefined.
func (p *DefectPass) neighborAverage(src []uint16, width, height, x, y int) (uint16, bool) {
	sum, count := 0, 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !p.usable(nx, ny, width, height) {
				continue
			}
			sum += int(src[ny*width+nx])
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return uint16(sum / count), true
}

// weightedEstimate interpolates from the 5x5 weight window, dividing the
// weighted sum by the total weight of the taps that qualified.
func (p *DefectPass) weightedEstimate(src []uint16, width, height, x, y int) (uint16, bool) {
	var sum, total float64
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			w := defectWeights[dy+2][dx+2]
			if w == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !p.usable(nx, ny, width, height) {
				continue
			}
			sum += w * float64(src[ny*width+nx])
			total += w
		}
	}
	if total == 0 {
		return 0, false
	}
	return uint16(sum / total), true
}

// usable reports whether (x, y) is in-bounds and not itself flagged.
func (p *DefectPass) usable(x, y, width, height int) bool {
	return x >= 0 && x < width && y >= 0 && y < height && p.Defects.Data[y*width+x] == 0
}
