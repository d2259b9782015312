// Package reduction computes global minimum and maximum statistics over a
// row-major sample grid using a two-level partitioned reduction: each
// workgroup of the grid reduces its own pixels, then merges its local
// result into global atomic accumulators. Atomic min/max are commutative
// and associative, so the result does not depend on which partition
// finishes first, nor on the partition geometry.
package reduction

import (
	"math"
	"sync"
	"sync/atomic"

	"framecal/internal/models"
)

// Options controls how the sample grid is partitioned into workgroups.
type Options struct {
	// PartitionWidth and PartitionHeight are the workgroup dimensions in
	// pixels. Non-positive values fall back to the defaults.
	PartitionWidth  int
	PartitionHeight int
}

// DefaultOptions matches the 16x16 workgroup geometry used by the
// correction dispatch.
func DefaultOptions() Options {
	return Options{PartitionWidth: 16, PartitionHeight: 16}
}

func (o Options) normalized() Options {
	if o.PartitionWidth < 1 {
		o.PartitionWidth = 16
	}
	if o.PartitionHeight < 1 {
		o.PartitionHeight = 16
	}
	return o
}

// MinMax computes the global minimum and maximum sample of the image.
// Every call produces a fresh Statistics value seeded from the reduction
// identities (max representable sample for the minimum, 0 for the
// maximum); an empty image returns those identities unchanged.
func MinMax(data []uint16, width, height int, opts Options) models.Statistics {
	var globalMin, globalMax atomic.Uint32
	globalMin.Store(math.MaxUint16)
	globalMax.Store(0)

	forEachPartition(width, height, opts, func(x0, y0, x1, y1 int) {
		localMin := uint32(math.MaxUint16)
		localMax := uint32(0)
		for y := y0; y < y1; y++ {
			row := y * width
			for x := x0; x < x1; x++ {
				v := uint32(data[row+x])
				if v < localMin {
					localMin = v
				}
				if v > localMax {
					localMax = v
				}
			}
		}
		// Local phase done; merge once into the global accumulators.
		atomicMin(&globalMin, localMin)
		atomicMax(&globalMax, localMax)
	})

	return models.Statistics{
		Min: uint16(globalMin.Load()),
		Max: uint16(globalMax.Load()),
	}
}

// Min is the minimum-only flavor of the reduction, used to normalize a
// raw gain map against its smallest response.
func Min(data []uint16, width, height int, opts Options) uint16 {
	var globalMin atomic.Uint32
	globalMin.Store(math.MaxUint16)

	forEachPartition(width, height, opts, func(x0, y0, x1, y1 int) {
		localMin := uint32(math.MaxUint16)
		for y := y0; y < y1; y++ {
			row := y * width
			for x := x0; x < x1; x++ {
				if v := uint32(data[row+x]); v < localMin {
					localMin = v
				}
			}
		}
		atomicMin(&globalMin, localMin)
	})

	return uint16(globalMin.Load())
}

// forEachPartition tiles the grid into workgroups and runs fn once per
// workgroup, concurrently. It returns only after every workgroup has
// finished, which is the barrier separating the reduction from whatever
// consumes its result.
func forEachPartition(width, height int, opts Options, fn func(x0, y0, x1, y1 int)) {
	opts = opts.normalized()

	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += opts.PartitionHeight {
		y1 := y0 + opts.PartitionHeight
		if y1 > height {
			y1 = height
		}
		for x0 := 0; x0 < width; x0 += opts.PartitionWidth {
			x1 := x0 + opts.PartitionWidth
			if x1 > width {
				x1 = width
			}
			wg.Add(1)
			go func(x0, y0, x1, y1 int) {
				defer wg.Done()
				fn(x0, y0, x1, y1)
			}(x0, y0, x1, y1)
		}
	}
	wg.Wait()
}

// atomicMin lowers the accumulator to v unless it already holds a smaller
// value. Lost races retry until the accumulator is at least as small as v.
func atomicMin(acc *atomic.Uint32, v uint32) {
	for {
		cur := acc.Load()
		if v >= cur {
			return
		}
		if acc.CompareAndSwap(cur, v) {
			return
		}
	}
}

// atomicMax raises the accumulator to v unless it already holds a larger
// value.
func atomicMax(acc *atomic.Uint32, v uint32) {
	for {
		cur := acc.Load()
		if v <= cur {
			return
		}
		if acc.CompareAndSwap(cur, v) {
			return
		}
	}
}
