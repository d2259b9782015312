package correction

import (
	"fmt"

	"framecal/internal/models"
)

// maxFrameSamples caps the working-buffer allocation. 6144x6144 frames
// fit comfortably below it.
const maxFrameSamples = 1 << 28

// Pipeline sequences the correction passes over one frame:
// offset -> gain -> defect -> optional convolution.
//
// Passes run strictly one after another; each pass joins all of its
// workers before the next pass starts, so the writes of pass N are fully
// visible to pass N+1. The neighbor-dependent passes (defect,
// convolution) read from an input snapshot and write to a separate
// buffer, never mutating a shared buffer in place.
//
// A Pipeline and its frame buffers belong to one processing session;
// concurrent Process calls against the same Pipeline require external
// synchronization by the caller.
type Pipeline struct {
	width   int
	height  int
	workers int
	verbose bool

	offset   *OffsetPass
	gain     *GainPass
	defect   *DefectPass
	convolve *ConvolvePass

	// ping-pong buffers for the neighbor-dependent passes
	scratchA []uint16
	scratchB []uint16
}

// NewPipeline allocates a pipeline and its working buffers for frames of
// the given dimensions. Allocation failures (including impossible
// dimensions) are reported as ErrResourceExhausted before any frame is
// processed.
func NewPipeline(width, height, workers int) (*Pipeline, error) {
	if width <= 0 || height <= 0 || width*height > maxFrameSamples {
		return nil, fmt.Errorf("%w: %dx%d frame", ErrResourceExhausted, width, height)
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		width:    width,
		height:   height,
		workers:  workers,
		scratchA: make([]uint16, width*height),
		scratchB: make([]uint16, width*height),
	}, nil
}

// SetVerbose enables per-run progress output.
func (pl *Pipeline) SetVerbose(verbose bool) {
	pl.verbose = verbose
}

// SetWorkers overrides how many worker goroutines the passes use.
// Values below 1 are ignored.
func (pl *Pipeline) SetWorkers(n int) {
	if n >= 1 {
		pl.workers = n
	}
}

// SetDarkMap attaches the dark map and the post-subtraction bias,
// replacing any previous one.
func (pl *Pipeline) SetDarkMap(m *models.DarkMap, bias uint16) error {
	if !m.Matches(pl.width, pl.height) {
		return fmt.Errorf("%w: dark map %dx%d, frame %dx%d", ErrDimensionMismatch, m.Width, m.Height, pl.width, pl.height)
	}
	pl.offset = &OffsetPass{Dark: m, Bias: bias}
	return nil
}

// SetGainMap attaches the normalized gain map, replacing any previous one.
func (pl *Pipeline) SetGainMap(m *models.GainMap) error {
	if !m.Matches(pl.width, pl.height) {
		return fmt.Errorf("%w: gain map %dx%d, frame %dx%d", ErrDimensionMismatch, m.Width, m.Height, pl.width, pl.height)
	}
	pl.gain = &GainPass{Gain: m}
	return nil
}

// SetDefectMap attaches the defect map and the interpolation strategy,
// replacing any previous one. The map is also consulted by the
// convolution pass to skip defective taps.
func (pl *Pipeline) SetDefectMap(m *models.DefectMap, strategy DefectStrategy) error {
	if !m.Matches(pl.width, pl.height) {
		return fmt.Errorf("%w: defect map %dx%d, frame %dx%d", ErrDimensionMismatch, m.Width, m.Height, pl.width, pl.height)
	}
	pl.defect = &DefectPass{Defects: m, Strategy: strategy}
	if pl.convolve != nil {
		pl.convolve.Defects = m
	}
	return nil
}

// SetConvolution enables the optional smoothing pass with the given
// kernel. Renormalize selects edge-accurate output over the faithful
// attenuated-border behavior.
func (pl *Pipeline) SetConvolution(kernel models.Kernel, renormalize bool) error {
	if err := kernel.Validate(); err != nil {
		return err
	}
	pl.convolve = &ConvolvePass{Kernel: kernel, Renormalize: renormalize}
	if pl.defect != nil {
		pl.convolve.Defects = pl.defect.Defects
	}
	return nil
}

// Uncorrected returns how many defective pixels could not be estimated
// over the lifetime of the current defect map.
func (pl *Pipeline) Uncorrected() uint64 {
	if pl.defect == nil {
		return 0
	}
	return pl.defect.Uncorrected()
}

// Process runs the full correction sequence over the frame in place. All
// configuration errors are raised here, before any pass is dispatched; a
// run that starts always completes.
func (pl *Pipeline) Process(frame *models.Frame) error {
	if frame.Width != pl.width || frame.Height != pl.height {
		return fmt.Errorf("%w: frame %dx%d, pipeline %dx%d", ErrDimensionMismatch, frame.Width, frame.Height, pl.width, pl.height)
	}
	if len(frame.Data) != pl.width*pl.height {
		return fmt.Errorf("%w: frame buffer has %d samples, expected %d", ErrDimensionMismatch, len(frame.Data), pl.width*pl.height)
	}
	if pl.offset == nil {
		return fmt.Errorf("%w: dark map", ErrMapNotSet)
	}
	if pl.gain == nil {
		return fmt.Errorf("%w: gain map", ErrMapNotSet)
	}
	if pl.defect == nil {
		return fmt.Errorf("%w: defect map", ErrMapNotSet)
	}

	before := pl.defect.Uncorrected()

	// Elementwise passes mutate the frame buffer directly.
	pl.offset.Apply(frame, pl.workers)
	pl.gain.Apply(frame, pl.workers)

	// Neighborhood passes read a snapshot and write a separate buffer.
	pl.defect.Apply(pl.scratchA, frame.Data, pl.width, pl.height, pl.workers)

	if pl.convolve != nil {
		pl.convolve.Apply(frame.Data, pl.scratchA, pl.scratchB, pl.width, pl.height, pl.workers, frame.MaxPixelValue())
	} else {
		copy(frame.Data, pl.scratchA)
	}

	if pl.verbose {
		if n := pl.defect.Uncorrected() - before; n > 0 {
			fmt.Printf("defect correction left %d pixels uncorrected\n", n)
		}
	}
	return nil
}
