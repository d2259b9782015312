// Package session exposes the handle-based host boundary of the
// correction core: callers create a context for fixed frame dimensions,
// attach calibration maps, process caller-owned frame buffers in place
// and free the context when done.
package session

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"framecal/internal/models"
	"framecal/pkg/correction"
)

// DevicePreference hints how much of the machine a context should use.
// It is a hint, never a hard requirement.
type DevicePreference int

const (
	PreferenceNone DevicePreference = iota
	PreferenceLowPower
	PreferenceHighPerformance
)

// Handle identifies one correction context.
type Handle string

// ErrInvalidHandle indicates the handle does not name a live context,
// either because it never existed or because it was freed.
var ErrInvalidHandle = errors.New("unknown or freed context handle")

// defaultDepth is the pixel depth assumed until SetPixelDepth overrides
// it; 14-bit sensors are the common case.
const defaultDepth = 14

type context struct {
	pipeline *correction.Pipeline
	width    int
	height   int
	depth    int
	bias     uint16
	strategy correction.DefectStrategy

	// retained so a bias or strategy change can re-attach the map
	dark    *models.DarkMap
	defects *models.DefectMap
}

// Registry owns the live correction contexts. The registry itself is safe
// for concurrent use; each individual context is exclusively owned by its
// calling session, and concurrent Process calls against the same handle
// require external synchronization.
type Registry struct {
	mu       sync.Mutex
	contexts map[Handle]*context
}

// NewRegistry creates an empty context registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[Handle]*context)}
}

// CreateContext allocates a processing session for frames of the given
// dimensions. The preference selects how many workers the pipeline uses.
func (r *Registry) CreateContext(width, height int, pref DevicePreference) (Handle, error) {
	pl, err := correction.NewPipeline(width, height, workersFor(pref))
	if err != nil {
		return "", fmt.Errorf("failed to create context: %w", err)
	}

	h := Handle(uuid.New().String())
	r.mu.Lock()
	r.contexts[h] = &context{pipeline: pl, width: width, height: height, depth: defaultDepth}
	r.mu.Unlock()
	return h, nil
}

// SetDarkMap replaces the context's dark map. Dimensions must match the
// context's frame dimensions.
func (r *Registry) SetDarkMap(h Handle, buffer []uint16, width, height int) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	if width != ctx.width || height != ctx.height {
		return fmt.Errorf("%w: dark map %dx%d, context %dx%d", correction.ErrDimensionMismatch, width, height, ctx.width, ctx.height)
	}
	m, err := models.NewDarkMap(buffer, width, height)
	if err != nil {
		return err
	}
	ctx.dark = m
	return ctx.pipeline.SetDarkMap(m, ctx.bias)
}

// SetGainMap replaces the context's normalized gain map.
func (r *Registry) SetGainMap(h Handle, buffer []float64, width, height int) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	if width != ctx.width || height != ctx.height {
		return fmt.Errorf("%w: gain map %dx%d, context %dx%d", correction.ErrDimensionMismatch, width, height, ctx.width, ctx.height)
	}
	m, err := models.NewGainMap(buffer, width, height)
	if err != nil {
		return err
	}
	return ctx.pipeline.SetGainMap(m)
}

// SetDefectMap replaces the context's defect map.
func (r *Registry) SetDefectMap(h Handle, buffer []uint8, width, height int) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	if width != ctx.width || height != ctx.height {
		return fmt.Errorf("%w: defect map %dx%d, context %dx%d", correction.ErrDimensionMismatch, width, height, ctx.width, ctx.height)
	}
	m, err := models.NewDefectMap(buffer, width, height)
	if err != nil {
		return err
	}
	ctx.defects = m
	return ctx.pipeline.SetDefectMap(m, ctx.strategy)
}

// SetPixelDepth overrides the pixel depth in bits for subsequent Process
// calls.
func (r *Registry) SetPixelDepth(h Handle, bits int) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	if bits < 1 || bits > 16 {
		return fmt.Errorf("pixel depth %d out of range [1,16]", bits)
	}
	ctx.depth = bits
	return nil
}

// SetVerbose enables per-run progress output for the context.
func (r *Registry) SetVerbose(h Handle, verbose bool) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	ctx.pipeline.SetVerbose(verbose)
	return nil
}

// SetWorkers overrides the worker count chosen by the device preference.
func (r *Registry) SetWorkers(h Handle, n int) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	ctx.pipeline.SetWorkers(n)
	return nil
}

// SetOffsetBias sets the non-negative bias added after dark subtraction.
func (r *Registry) SetOffsetBias(h Handle, bias uint16) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	ctx.bias = bias
	if ctx.dark != nil {
		return ctx.pipeline.SetDarkMap(ctx.dark, bias)
	}
	return nil
}

// SetDefectStrategy selects the interpolation strategy for flagged pixels.
func (r *Registry) SetDefectStrategy(h Handle, strategy correction.DefectStrategy) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	ctx.strategy = strategy
	if ctx.defects != nil {
		return ctx.pipeline.SetDefectMap(ctx.defects, strategy)
	}
	return nil
}

// EnableConvolution turns on the optional smoothing pass for the context.
func (r *Registry) EnableConvolution(h Handle, weights []float64, renormalize bool) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	return ctx.pipeline.SetConvolution(models.Kernel{Weights: weights}, renormalize)
}

// Process runs the full correction pipeline over the caller-owned frame
// buffer in place. Configuration errors are returned before any work is
// dispatched.
func (r *Registry) Process(h Handle, frameBuffer []uint16) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	frame, err := models.NewFrame(frameBuffer, ctx.width, ctx.height, ctx.depth)
	if err != nil {
		return fmt.Errorf("%w: %v", correction.ErrDimensionMismatch, err)
	}
	return ctx.pipeline.Process(frame)
}

// Uncorrected reports how many defective pixels the context could not
// estimate so far.
func (r *Registry) Uncorrected(h Handle) (uint64, error) {
	ctx, err := r.lookup(h)
	if err != nil {
		return 0, err
	}
	return ctx.pipeline.Uncorrected(), nil
}

// FreeContext releases the context; the handle becomes invalid.
func (r *Registry) FreeContext(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[h]; !ok {
		return ErrInvalidHandle
	}
	delete(r.contexts, h)
	return nil
}

func (r *Registry) lookup(h Handle) (*context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return ctx, nil
}

func workersFor(pref DevicePreference) int {
	cpus := runtime.NumCPU()
	switch pref {
	case PreferenceLowPower:
		if cpus > 2 {
			return cpus / 2
		}
		return 1
	case PreferenceHighPerformance:
		return cpus
	default:
		return cpus
	}
}
