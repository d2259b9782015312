package correction

import "errors"

// Configuration and resource failures are surfaced synchronously, before
// any parallel dispatch starts; a pipeline run never fails midway.
var (
	// ErrMapNotSet indicates Process was invoked before a required
	// calibration map was attached.
	ErrMapNotSet = errors.New("required calibration map not set")

	// ErrDimensionMismatch indicates a calibration map or frame does not
	// match the pipeline's dimensions.
	ErrDimensionMismatch = errors.New("dimensions do not match")

	// ErrResourceExhausted indicates the working buffers for the given
	// dimensions could not be allocated.
	ErrResourceExhausted = errors.New("cannot allocate correction buffers")
)
