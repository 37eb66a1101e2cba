// Package errorcodes defines pool and asset errors using a structured type.
// PoolError holds the two-character code and human-readable description.
package errorcodes

import "errors"

// Predefined pool error instances.
var (
	Err00 = PoolError{"00", "No error"}
	// ErrNotReady is returned when a pool or its source asset is used before it is loaded.
	ErrNotReady = PoolError{"10", "Pool or source asset not ready"}
	// ErrAlreadyInitialized is returned by Initialize on a populated pool.
	ErrAlreadyInitialized = PoolError{"11", "Pool already initialized"}
	// ErrAllocationFailure is returned when growth cannot obtain a new slot.
	ErrAllocationFailure = PoolError{"12", "Pool growth could not allocate a slot"}
	// ErrLoadFailed is returned when the asset loader reports a failure.
	ErrLoadFailed         = PoolError{"13", "Asset load failed"}
	ErrInvalidArgument    = PoolError{"14", "Invalid argument"}
	ErrUnknownAsset       = PoolError{"15", "Unknown asset or command"}
	ErrExecutionFailed    = PoolError{"16", "Pooled instance execution failed"}
	ErrMalformedRequest   = PoolError{"17", "Malformed request"}
	ErrMissingExport      = PoolError{"18", "Required export missing from module"}
	ErrLoaderHandleFailed = PoolError{"19", "No loader handle available"}
)

// PoolError represents a pool error with its code and description.
type PoolError struct {
	Code        string // two-character error code
	Description string // human-readable description
}

// Error implements the Go error interface: "<Code>: <Description>".
func (e PoolError) Error() string {
	return e.Code + ": " + e.Description
}

// CodeOnly returns only the error code (e.g., "10"), for embedding in server responses.
func (e PoolError) CodeOnly() string {
	return e.Code
}

// From returns the first PoolError in err's chain, or ErrExecutionFailed when
// err carries none. A nil err maps to Err00.
func From(err error) PoolError {
	if err == nil {
		return Err00
	}

	var pe PoolError
	if errors.As(err, &pe) {
		return pe
	}

	return ErrExecutionFailed
}
