package memory

import (
	"errors"
	"fmt"
)

// Sentinel errors for memory operations.
var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidVector     = errors.New("invalid vector")
	ErrEmptyBatch        = errors.New("empty vector batch")
	ErrInvalidK          = errors.New("k must be at least 1")
	ErrUnknownMetric     = errors.New("unknown distance metric")
	ErrInvalidConfig     = errors.New("invalid memory config")
)

// DimensionMismatchError describes a vector or batch that does not fit the
// index. It matches ErrDimensionMismatch with errors.Is.
type DimensionMismatchError struct {
	// Expected is the configured dimension, or the vector count when
	// Metadata is true.
	Expected int
	// Got is the offending length.
	Got int
	// Position is the index of the offending vector in its batch, or -1.
	Position int
	// Metadata is set when the vector and metadata counts differ.
	Metadata bool
}

func (e *DimensionMismatchError) Error() string {
	switch {
	case e.Metadata:
		return fmt.Sprintf("dimension mismatch: %d vectors but %d metadata documents", e.Expected, e.Got)
	case e.Position >= 0:
		return fmt.Sprintf("dimension mismatch: vector %d has length %d, expected %d", e.Position, e.Got, e.Expected)
	default:
		return fmt.Sprintf("dimension mismatch: query has length %d, expected %d", e.Got, e.Expected)
	}
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
