// Package safeconv converts between signed and unsigned byte counts without
// silent wrap-around.
package safeconv

import (
	"errors"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("safeconv: value out of range")

// Uint64ToInt64 converts v, failing when it exceeds math.MaxInt64.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, ErrOverflow
	}

	return int64(v), nil
}

// ClampInt64ToUint64 converts v, mapping negative values to zero.
func ClampInt64ToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}
