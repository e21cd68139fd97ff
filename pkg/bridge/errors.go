package bridge

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidCoordinates indicates a sample or centre-set call carried
// non-numeric or out-of-range latitude/longitude values. Such values are
// dropped at the boundary and never propagated into the store or a widget.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// IsInvalid returns true if the error indicates invalid coordinate data.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidCoordinates)
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if GetLatestSample returned "no sample
// has ever been published".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
