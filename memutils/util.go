package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// BatchCapacity returns the number of elements a region must be created (or extended) with in order
// to serve a request of count elements at the provided batch granularity. The result is always one
// batch larger than the multiple of batchSize implied by count, even when count is itself an exact
// multiple of batchSize.
func BatchCapacity[T Number](count, batchSize T) T {
	return (count/batchSize + 1) * batchSize
}

// CheckPositive returns an error if number is not strictly greater than zero
func CheckPositive[T Number](number T, name string) error {
	if number <= 0 {
		return cerrors.Newf("%s must be greater than zero, but was %d", name, number)
	}
	return nil
}
