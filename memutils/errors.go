package memutils

import "github.com/cockroachdb/errors"

// ErrCannotExpand is returned from an allocation request made against a fixed-capacity pool
// when the pool's committed region cannot hold the request
var ErrCannotExpand error = errors.New("cannot expand fixed-capacity pool")

// ErrOutOfMemory is returned from an allocation request when the underlying reservation could not
// be made: the request was larger than the allocator can ever serve, it would push the allocator
// beyond its configured element limit, or the runtime refused to reserve the memory
var ErrOutOfMemory error = errors.New("out of memory")
