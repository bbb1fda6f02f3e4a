package sized

import (
	"io"
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"golang.org/x/exp/slog"
)

const (
	// DefaultBatchSize is the batch granularity used when CreateOptions.BatchSize is left at 0
	DefaultBatchSize int = 5
)

// CreateOptions contains the settings an allocator is bound to for its entire lifetime
type CreateOptions struct {
	// BatchSize is the granularity, in elements, by which pooled regions are created and extended.
	// If left at 0, DefaultBatchSize is used.
	BatchSize int `envconfig:"BATCH_SIZE"`
	// Expand indicates whether a pooled allocator may create capacity beyond its first region
	Expand ExpandPolicy `envconfig:"EXPAND_POLICY" default:"fixed"`
	// Free indicates whether Deallocate is deferred to allocator teardown or performed immediately
	Free FreePolicy `envconfig:"FREE_POLICY" default:"pooled"`

	// MaxElements can be left at 0. If it is provided, the allocator will never hold more than this
	// many elements in reserve at once, and will return memutils.ErrOutOfMemory from requests that
	// would exceed the limit.
	MaxElements int `envconfig:"MAX_ELEMENTS"`

	// Logger receives diagnostic output. If nil, output is discarded.
	Logger *slog.Logger `ignored:"true"`
}

// config is the comparable identity of an allocator. Two allocators with equal configs are
// interchangeable for the purposes of Equal.
type config struct {
	batchSize   int
	expand      ExpandPolicy
	free        FreePolicy
	maxElements int
}

// New creates a new Allocator for elements of type T
func New[T any](options CreateOptions) (*Allocator[T], error) {
	if options.BatchSize == 0 {
		options.BatchSize = DefaultBatchSize
	}
	err := memutils.CheckPositive(options.BatchSize, "CreateOptions.BatchSize")
	if err != nil {
		return nil, err
	}

	if options.MaxElements < 0 {
		return nil, errors.Newf("CreateOptions.MaxElements must not be negative, but was %d", options.MaxElements)
	}

	_, knownExpand := expandPolicyMapping[options.Expand]
	if !knownExpand {
		return nil, errors.Newf("unknown CreateOptions.Expand value %d", options.Expand)
	}

	_, knownFree := freePolicyMapping[options.Free]
	if !knownFree {
		return nil, errors.Newf("unknown CreateOptions.Free value %d", options.Free)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var zero T
	elementSize := int(unsafe.Sizeof(zero))

	elementLimit := math.MaxInt
	if elementSize > 0 {
		elementLimit = math.MaxInt / elementSize
	}
	if options.MaxElements > 0 && options.MaxElements < elementLimit {
		elementLimit = options.MaxElements
	}

	allocator := &Allocator[T]{
		logger:       logger,
		options:      options,
		elementSize:  elementSize,
		elementLimit: elementLimit,
		config: config{
			batchSize:   options.BatchSize,
			expand:      options.Expand,
			free:        options.Free,
			maxElements: options.MaxElements,
		},
	}

	switch options.Free {
	case FreePooled:
		allocator.strategy = newPooledStrategy[T](logger, options.BatchSize, options.Expand, elementLimit)
	case FreePerAllocation:
		allocator.strategy = newPerAllocationStrategy[T](logger, elementLimit)
	}

	logger.Debug("Allocator::New",
		slog.Int("BatchSize", options.BatchSize),
		slog.String("Expand", options.Expand.String()),
		slog.String("Free", options.Free.String()),
		slog.Int("ElementSize", elementSize),
	)

	return allocator, nil
}

// Rebind creates a fresh allocator for elements of type U bound to the same options as the
// provided allocator. The new allocator shares no memory with the original.
func Rebind[U any, T any](allocator *Allocator[T]) *Allocator[U] {
	rebound, err := New[U](allocator.options)
	if err != nil {
		// The options were already validated when the source allocator was created
		panic(errors.Wrap(err, "rebinding an allocator with previously-validated options failed"))
	}

	return rebound
}
