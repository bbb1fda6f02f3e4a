package sized

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ExpandPolicy controls whether a pooled allocator may reserve more memory once its first region
// has been committed
type ExpandPolicy uint32

const (
	// ExpandFixed forbids creating capacity beyond the region committed by the first allocation.
	// Requests that cannot be served from that region fail with memutils.ErrCannotExpand.
	ExpandFixed ExpandPolicy = iota
	// ExpandGrowable extends the region whenever a request does not fit
	ExpandGrowable
)

var expandPolicyMapping = map[ExpandPolicy]string{
	ExpandFixed:    "fixed",
	ExpandGrowable: "growable",
}

func (p ExpandPolicy) String() string {
	return expandPolicyMapping[p]
}

// Decode parses an ExpandPolicy from its name. It allows ExpandPolicy to be loaded by envconfig.
func (p *ExpandPolicy) Decode(value string) error {
	for policy, name := range expandPolicyMapping {
		if strings.EqualFold(name, strings.TrimSpace(value)) {
			*p = policy
			return nil
		}
	}

	return errors.Newf("unknown expand policy %q", value)
}

// FreePolicy controls what Deallocate does with the regions it receives
type FreePolicy uint32

const (
	// FreePooled defers all reclamation to the destruction of the allocator. Deallocate is a no-op.
	FreePooled FreePolicy = iota
	// FreePerAllocation makes every allocation an independent reservation which Deallocate
	// releases immediately. No batching or region bookkeeping is performed.
	FreePerAllocation
)

var freePolicyMapping = map[FreePolicy]string{
	FreePooled:        "pooled",
	FreePerAllocation: "per-allocation",
}

func (p FreePolicy) String() string {
	return freePolicyMapping[p]
}

// Decode parses a FreePolicy from its name. It allows FreePolicy to be loaded by envconfig.
func (p *FreePolicy) Decode(value string) error {
	for policy, name := range freePolicyMapping {
		if strings.EqualFold(name, strings.TrimSpace(value)) {
			*p = policy
			return nil
		}
	}

	return errors.Newf("unknown free policy %q", value)
}
