// Package ordered provides Map, an ordered associative container whose nodes are reserved one at a
// time from a sized.Allocator.
package ordered

import (
	"cmp"
	"iter"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"github.com/vkngwrapper/sizedalloc/sized"
)

// Pair is a single key/value entry of a Map
type Pair[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

type node[K cmp.Ordered, V any] struct {
	pair  Pair[K, V]
	left  *node[K, V]
	right *node[K, V]
	red   bool
}

// Map is a left-leaning red-black tree keyed by K. Each entry occupies one node, and each node is a
// separate single-element reservation from the Map's allocator, so a Map built on a fixed pool can
// hold exactly as many entries as the pool's region has room for.
//
// Map is not safe for concurrent use.
type Map[K cmp.Ordered, V any] struct {
	nodes  *sized.Allocator[node[K, V]]
	root   *node[K, V]
	length int
}

var _ memutils.Validatable = &Map[int, int]{}

// New creates an empty Map. The Map reserves its nodes from a new allocator rebound from pairs, and
// never reserves memory from pairs itself.
func New[K cmp.Ordered, V any](pairs *sized.Allocator[Pair[K, V]]) *Map[K, V] {
	return &Map[K, V]{
		nodes: sized.Rebind[node[K, V]](pairs),
	}
}

// Len returns the number of entries in the map
func (m *Map[K, V]) Len() int { return m.length }

// NodeAllocator is the view of a Map's node allocator available to callers
type NodeAllocator interface {
	ReservedElements() int
	AddStatistics(stats *memutils.Statistics)
}

// Nodes returns the allocator the map reserves its nodes from
func (m *Map[K, V]) Nodes() NodeAllocator { return m.nodes }

func (m *Map[K, V]) find(key K) *node[K, V] {
	current := m.root
	for current != nil {
		switch cmp.Compare(key, current.pair.Key) {
		case -1:
			current = current.left
		case 1:
			current = current.right
		default:
			return current
		}
	}

	return nil
}

// Get returns the value stored for key, and whether the key was present
func (m *Map[K, V]) Get(key K) (V, bool) {
	found := m.find(key)
	if found == nil {
		var zero V
		return zero, false
	}

	return found.pair.Value, true
}

// Contains returns true if key is present in the map
func (m *Map[K, V]) Contains(key K) bool {
	return m.find(key) != nil
}

// Insert adds key with value if key is not already present, and returns whether it was added.
// Existing entries are never overwritten. If a node cannot be reserved for the new entry, the
// allocator's error is returned and the map is unchanged.
func (m *Map[K, V]) Insert(key K, value V) (bool, error) {
	if m.find(key) != nil {
		return false, nil
	}

	region, err := m.nodes.Allocate(1)
	if err != nil {
		return false, errors.Wrapf(err, "failed to reserve a node for key %v", key)
	}

	inserted := &region[0]
	m.nodes.ConstructElement(inserted, node[K, V]{
		pair: Pair[K, V]{Key: key, Value: value},
		red:  true,
	})

	m.root = insertNode(m.root, inserted)
	m.root.red = false
	m.length++

	memutils.DebugValidate(m)
	return true, nil
}

func isRed[K cmp.Ordered, V any](n *node[K, V]) bool {
	return n != nil && n.red
}

func rotateLeft[K cmp.Ordered, V any](h *node[K, V]) *node[K, V] {
	x := h.right
	h.right = x.left
	x.left = h
	x.red = h.red
	h.red = true
	return x
}

func rotateRight[K cmp.Ordered, V any](h *node[K, V]) *node[K, V] {
	x := h.left
	h.left = x.right
	x.right = h
	x.red = h.red
	h.red = true
	return x
}

func flipColors[K cmp.Ordered, V any](h *node[K, V]) {
	h.red = !h.red
	h.left.red = !h.left.red
	h.right.red = !h.right.red
}

func insertNode[K cmp.Ordered, V any](h *node[K, V], inserted *node[K, V]) *node[K, V] {
	if h == nil {
		return inserted
	}

	if cmp.Less(inserted.pair.Key, h.pair.Key) {
		h.left = insertNode(h.left, inserted)
	} else {
		h.right = insertNode(h.right, inserted)
	}

	if isRed(h.right) && !isRed(h.left) {
		h = rotateLeft(h)
	}
	if isRed(h.left) && isRed(h.left.left) {
		h = rotateRight(h)
	}
	if isRed(h.left) && isRed(h.right) {
		flipColors(h)
	}

	return h
}

// All returns an iterator over the map's entries in ascending key order
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		walkInOrder(m.root, yield)
	}
}

func walkInOrder[K cmp.Ordered, V any](n *node[K, V], yield func(K, V) bool) bool {
	if n == nil {
		return true
	}

	return walkInOrder(n.left, yield) &&
		yield(n.pair.Key, n.pair.Value) &&
		walkInOrder(n.right, yield)
}

// Destroy finalizes and deallocates every node, then destroys the node allocator. The map is empty
// afterward and may be used again.
func (m *Map[K, V]) Destroy() error {
	var nodes []*node[K, V]
	collectPostOrder(m.root, &nodes)

	for _, n := range nodes {
		m.nodes.DestroyElement(n)
		m.nodes.Deallocate(unsafe.Slice(n, 1), 1)
	}

	m.root = nil
	m.length = 0

	return m.nodes.Destroy()
}

func collectPostOrder[K cmp.Ordered, V any](n *node[K, V], nodes *[]*node[K, V]) {
	if n == nil {
		return
	}

	collectPostOrder(n.left, nodes)
	collectPostOrder(n.right, nodes)
	*nodes = append(*nodes, n)
}

// Validate checks the ordering and balance invariants of the tree
func (m *Map[K, V]) Validate() error {
	if isRed(m.root) {
		return errors.New("the root node is red")
	}

	count, _, err := validateNode(m.root, nil, nil)
	if err != nil {
		return err
	}

	if count != m.length {
		return errors.Newf("tree contains %d nodes, but the map records a length of %d", count, m.length)
	}

	return nil
}

// validateNode returns the node count and black height of the subtree rooted at n
func validateNode[K cmp.Ordered, V any](n *node[K, V], lower, upper *K) (int, int, error) {
	if n == nil {
		return 0, 1, nil
	}

	if lower != nil && !cmp.Less(*lower, n.pair.Key) {
		return 0, 0, errors.Newf("key %v is not greater than its lower bound %v", n.pair.Key, *lower)
	}
	if upper != nil && !cmp.Less(n.pair.Key, *upper) {
		return 0, 0, errors.Newf("key %v is not less than its upper bound %v", n.pair.Key, *upper)
	}
	if isRed(n.right) {
		return 0, 0, errors.Newf("node with key %v has a red right child", n.pair.Key)
	}
	if isRed(n) && isRed(n.left) {
		return 0, 0, errors.Newf("node with key %v and its left child are both red", n.pair.Key)
	}

	leftCount, leftHeight, err := validateNode(n.left, lower, &n.pair.Key)
	if err != nil {
		return 0, 0, err
	}
	rightCount, rightHeight, err := validateNode(n.right, &n.pair.Key, upper)
	if err != nil {
		return 0, 0, err
	}

	if leftHeight != rightHeight {
		return 0, 0, errors.Newf("node with key %v has black height %d on the left and %d on the right", n.pair.Key, leftHeight, rightHeight)
	}

	height := leftHeight
	if !n.red {
		height++
	}

	return leftCount + rightCount + 1, height, nil
}
