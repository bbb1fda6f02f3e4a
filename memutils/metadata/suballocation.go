package metadata

// Suballocation is a contiguous run of elements handed out from a region
type Suballocation struct {
	Offset int
	Size   int
}

// End returns the offset one past the final element of the suballocation
func (s Suballocation) End() int {
	return s.Offset + s.Size
}
