// Package linear places every (reference, position) pair of a sequence dictionary
// on a single ordered axis so positions on different chromosomes can be compared.
package linear

import (
	"fmt"
	"github.com/vertgenlab/gonomics/chromInfo"
	"sort"
)

// DefaultBuffer is the gap inserted between adjacent references so evidence
// overhanging the end of one chromosome never collides with the next.
const DefaultBuffer int = 100000

// Coordinate converts between reference coordinates and linear coordinates.
type Coordinate struct {
	names   []string
	sizes   []int
	offsets []int // linear position of base 0 on each reference
	nameMap map[string]int
	buffer  int
}

// NewCoordinate builds a Coordinate from a sequence dictionary, keeping the dictionary order.
func NewCoordinate(chroms []chromInfo.ChromInfo, buffer int) *Coordinate {
	c := &Coordinate{
		names:   make([]string, len(chroms)),
		sizes:   make([]int, len(chroms)),
		offsets: make([]int, len(chroms)),
		nameMap: make(map[string]int, len(chroms)),
		buffer:  buffer,
	}
	var curr int
	for i := range chroms {
		c.names[i] = chroms[i].Name
		c.sizes[i] = chroms[i].Size
		c.offsets[i] = curr
		c.nameMap[chroms[i].Name] = i
		curr += chroms[i].Size + buffer
	}
	return c
}

// ToLinear returns the linear coordinate of position pos on reference refIdx.
func (c *Coordinate) ToLinear(refIdx, pos int) int {
	return c.offsets[refIdx] + pos
}

// FromLinear is the inverse of ToLinear.
func (c *Coordinate) FromLinear(x int) (refIdx, pos int) {
	refIdx = sort.Search(len(c.offsets), func(i int) bool { return c.offsets[i] > x }) - 1
	if refIdx < 0 {
		refIdx = 0
	}
	return refIdx, x - c.offsets[refIdx]
}

// Index returns the dictionary index of the named reference.
func (c *Coordinate) Index(name string) (int, bool) {
	idx, found := c.nameMap[name]
	return idx, found
}

// Name returns the name of the reference at refIdx.
func (c *Coordinate) Name(refIdx int) string {
	if refIdx < 0 || refIdx >= len(c.names) {
		return "*"
	}
	return c.names[refIdx]
}

// Size returns the length of the reference at refIdx.
func (c *Coordinate) Size(refIdx int) int {
	return c.sizes[refIdx]
}

// Len returns the number of references in the dictionary.
func (c *Coordinate) Len() int {
	return len(c.names)
}

// Dictionary rebuilds the sequence dictionary the Coordinate was built from.
func (c *Coordinate) Dictionary() []chromInfo.ChromInfo {
	ans := make([]chromInfo.ChromInfo, len(c.names))
	for i := range c.names {
		ans[i] = chromInfo.ChromInfo{Name: c.names[i], Size: c.sizes[i], Order: i}
	}
	return ans
}

func (c *Coordinate) String() string {
	return fmt.Sprintf("%d references, buffer %d", len(c.names), c.buffer)
}
