package linear

import (
	"github.com/vertgenlab/gonomics/chromInfo"
	"testing"
)

var testChroms = []chromInfo.ChromInfo{
	{Name: "chr1", Size: 1000, Order: 0},
	{Name: "chr2", Size: 50, Order: 1},
	{Name: "chr3", Size: 200, Order: 2},
}

func TestRoundTrip(t *testing.T) {
	c := NewCoordinate(testChroms, 100)
	var x, ref, pos int
	for i := range testChroms {
		for p := 0; p < testChroms[i].Size+100; p++ {
			x = c.ToLinear(i, p)
			ref, pos = c.FromLinear(x)
			if ref != i || pos != p {
				t.Errorf("problem with linear round trip: %d:%d -> %d -> %d:%d", i, p, x, ref, pos)
				return
			}
		}
	}
}

func TestOrdering(t *testing.T) {
	c := NewCoordinate(testChroms, 100)
	if c.ToLinear(0, 999) >= c.ToLinear(1, 1) {
		t.Error("problem with linear ordering across references")
	}
	if c.ToLinear(1, 10) >= c.ToLinear(1, 11) {
		t.Error("problem with linear ordering within reference")
	}
	if idx, found := c.Index("chr3"); !found || idx != 2 || c.Name(idx) != "chr3" {
		t.Error("problem with reference lookup", idx, found)
	}
	if c.Name(-1) != "*" {
		t.Error("problem with unplaced reference name")
	}
}
