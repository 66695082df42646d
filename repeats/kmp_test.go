package repeats

import (
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/chromInfo"
	"github.com/vertgenlab/gonomics/dna"
	"golang.org/x/exp/slices"
	"testing"
)

func TestBuildKmpFailure(t *testing.T) {
	failure := BuildKmpFailure(dna.StringToBases("AAACAAAA"))
	if !slices.Equal(failure, []int{0, 1, 2, 0, 1, 2, 3, 3}) {
		t.Error("problem with kmp failure", failure)
	}
}

func TestFindRepeat(t *testing.T) {
	var tests = []struct {
		seq    string
		copies int
		unit   string
	}{
		{"CACACACA", 4, "CA"},
		{"aaaaA", 5, "a"},
		{"ATGATGATG", 3, "ATG"},
		{"ATGATGAT", 1, "ATGATGAT"},
		{"AATGATGATGCAGTGACGTGG", 1, "AATGATGATGCAGTGACGTGG"},
	}
	for _, test := range tests {
		copies, unit := FindRepeat(dna.StringToBases(test.seq))
		if copies != test.copies || dna.BasesToString(unit) != test.unit {
			t.Errorf("problem with repeat of %s: %d x %s", test.seq, copies, dna.BasesToString(unit))
		}
	}
	if copies, _ := FindRepeat(nil); copies != 0 {
		t.Error("problem with empty sequence")
	}
}

func TestFilterLowComplexity(t *testing.T) {
	coord := linear.NewCoordinate([]chromInfo.ChromInfo{{Name: "chr1", Size: 1000}}, 100)
	build := func(seq string) *assembly.Assembly {
		return assembly.Build(assembly.Contig{
			Name:  "asm",
			Bases: dna.StringToBases(seq),
			Quals: make([]uint8, len(seq)),
			Start: &assembly.Anchor{RefIdx: 0, Pos: 100, Length: 4},
		}, coord, assembly.DefaultParams())
	}
	a := build("GGGGTGTGTGTG")
	if !FilterLowComplexity(a, DefaultMaxUnit) || a.Filters()[0] != assembly.FilterLowComplexity {
		t.Error("problem filtering dinucleotide repeat", a.Filters())
	}
	a = build("GGGGTGATGATG")
	if FilterLowComplexity(a, DefaultMaxUnit) || len(a.Filters()) != 0 {
		t.Error("problem with trinucleotide repeat", a.Filters())
	}
}
