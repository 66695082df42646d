// Package evidence describes the individual pieces of read support for a structural variant breakend.
package evidence

import (
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/sam"
)

// DirectedEvidence is a single piece of support for a breakend.
type DirectedEvidence interface {
	EvidenceID() string
	Breakend() BreakendSummary
	Quality() float64
	LocalMapq() int
	Category() int
}

// DirectedBreakpoint is evidence that also places the partner breakend.
type DirectedBreakpoint interface {
	DirectedEvidence
	Breakpoint() BreakpointSummary
	RemoteMapq() int
}

// NonReferenceReadPair is a read pair inconsistent with the fragment model.
type NonReferenceReadPair interface {
	DirectedEvidence
	LocalRead() *sam.Sam
	NonReferenceRead() *sam.Sam
	MaxFragmentSize() int
}

// ReadLayout places a read on the reference. Bases in [AnchorStart, AnchorEnd) are
// anchored, with read offset AnchorStart aligned at RefStart. Offsets are in the
// orientation of Seq.
type ReadLayout struct {
	RefIdx      int
	RefStart    int
	Seq         []dna.Base
	Qual        string
	AnchorStart int
	AnchorEnd   int
}

// SingleReadEvidence is evidence derived from the alignment of one read.
type SingleReadEvidence interface {
	DirectedEvidence
	Read() *sam.Sam
	Layout() ReadLayout
}

// clipLengths returns the soft and hard clip lengths at either end of c.
func clipLengths(c []cigar.Cigar) (leadSoft, leadHard, trailSoft, trailHard int) {
	var i, j int
	for i = 0; i < len(c) && (c[i].Op == 'H' || c[i].Op == 'S'); i++ {
		if c[i].Op == 'H' {
			leadHard += c[i].RunLength
		} else {
			leadSoft += c[i].RunLength
		}
	}
	for j = len(c) - 1; j >= i && (c[j].Op == 'H' || c[j].Op == 'S'); j-- {
		if c[j].Op == 'H' {
			trailHard += c[j].RunLength
		} else {
			trailSoft += c[j].RunLength
		}
	}
	return
}

// referenceLength is the number of reference bases spanned by c.
func referenceLength(c []cigar.Cigar) int {
	var ans int
	for i := range c {
		if c[i].Op != '*' && cigar.ConsumesReference(c[i].Op) {
			ans += c[i].RunLength
		}
	}
	return ans
}

// queryLength is the number of read bases consumed by c, including hard clips.
func queryLength(c []cigar.Cigar) int {
	var ans int
	for i := range c {
		if c[i].Op == 'H' || (c[i].Op != '*' && cigar.ConsumesQuery(c[i].Op)) {
			ans += c[i].RunLength
		}
	}
	return ans
}

// AlignmentStart returns the 1-based position of the first aligned base.
func AlignmentStart(r *sam.Sam) int {
	return int(r.Pos)
}

// AlignmentEnd returns the 1-based position of the last aligned base.
func AlignmentEnd(r *sam.Sam) int {
	return int(r.Pos) + referenceLength(r.Cigar) - 1
}

// segment returns 1 for the first read of a pair and 2 otherwise.
func segment(r *sam.Sam) int {
	if sam.IsReverseRead(*r) {
		return 2
	}
	return 1
}

// meanQual averages the phred qualities of Qual[start:end].
// A missing quality string counts as the sequence being of quality mapq.
func meanQual(qual string, start, end int, fallback float64) float64 {
	if qual == "" || qual == "*" || end <= start || end > len(qual) {
		return fallback
	}
	var sum int
	for i := start; i < end; i++ {
		sum += int(qual[i] - 33)
	}
	return float64(sum) / float64(end-start)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
