package assembly

import (
	"errors"
	"fmt"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/vertgenlab/gonomics/chromInfo"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/numbers"
	"github.com/vertgenlab/gonomics/sam"
)

var (
	ErrRealignInexact    = errors.New("realignment of unanchored assemblies is not supported")
	ErrRealignBreakpoint = errors.New("realignment of breakpoint assemblies is not supported")
)

// Alignment is the result of aligning a query to a reference window.
// Offset is the 0-based position in the window of the first aligned reference base.
type Alignment struct {
	Cigar  []cigar.Cigar
	Offset int
}

// Aligner locally aligns query to reference.
type Aligner interface {
	Align(query, reference []dna.Base) Alignment
}

// Reference provides random access to the reference genome.
type Reference interface {
	// Subsequence returns bases [start, end] of the named sequence, 1-based inclusive.
	Subsequence(name string, start, end int) ([]dna.Base, error)
	SequenceLength(name string) (int, error)
	Dictionary() []chromInfo.ChromInfo
}

// Realign aligns the contig against the reference surrounding its anchor and returns the
// realigned assembly. The original is returned when the alignment does not change.
func (a *Assembly) Realign(ref Reference, aligner Aligner) (*Assembly, error) {
	if !a.IsExact() {
		return nil, fmt.Errorf("%s: %w", a.EvidenceID(), ErrRealignInexact)
	}
	if a.IsBreakpoint() {
		return nil, fmt.Errorf("%s: %w", a.EvidenceID(), ErrRealignBreakpoint)
	}
	window := a.params.RealignmentWindowSize
	refLen, err := ref.SequenceLength(a.record.RName)
	if err != nil {
		return nil, err
	}
	start := evidence.AlignmentStart(&a.record) - window
	end := evidence.AlignmentEnd(&a.record) + window
	if a.direction == evidence.Backward {
		start -= a.BreakendLength()
	} else {
		end += a.BreakendLength()
	}
	start = numbers.Max(1, start)
	end = numbers.Min(refLen, end)
	refBases, err := ref.Subsequence(a.record.RName, start, end)
	if err != nil {
		return nil, err
	}
	dna.AllToUpper(refBases)
	aln := aligner.Align(a.record.Seq, refBases)
	if len(aln.Cigar) == 0 {
		return a, nil
	}
	pos := uint32(start + aln.Offset)
	changed := cigar.ToString(aln.Cigar) != cigar.ToString(a.record.Cigar)
	if !changed && pos == a.record.Pos {
		return a, nil
	}
	b := a.clone()
	b.record.QName = a.record.QName + "_r"
	b.record.Pos = pos
	if changed {
		b.record.Cigar = aln.Cigar
		b.originalCigar = cigar.ToString(a.record.Cigar)
	}
	if b.BreakendLength() == 0 {
		b.FilterAssembly(FilterReference)
	}
	return b, nil
}

// RealignBreakend aligns the breakend sequence to the reference surrounding the breakend and
// returns a copy carrying the alignment as its realignment record. The original is returned
// when no more than half of the breakend sequence aligns.
func (a *Assembly) RealignBreakend(ref Reference, aligner Aligner) (*Assembly, error) {
	if !a.IsExact() {
		return nil, fmt.Errorf("%s: %w", a.EvidenceID(), ErrRealignInexact)
	}
	if a.IsBreakpoint() {
		return nil, fmt.Errorf("%s: %w", a.EvidenceID(), ErrRealignBreakpoint)
	}
	bs := a.BreakendSequence()
	if len(bs) == 0 {
		return a, nil
	}
	refLen, err := ref.SequenceLength(a.record.RName)
	if err != nil {
		return nil, err
	}
	pos := a.Breakend().Start
	window := a.params.RealignmentWindowSize + len(bs)
	start := numbers.Max(1, pos-window)
	end := numbers.Min(refLen, pos+window)
	refBases, err := ref.Subsequence(a.record.RName, start, end)
	if err != nil {
		return nil, err
	}
	dna.AllToUpper(refBases)
	aln := aligner.Align(bs, refBases)
	if 2*alignedBases(aln.Cigar) <= len(bs) {
		return a, nil
	}
	return a.WithRealignment(sam.Sam{
		QName: a.record.QName,
		MapQ:  a.record.MapQ,
		RName: a.record.RName,
		Pos:   uint32(start + aln.Offset),
		Cigar: aln.Cigar,
		RNext: "*",
		Seq:   append([]dna.Base{}, bs...),
		Qual:  qualString(a.BreakendQuality()),
	}), nil
}

func alignedBases(c []cigar.Cigar) int {
	var ans int
	for i := range c {
		if c[i].Op == 'M' || c[i].Op == '=' || c[i].Op == 'X' {
			ans += c[i].RunLength
		}
	}
	return ans
}
