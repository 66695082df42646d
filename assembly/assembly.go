// Package assembly holds contigs assembled from breakend evidence, expressed as
// alignment records anchored to the reference.
package assembly

import (
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/numbers"
	"github.com/vertgenlab/gonomics/sam"
	"io"
	"log"
	"strings"
)

// Category is reported by assemblies, which draw support from every category.
const Category int = -1

// Params are the settings shared by every assembly.
type Params struct {
	Categories                   int
	ExcludeNonSupportingEvidence bool
	RealignmentWindowSize        int
	Logger                       *log.Logger // nil discards diagnostics
}

// DefaultParams returns the default assembly settings.
func DefaultParams() Params {
	return Params{
		Categories:            1,
		RealignmentWindowSize: 50,
	}
}

func (p Params) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return p.Logger
}

// Anchor places one end of a contig on the reference. Pos is the anchored base adjacent to
// the breakend and Length is the number of anchored contig bases.
type Anchor struct {
	RefIdx int
	Pos    int
	Length int
}

// Contig is an assembled sequence together with the evidence it was assembled from.
// Start anchors the leading bases of the contig, End the trailing bases. Either may be nil.
type Contig struct {
	Name       string
	Bases      []dna.Base
	Quals      []uint8 // phred, no offset
	Support    []evidence.DirectedEvidence
	BaseCounts []int
	Start      *Anchor
	End        *Anchor
}

// Assembly is an assembled contig reported as breakend evidence.
type Assembly struct {
	record        sam.Sam
	remote        *sam.Sam // anchor at the end of the contig, for breakpoint assemblies
	realignment   *sam.Sam // alignment of the breakend sequence, if known
	originalCigar string   // anchor cigar before realignment
	direction     evidence.Direction
	stats         Stats
	localMapq     int
	filters       []string
	evidenceIDs   []string
	provenance    map[uint64]struct{}
	live          []evidence.DirectedEvidence
	liveIDs       map[string]struct{}
	coord         *linear.Coordinate
	params        Params
}

func appendOp(c []cigar.Cigar, length int, op rune) []cigar.Cigar {
	if length <= 0 {
		return c
	}
	return append(c, cigar.Cigar{RunLength: length, Op: op})
}

func qualString(q []uint8) string {
	s := new(strings.Builder)
	for i := range q {
		s.WriteByte(q[i] + asciiOffset)
	}
	return s.String()
}

// SAM format uses ascii offset of 33 for base qualities
const asciiOffset uint8 = 33

const maxBaseQual uint8 = 93

// Build creates the assembly for c.
func Build(c Contig, coord *linear.Coordinate, params Params) *Assembly {
	a := &Assembly{coord: coord, params: params}
	n := len(c.Bases)
	a.record = sam.Sam{
		QName: c.Name,
		RNext: "*",
		Seq:   c.Bases,
		Qual:  qualString(c.Quals),
	}

	switch {
	case c.Start != nil && c.End != nil:
		a.direction = evidence.Forward
		a.record.RName = coord.Name(c.Start.RefIdx)
		a.record.Pos = uint32(c.Start.Pos - c.Start.Length + 1)
		a.record.Cigar = appendOp(appendOp(nil, c.Start.Length, 'M'), n-c.Start.Length, 'S')
		a.remote = &sam.Sam{
			QName: c.Name,
			RName: coord.Name(c.End.RefIdx),
			Pos:   uint32(c.End.Pos),
			Cigar: appendOp(appendOp(nil, n-c.End.Length, 'S'), c.End.Length, 'M'),
			RNext: "*",
			Seq:   c.Bases,
			Qual:  a.record.Qual,
		}
	case c.Start != nil:
		a.direction = evidence.Forward
		a.record.RName = coord.Name(c.Start.RefIdx)
		a.record.Pos = uint32(c.Start.Pos - c.Start.Length + 1)
		a.record.Cigar = appendOp(appendOp(nil, c.Start.Length, 'M'), n-c.Start.Length, 'S')
	case c.End != nil:
		a.direction = evidence.Backward
		a.record.RName = coord.Name(c.End.RefIdx)
		a.record.Pos = uint32(c.End.Pos)
		a.record.Cigar = appendOp(appendOp(nil, n-c.End.Length, 'S'), c.End.Length, 'M')
	default:
		a.buildUnanchored(c)
	}

	a.evidenceIDs = make([]string, len(c.Support))
	for i := range c.Support {
		a.evidenceIDs[i] = c.Support[i].EvidenceID()
	}
	a.provenance = hashIDs(a.evidenceIDs)
	a.calculateStats(c.Support, c.BaseCounts)
	a.record.MapQ = uint8(numbers.Min(a.localMapq, 255))
	if a.remote != nil {
		a.remote.MapQ = a.record.MapQ
	}
	if a.BreakendLength() == 0 && a.remote == nil {
		a.FilterAssembly(FilterReference)
	}
	return a
}

// buildUnanchored places a contig with no reference support using the breakend interval
// of its evidence. The anchor is padded with N bases aligned as mismatches to the interval.
func (a *Assembly) buildUnanchored(c Contig) {
	var forward, backward int
	for _, e := range c.Support {
		if e.Breakend().Direction == evidence.Forward {
			forward++
		} else {
			backward++
		}
	}
	a.direction = evidence.Forward
	if backward > forward {
		a.direction = evidence.Backward
	}
	var bs evidence.BreakendSummary
	var found bool
	for _, e := range c.Support {
		b := e.Breakend()
		if b.Direction != a.direction {
			continue
		}
		if !found {
			bs, found = b, true
			continue
		}
		if b.RefIdx == bs.RefIdx {
			bs.Start = numbers.Min(bs.Start, b.Start)
			bs.End = numbers.Max(bs.End, b.End)
		}
	}
	if !found {
		bs = evidence.BreakendSummary{RefIdx: -1, Direction: a.direction, Start: 1, End: 1}
	}
	width := bs.End - bs.Start + 1
	filler := make([]dna.Base, width)
	fillerQual := make([]uint8, width)
	for i := range filler {
		filler[i] = dna.N
	}
	n := len(c.Bases)
	a.record.RName = a.coord.Name(bs.RefIdx)
	a.record.Pos = uint32(bs.Start)
	if a.direction == evidence.Forward {
		a.record.Seq = append(filler, c.Bases...)
		a.record.Qual = qualString(append(fillerQual, c.Quals...))
		a.record.Cigar = appendOp(appendOp(nil, width, 'X'), n, 'S')
	} else {
		a.record.Seq = append(append([]dna.Base{}, c.Bases...), filler...)
		a.record.Qual = qualString(append(append([]uint8{}, c.Quals...), fillerQual...))
		a.record.Cigar = appendOp(appendOp(nil, n, 'S'), width, 'X')
	}
}

func (a *Assembly) clone() *Assembly {
	b := *a
	b.record.Cigar = append([]cigar.Cigar{}, a.record.Cigar...)
	b.filters = append([]string{}, a.filters...)
	b.live = nil
	b.liveIDs = nil
	return &b
}

// EvidenceID is the assembly name.
func (a *Assembly) EvidenceID() string {
	return a.record.QName
}

// Direction is the direction of the local breakend.
func (a *Assembly) Direction() evidence.Direction {
	return a.direction
}

// Record returns the alignment record of the assembly, annotated with its attributes.
func (a *Assembly) Record() sam.Sam {
	r := a.record
	r.Extra = a.tags()
	return r
}

// RemoteRecord returns the record anchoring the end of a breakpoint assembly.
func (a *Assembly) RemoteRecord() (sam.Sam, bool) {
	if a.remote == nil {
		return sam.Sam{}, false
	}
	r := *a.remote
	r.Extra = a.tags()
	return r, true
}

// Realignment returns the alignment of the breakend sequence, or nil.
func (a *Assembly) Realignment() *sam.Sam {
	return a.realignment
}

// WithRealignment returns a copy of a whose breakend sequence aligns as r.
func (a *Assembly) WithRealignment(r sam.Sam) *Assembly {
	b := a.clone()
	b.realignment = &r
	return b
}

// IsBreakpoint reports whether both ends of the contig are anchored.
func (a *Assembly) IsBreakpoint() bool {
	return a.remote != nil
}

// IsExact reports whether the breakend position is known to the base.
func (a *Assembly) IsExact() bool {
	for i := range a.record.Cigar {
		if a.record.Cigar[i].Op == 'X' {
			return false
		}
	}
	return true
}

// Breakend derives the breakend from the anchoring alignment.
func (a *Assembly) Breakend() evidence.BreakendSummary {
	refIdx, _ := a.coord.Index(a.record.RName)
	if !a.IsExact() {
		return evidence.BreakendSummary{RefIdx: refIdx, Direction: a.direction, Start: evidence.AlignmentStart(&a.record), End: evidence.AlignmentEnd(&a.record)}
	}
	pos := evidence.AlignmentStart(&a.record)
	if a.direction == evidence.Forward {
		pos = evidence.AlignmentEnd(&a.record)
	}
	return evidence.BreakendSummary{RefIdx: refIdx, Direction: a.direction, Start: pos, End: pos}
}

// Breakpoint joins both anchors of a breakpoint assembly. It returns the zero value otherwise.
func (a *Assembly) Breakpoint() evidence.BreakpointSummary {
	if a.remote == nil {
		return evidence.BreakpointSummary{}
	}
	refIdx, _ := a.coord.Index(a.remote.RName)
	remote := evidence.BreakendSummary{RefIdx: refIdx, Direction: evidence.Backward, Start: int(a.remote.Pos), End: int(a.remote.Pos)}
	return evidence.NewBreakpoint(a.Breakend(), remote)
}

// LocalMapq is the highest mapping quality among the supporting evidence.
func (a *Assembly) LocalMapq() int {
	return a.localMapq
}

// RemoteMapq is the mapping quality of the remote anchor.
func (a *Assembly) RemoteMapq() int {
	if a.remote == nil {
		return 0
	}
	return a.localMapq
}

// Category returns the Category constant.
func (a *Assembly) Category() int {
	return Category
}

// Quality is the breakend quality.
func (a *Assembly) Quality() float64 {
	return a.BreakendQual()
}

func leadingOps(c []cigar.Cigar, op rune) int {
	var ans int
	for i := 0; i < len(c) && c[i].Op == op; i++ {
		ans += c[i].RunLength
	}
	return ans
}

func trailingOps(c []cigar.Cigar, op rune) int {
	var ans int
	for i := len(c) - 1; i >= 0 && c[i].Op == op; i-- {
		ans += c[i].RunLength
	}
	return ans
}

// BreakendLength is the number of contig bases beyond the local anchor.
func (a *Assembly) BreakendLength() int {
	if a.direction == evidence.Forward {
		return trailingOps(a.record.Cigar, 'S')
	}
	return leadingOps(a.record.Cigar, 'S')
}

// anchorBounds returns the contig offsets of the anchor bases, excluding filler.
func (a *Assembly) anchorBounds() (start, end int) {
	n := len(a.record.Seq)
	bl := a.BreakendLength()
	if a.direction == evidence.Forward {
		return leadingOps(a.record.Cigar, 'X'), n - bl
	}
	return bl, n - trailingOps(a.record.Cigar, 'X')
}

// AnchorLength is the number of contig bases anchored to the reference.
func (a *Assembly) AnchorLength() int {
	start, end := a.anchorBounds()
	return end - start
}

// AnchorSequence returns the anchored bases.
func (a *Assembly) AnchorSequence() []dna.Base {
	start, end := a.anchorBounds()
	return a.record.Seq[start:end]
}

// AnchorQuality returns the qualities of the anchored bases.
func (a *Assembly) AnchorQuality() []uint8 {
	start, end := a.anchorBounds()
	return a.quals(start, end)
}

func (a *Assembly) breakendBounds() (start, end int) {
	n := len(a.record.Seq)
	bl := a.BreakendLength()
	if a.direction == evidence.Forward {
		return n - bl, n
	}
	return 0, bl
}

// BreakendSequence returns the bases beyond the anchor.
func (a *Assembly) BreakendSequence() []dna.Base {
	start, end := a.breakendBounds()
	return a.record.Seq[start:end]
}

// BreakendQuality returns the qualities of the bases beyond the anchor.
func (a *Assembly) BreakendQuality() []uint8 {
	start, end := a.breakendBounds()
	return a.quals(start, end)
}

func (a *Assembly) quals(start, end int) []uint8 {
	ans := make([]uint8, end-start)
	if len(a.record.Qual) < end {
		return ans
	}
	for i := start; i < end; i++ {
		ans[i-start] = a.record.Qual[i] - asciiOffset
	}
	return ans
}

// InsertedSequence returns the bases between the two anchors of a breakpoint assembly.
func (a *Assembly) InsertedSequence() []dna.Base {
	if a.remote == nil {
		return a.BreakendSequence()
	}
	start := len(a.record.Seq) - a.BreakendLength()
	end := len(a.record.Seq) - (evidence.AlignmentEnd(a.remote) - int(a.remote.Pos) + 1)
	if end < start {
		return nil
	}
	return a.record.Seq[start:end]
}

// AssemblySequence returns the contig. Filler bases standing in for positional uncertainty are dropped.
func (a *Assembly) AssemblySequence() []dna.Base {
	if a.IsExact() {
		return a.record.Seq
	}
	if a.direction == evidence.Forward {
		return append(append([]dna.Base{}, a.AnchorSequence()...), a.BreakendSequence()...)
	}
	return append(append([]dna.Base{}, a.BreakendSequence()...), a.AnchorSequence()...)
}

// IsReferenceAssembly reports whether the contig matches the reference.
func (a *Assembly) IsReferenceAssembly() bool {
	return a.IsExact() && a.BreakendLength() == 0
}
