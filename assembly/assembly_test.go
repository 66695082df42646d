package assembly

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/chromInfo"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/sam"
	"log"
	"path/filepath"
	"strings"
	"testing"
)

var testCoord = linear.NewCoordinate([]chromInfo.ChromInfo{
	{Name: "chr1", Size: 10000, Order: 0},
	{Name: "chr2", Size: 10000, Order: 1},
}, 1000)

type testEvidence struct {
	id       string
	breakend evidence.BreakendSummary
	qual     float64
	mapq     int
}

func (e *testEvidence) EvidenceID() string                 { return e.id }
func (e *testEvidence) Breakend() evidence.BreakendSummary { return e.breakend }
func (e *testEvidence) Quality() float64                   { return e.qual }
func (e *testEvidence) LocalMapq() int                     { return e.mapq }
func (e *testEvidence) Category() int                      { return 0 }

// bamRoundTrip writes records to a bam file and reads them back.
func bamRoundTrip(t *testing.T, records ...sam.Sam) []sam.Sam {
	file := filepath.Join(t.TempDir(), "records.bam")
	out := fileio.EasyCreate(file)
	bw := sam.NewBamWriter(out, sam.GenerateHeader(testCoord.Dictionary(), nil, sam.Unsorted, sam.None))
	for i := range records {
		sam.WriteToBamFileHandle(bw, records[i], 0)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	reads, _ := sam.GoReadToChan(file)
	var ans []sam.Sam
	for r := range reads {
		ans = append(ans, r)
	}
	if len(ans) != len(records) {
		t.Fatal("problem reading back bam records", len(ans))
	}
	return ans
}

func forwardAt(pos int) evidence.BreakendSummary {
	return evidence.BreakendSummary{RefIdx: 0, Direction: evidence.Forward, Start: pos, End: pos}
}

func testContig(support []evidence.DirectedEvidence) Contig {
	return Contig{
		Name:       "asm1",
		Bases:      dna.StringToBases("TAAAGTCT"),
		Quals:      []uint8{30, 30, 30, 30, 20, 20, 20, 20},
		Support:    support,
		BaseCounts: []int{12},
		Start:      &Anchor{RefIdx: 0, Pos: 103, Length: 4},
	}
}

func TestForwardAssembly(t *testing.T) {
	a := Build(testContig([]evidence.DirectedEvidence{&testEvidence{id: "e1", breakend: forwardAt(103), qual: 20, mapq: 30}}), testCoord, DefaultParams())
	if cigar.ToString(a.Record().Cigar) != "4M4S" || a.Record().Pos != 100 {
		t.Error("problem with forward assembly record", cigar.ToString(a.Record().Cigar), a.Record().Pos)
	}
	if a.Breakend() != forwardAt(103) || !a.IsExact() {
		t.Error("problem with forward assembly breakend", a.Breakend())
	}
	if dna.BasesToString(a.BreakendSequence()) != "GTCT" || dna.BasesToString(a.AnchorSequence()) != "TAAA" {
		t.Error("problem with sequence slices", dna.BasesToString(a.BreakendSequence()))
	}
	if q := a.BreakendQuality(); len(q) != 4 || q[0] != 20 {
		t.Error("problem with breakend quality", q)
	}
	if a.LocalMapq() != 30 || a.Record().MapQ != 30 {
		t.Error("problem with local mapq", a.LocalMapq())
	}
}

func TestBackwardAssembly(t *testing.T) {
	c := testContig(nil)
	c.Start = nil
	c.End = &Anchor{RefIdx: 1, Pos: 500, Length: 3}
	a := Build(c, testCoord, DefaultParams())
	if cigar.ToString(a.Record().Cigar) != "5S3M" || a.Record().Pos != 500 || a.Record().RName != "chr2" {
		t.Error("problem with backward assembly record", cigar.ToString(a.Record().Cigar))
	}
	if a.Breakend() != (evidence.BreakendSummary{RefIdx: 1, Direction: evidence.Backward, Start: 500, End: 500}) {
		t.Error("problem with backward breakend", a.Breakend())
	}
	if dna.BasesToString(a.BreakendSequence()) != "TAAAG" || a.AnchorLength() != 3 {
		t.Error("problem with backward slices", dna.BasesToString(a.BreakendSequence()))
	}
}

func TestBreakpointAssembly(t *testing.T) {
	c := testContig(nil)
	c.Start = &Anchor{RefIdx: 0, Pos: 103, Length: 3}
	c.End = &Anchor{RefIdx: 1, Pos: 500, Length: 3}
	a := Build(c, testCoord, DefaultParams())
	if !a.IsBreakpoint() {
		t.Fatal("problem with breakpoint assembly")
	}
	bp := a.Breakpoint()
	if bp.Local() != forwardAt(103) || bp.RemoteBreakend() != (evidence.BreakendSummary{RefIdx: 1, Direction: evidence.Backward, Start: 500, End: 500}) {
		t.Error("problem with breakpoint", bp)
	}
	if dna.BasesToString(a.InsertedSequence()) != "AG" {
		t.Error("problem with inserted sequence", dna.BasesToString(a.InsertedSequence()))
	}
	primary, mate := a.PairedRecords()
	if mate.RName != "chr2" || primary.RNext != "chr2" || primary.PNext != 500 || mate.PNext != primary.Pos {
		t.Error("problem pairing breakpoint records", primary.RNext, mate.RName)
	}
}

func TestQualityCap(t *testing.T) {
	var support []evidence.DirectedEvidence
	for i := 0; i < 3; i++ {
		support = append(support, &testEvidence{id: fmt.Sprintf("e%d", i), breakend: forwardAt(103), qual: 100, mapq: 10})
	}
	a := Build(testContig(support), testCoord, DefaultParams())
	if a.BreakendQual() != 30 || a.BreakendQual() > float64(a.LocalMapq()*a.SupportingEvidenceCount()) {
		t.Error("problem with breakend quality cap", a.BreakendQual())
	}

	support = []evidence.DirectedEvidence{
		&testEvidence{id: "s", breakend: forwardAt(103), qual: 5, mapq: 10},
		&testEvidence{id: "n", breakend: forwardAt(400), qual: 5, mapq: 10},
	}
	params := DefaultParams()
	a = Build(testContig(support), testCoord, params)
	if a.Stats().NonSupportingCount[0] != 1 || a.BreakendQual() != 10 {
		t.Error("problem with non-supporting evidence", a.Stats().NonSupportingCount, a.BreakendQual())
	}
	params.ExcludeNonSupportingEvidence = true
	a = Build(testContig(support), testCoord, params)
	if a.BreakendQual() != 5 || a.SupportingEvidenceCount() != 1 {
		t.Error("problem excluding non-supporting evidence", a.BreakendQual())
	}

	c := testContig(support)
	c.Start.Length = 8
	a = Build(c, testCoord, params)
	if a.BreakendQual() != 0 || !a.IsReferenceAssembly() || a.Filters()[0] != FilterReference {
		t.Error("problem with reference assembly", a.BreakendQual(), a.Filters())
	}
}

func TestProvenance(t *testing.T) {
	var support []evidence.DirectedEvidence
	for i := 0; i < 4; i++ {
		support = append(support, &testEvidence{id: fmt.Sprintf("read%d/1", i), breakend: forwardAt(103), qual: 10, mapq: 20})
	}
	buf := new(bytes.Buffer)
	params := DefaultParams()
	params.Logger = log.New(buf, "", 0)
	a := Build(testContig(support), testCoord, params)
	other := &testEvidence{id: "unrelated/2", breakend: forwardAt(103)}
	if a.IsPartOfAssemblyBreakend(other) {
		t.Error("problem with provenance membership")
	}
	a.HydrateEvidenceSet(other)
	for _, e := range support[:3] {
		a.HydrateEvidenceSet(e)
	}
	if len(a.Evidence()) != 3 || !strings.Contains(buf.String(), "read3/1") {
		t.Error("problem logging partial hydration", buf.String())
	}
	buf.Reset()
	a.HydrateEvidenceSet(support[3])
	a.HydrateEvidenceSet(support[3])
	live := a.Evidence()
	if len(live) != 4 || buf.Len() != 0 {
		t.Error("problem with full hydration", len(live), buf.String())
	}
	for i := range live {
		if live[i].EvidenceID() != a.EvidenceIDs()[i] {
			t.Error("problem with hydrated evidence", live[i].EvidenceID())
		}
	}
}

func TestFilters(t *testing.T) {
	a := Build(testContig(nil), testCoord, DefaultParams())
	a.FilterAssembly(FilterLowComplexity)
	a.FilterAssembly(FilterLowComplexity)
	a.FilterAssembly(FilterNoSupport)
	if len(a.Filters()) != 2 {
		t.Error("problem with filter idempotence", a.Filters())
	}
	value, found := tagString(bamRoundTrip(t, a.Record())[0], TagFilters)
	if !found || value != "LOW_COMPLEXITY,NO_SUPPORT" {
		t.Error("problem with filter tag", value)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	support := []evidence.DirectedEvidence{
		&testEvidence{id: "a/1", breakend: forwardAt(103), qual: 10, mapq: 20},
		&testEvidence{id: "b/2", breakend: forwardAt(103), qual: 12, mapq: 20},
	}
	a := Build(testContig(support), testCoord, DefaultParams())
	a.FilterAssembly(FilterLowComplexity)
	r := bamRoundTrip(t, a.Record())[0]
	if ids, _ := tagString(r, TagEvidenceIDs); ids != "a/1 b/2" {
		t.Error("problem with evidence id tag", ids)
	}
	if dir, _ := tagString(r, TagDirection); dir != "f" {
		t.Error("problem with direction tag", dir)
	}
	b, err := FromRecord(r, testCoord, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if b.Breakend() != a.Breakend() || b.BreakendQual() != a.BreakendQual() || b.Filters()[0] != FilterLowComplexity {
		t.Error("problem restoring assembly", b.Breakend(), b.BreakendQual())
	}
	if !b.IsPartOfAssemblyBreakend(support[1]) {
		t.Error("problem restoring provenance")
	}

	// a rebuilt assembly writes its current attributes, not those it was read with
	b.FilterAssembly(FilterNoSupport)
	if value, _ := tagString(bamRoundTrip(t, b.Record())[0], TagFilters); value != "LOW_COMPLEXITY,NO_SUPPORT" {
		t.Error("problem with filters of rebuilt assembly", value)
	}

	if _, err = FromRecord(a.Record(), testCoord, DefaultParams()); err == nil {
		t.Error("problem rejecting record not decoded from bam")
	}
	untagged := sam.Sam{QName: "x", RName: "chr1", Pos: 100, Cigar: cigar.FromString("4M"), RNext: "*", Seq: dna.StringToBases("ACGT"), Qual: "IIII"}
	if _, err = FromRecord(bamRoundTrip(t, untagged)[0], testCoord, DefaultParams()); err == nil {
		t.Error("problem rejecting records without assembly tags")
	}
}

func TestPlaceholderMate(t *testing.T) {
	a := Build(testContig(nil), testCoord, DefaultParams())
	before := a.Record()
	primary, mate := a.PairedRecords()
	if mate.Flag&0x4 == 0 || mate.RName != "chr1" || mate.Pos != primary.Pos || dna.BasesToString(mate.Seq) != "GTCT" {
		t.Error("problem with placeholder mate", mate.Flag, mate.RName, mate.Pos)
	}
	if primary.Flag&0x8 == 0 || primary.Flag&0x40 == 0 || mate.Flag&0x80 == 0 || primary.RNext != "=" {
		t.Error("problem with pair flags", primary.Flag, mate.Flag)
	}
	primary.Seq[0] = dna.G
	after := a.Record()
	if after.Flag != before.Flag || after.Seq[0] != dna.T {
		t.Error("problem with paired records sharing assembly state")
	}
}

type fakeReference struct{}

func (fakeReference) Subsequence(name string, start, end int) ([]dna.Base, error) {
	return dna.StringToBases(strings.Repeat("c", end-start+1)), nil
}
func (fakeReference) SequenceLength(name string) (int, error) { return 10000, nil }
func (fakeReference) Dictionary() []chromInfo.ChromInfo       { return testCoord.Dictionary() }

type fakeAligner struct {
	aln       Alignment
	reference []dna.Base
}

func (f *fakeAligner) Align(query, reference []dna.Base) Alignment {
	f.reference = reference
	return f.aln
}

func TestRealign(t *testing.T) {
	a := Build(testContig(nil), testCoord, DefaultParams())
	aligner := &fakeAligner{aln: Alignment{Cigar: cigar.FromString("4M4S"), Offset: 50}}
	b, err := a.Realign(fakeReference{}, aligner)
	if err != nil || b != a {
		t.Error("problem with unchanged realignment", err)
	}
	if len(aligner.reference) != 50+4+50+4 || aligner.reference[0] != dna.C {
		t.Error("problem with realignment window", len(aligner.reference))
	}

	aligner.aln = Alignment{Cigar: cigar.FromString("6M2S"), Offset: 50}
	b, err = a.Realign(fakeReference{}, aligner)
	if err != nil {
		t.Fatal(err)
	}
	if b == a || cigar.ToString(b.Record().Cigar) != "6M2S" || cigar.ToString(a.Record().Cigar) != "4M4S" {
		t.Error("problem with realigned cigar", cigar.ToString(b.Record().Cigar))
	}
	if oc, found := tagString(bamRoundTrip(t, b.Record())[0], TagOriginalCigar); !found || oc != "4M4S" {
		t.Error("problem with original cigar tag", oc)
	}
	if b.EvidenceID() != "asm1_r" || b.BreakendLength() != 2 || b.Breakend().Start != 105 {
		t.Error("problem with realigned assembly", b.EvidenceID(), b.Breakend())
	}

	c := testContig(nil)
	c.Start = nil
	unanchored := Build(c, testCoord, DefaultParams())
	if _, err = unanchored.Realign(fakeReference{}, aligner); !errors.Is(err, ErrRealignInexact) {
		t.Error("problem rejecting inexact realignment", err)
	}
	c = testContig(nil)
	c.Start.Length = 3
	c.End = &Anchor{RefIdx: 1, Pos: 500, Length: 3}
	if _, err = Build(c, testCoord, DefaultParams()).Realign(fakeReference{}, aligner); !errors.Is(err, ErrRealignBreakpoint) {
		t.Error("problem rejecting breakpoint realignment", err)
	}
}

func TestRealignBreakend(t *testing.T) {
	a := Build(testContig(nil), testCoord, DefaultParams())
	aligner := &fakeAligner{aln: Alignment{Cigar: cigar.FromString("4M"), Offset: 20}}
	b, err := a.RealignBreakend(fakeReference{}, aligner)
	if err != nil {
		t.Fatal(err)
	}
	if len(aligner.reference) != 2*(50+4)+1 || dna.BasesToString(aligner.reference[:2]) != "CC" {
		t.Error("problem with breakend realignment window", len(aligner.reference))
	}
	if b == a || a.Realignment() != nil || b.Realignment() == nil {
		t.Fatal("problem attaching breakend realignment")
	}
	if r := b.Realignment(); r.Pos != 103-54+20 || cigar.ToString(r.Cigar) != "4M" || dna.BasesToString(r.Seq) != "GTCT" {
		t.Error("problem with breakend realignment record", r.Pos, cigar.ToString(r.Cigar))
	}
	primary, mate := b.PairedRecords()
	if mate.Flag&0x4 != 0 || mate.Flag&0x80 == 0 || mate.RName != "chr1" || mate.Pos != 69 || mate.QName != "asm1" {
		t.Error("problem with realigned mate", mate.Flag, mate.RName, mate.Pos)
	}
	if primary.RNext != "=" || primary.PNext != 69 || primary.Flag&0x8 != 0 || mate.PNext != primary.Pos {
		t.Error("problem pairing realigned mate", primary.RNext, primary.PNext, primary.Flag)
	}

	aligner.aln = Alignment{Cigar: cigar.FromString("2S2M"), Offset: 0}
	if b, err = a.RealignBreakend(fakeReference{}, aligner); err != nil || b != a {
		t.Error("problem ignoring partial breakend realignment", err)
	}
}
