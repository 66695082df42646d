package debruijn

import (
	"bytes"
	"fmt"
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/chromInfo"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/sam"
	"log"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
)

var testCoord = linear.NewCoordinate([]chromInfo.ChromInfo{
	{Name: "chr1", Size: 10000, Order: 0},
	{Name: "chr2", Size: 10000, Order: 1},
}, 1000)

func newRead(name, chr string, pos uint32, cig, seq string, flag uint16) *sam.Sam {
	return &sam.Sam{
		QName: name,
		Flag:  flag,
		MapQ:  40,
		RName: chr,
		Pos:   pos,
		Cigar: cigar.FromString(cig),
		RNext: "*",
		Seq:   dna.StringToBases(seq),
		Qual:  strings.Repeat("I", len(seq)),
	}
}

// fromBam writes r with the given optional fields to a bam file and reads it back.
func fromBam(t *testing.T, r *sam.Sam, extra string) *sam.Sam {
	r.Extra = extra
	file := filepath.Join(t.TempDir(), "read.bam")
	out := fileio.EasyCreate(file)
	bw := sam.NewBamWriter(out, sam.GenerateHeader(testCoord.Dictionary(), nil, sam.Unsorted, sam.None))
	sam.WriteToBamFileHandle(bw, *r, 0)
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	reads, _ := sam.GoReadToChan(file)
	var ans []sam.Sam
	for read := range reads {
		ans = append(ans, read)
	}
	if len(ans) != 1 {
		t.Fatal("problem reading back bam record", len(ans))
	}
	return &ans[0]
}

func softClip(t *testing.T, name, chr string, pos uint32, cig, seq string, dir evidence.Direction) evidence.DirectedEvidence {
	refIdx, _ := testCoord.Index(chr)
	e := evidence.NewSoftClip(newRead(name, chr, pos, cig, seq, 0), refIdx, dir, 0)
	if e == nil {
		t.Fatalf("problem building soft clip %s", name)
	}
	return e
}

// oneEndAnchored places the unmapped mate sequence mateSeq beside a 20 base anchor.
func oneEndAnchored(name string, pos uint32, localNegative bool, mateSeq string) evidence.DirectedEvidence {
	var flag uint16 = 0x1 | 0x8 | 0x40
	if localNegative {
		flag |= 0x10
	}
	local := newRead(name, "chr1", pos, "20M", strings.Repeat("A", 20), flag)
	mate := newRead(name, "*", 0, "*", mateSeq, 0x1|0x4|0x80)
	mate.Cigar = nil
	return evidence.NewOneEndAnchored(local, mate, 0, 0, 500)
}

func assemble(cfg Config, ev []evidence.DirectedEvidence) []*assembly.Assembly {
	asm := NewAssembler(testCoord, cfg)
	var ans []*assembly.Assembly
	for _, e := range ev {
		ans = append(ans, asm.AddEvidence(e)...)
	}
	return append(ans, asm.EndOfEvidence()...)
}

func TestAnchorAtReferenceKmer(t *testing.T) {
	var ev []evidence.DirectedEvidence
	for _, chr := range []string{"chr1", "chr2"} {
		for i := 0; i < 2; i++ {
			ev = append(ev, softClip(t, fmt.Sprintf("%s_a%d", chr, i), chr, 100, "4M3S", "TAAAGTC", evidence.Forward))
		}
		for i := 0; i < 2; i++ {
			ev = append(ev, softClip(t, fmt.Sprintf("%s_b%d", chr, i), chr, 101, "3M4S", "AAAGTCT", evidence.Forward))
		}
	}
	cfg := DefaultConfig()
	cfg.K = 3
	out := assemble(cfg, ev)
	if len(out) != 2 {
		t.Fatalf("problem with assembly count: %d", len(out))
	}
	for i, a := range out {
		if dna.BasesToString(a.AssemblySequence()) != "TAAAGTCT" {
			t.Error("problem with assembled sequence", dna.BasesToString(a.AssemblySequence()))
		}
		if a.BreakendLength() != 4 || a.AnchorLength() != 4 {
			t.Error("problem with anchoring", a.AnchorLength(), a.BreakendLength())
		}
		expected := evidence.BreakendSummary{RefIdx: i, Direction: evidence.Forward, Start: 103, End: 103}
		if a.Breakend() != expected {
			t.Error("problem with assembly breakend", a.Breakend())
		}
		if len(a.EvidenceIDs()) != 4 {
			t.Error("problem with assembly provenance", a.EvidenceIDs())
		}
	}
	if out[0].EvidenceID() == out[1].EvidenceID() {
		t.Error("problem with assembly names")
	}
}

func TestAnchorWithReadPair(t *testing.T) {
	ev := []evidence.DirectedEvidence{
		oneEndAnchored("pair", 50, false, dna.BasesToString(dna.ReverseComplementAndCopy(dna.StringToBases("TAAAGTC")))),
		softClip(t, "clip", "chr1", 100, "3M1S", "TAAT", evidence.Forward),
	}
	cfg := DefaultConfig()
	cfg.K = 3
	out := assemble(cfg, ev)
	if len(out) != 1 {
		t.Fatalf("problem with assembly count: %d", len(out))
	}
	if out[0].AnchorLength() != 3 {
		t.Error("problem with anchor length", out[0].AnchorLength())
	}
	if out[0].Breakend().Start != 102 {
		t.Error("problem with anchor position", out[0].Breakend())
	}
}

func TestBackwardAnchor(t *testing.T) {
	ev := []evidence.DirectedEvidence{
		softClip(t, "clip", "chr1", 1, "6S4M", "TTGCTCAAAA", evidence.Backward),
	}
	for i := 0; i < 3; i++ {
		ev = append(ev, oneEndAnchored(fmt.Sprintf("mate%d", i), 300, true, "TGCTG"))
	}
	cfg := DefaultConfig()
	cfg.K = 4
	out := assemble(cfg, ev)
	if len(out) != 1 {
		t.Fatalf("problem with assembly count: %d", len(out))
	}
	a := out[0]
	if dna.BasesToString(a.AssemblySequence()) != "TTGCTCAAAA" {
		t.Error("problem with assembled sequence", dna.BasesToString(a.AssemblySequence()))
	}
	if a.Breakend().Start != 1 || a.Breakend().Direction != evidence.Backward {
		t.Error("problem with breakend", a.Breakend())
	}
	if a.AnchorLength() != 4 {
		t.Error("problem with anchor length", a.AnchorLength())
	}
}

func TestLongKmer(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seq := make([]byte, 200)
	for i := range seq {
		seq[i] = "ACGT"[rng.Intn(4)]
	}
	cfg := DefaultConfig()
	cfg.K = 32
	out := assemble(cfg, []evidence.DirectedEvidence{softClip(t, "r", "chr1", 1000, "100M100S", string(seq), evidence.Forward)})
	if len(out) != 1 {
		t.Fatalf("problem with assembly count: %d", len(out))
	}
	if len(out[0].BreakendSequence()) != 100 || len(out[0].AssemblySequence()) != 200 {
		t.Error("problem with long kmer assembly", len(out[0].BreakendSequence()), len(out[0].AssemblySequence()))
	}
	if dna.BasesToString(out[0].AssemblySequence()) != string(seq) {
		t.Error("problem with long kmer sequence")
	}
	if out[0].Breakend().Start != 1099 {
		t.Error("problem with long kmer breakend", out[0].Breakend())
	}
}

type nodeState struct {
	weight  int
	counts  []int
	support []Contribution
}

func snapshot(g *Graph) map[uint64]nodeState {
	ans := make(map[uint64]nodeState)
	for _, km := range g.Kmers() {
		n, _ := g.Node(km)
		ans[uint64(km)] = nodeState{
			weight:  n.Weight(),
			counts:  append([]int{}, n.Counts()...),
			support: append([]Contribution{}, n.Support()...),
		}
	}
	return ans
}

func sameState(a, b map[uint64]nodeState) bool {
	if len(a) != len(b) {
		return false
	}
	for km, sa := range a {
		sb, found := b[km]
		if !found || sa.weight != sb.weight || len(sa.support) != len(sb.support) {
			return false
		}
		for i := range sa.support {
			if sa.support[i] != sb.support[i] {
				return false
			}
		}
		for i := range sa.counts {
			if i >= len(sb.counts) || sa.counts[i] != sb.counts[i] {
				return false
			}
		}
		for i := len(sa.counts); i < len(sb.counts); i++ {
			if sb.counts[i] != 0 {
				return false
			}
		}
	}
	return true
}

func TestAddRemoveCancellation(t *testing.T) {
	g := NewGraph(4, testCoord, false)
	e1 := softClip(t, "r1", "chr1", 100, "6M4S", "ACGTACGGTTCA", evidence.Forward)
	e2 := softClip(t, "r2", "chr1", 100, "5M5S", "ACGTATTGCAGG", evidence.Forward)
	e3 := oneEndAnchored("p", 50, false, "ACGTACNGTTAC")
	if g.AddEvidence(e1) == 0 {
		t.Fatal("problem adding evidence")
	}
	before := snapshot(g)
	for _, e := range []evidence.DirectedEvidence{e2, e3} {
		g.AddEvidence(e)
		g.RemoveEvidence(e)
		if !sameState(before, snapshot(g)) {
			t.Error("problem with add/remove cancellation", e.EvidenceID())
		}
	}
	g.RemoveEvidence(e1)
	if g.Len() != 0 {
		t.Error("problem with node eviction", g.Len())
	}
	g.RemoveEvidence(e1)
	if g.Len() != 0 {
		t.Error("problem with removal from empty graph")
	}
}

func TestAmbiguousKmers(t *testing.T) {
	g := NewGraph(4, testCoord, false)
	e := oneEndAnchored("p", 50, false, "ACGTANGTTAC")
	if n := len(g.Decompose(e)); n != 4 {
		t.Error("problem skipping ambiguous kmers", n)
	}
	short := oneEndAnchored("q", 50, false, "ACG")
	if g.AddEvidence(short) != 0 || g.Len() != 0 {
		t.Error("problem with evidence shorter than k")
	}
}

func TestRemoteSoftClipPolicy(t *testing.T) {
	r := fromBam(t, newRead("r1", "chr1", 100, "60M40S", strings.Repeat("ACGTTGCA", 12)+"ACGT", 0), "SA:Z:chr2,500,+,60S40M,60,0;")
	splits, err := evidence.NewSplitReads(r, 0, testCoord.Index, 0, false)
	if err != nil || len(splits) != 1 {
		t.Fatal("problem building split read", err)
	}
	remote := evidence.NewRemote(splits[0])
	if len(NewGraph(25, testCoord, false).Decompose(remote)) != 0 {
		t.Error("problem excluding remote soft clips")
	}
	if len(NewGraph(25, testCoord, true).Decompose(remote)) == 0 {
		t.Error("problem including remote soft clips")
	}
}

func TestUnanchoredAssembly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.K = 5
	e := oneEndAnchored("p", 1000, false, "ACGTTGCATGCAAGT")
	out := assemble(cfg, []evidence.DirectedEvidence{e})
	if len(out) != 1 {
		t.Fatalf("problem with assembly count: %d", len(out))
	}
	if out[0].IsExact() {
		t.Error("problem with unanchored assembly exactness")
	}
	if out[0].Breakend() != e.Breakend() {
		t.Error("problem with unanchored breakend", out[0].Breakend(), e.Breakend())
	}
	if len(out[0].AssemblySequence()) != 15 {
		t.Error("problem with unanchored sequence", dna.BasesToString(out[0].AssemblySequence()))
	}
}

func TestSupportTruncation(t *testing.T) {
	g := NewGraph(3, testCoord, false)
	for i := 0; i < 5; i++ {
		g.AddEvidence(oneEndAnchored(fmt.Sprintf("p%d", i), 50, false, "ACGTTGCA"))
	}
	var nodes []*Node
	for _, km := range g.Kmers() {
		n, _ := g.Node(km)
		nodes = append(nodes, n)
	}
	buf := new(bytes.Buffer)
	support := collectSupport(nodes, 0, len(nodes)-1, 3, 2, log.New(buf, "", 0))
	if len(support) != 2 {
		t.Error("problem with support limit", len(support))
	}
	if !strings.Contains(buf.String(), "WARNING") {
		t.Error("problem logging support truncation", buf.String())
	}
	buf.Reset()
	support = collectSupport(nodes, 0, len(nodes)-1, 3, SupportSizeHardLimit, log.New(buf, "", 0))
	if len(support) != 5 || buf.Len() != 0 {
		t.Error("problem with untruncated support", len(support))
	}
}

func TestWindowEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.K = 3
	asm := NewAssembler(testCoord, cfg)
	if out := asm.AddEvidence(softClip(t, "a", "chr1", 100, "4M3S", "TAAAGTC", evidence.Forward)); len(out) != 0 {
		t.Error("problem with premature flush")
	}
	out := asm.AddEvidence(softClip(t, "b", "chr1", 5000, "4M3S", "TAAAGTC", evidence.Forward))
	if len(out) != 1 || out[0].Breakend().Start != 103 {
		t.Error("problem with windowed flush", len(out))
	}
	if asm.Graph().Len() == 0 {
		t.Error("problem retaining evidence inside the window")
	}
	out = asm.EndOfEvidence()
	if len(out) != 1 || asm.Graph().Len() != 0 {
		t.Error("problem with end of evidence", len(out), asm.Graph().Len())
	}
}

// malformed reports a breakend interval that ends before it starts.
type malformed struct {
	evidence.DirectedEvidence
}

func (m malformed) Breakend() evidence.BreakendSummary {
	b := m.DirectedEvidence.Breakend()
	b.Start, b.End = b.End+10, b.Start
	return b
}

func TestMalformedBreakend(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.K = 4
	cfg.Logger = log.New(&buf, "", 0)
	asm := NewAssembler(testCoord, cfg)
	e := malformed{softClip(t, "r1", "chr1", 100, "6M4S", "ACGTACGGTT", evidence.Forward)}
	if ans := asm.AddEvidence(e); ans != nil || asm.Graph().Len() != 0 {
		t.Error("problem skipping malformed breakend", asm.Graph().Len())
	}
	if !strings.Contains(buf.String(), "malformed breakend") {
		t.Error("problem logging malformed breakend", buf.String())
	}
}

func TestComponentLinks(t *testing.T) {
	g := NewGraph(4, testCoord, false)
	left := oneEndAnchored("a", 1000, true, "ACGTTGCA")
	right := oneEndAnchored("b", 1000, true, "CCATGGAT")
	g.AddEvidence(left)
	g.AddEvidence(right)
	if n := len(g.Components()); n != 2 {
		t.Fatal("problem with disjoint subgraphs", n)
	}
	bridge := oneEndAnchored("c", 1000, true, "TGCACCAT")
	g.AddEvidence(bridge)
	if n := len(g.Components()); n != 1 {
		t.Error("problem joining subgraphs", n)
	}
	g.RemoveEvidence(bridge)
	comps := g.Components()
	if len(comps) != 2 {
		t.Fatal("problem splitting subgraphs", len(comps))
	}
	var total int
	for _, comp := range comps {
		total += len(comp)
		for _, km := range comp {
			if _, found := g.nodes[km]; !found {
				t.Error("problem with evicted kmer in subgraph", km)
			}
		}
	}
	if total != g.Len() {
		t.Error("problem with subgraph membership", total, g.Len())
	}
	g.RemoveEvidence(left)
	g.RemoveEvidence(right)
	if len(g.Components()) != 0 {
		t.Error("problem with empty graph", g.Components())
	}
}
