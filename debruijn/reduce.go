package debruijn

import (
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/kmer"
	"github.com/vertgenlab/gonomics/dna"
	"log"
	"math"
)

// SupportSizeHardLimit caps the evidence collected for a single contig.
const SupportSizeHardLimit int = 100000

const maxBaseQual int = 93

// collectSupport gathers the evidence of the breakend nodes first..last. Nodes are sampled
// every k positions so a truncated set still draws from the whole breakend.
func collectSupport(nodes []*Node, first, last, k, limit int, logger *log.Logger) []evidence.DirectedEvidence {
	var ans []evidence.DirectedEvidence
	seen := make(map[evidence.DirectedEvidence]struct{})
	add := func(n *Node) bool {
		for _, c := range n.support {
			if _, found := seen[c.Evidence]; found {
				continue
			}
			if len(ans) >= limit {
				logger.Printf("WARNING: assembly support exceeds %d evidence at k-mer %s. Support has been truncated.", limit, n.kmer.String(k))
				return false
			}
			seen[c.Evidence] = struct{}{}
			ans = append(ans, c.Evidence)
		}
		return true
	}
	var i int
	for i = first; i <= last; i += k {
		if !add(nodes[i]) {
			return ans
		}
	}
	if (last-first)%k != 0 {
		add(nodes[last])
	}
	return ans
}

// baseCounts converts the k-mer support of the breakend nodes into base support per category.
func baseCounts(nodes []*Node, first, last, k, categories int, support []evidence.DirectedEvidence) []int {
	ans := make([]int, categories)
	grow := func(c int) {
		for len(ans) <= c {
			ans = append(ans, 0)
		}
	}
	for i := first; i <= last; i++ {
		for c, count := range nodes[i].counts {
			grow(c)
			ans[c] += count
		}
	}
	for _, e := range support {
		if c := e.Category(); c >= 0 {
			grow(c)
			ans[c] += k - 1
		}
	}
	return ans
}

// anchorPosition is the expected linear position of a reference k-mer.
func anchorPosition(n *Node) (float64, bool) {
	if pos, ok := n.ReferencePosition(); ok {
		return pos, true
	}
	return n.ExpectedPosition()
}

// pathBases spells the sequence of a k-mer path. Each base takes its quality from the
// heaviest k-mer covering it.
func pathBases(nodes []*Node, k int) ([]dna.Base, []uint8) {
	if len(nodes) == 0 {
		return nil, nil
	}
	bases := nodes[0].kmer.Bases(k)
	for _, n := range nodes[1:] {
		bases = append(bases, n.kmer.LastBase())
	}
	quals := make([]uint8, len(bases))
	var best int
	for j := range bases {
		best = 0
		for i := j - k + 1; i <= j; i++ {
			if i >= 0 && i < len(nodes) && nodes[i].weight > best {
				best = nodes[i].weight
			}
		}
		if best > maxBaseQual {
			best = maxBaseQual
		}
		quals[j] = uint8(best)
	}
	return bases, quals
}

// reduce turns a path into an assembly. Paths without non-reference k-mers yield nil.
func (a *Assembler) reduce(path []kmer.Kmer) *assembly.Assembly {
	k := a.graph.k
	nodes := make([]*Node, 0, len(path))
	for _, km := range path {
		if n, found := a.graph.nodes[km]; found {
			nodes = append(nodes, n)
		}
	}
	first, last := -1, -1
	for i := range nodes {
		if !nodes[i].IsReference() {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}
	support := collectSupport(nodes, first, last, k, SupportSizeHardLimit, a.logger)
	bases, quals := pathBases(nodes, k)
	contig := assembly.Contig{
		Bases:      bases,
		Quals:      quals,
		Support:    support,
		BaseCounts: baseCounts(nodes, first, last, k, a.cfg.Categories, support),
	}
	if first > 0 {
		if pos, ok := anchorPosition(nodes[first-1]); ok {
			refIdx, p := a.coord.FromLinear(int(math.Round(pos)) + k - 1)
			contig.Start = &assembly.Anchor{RefIdx: refIdx, Pos: p, Length: first + k - 1}
		}
	}
	if last < len(nodes)-1 {
		if pos, ok := anchorPosition(nodes[last+1]); ok {
			refIdx, p := a.coord.FromLinear(int(math.Round(pos)))
			contig.End = &assembly.Anchor{RefIdx: refIdx, Pos: p, Length: len(nodes) - 1 - last + k - 1}
		}
	}
	if contig.Start != nil && contig.End != nil && contig.Start.Length+contig.End.Length > len(bases) {
		contig.End.Length = len(bases) - contig.Start.Length
	}
	contig.Name = a.nextName()
	return assembly.Build(contig, a.coord, a.cfg.Assembly)
}
