// Package debruijn assembles breakend contigs from a coordinate ordered stream of evidence
// using a windowed de Bruijn graph of k-mers.
package debruijn

import (
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/kmer"
	"github.com/dasnellings/svAssembly/linear"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"
)

// Contribution is the support one piece of evidence gives one k-mer.
type Contribution struct {
	Evidence  evidence.DirectedEvidence
	Weight    int
	Position  int // expected linear position of the first base of the k-mer
	Reference bool
}

// Node aggregates every contribution to a k-mer.
type Node struct {
	kmer     kmer.Kmer
	weight   int
	counts   []int
	support  []Contribution
	refCount int
}

func (n *Node) Kmer() kmer.Kmer         { return n.kmer }
func (n *Node) Weight() int             { return n.weight }
func (n *Node) Counts() []int           { return n.counts }
func (n *Node) Support() []Contribution { return n.support }

// IsReference reports whether any evidence places the k-mer on the reference.
func (n *Node) IsReference() bool {
	return n.refCount > 0
}

func (n *Node) meanPosition(referenceOnly bool) (float64, bool) {
	var x, w []float64
	for _, c := range n.support {
		if referenceOnly && !c.Reference {
			continue
		}
		x = append(x, float64(c.Position))
		w = append(w, float64(c.Weight))
	}
	if len(x) == 0 {
		return 0, false
	}
	return stat.Mean(x, w), true
}

// ExpectedPosition is the weighted mean linear position of all contributions.
func (n *Node) ExpectedPosition() (float64, bool) {
	return n.meanPosition(false)
}

// ReferencePosition is the weighted mean linear position of the reference contributions.
func (n *Node) ReferencePosition() (float64, bool) {
	return n.meanPosition(true)
}

// MaxPosition is the furthest linear position any contribution expects.
func (n *Node) MaxPosition() int {
	var ans int
	for i, c := range n.support {
		if i == 0 || c.Position > ans {
			ans = c.Position
		}
	}
	return ans
}

// MinPosition is the nearest linear position any contribution expects.
func (n *Node) MinPosition() int {
	var ans int
	for i, c := range n.support {
		if i == 0 || c.Position < ans {
			ans = c.Position
		}
	}
	return ans
}

// Graph maps k-mers to the evidence supporting them. It is not safe for concurrent use.
type Graph struct {
	k                      int
	coord                  *linear.Coordinate
	includeRemoteSoftClips bool
	nodes                  map[kmer.Kmer]*Node
	links                  *simple.UndirectedGraph // adjacency of the k-mers in nodes, keyed by k-mer value
}

// NewGraph returns an empty graph of k-mers of length k.
func NewGraph(k int, coord *linear.Coordinate, includeRemoteSoftClips bool) *Graph {
	return &Graph{
		k:                      k,
		coord:                  coord,
		includeRemoteSoftClips: includeRemoteSoftClips,
		nodes:                  make(map[kmer.Kmer]*Node),
		links:                  simple.NewUndirectedGraph(),
	}
}

// K is the k-mer length.
func (g *Graph) K() int {
	return g.k
}

// Len is the number of k-mers in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node for km.
func (g *Graph) Node(km kmer.Kmer) (*Node, bool) {
	n, found := g.nodes[km]
	return n, found
}

// Kmers returns every k-mer in the graph in ascending order.
func (g *Graph) Kmers() []kmer.Kmer {
	ans := make([]kmer.Kmer, 0, len(g.nodes))
	for km := range g.nodes {
		ans = append(ans, km)
	}
	slices.Sort(ans)
	return ans
}

// Add merges c into the node for km.
func (g *Graph) Add(km kmer.Kmer, c Contribution) {
	n, found := g.nodes[km]
	if !found {
		n = &Node{kmer: km}
		g.nodes[km] = n
		g.link(km)
	}
	n.weight += c.Weight
	category := c.Evidence.Category()
	if category >= 0 {
		for len(n.counts) <= category {
			n.counts = append(n.counts, 0)
		}
		n.counts[category]++
	}
	if c.Reference {
		n.refCount++
	}
	n.support = append(n.support, c)
}

// Remove subtracts a contribution previously passed to Add. Nodes left without support are evicted.
func (g *Graph) Remove(km kmer.Kmer, c Contribution) {
	n, found := g.nodes[km]
	if !found {
		return
	}
	i := slices.Index(n.support, c)
	if i < 0 {
		return
	}
	n.support = slices.Delete(n.support, i, i+1)
	n.weight -= c.Weight
	category := c.Evidence.Category()
	if category >= 0 && category < len(n.counts) {
		n.counts[category]--
	}
	if c.Reference {
		n.refCount--
	}
	if len(n.support) == 0 {
		delete(g.nodes, km)
		g.links.RemoveNode(int64(km))
	}
}

// link connects a new k-mer to the k-mers already in the graph that overlap it by k-1 bases.
func (g *Graph) link(km kmer.Kmer) {
	g.links.AddNode(simple.Node(int64(km)))
	for _, adj := range [2][4]kmer.Kmer{km.Successors(g.k), km.Predecessors(g.k)} {
		for _, other := range adj {
			if _, found := g.nodes[other]; found && other != km {
				g.links.SetEdge(simple.Edge{F: simple.Node(int64(km)), T: simple.Node(int64(other))})
			}
		}
	}
}

// AddEvidence adds every k-mer of e and returns the number added.
func (g *Graph) AddEvidence(e evidence.DirectedEvidence) int {
	kmers := g.Decompose(e)
	for i := range kmers {
		g.Add(kmers[i].Kmer, kmers[i].Contribution)
	}
	return len(kmers)
}

// RemoveEvidence removes every k-mer added by AddEvidence(e).
func (g *Graph) RemoveEvidence(e evidence.DirectedEvidence) {
	kmers := g.Decompose(e)
	for i := range kmers {
		g.Remove(kmers[i].Kmer, kmers[i].Contribution)
	}
}

func (g *Graph) neighbours(km kmer.Kmer, dir evidence.Direction) [4]kmer.Kmer {
	if dir == evidence.Forward {
		return km.Successors(g.k)
	}
	return km.Predecessors(g.k)
}
