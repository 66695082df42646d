package debruijn

import (
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/kmer"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/topo"
	"sort"
)

// Components partitions the graph into connected subgraphs, ordered by their first expected position.
func (g *Graph) Components() [][]kmer.Kmer {
	var ans [][]kmer.Kmer
	var comp []kmer.Kmer
	for _, cc := range topo.ConnectedComponents(g.links) {
		comp = make([]kmer.Kmer, len(cc))
		for i := range cc {
			comp[i] = kmer.Kmer(cc[i].ID())
		}
		slices.Sort(comp)
		ans = append(ans, comp)
	}
	first := make([]int, len(ans))
	for i := range ans {
		first[i] = g.nodes[ans[i][0]].MinPosition()
		for _, km := range ans[i] {
			if p := g.nodes[km].MinPosition(); p < first[i] {
				first[i] = p
			}
		}
	}
	order := make([]int, len(ans))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if first[order[i]] != first[order[j]] {
			return first[order[i]] < first[order[j]]
		}
		return ans[order[i]][0] < ans[order[j]][0]
	})
	sorted := make([][]kmer.Kmer, len(ans))
	for i := range order {
		sorted[i] = ans[order[i]]
	}
	return sorted
}

// bestNeighbour returns the heaviest unvisited neighbour of km in the given direction.
// filter restricts the candidates; ties go to the lower k-mer.
func (g *Graph) bestNeighbour(km kmer.Kmer, dir evidence.Direction, visited map[kmer.Kmer]bool, filter func(*Node) bool) (kmer.Kmer, bool) {
	var best *Node
	for _, next := range g.neighbours(km, dir) {
		n, found := g.nodes[next]
		if !found || visited[next] || (filter != nil && !filter(n)) {
			continue
		}
		if best == nil || n.weight > best.weight || (n.weight == best.weight && n.kmer < best.kmer) {
			best = n
		}
	}
	if best == nil {
		return 0, false
	}
	return best.kmer, true
}

func isReference(n *Node) bool    { return n.IsReference() }
func isNonReference(n *Node) bool { return !n.IsReference() }

// walk greedily extends from km, marking nodes visited. A negative limit is unbounded.
func (g *Graph) walk(km kmer.Kmer, dir evidence.Direction, visited map[kmer.Kmer]bool, filter func(*Node) bool, limit int) []kmer.Kmer {
	var ans []kmer.Kmer
	curr := km
	for limit < 0 || len(ans) < limit {
		next, found := g.bestNeighbour(curr, dir, visited, filter)
		if !found {
			break
		}
		visited[next] = true
		ans = append(ans, next)
		curr = next
	}
	return ans
}

func reversed(s []kmer.Kmer) []kmer.Kmer {
	ans := make([]kmer.Kmer, len(s))
	for i := range s {
		ans[len(s)-1-i] = s[i]
	}
	return ans
}

// anchoredPath walks from a reference k-mer into the breakend through first. The breakend
// ends where the walk returns to the reference, after which the far anchor is extended.
func (g *Graph) anchoredPath(anchor, first kmer.Kmer, dir evidence.Direction, maxAnchor int) (path []kmer.Kmer, score int) {
	visited := map[kmer.Kmer]bool{anchor: true, first: true}
	breakend := []kmer.Kmer{first}
	score = g.nodes[first].weight
	var far []kmer.Kmer
	curr := first
	for {
		next, found := g.bestNeighbour(curr, dir, visited, nil)
		if !found {
			break
		}
		visited[next] = true
		if g.nodes[next].IsReference() {
			far = append([]kmer.Kmer{next}, g.walk(next, dir, visited, isReference, maxAnchor-1)...)
			break
		}
		breakend = append(breakend, next)
		score += g.nodes[next].weight
		curr = next
	}
	near := g.walk(anchor, dir.Flip(), visited, isReference, maxAnchor-1)
	if dir == evidence.Forward {
		path = append(reversed(near), anchor)
		path = append(path, breakend...)
		path = append(path, far...)
	} else {
		path = reversed(far)
		path = append(path, reversed(breakend)...)
		path = append(path, anchor)
		path = append(path, near...)
	}
	return path, score
}

// bestPath returns the heaviest anchored path through comp, or an unanchored path seeded
// from the heaviest non-reference k-mer when nothing is anchored. Only k-mers still in the
// graph are considered.
func (g *Graph) bestPath(comp []kmer.Kmer, maxAnchor int) []kmer.Kmer {
	var best []kmer.Kmer
	var bestScore int = -1
	var seed *Node
	for _, km := range comp {
		n, found := g.nodes[km]
		if !found {
			continue
		}
		if !n.IsReference() {
			if seed == nil || n.weight > seed.weight {
				seed = n
			}
			continue
		}
		for _, dir := range []evidence.Direction{evidence.Forward, evidence.Backward} {
			for _, next := range g.neighbours(km, dir) {
				nn, found := g.nodes[next]
				if !found || nn.IsReference() {
					continue
				}
				path, score := g.anchoredPath(km, next, dir, maxAnchor)
				if score > bestScore || (score == bestScore && len(path) > len(best)) {
					best, bestScore = path, score
				}
			}
		}
	}
	if best != nil || seed == nil {
		return best
	}
	visited := map[kmer.Kmer]bool{seed.kmer: true}
	back := g.walk(seed.kmer, evidence.Backward, visited, isNonReference, -1)
	fwd := g.walk(seed.kmer, evidence.Forward, visited, isNonReference, -1)
	best = append(reversed(back), seed.kmer)
	return append(best, fwd...)
}
