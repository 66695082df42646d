package debruijn

import (
	"fmt"
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/kmer"
	"github.com/dasnellings/svAssembly/linear"
	"io"
	"log"
	"math"
)

// Config holds the assembly settings.
type Config struct {
	K                      int
	MaxFragmentSize        int
	WindowSize             int // evidence further than this behind the newest evidence is assembled and evicted
	MaxAnchorKmers         int
	IncludeRemoteSoftClips bool
	Categories             int
	Assembly               assembly.Params
	Logger                 *log.Logger // nil discards diagnostics
}

// DefaultConfig returns the default assembly settings.
func DefaultConfig() Config {
	return Config{
		K:               25,
		MaxFragmentSize: 500,
		WindowSize:      1000,
		MaxAnchorKmers:  300,
		Categories:      1,
		Assembly:        assembly.DefaultParams(),
	}
}

// Assembler builds contigs from evidence arriving in coordinate order. Memory is bounded by
// assembling and evicting each connected subgraph once the scan has moved a window past it.
type Assembler struct {
	cfg       Config
	coord     *linear.Coordinate
	graph     *Graph
	logger    *log.Logger
	started   bool
	nextFlush int
	count     int
}

// NewAssembler returns an Assembler over the references of coord.
func NewAssembler(coord *linear.Coordinate, cfg Config) *Assembler {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 2 * cfg.MaxFragmentSize
	}
	if cfg.MaxAnchorKmers <= 0 {
		cfg.MaxAnchorKmers = math.MaxInt32
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.Assembly.Logger == nil {
		cfg.Assembly.Logger = cfg.Logger
	}
	if cfg.Assembly.Categories < cfg.Categories {
		cfg.Assembly.Categories = cfg.Categories
	}
	return &Assembler{
		cfg:    cfg,
		coord:  coord,
		graph:  NewGraph(cfg.K, coord, cfg.IncludeRemoteSoftClips),
		logger: logger,
	}
}

// Graph exposes the underlying k-mer graph.
func (a *Assembler) Graph() *Graph {
	return a.graph
}

func (a *Assembler) nextName() string {
	a.count++
	return fmt.Sprintf("asm%d", a.count)
}

// AddEvidence adds e to the graph, first assembling any subgraph the scan has moved past.
// Evidence with a malformed breakend is skipped.
func (a *Assembler) AddEvidence(e evidence.DirectedEvidence) []*assembly.Assembly {
	var ans []*assembly.Assembly
	b := e.Breakend()
	if !b.Valid() {
		a.logger.Printf("WARNING: skipping %s with malformed breakend %s", e.EvidenceID(), b)
		return nil
	}
	pos := a.coord.ToLinear(b.RefIdx, b.Start)
	if !a.started || pos >= a.nextFlush {
		ans = a.flush(pos - a.cfg.WindowSize)
		a.nextFlush = pos + a.cfg.WindowSize/2
		a.started = true
	}
	a.graph.AddEvidence(e)
	return ans
}

// EndOfEvidence assembles everything remaining in the graph.
func (a *Assembler) EndOfEvidence() []*assembly.Assembly {
	return a.flush(math.MaxInt)
}

// flush assembles every subgraph whose k-mers all lie before position.
func (a *Assembler) flush(position int) []*assembly.Assembly {
	var ans []*assembly.Assembly
	var done bool
	for _, comp := range a.graph.Components() {
		done = true
		for _, km := range comp {
			// evidence spanning two subgraphs may already have been evicted with an earlier one
			n, found := a.graph.nodes[km]
			if found && n.MaxPosition() >= position {
				done = false
				break
			}
		}
		if done {
			ans = append(ans, a.assembleComponent(comp)...)
		}
	}
	return ans
}

// assembleComponent repeatedly assembles the best path of the subgraph and removes the
// evidence of that path until no breakend k-mer remains. All remaining evidence is then evicted.
func (a *Assembler) assembleComponent(comp []kmer.Kmer) []*assembly.Assembly {
	var ans []*assembly.Assembly
	for {
		path := a.graph.bestPath(comp, a.cfg.MaxAnchorKmers)
		if len(path) == 0 {
			break
		}
		if asm := a.reduce(path); asm != nil {
			ans = append(ans, asm)
		}
		a.removeAll(a.evidenceOf(path))
	}
	a.removeAll(a.evidenceOf(comp))
	return ans
}

// evidenceOf returns the evidence contributing to any of kmers, in first seen order.
func (a *Assembler) evidenceOf(kmers []kmer.Kmer) []evidence.DirectedEvidence {
	var ans []evidence.DirectedEvidence
	seen := make(map[evidence.DirectedEvidence]struct{})
	for _, km := range kmers {
		n, found := a.graph.nodes[km]
		if !found {
			continue
		}
		for _, c := range n.support {
			if _, found = seen[c.Evidence]; !found {
				seen[c.Evidence] = struct{}{}
				ans = append(ans, c.Evidence)
			}
		}
	}
	return ans
}

func (a *Assembler) removeAll(ev []evidence.DirectedEvidence) {
	for _, e := range ev {
		a.graph.RemoveEvidence(e)
	}
}
