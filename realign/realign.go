// Package realign aligns assembled contigs back to the reference surrounding their anchor.
package realign

import (
	"errors"
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/vertgenlab/gonomics/align"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"io"
	"log"
	"sync"
)

var gapOpen int64 = -600
var gapExtend int64 = -20

// SmithWaterman is an affine gap local aligner. Unaligned contig bases are soft clipped.
type SmithWaterman struct {
	Scores    [][]int64
	GapOpen   int64
	GapExtend int64
}

// NewSmithWaterman returns an aligner with the default scoring.
func NewSmithWaterman() *SmithWaterman {
	return &SmithWaterman{Scores: align.HumanChimpTwoScoreMatrix, GapOpen: gapOpen, GapExtend: gapExtend}
}

// Align aligns query to reference. The returned Offset is the 0-based position of the first
// aligned reference base.
func (s *SmithWaterman) Align(query, reference []dna.Base) assembly.Alignment {
	if len(query) == 0 || len(reference) == 0 {
		return assembly.Alignment{}
	}
	_, cig := align.AffineGapLocal(reference, query, s.Scores, s.GapOpen, s.GapExtend)
	return s.toAlignment(cig, query, reference)
}

// column is one scored step of an alignment. Gaps are scored as a whole run.
type column struct {
	op     align.ColType
	length int
	score  int64
}

func (s *SmithWaterman) score(ref, query dna.Base) int64 {
	if int(ref) >= len(s.Scores) || int(query) >= len(s.Scores[ref]) {
		return s.Scores[dna.N][dna.N]
	}
	return s.Scores[ref][query]
}

// toAlignment keeps the highest scoring stretch of c. The aligner places every query base, so
// query outside that stretch becomes soft clips and reference before it becomes the offset.
func (s *SmithWaterman) toAlignment(c []align.Cigar, query, reference []dna.Base) assembly.Alignment {
	var ans assembly.Alignment
	var cols []column
	var ri, qi, n int
	for i := range c {
		n = int(c[i].RunLength)
		switch c[i].Op {
		case align.ColM:
			for j := 0; j < n; j++ {
				cols = append(cols, column{op: align.ColM, length: 1, score: s.score(reference[ri+j], query[qi+j])})
			}
			ri += n
			qi += n
		case align.ColI:
			cols = append(cols, column{op: align.ColI, length: n, score: s.GapOpen + int64(n)*s.GapExtend})
			qi += n
		case align.ColD:
			cols = append(cols, column{op: align.ColD, length: n, score: s.GapOpen + int64(n)*s.GapExtend})
			ri += n
		}
	}

	var best, curr int64
	var bestStart, bestEnd, currStart int
	for i := range cols {
		if curr <= 0 {
			curr, currStart = 0, i
		}
		curr += cols[i].score
		if curr > best {
			best, bestStart, bestEnd = curr, currStart, i+1
		}
	}
	if best <= 0 {
		return ans
	}

	var leadClip, aligned int
	for _, col := range cols[:bestStart] {
		if col.op != align.ColI {
			ans.Offset += col.length
		}
		if col.op != align.ColD {
			leadClip += col.length
		}
	}
	body := make([]align.Cigar, 0, bestEnd-bestStart)
	for _, col := range cols[bestStart:bestEnd] {
		body = append(body, align.Cigar{RunLength: int64(col.length), Op: col.op})
		if col.op != align.ColD {
			aligned += col.length
		}
	}
	trailClip := len(query) - leadClip - aligned
	ans.Cigar = make([]cigar.Cigar, 0, len(body)+2)
	if leadClip > 0 {
		ans.Cigar = append(ans.Cigar, cigar.Cigar{RunLength: leadClip, Op: 'S'})
	}
	ans.Cigar = append(ans.Cigar, cigConv(body)...)
	if trailClip > 0 {
		ans.Cigar = append(ans.Cigar, cigar.Cigar{RunLength: trailClip, Op: 'S'})
	}
	return ans
}

func cigConv(c []align.Cigar) []cigar.Cigar {
	ans := make([]cigar.Cigar, 0, len(c))
	var op rune
	for i := range c {
		switch c[i].Op {
		case align.ColM:
			op = 'M'
		case align.ColI:
			op = 'I'
		case align.ColD:
			op = 'D'
		}
		if len(ans) > 0 && ans[len(ans)-1].Op == op {
			ans[len(ans)-1].RunLength += int(c[i].RunLength)
			continue
		}
		ans = append(ans, cigar.Cigar{RunLength: int(c[i].RunLength), Op: op})
	}
	return ans
}

// GoRealign realigns assemblies received on in using the given number of workers. The breakend
// sequence of each realigned assembly is then aligned near its breakend.
// Assemblies that cannot be realigned are passed through unchanged. Output order is not
// preserved.
func GoRealign(in <-chan *assembly.Assembly, ref assembly.Reference, aligner assembly.Aligner, threads int, logger *log.Logger) <-chan *assembly.Assembly {
	if threads < 1 {
		threads = 1
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	out := make(chan *assembly.Assembly, 1000)
	wg := new(sync.WaitGroup)
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go realignAssemblies(in, out, ref, aligner, logger, wg)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func realignAssemblies(in <-chan *assembly.Assembly, out chan<- *assembly.Assembly, ref assembly.Reference, aligner assembly.Aligner, logger *log.Logger, wg *sync.WaitGroup) {
	for a := range in {
		out <- realignOne(a, ref, aligner, logger)
	}
	wg.Done()
}

func realignOne(a *assembly.Assembly, ref assembly.Reference, aligner assembly.Aligner, logger *log.Logger) *assembly.Assembly {
	if !a.IsExact() || a.IsBreakpoint() {
		return a
	}
	b, err := a.Realign(ref, aligner)
	switch {
	case errors.Is(err, assembly.ErrRealignInexact), errors.Is(err, assembly.ErrRealignBreakpoint):
		return a
	case err != nil:
		logger.Printf("WARNING: could not realign %s: %s", a.EvidenceID(), err)
		return a
	}
	if b.BreakendLength() == 0 {
		return b
	}
	c, err := b.RealignBreakend(ref, aligner)
	if err != nil {
		logger.Printf("WARNING: could not realign breakend of %s: %s", b.EvidenceID(), err)
		return b
	}
	return c
}
