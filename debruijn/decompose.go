package debruijn

import (
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/kmer"
	"github.com/vertgenlab/gonomics/sam"
	"math"
)

// KmerContribution is one k-mer of a piece of evidence.
type KmerContribution struct {
	Kmer kmer.Kmer
	Contribution
}

func weight(e evidence.DirectedEvidence) int {
	w := int(math.Round(e.Quality()))
	if w < 1 {
		return 1
	}
	return w
}

// Decompose splits e into its k-mers in sequence order. Windows with ambiguous bases are skipped.
func (g *Graph) Decompose(e evidence.DirectedEvidence) []KmerContribution {
	switch v := e.(type) {
	case *evidence.SoftClip:
		return g.singleRead(e, v.Layout(), v.Breakend().Direction)
	case *evidence.SplitRead:
		return g.singleRead(e, v.Layout(), v.Breakend().Direction)
	case evidence.NonReferenceReadPair:
		return g.readPair(e, v.LocalRead(), v.NonReferenceRead(), v.Breakend().RefIdx, v.Breakend().Direction, v.MaxFragmentSize())
	case *evidence.Remote:
		switch inner := v.Evidence().(type) {
		case *evidence.SplitRead:
			if !g.includeRemoteSoftClips {
				return nil
			}
			return g.singleRead(e, inner.RemoteLayout(v.Breakend().RefIdx), v.Breakend().Direction)
		case *evidence.Discordant:
			return g.readPair(e, inner.NonReferenceRead(), inner.LocalRead(), v.Breakend().RefIdx, v.Breakend().Direction, inner.MaxFragmentSize())
		}
	}
	return nil
}

// singleRead takes the k-mers of the anchor and the clipped bases on the breakend side.
// K-mers entirely within the anchor are reference k-mers.
func (g *Graph) singleRead(e evidence.DirectedEvidence, l evidence.ReadLayout, dir evidence.Direction) []KmerContribution {
	var from, to int
	if dir == evidence.Forward {
		from, to = l.AnchorStart, len(l.Seq)
	} else {
		from, to = 0, l.AnchorEnd
	}
	if from < 0 || to > len(l.Seq) || to-from < g.k {
		return nil
	}
	kmers := kmer.Kmers(l.Seq[from:to], g.k)
	ans := make([]KmerContribution, 0, len(kmers))
	w := weight(e)
	base := g.coord.ToLinear(l.RefIdx, l.RefStart) - l.AnchorStart
	var offset int
	for i := range kmers {
		if kmers[i].Ambiguous {
			continue
		}
		offset = from + i
		ans = append(ans, KmerContribution{
			Kmer: kmers[i].Value,
			Contribution: Contribution{
				Evidence:  e,
				Weight:    w,
				Position:  base + offset,
				Reference: offset >= l.AnchorStart && offset+g.k <= l.AnchorEnd,
			},
		})
	}
	return ans
}

// readPair takes the k-mers of the unanchored read, oriented to match the anchor, placed
// at the far end of the largest fragment.
func (g *Graph) readPair(e evidence.DirectedEvidence, local, mate *sam.Sam, refIdx int, dir evidence.Direction, maxFragment int) []KmerContribution {
	seq := mate.Seq
	kmers := kmer.Kmers(seq, g.k)
	if len(kmers) == 0 {
		return nil
	}
	if sam.IsPosStrand(*local) == sam.IsPosStrand(*mate) {
		kmer.ReverseComplementKmers(kmers, g.k)
	}
	var base int
	if dir == evidence.Forward {
		base = g.coord.ToLinear(refIdx, evidence.AlignmentStart(local)+maxFragment-len(seq))
	} else {
		base = g.coord.ToLinear(refIdx, evidence.AlignmentEnd(local)-maxFragment+1)
	}
	ans := make([]KmerContribution, 0, len(kmers))
	w := weight(e)
	for i := range kmers {
		if kmers[i].Ambiguous {
			continue
		}
		ans = append(ans, KmerContribution{
			Kmer:         kmers[i].Value,
			Contribution: Contribution{Evidence: e, Weight: w, Position: base + i},
		})
	}
	return ans
}
