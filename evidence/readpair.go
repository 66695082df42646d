package evidence

import (
	"fmt"
	"github.com/vertgenlab/gonomics/numbers"
	"github.com/vertgenlab/gonomics/sam"
)

type readPair struct {
	local       *sam.Sam
	mate        *sam.Sam
	id          string
	category    int
	breakend    BreakendSummary
	maxFragment int
}

func (e *readPair) EvidenceID() string         { return e.id }
func (e *readPair) Breakend() BreakendSummary  { return e.breakend }
func (e *readPair) LocalMapq() int             { return int(e.local.MapQ) }
func (e *readPair) Category() int              { return e.category }
func (e *readPair) LocalRead() *sam.Sam        { return e.local }
func (e *readPair) NonReferenceRead() *sam.Sam { return e.mate }
func (e *readPair) MaxFragmentSize() int       { return e.maxFragment }

// OneEndAnchored is a read pair in which only the local read is mapped.
type OneEndAnchored struct {
	readPair
}

func (e *OneEndAnchored) Quality() float64 { return float64(e.local.MapQ) }

// Discordant is a read pair with both reads mapped inconsistently with the fragment model.
type Discordant struct {
	readPair
	remote BreakendSummary
}

func (e *Discordant) Quality() float64 {
	return float64(numbers.Min(int(e.local.MapQ), int(e.mate.MapQ)))
}

func (e *Discordant) RemoteMapq() int { return int(e.mate.MapQ) }

func (e *Discordant) Breakpoint() BreakpointSummary {
	return NewBreakpoint(e.breakend, e.remote)
}

// pairBreakend is the interval in which a read pair places the breakend: from the end of
// the read out to the furthest a fragment of maxFragment bases could reach.
func pairBreakend(r *sam.Sam, refIdx, maxFragment int) BreakendSummary {
	var b BreakendSummary
	b.RefIdx = refIdx
	if !sam.IsPosStrand(*r) {
		b.Direction = Backward
		b.End = AlignmentStart(r)
		b.Start = numbers.Max(1, AlignmentEnd(r)-maxFragment+1)
		if b.Start > b.End {
			b.Start = b.End
		}
	} else {
		b.Direction = Forward
		b.Start = AlignmentEnd(r)
		b.End = numbers.Max(b.Start, AlignmentStart(r)+maxFragment-1)
	}
	return b
}

// IsConcordant reports whether both reads of a pair are mapped in the expected inward
// facing orientation within maxFragment bases of each other.
func IsConcordant(local, mate *sam.Sam, maxFragment int) bool {
	if sam.IsUnmapped(*local) || sam.IsUnmapped(*mate) || local.RName != mate.RName {
		return false
	}
	if sam.IsPosStrand(*local) == sam.IsPosStrand(*mate) {
		return false
	}
	var plus, minus *sam.Sam = local, mate
	if !sam.IsPosStrand(*local) {
		plus, minus = mate, local
	}
	if AlignmentStart(plus) > AlignmentEnd(minus) {
		return false
	}
	return AlignmentEnd(minus)-AlignmentStart(plus)+1 <= maxFragment
}

func newReadPair(local, mate *sam.Sam, refIdx, category, maxFragment int) readPair {
	return readPair{
		local:       local,
		mate:        mate,
		id:          fmt.Sprintf("%s/%d", local.QName, segment(local)),
		category:    category,
		breakend:    pairBreakend(local, refIdx, maxFragment),
		maxFragment: maxFragment,
	}
}

// NewOneEndAnchored builds evidence for a mapped read whose mate did not map.
func NewOneEndAnchored(local, mate *sam.Sam, refIdx, category, maxFragment int) *OneEndAnchored {
	return &OneEndAnchored{readPair: newReadPair(local, mate, refIdx, category, maxFragment)}
}

// NewDiscordant builds evidence for a pair of mapped reads that do not fit the fragment model.
func NewDiscordant(local, mate *sam.Sam, refIdx, mateRefIdx, category, maxFragment int) *Discordant {
	return &Discordant{
		readPair: newReadPair(local, mate, refIdx, category, maxFragment),
		remote:   pairBreakend(mate, mateRefIdx, maxFragment),
	}
}
