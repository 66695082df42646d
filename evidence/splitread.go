package evidence

import (
	"errors"
	"fmt"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/numbers"
	"github.com/vertgenlab/gonomics/sam"
	"sort"
)

// ErrHardClippedSplitRead is returned for split reads whose clipped bases are not present
// in the record. Offsets cannot be recovered for these reads.
var ErrHardClippedSplitRead = errors.New("hard clipped split read: convert hard clips to soft clips before breakend assembly (e.g. with picard SetNmMdAndUqTags or bwa mem -Y)")

// SplitRead is a breakpoint derived from two adjacent segments of a chimeric alignment.
type SplitRead struct {
	record   *sam.Sam
	id       string
	category int
	local    ChimericAlignment
	remote   ChimericAlignment
	bp       BreakpointSummary
	layout   ReadLayout
	offset   int // first aligned read base of the local segment, in record orientation
	quality  float64
}

func (e *SplitRead) EvidenceID() string                 { return e.id }
func (e *SplitRead) Breakend() BreakendSummary          { return e.bp.BreakendSummary }
func (e *SplitRead) Breakpoint() BreakpointSummary      { return e.bp }
func (e *SplitRead) Quality() float64                   { return e.quality }
func (e *SplitRead) LocalMapq() int                     { return int(e.record.MapQ) }
func (e *SplitRead) RemoteMapq() int                    { return e.remote.MapQ }
func (e *SplitRead) Category() int                      { return e.category }
func (e *SplitRead) Read() *sam.Sam                     { return e.record }
func (e *SplitRead) Layout() ReadLayout                 { return e.layout }
func (e *SplitRead) RemoteAlignment() ChimericAlignment { return e.remote }

// Offset is the read offset of the first aligned base of the local segment.
func (e *SplitRead) Offset() int {
	return e.offset
}

// RemoteLayout places the read on the reference at the remote segment, with the
// read oriented to match the remote alignment.
func (e *SplitRead) RemoteLayout(remoteRefIdx int) ReadLayout {
	var seq []dna.Base
	var qual string
	length := len(e.record.Seq)
	sameStrand := e.remote.Negative == e.local.Negative
	if sameStrand {
		seq = e.record.Seq
		qual = e.record.Qual
	} else {
		seq = dna.ReverseComplementAndCopy(e.record.Seq)
		qual = reverseString(e.record.Qual)
	}
	start, end := e.remote.QueryInterval()
	if e.remote.Negative {
		start, end = length-end, length-start
	}
	return ReadLayout{
		RefIdx:      remoteRefIdx,
		RefStart:    e.remote.Pos,
		Seq:         seq,
		Qual:        qual,
		AnchorStart: start,
		AnchorEnd:   end,
	}
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// leadingEdge is the breakend at the start of a segment in read order.
func leadingEdge(c ChimericAlignment, refIdx int) BreakendSummary {
	if c.Negative {
		return BreakendSummary{RefIdx: refIdx, Direction: Forward, Start: c.AlignmentEnd(), End: c.AlignmentEnd()}
	}
	return BreakendSummary{RefIdx: refIdx, Direction: Backward, Start: c.Pos, End: c.Pos}
}

// trailingEdge is the breakend at the end of a segment in read order.
func trailingEdge(c ChimericAlignment, refIdx int) BreakendSummary {
	if c.Negative {
		return BreakendSummary{RefIdx: refIdx, Direction: Backward, Start: c.Pos, End: c.Pos}
	}
	return BreakendSummary{RefIdx: refIdx, Direction: Forward, Start: c.AlignmentEnd(), End: c.AlignmentEnd()}
}

// NewSplitReads derives up to two breakpoints for r: one joining it to the segment preceding
// it along the read and one joining it to the segment following it. resolve maps a
// reference name to its dictionary index. With includeClippedAnchor the anchor extends
// over the clipped bases on the anchored side, out to the end of the read.
func NewSplitReads(r *sam.Sam, refIdx int, resolve func(string) (int, bool), category int, includeClippedAnchor bool) ([]*SplitRead, error) {
	var ans []*SplitRead
	if sam.IsUnmapped(*r) {
		return nil, nil
	}
	others, err := ChimericAlignments(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.QName, err)
	}
	if len(others) == 0 {
		return nil, nil
	}
	leadSoft, leadHard, trailSoft, trailHard := clipLengths(r.Cigar)
	if leadHard > 0 || trailHard > 0 {
		return nil, fmt.Errorf("%s: %w", r.QName, ErrHardClippedSplitRead)
	}
	self := NewChimericAlignment(r)
	length := len(r.Seq)
	segments := append([]ChimericAlignment{self}, others...)
	order := make([]int, len(segments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		si, _ := segments[order[i]].QueryInterval()
		sj, _ := segments[order[j]].QueryInterval()
		return si < sj
	})
	var selfRank int
	for i := range order {
		if order[i] == 0 {
			selfRank = i
		}
	}

	qs, qe := self.QueryInterval()
	offset := qs
	if self.Negative {
		offset = length - 1 - (qe - 1) // mirrored to record orientation
	}

	build := func(remote ChimericAlignment, local, remoteEdge BreakendSummary) *SplitRead {
		remoteIdx, known := resolve(remote.RName)
		if !known {
			return nil
		}
		remoteEdge.RefIdx = remoteIdx
		e := &SplitRead{
			record:   r,
			category: category,
			local:    self,
			remote:   remote,
			bp:       NewBreakpoint(local, remoteEdge),
			offset:   offset,
			layout: ReadLayout{
				RefIdx:      refIdx,
				RefStart:    int(r.Pos),
				Seq:         r.Seq,
				Qual:        r.Qual,
				AnchorStart: leadSoft,
				AnchorEnd:   length - trailSoft,
			},
		}
		var clipStart, clipEnd int
		if local.Direction == Forward {
			clipStart, clipEnd = e.layout.AnchorEnd, length
			if includeClippedAnchor {
				e.layout.RefStart -= e.layout.AnchorStart
				e.layout.AnchorStart = 0
			}
		} else {
			clipStart, clipEnd = 0, e.layout.AnchorStart
			if includeClippedAnchor {
				e.layout.AnchorEnd = length
			}
		}
		e.id = fmt.Sprintf("%s/%d_%d_%c", r.QName, segment(r), offset, local.Direction)
		e.quality = float64(numbers.Min(int(r.MapQ), remote.MapQ))
		e.quality = minFloat(e.quality, meanQual(r.Qual, clipStart, clipEnd, e.quality))
		return e
	}

	if selfRank > 0 {
		pred := segments[order[selfRank-1]]
		if e := build(pred, leadingEdge(self, refIdx), trailingEdge(pred, 0)); e != nil {
			ans = append(ans, e)
		}
	}
	if selfRank < len(order)-1 {
		succ := segments[order[selfRank+1]]
		if e := build(succ, trailingEdge(self, refIdx), leadingEdge(succ, 0)); e != nil {
			ans = append(ans, e)
		}
	}
	return ans, nil
}
