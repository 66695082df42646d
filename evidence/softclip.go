package evidence

import (
	"fmt"
	"github.com/vertgenlab/gonomics/sam"
)

// SoftClip is the evidence of one soft clipped end of an otherwise aligned read.
type SoftClip struct {
	record    *sam.Sam
	id        string
	category  int
	breakend  BreakendSummary
	layout    ReadLayout
	clipStart int // read offsets of the clipped bases
	clipEnd   int
	quality   float64
}

// NewSoftClip builds the evidence for the clip on the dir side of r.
// It returns nil when that side has no soft clip.
func NewSoftClip(r *sam.Sam, refIdx int, dir Direction, category int) *SoftClip {
	leadSoft, _, trailSoft, _ := clipLengths(r.Cigar)
	e := &SoftClip{
		record:   r,
		category: category,
		layout: ReadLayout{
			RefIdx:      refIdx,
			RefStart:    AlignmentStart(r),
			Seq:         r.Seq,
			Qual:        r.Qual,
			AnchorStart: leadSoft,
			AnchorEnd:   len(r.Seq) - trailSoft,
		},
	}
	switch dir {
	case Forward:
		if trailSoft == 0 {
			return nil
		}
		e.clipStart, e.clipEnd = len(r.Seq)-trailSoft, len(r.Seq)
		e.breakend = BreakendSummary{RefIdx: refIdx, Direction: Forward, Start: AlignmentEnd(r), End: AlignmentEnd(r)}
	case Backward:
		if leadSoft == 0 {
			return nil
		}
		e.clipStart, e.clipEnd = 0, leadSoft
		e.breakend = BreakendSummary{RefIdx: refIdx, Direction: Backward, Start: AlignmentStart(r), End: AlignmentStart(r)}
	default:
		return nil
	}
	if e.layout.AnchorEnd <= e.layout.AnchorStart {
		return nil
	}
	e.id = fmt.Sprintf("%s/%d%c", r.QName, segment(r), dir)
	e.quality = minFloat(float64(r.MapQ), meanQual(r.Qual, e.clipStart, e.clipEnd, float64(r.MapQ)))
	return e
}

func (e *SoftClip) EvidenceID() string        { return e.id }
func (e *SoftClip) Breakend() BreakendSummary { return e.breakend }
func (e *SoftClip) Quality() float64          { return e.quality }
func (e *SoftClip) LocalMapq() int            { return int(e.record.MapQ) }
func (e *SoftClip) Category() int             { return e.category }
func (e *SoftClip) Read() *sam.Sam            { return e.record }
func (e *SoftClip) Layout() ReadLayout        { return e.layout }

// ClipLength is the number of soft clipped bases.
func (e *SoftClip) ClipLength() int {
	return e.clipEnd - e.clipStart
}
