package evidence

import "fmt"

// Direction is the side of a breakend on which the novel sequence lies.
type Direction byte

const (
	Forward  Direction = 'f' // novel sequence follows the anchor, breakend at the alignment end
	Backward Direction = 'b' // novel sequence precedes the anchor, breakend at the alignment start
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

func (d Direction) String() string {
	return string(d)
}

// BreakendSummary is a one sided genomic interval of positional uncertainty for a breakend.
// Start and End are 1-based and inclusive.
type BreakendSummary struct {
	RefIdx    int
	Direction Direction
	Start     int
	End       int
}

// IsExact reports whether the breakend position is known to the base.
func (b BreakendSummary) IsExact() bool {
	return b.Start == b.End
}

// Valid reports whether the interval is well formed.
func (b BreakendSummary) Valid() bool {
	return b.Start <= b.End && (b.Direction == Forward || b.Direction == Backward)
}

// Overlaps reports whether two breakends on the same reference in the same direction share a position.
func (b BreakendSummary) Overlaps(o BreakendSummary) bool {
	return b.RefIdx == o.RefIdx && b.Direction == o.Direction && b.Start <= o.End && o.Start <= b.End
}

func (b BreakendSummary) String() string {
	return fmt.Sprintf("%d:%d-%d%c", b.RefIdx, b.Start, b.End, b.Direction)
}

// BreakpointSummary is a two ended junction. The embedded BreakendSummary is the local side.
type BreakpointSummary struct {
	BreakendSummary
	RefIdx2    int
	Direction2 Direction
	Start2     int
	End2       int
}

// Local returns the local breakend.
func (b BreakpointSummary) Local() BreakendSummary {
	return b.BreakendSummary
}

// RemoteBreakend returns the remote side as a breakend.
func (b BreakpointSummary) RemoteBreakend() BreakendSummary {
	return BreakendSummary{RefIdx: b.RefIdx2, Direction: b.Direction2, Start: b.Start2, End: b.End2}
}

// Remote returns the same junction as seen from the remote breakend.
func (b BreakpointSummary) Remote() BreakpointSummary {
	return NewBreakpoint(b.RemoteBreakend(), b.BreakendSummary)
}

// NewBreakpoint joins two breakends.
func NewBreakpoint(local, remote BreakendSummary) BreakpointSummary {
	return BreakpointSummary{
		BreakendSummary: local,
		RefIdx2:         remote.RefIdx,
		Direction2:      remote.Direction,
		Start2:          remote.Start,
		End2:            remote.End,
	}
}

// IsExact reports whether both sides are exact.
func (b BreakpointSummary) IsExact() bool {
	return b.Start == b.End && b.Start2 == b.End2
}

// Equivalent reports whether b and o describe the same junction, in either orientation.
func (b BreakpointSummary) Equivalent(o BreakpointSummary) bool {
	return b == o || b.Remote() == o
}

func (b BreakpointSummary) String() string {
	return fmt.Sprintf("%s-%s", b.BreakendSummary, b.RemoteBreakend())
}
