package source

import (
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/linear"
)

// Merged interleaves evidence streams that are each ordered by breakend start.
type Merged struct {
	coord   *linear.Coordinate
	streams []<-chan evidence.DirectedEvidence
	heads   []evidence.DirectedEvidence
	open    []bool
}

// Merge returns the ordered union of streams.
func Merge(coord *linear.Coordinate, streams ...<-chan evidence.DirectedEvidence) *Merged {
	m := &Merged{
		coord:   coord,
		streams: streams,
		heads:   make([]evidence.DirectedEvidence, len(streams)),
		open:    make([]bool, len(streams)),
	}
	for i := range streams {
		m.heads[i], m.open[i] = <-streams[i]
	}
	return m
}

func (m *Merged) start(e evidence.DirectedEvidence) int {
	b := e.Breakend()
	return m.coord.ToLinear(b.RefIdx, b.Start)
}

// Next returns the evidence with the lowest breakend start. It blocks until every open stream
// has a value and returns false once all streams are closed.
func (m *Merged) Next() (evidence.DirectedEvidence, bool) {
	best := -1
	for i := range m.heads {
		if !m.open[i] {
			continue
		}
		if best == -1 || m.start(m.heads[i]) < m.start(m.heads[best]) {
			best = i
		}
	}
	if best == -1 {
		return nil, false
	}
	ans := m.heads[best]
	m.heads[best], m.open[best] = <-m.streams[best]
	return ans, true
}
