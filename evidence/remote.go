package evidence

// Remote views a breakpoint from its partner breakend.
type Remote struct {
	inner DirectedBreakpoint
}

// NewRemote wraps e so the remote breakend becomes the local one.
func NewRemote(e DirectedBreakpoint) *Remote {
	return &Remote{inner: e}
}

func (e *Remote) EvidenceID() string { return "R" + e.inner.EvidenceID() }

func (e *Remote) Breakend() BreakendSummary { return e.inner.Breakpoint().RemoteBreakend() }

func (e *Remote) Breakpoint() BreakpointSummary { return e.inner.Breakpoint().Remote() }

func (e *Remote) Quality() float64 { return e.inner.Quality() }

func (e *Remote) LocalMapq() int { return e.inner.RemoteMapq() }

func (e *Remote) RemoteMapq() int { return e.inner.LocalMapq() }

func (e *Remote) Category() int { return e.inner.Category() }

// Evidence returns the wrapped evidence.
func (e *Remote) Evidence() DirectedBreakpoint { return e.inner }
