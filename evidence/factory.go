package evidence

import (
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/bed"
	"github.com/vertgenlab/gonomics/interval"
	"github.com/vertgenlab/gonomics/sam"
)

// Config controls which reads become evidence.
type Config struct {
	MinMapQ                      int
	MaxFragmentSize              int
	MinClipLength                int
	IncludeClippedAnchoringBases bool
	Blacklist                    map[string]*interval.IntervalNode // nil for no blacklist
}

// DefaultConfig returns the default evidence settings.
func DefaultConfig() Config {
	return Config{
		MinMapQ:         0,
		MaxFragmentSize: 500,
		MinClipLength:   1,
	}
}

// LoadBlacklist reads a bed file of regions in which evidence is ignored.
func LoadBlacklist(filename string) map[string]*interval.IntervalNode {
	regions := bed.Read(filename)
	intervals := make([]interval.Interval, len(regions))
	for i := range regions {
		intervals[i] = regions[i]
	}
	return interval.BuildTree(intervals)
}

// Factory converts alignment records into DirectedEvidence.
type Factory struct {
	cfg   Config
	coord *linear.Coordinate
}

// NewFactory returns a Factory resolving reference names through coord.
func NewFactory(coord *linear.Coordinate, cfg Config) *Factory {
	return &Factory{cfg: cfg, coord: coord}
}

// Coordinate returns the Coordinate used to resolve reference names.
func (f *Factory) Coordinate() *linear.Coordinate {
	return f.coord
}

// MaxFragmentSize is the largest fragment consistent with the library.
func (f *Factory) MaxFragmentSize() int {
	return f.cfg.MaxFragmentSize
}

func (f *Factory) usable(r *sam.Sam) bool {
	return !sam.IsUnmapped(*r) && !sam.IsNotPrimaryAlign(*r) && !sam.IsDuplicate(*r) && int(r.MapQ) >= f.cfg.MinMapQ
}

func (f *Factory) blacklisted(b BreakendSummary) bool {
	if f.cfg.Blacklist == nil {
		return false
	}
	q := bed.Bed{Chrom: f.coord.Name(b.RefIdx), ChromStart: b.Start - 1, ChromEnd: b.End, FieldsInitialized: 3}
	return len(interval.Query(f.cfg.Blacklist, q, "any")) > 0
}

// FromRead returns the split read and soft clip evidence of r. A clipped end that is
// explained by a split alignment yields only the split read evidence.
func (f *Factory) FromRead(r *sam.Sam, category int) ([]DirectedEvidence, error) {
	var ans []DirectedEvidence
	if !f.usable(r) {
		return nil, nil
	}
	refIdx, found := f.coord.Index(r.RName)
	if !found {
		return nil, nil
	}
	splits, err := NewSplitReads(r, refIdx, f.coord.Index, category, f.cfg.IncludeClippedAnchoringBases)
	if err != nil {
		return nil, err
	}
	var splitForward, splitBackward bool
	for _, s := range splits {
		if s.Breakend().Direction == Forward {
			splitForward = true
		} else {
			splitBackward = true
		}
		if !f.blacklisted(s.Breakend()) {
			ans = append(ans, s)
		}
	}
	var sc *SoftClip
	if !splitBackward {
		sc = NewSoftClip(r, refIdx, Backward, category)
		if sc != nil && sc.ClipLength() >= f.cfg.MinClipLength && !f.blacklisted(sc.Breakend()) {
			ans = append(ans, sc)
		}
	}
	if !splitForward {
		sc = NewSoftClip(r, refIdx, Forward, category)
		if sc != nil && sc.ClipLength() >= f.cfg.MinClipLength && !f.blacklisted(sc.Breakend()) {
			ans = append(ans, sc)
		}
	}
	return ans, nil
}

// IsReadPairCandidate reports whether r is the mapped half of a pair that may be non-reference.
func (f *Factory) IsReadPairCandidate(r *sam.Sam) bool {
	if !sam.IsPaired(*r) || sam.IsSupplementaryAlign(*r) || !f.usable(r) {
		return false
	}
	return sam.MateIsUnmapped(*r) || !sam.ProperlyAligned(*r)
}

// FromReadPair returns the read pair evidence anchored by local, or nil if the pair is
// consistent with the fragment model.
func (f *Factory) FromReadPair(local, mate *sam.Sam, category int) DirectedEvidence {
	if !f.usable(local) {
		return nil
	}
	refIdx, found := f.coord.Index(local.RName)
	if !found {
		return nil
	}
	var e DirectedEvidence
	if sam.IsUnmapped(*mate) {
		e = NewOneEndAnchored(local, mate, refIdx, category, f.cfg.MaxFragmentSize)
	} else {
		if IsConcordant(local, mate, f.cfg.MaxFragmentSize) {
			return nil
		}
		mateIdx, found := f.coord.Index(mate.RName)
		if !found {
			return nil
		}
		e = NewDiscordant(local, mate, refIdx, mateIdx, category, f.cfg.MaxFragmentSize)
	}
	if f.blacklisted(e.Breakend()) {
		return nil
	}
	return e
}
