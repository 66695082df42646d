package assembly

import (
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/vertgenlab/gonomics/numbers"
	"golang.org/x/exp/slices"
)

// Filter reasons applied to assemblies.
const (
	FilterReference     string = "REF"
	FilterLowComplexity string = "LOW_COMPLEXITY"
	FilterNoSupport     string = "NO_SUPPORT"
)

// Stats are the per category support totals of an assembly.
type Stats struct {
	BaseCount          []int
	ReadPairCount      []int
	ReadPairQual       []float64
	SoftClipCount      []int
	SoftClipQual       []float64
	RemoteCount        []int
	RemoteQual         []float64
	NonSupportingCount []int
	NonSupportingQual  []float64
}

func newStats(categories int) Stats {
	return Stats{
		BaseCount:          make([]int, categories),
		ReadPairCount:      make([]int, categories),
		ReadPairQual:       make([]float64, categories),
		SoftClipCount:      make([]int, categories),
		SoftClipQual:       make([]float64, categories),
		RemoteCount:        make([]int, categories),
		RemoteQual:         make([]float64, categories),
		NonSupportingCount: make([]int, categories),
		NonSupportingQual:  make([]float64, categories),
	}
}

// Stats returns the support totals.
func (a *Assembly) Stats() Stats {
	return a.stats
}

// supports reports whether e places its breakend consistently with the assembly.
func (a *Assembly) supports(e evidence.DirectedEvidence) bool {
	b := e.Breakend()
	if b.Overlaps(a.Breakend()) {
		return true
	}
	return a.remote != nil && b.Overlaps(a.Breakpoint().RemoteBreakend())
}

func (a *Assembly) calculateStats(support []evidence.DirectedEvidence, baseCounts []int) {
	categories := numbers.Max(a.params.Categories, len(baseCounts))
	for _, e := range support {
		categories = numbers.Max(categories, e.Category()+1)
	}
	categories = numbers.Max(categories, 1)
	a.stats = newStats(categories)
	copy(a.stats.BaseCount, baseCounts)
	var c int
	for _, e := range support {
		c = numbers.Max(e.Category(), 0)
		if !a.supports(e) {
			a.stats.NonSupportingCount[c]++
			a.stats.NonSupportingQual[c] += e.Quality()
			continue
		}
		a.localMapq = numbers.Max(a.localMapq, e.LocalMapq())
		switch e.(type) {
		case *evidence.Remote:
			a.stats.RemoteCount[c]++
			a.stats.RemoteQual[c] += e.Quality()
		case evidence.NonReferenceReadPair:
			a.stats.ReadPairCount[c]++
			a.stats.ReadPairQual[c] += e.Quality()
		default:
			a.stats.SoftClipCount[c]++
			a.stats.SoftClipQual[c] += e.Quality()
		}
	}
	if a.localMapq == 0 {
		for _, e := range support {
			a.localMapq = numbers.Max(a.localMapq, e.LocalMapq())
		}
	}
}

func sumInts(s []int) int {
	var ans int
	for i := range s {
		ans += s[i]
	}
	return ans
}

func sumFloats(s []float64) float64 {
	var ans float64
	for i := range s {
		ans += s[i]
	}
	return ans
}

// SupportingEvidenceCount is the number of evidence counted towards the breakend quality.
func (a *Assembly) SupportingEvidenceCount() int {
	ans := sumInts(a.stats.ReadPairCount) + sumInts(a.stats.SoftClipCount) + sumInts(a.stats.RemoteCount)
	if !a.params.ExcludeNonSupportingEvidence {
		ans += sumInts(a.stats.NonSupportingCount)
	}
	return ans
}

// BreakendQual is the summed evidence quality, capped at the local mapping quality for
// each supporting evidence.
func (a *Assembly) BreakendQual() float64 {
	if a.BreakendLength() == 0 {
		return 0
	}
	qual := sumFloats(a.stats.ReadPairQual) + sumFloats(a.stats.SoftClipQual) + sumFloats(a.stats.RemoteQual)
	if !a.params.ExcludeNonSupportingEvidence {
		qual += sumFloats(a.stats.NonSupportingQual)
	}
	limit := float64(a.localMapq * a.SupportingEvidenceCount())
	if qual > limit {
		qual = limit
	}
	if qual < 0 {
		return 0
	}
	return qual
}

// FilterAssembly marks the assembly as failing a filter. Repeated reasons are ignored.
func (a *Assembly) FilterAssembly(reason string) {
	if slices.Contains(a.filters, reason) {
		return
	}
	a.filters = append(a.filters, reason)
}

// Filters returns the filters the assembly has failed.
func (a *Assembly) Filters() []string {
	return a.filters
}
