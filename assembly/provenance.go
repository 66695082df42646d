package assembly

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dasnellings/svAssembly/evidence"
)

func hashIDs(ids []string) map[uint64]struct{} {
	ans := make(map[uint64]struct{}, len(ids))
	for i := range ids {
		ans[xxhash.Sum64String(ids[i])] = struct{}{}
	}
	return ans
}

// EvidenceIDs returns the IDs of the evidence the contig was assembled from.
func (a *Assembly) EvidenceIDs() []string {
	return a.evidenceIDs
}

// IsPartOfAssemblyBreakend reports whether e contributed to the assembly. Membership is
// tested on a 64-bit hash of the evidence ID so rare false positives are possible.
func (a *Assembly) IsPartOfAssemblyBreakend(e evidence.DirectedEvidence) bool {
	_, found := a.provenance[xxhash.Sum64String(e.EvidenceID())]
	return found
}

// HydrateEvidenceSet records e as live support if it contributed to the assembly.
func (a *Assembly) HydrateEvidenceSet(e evidence.DirectedEvidence) {
	if !a.IsPartOfAssemblyBreakend(e) {
		return
	}
	if a.liveIDs == nil {
		a.liveIDs = make(map[string]struct{})
	}
	if _, seen := a.liveIDs[e.EvidenceID()]; seen {
		return
	}
	a.liveIDs[e.EvidenceID()] = struct{}{}
	a.live = append(a.live, e)
}

// Evidence returns the support collected by HydrateEvidenceSet. Remote, short, and
// alternatively mapped evidence is not expected to rehydrate, so a mismatch against the
// provenance set is only logged.
func (a *Assembly) Evidence() []evidence.DirectedEvidence {
	if len(a.live) != len(a.provenance) {
		var missing []string
		for _, id := range a.evidenceIDs {
			if _, found := a.liveIDs[id]; !found {
				missing = append(missing, id)
			}
		}
		a.params.logger().Printf("DEBUG: assembly %s hydrated %d of %d evidence. Missing: %v", a.EvidenceID(), len(a.live), len(a.provenance), missing)
	}
	return a.live
}
