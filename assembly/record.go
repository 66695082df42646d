package assembly

import (
	"fmt"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/sam"
	"strconv"
	"strings"
)

// Attribute tags written on assembly records.
const (
	TagDirection          = "ad"
	TagEvidenceIDs        = "ae"
	TagBaseCount          = "ab"
	TagReadPairCount      = "ap"
	TagReadPairQual       = "aq"
	TagSoftClipCount      = "as"
	TagSoftClipQual       = "at"
	TagRemoteCount        = "ar"
	TagRemoteQual         = "au"
	TagNonSupportingCount = "an"
	TagNonSupportingQual  = "ao"
	TagFilters            = "af"
	TagRemoteAnchor       = "ax"
	TagOriginalCigar      = "OC"
)

func joinInts(s []int) string {
	ans := make([]string, len(s))
	for i := range s {
		ans[i] = strconv.Itoa(s[i])
	}
	return strings.Join(ans, ",")
}

func joinFloats(s []float64) string {
	ans := make([]string, len(s))
	for i := range s {
		ans[i] = strconv.FormatFloat(s[i], 'f', -1, 64)
	}
	return strings.Join(ans, ",")
}

func splitInts(s string) ([]int, error) {
	var err error
	fields := strings.Split(s, ",")
	ans := make([]int, len(fields))
	for i := range fields {
		if ans[i], err = strconv.Atoi(fields[i]); err != nil {
			return nil, err
		}
	}
	return ans, nil
}

func splitFloats(s string) ([]float64, error) {
	var err error
	fields := strings.Split(s, ",")
	ans := make([]float64, len(fields))
	for i := range fields {
		if ans[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
			return nil, err
		}
	}
	return ans, nil
}

// tags renders the assembly attributes in SAM text form. Evidence IDs are space separated
// since spaces cannot appear in read names.
func (a *Assembly) tags() string {
	t := make([]string, 0, 16)
	t = append(t, fmt.Sprintf("%s:A:%c", TagDirection, a.direction))
	if len(a.evidenceIDs) > 0 {
		t = append(t, fmt.Sprintf("%s:Z:%s", TagEvidenceIDs, strings.Join(a.evidenceIDs, " ")))
	}
	t = append(t,
		fmt.Sprintf("%s:Z:%s", TagBaseCount, joinInts(a.stats.BaseCount)),
		fmt.Sprintf("%s:Z:%s", TagReadPairCount, joinInts(a.stats.ReadPairCount)),
		fmt.Sprintf("%s:Z:%s", TagReadPairQual, joinFloats(a.stats.ReadPairQual)),
		fmt.Sprintf("%s:Z:%s", TagSoftClipCount, joinInts(a.stats.SoftClipCount)),
		fmt.Sprintf("%s:Z:%s", TagSoftClipQual, joinFloats(a.stats.SoftClipQual)),
		fmt.Sprintf("%s:Z:%s", TagRemoteCount, joinInts(a.stats.RemoteCount)),
		fmt.Sprintf("%s:Z:%s", TagRemoteQual, joinFloats(a.stats.RemoteQual)),
		fmt.Sprintf("%s:Z:%s", TagNonSupportingCount, joinInts(a.stats.NonSupportingCount)),
		fmt.Sprintf("%s:Z:%s", TagNonSupportingQual, joinFloats(a.stats.NonSupportingQual)),
	)
	if len(a.filters) > 0 {
		t = append(t, fmt.Sprintf("%s:Z:%s", TagFilters, strings.Join(a.filters, ",")))
	}
	if a.remote != nil {
		t = append(t, fmt.Sprintf("%s:Z:%s,%d,%s", TagRemoteAnchor, a.remote.RName, a.remote.Pos, cigar.ToString(a.remote.Cigar)))
	}
	if a.originalCigar != "" {
		t = append(t, fmt.Sprintf("%s:Z:%s", TagOriginalCigar, a.originalCigar))
	}
	return strings.Join(t, "\t")
}

// tagString returns the value of a character or string tag of r.
func tagString(r sam.Sam, name string) (string, bool) {
	query, found, err := sam.QueryTag(r, name)
	if err != nil || !found {
		return "", false
	}
	switch v := query.(type) {
	case string:
		return v, true
	case rune:
		return string(v), true
	}
	return "", false
}

// FromRecord rebuilds an assembly from a bam record written by Record. Live evidence is
// not restored and must be repopulated with HydrateEvidenceSet.
func FromRecord(r sam.Sam, coord *linear.Coordinate, params Params) (*Assembly, error) {
	var err error
	var value string
	var found bool
	if err = sam.ParseExtra(&r); err != nil {
		return nil, fmt.Errorf("%s: %w", r.QName, err)
	}
	a := &Assembly{coord: coord, params: params, localMapq: int(r.MapQ)}
	if value, found = tagString(r, TagDirection); !found || len(value) != 1 {
		return nil, fmt.Errorf("%s: record is missing assembly direction tag %s", r.QName, TagDirection)
	}
	a.direction = evidence.Direction(value[0])
	if a.direction != evidence.Forward && a.direction != evidence.Backward {
		return nil, fmt.Errorf("%s: unknown assembly direction '%s'", r.QName, value)
	}
	if value, found = tagString(r, TagEvidenceIDs); found {
		a.evidenceIDs = strings.Split(value, " ")
	}
	a.provenance = hashIDs(a.evidenceIDs)

	a.stats = newStats(1)
	ints := []struct {
		tag  string
		dest *[]int
	}{
		{TagBaseCount, &a.stats.BaseCount},
		{TagReadPairCount, &a.stats.ReadPairCount},
		{TagSoftClipCount, &a.stats.SoftClipCount},
		{TagRemoteCount, &a.stats.RemoteCount},
		{TagNonSupportingCount, &a.stats.NonSupportingCount},
	}
	for _, t := range ints {
		if value, found = tagString(r, t.tag); found {
			if *t.dest, err = splitInts(value); err != nil {
				return nil, fmt.Errorf("%s: malformed %s tag: %w", r.QName, t.tag, err)
			}
		}
	}
	floats := []struct {
		tag  string
		dest *[]float64
	}{
		{TagReadPairQual, &a.stats.ReadPairQual},
		{TagSoftClipQual, &a.stats.SoftClipQual},
		{TagRemoteQual, &a.stats.RemoteQual},
		{TagNonSupportingQual, &a.stats.NonSupportingQual},
	}
	for _, t := range floats {
		if value, found = tagString(r, t.tag); found {
			if *t.dest, err = splitFloats(value); err != nil {
				return nil, fmt.Errorf("%s: malformed %s tag: %w", r.QName, t.tag, err)
			}
		}
	}
	if value, found = tagString(r, TagFilters); found {
		a.filters = strings.Split(value, ",")
	}
	if value, found = tagString(r, TagRemoteAnchor); found {
		fields := strings.Split(value, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s: malformed %s tag '%s'", r.QName, TagRemoteAnchor, value)
		}
		pos, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s: malformed %s tag: %w", r.QName, TagRemoteAnchor, err)
		}
		a.remote = &sam.Sam{QName: r.QName, MapQ: r.MapQ, RName: fields[0], Pos: uint32(pos), Cigar: cigar.FromString(fields[2]), RNext: "*", Seq: r.Seq, Qual: r.Qual}
	}
	a.record = sam.Sam{
		QName: r.QName,
		Flag:  r.Flag,
		MapQ:  r.MapQ,
		RName: r.RName,
		Pos:   r.Pos,
		Cigar: r.Cigar,
		RNext: "*",
		Seq:   r.Seq,
		Qual:  r.Qual,
	}
	a.originalCigar, _ = tagString(r, TagOriginalCigar)
	return a, nil
}

// PairedRecords returns the assembly record paired with its partner: the remote anchor of a
// breakpoint assembly, the realignment of the breakend sequence, or an unmapped placeholder
// holding the breakend sequence. Neither record shares state with the assembly.
func (a *Assembly) PairedRecords() (primary, mate sam.Sam) {
	primary = copyRecord(a.Record())
	switch {
	case a.remote != nil:
		mate, _ = a.RemoteRecord()
		mate = copyRecord(mate)
	case a.realignment != nil:
		mate = copyRecord(*a.realignment)
	default:
		mate = sam.Sam{
			QName: a.record.QName,
			Flag:  0x4,
			Seq:   append([]dna.Base{}, a.BreakendSequence()...),
			Qual:  qualString(a.BreakendQuality()),
		}
	}
	mate.QName = primary.QName
	if mate.Flag&0x4 == 0x4 {
		// unmapped mates are placed with their partner (SAMv1 2.4)
		mate.RName = primary.RName
		mate.Pos = primary.Pos
		mate.Cigar = nil
	}
	primary.Flag = primary.Flag&^0xC0 | 0x1 | 0x40
	mate.Flag = mate.Flag&^0xC0 | 0x1 | 0x80
	pairMates(&primary, &mate)
	pairMates(&mate, &primary)
	return primary, mate
}

func copyRecord(r sam.Sam) sam.Sam {
	ans := r
	ans.Seq = append([]dna.Base{}, r.Seq...)
	ans.Cigar = append([]cigar.Cigar{}, r.Cigar...)
	return ans
}

// pairMates sets the mate fields of r from m.
func pairMates(r, m *sam.Sam) {
	r.RNext = m.RName
	if r.RName == m.RName {
		r.RNext = "="
	}
	r.PNext = m.Pos
	r.Flag &^= 0x28
	if m.Flag&0x4 == 0x4 {
		r.Flag |= 0x8
	}
	if m.Flag&0x10 == 0x10 {
		r.Flag |= 0x20
	}
	r.TLen = 0
}
