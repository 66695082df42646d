// Package extract exports the sequence of reads that did not align to the reference.
package extract

import (
	"fmt"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fastq"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/sam"
	"sort"
)

// SAM format uses ascii offset of 33 to make everything start with individual characters
// without adding 33 you get values like spaces and newlines
const asciiOffset uint8 = 33

// Config controls which unaligned sequences are exported.
type Config struct {
	MinSequenceLength int
	IncludeSoftClips  bool // export the longest unaligned stretch of partially aligned reads
	IncludeInternal   bool // consider stretches flanked by chimeric alignments
	UniqueNames       bool // suffix names with /1 or /2
}

// DefaultConfig returns the default export settings.
func DefaultConfig() Config {
	return Config{MinSequenceLength: 20, IncludeSoftClips: true}
}

// Stats counts the exported sequences.
type Stats struct {
	Records   int
	Unmapped  int
	Clipped   int
	Malformed int
}

// UnmappedSequences writes the unaligned sequence of each primary record to fq. The names of
// exported fragments with an aligned read are written to names if it is not nil.
func UnmappedSequences(records <-chan sam.Sam, cfg Config, fq *fileio.EasyWriter, names *fileio.EasyWriter) (Stats, error) {
	var stats Stats
	var rec fastq.Fastq
	var found bool
	var err error
	for r := range records {
		stats.Records++
		if rec, found, err = unalignedSequence(&r, cfg); err != nil {
			stats.Malformed++
			continue
		}
		if !found || len(rec.Seq) < cfg.MinSequenceLength {
			continue
		}
		if sam.IsUnmapped(r) {
			stats.Unmapped++
		} else {
			stats.Clipped++
		}
		fastq.WriteToFileHandle(fq, rec)
		if names != nil && (!sam.IsUnmapped(r) || (sam.IsPaired(r) && !sam.MateIsUnmapped(r))) {
			if _, err = fmt.Fprintln(names, r.QName); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

func clipLengths(r *sam.Sam) (start, end int) {
	for i := 0; i < len(r.Cigar) && (r.Cigar[i].Op == 'S' || r.Cigar[i].Op == 'H'); i++ {
		start += r.Cigar[i].RunLength
	}
	for i := len(r.Cigar) - 1; i >= 0 && (r.Cigar[i].Op == 'S' || r.Cigar[i].Op == 'H'); i-- {
		end += r.Cigar[i].RunLength
	}
	return
}

type span struct {
	start, end int
}

// unalignedSpans returns the read offsets not covered by any alignment, in sequencing orientation.
func unalignedSpans(alignments []evidence.ChimericAlignment, length int) []span {
	aligned := make([]span, 0, len(alignments))
	for _, c := range alignments {
		s, e := c.QueryInterval()
		aligned = append(aligned, span{start: s, end: e})
	}
	sort.Slice(aligned, func(i, j int) bool { return aligned[i].start < aligned[j].start })
	var ans []span
	var pos int
	for _, a := range aligned {
		if a.start > pos {
			ans = append(ans, span{start: pos, end: a.start})
		}
		if a.end > pos {
			pos = a.end
		}
	}
	if pos < length {
		ans = append(ans, span{start: pos, end: length})
	}
	return ans
}

// fullRead returns the bases and qualities of r in sequencing orientation, with hard clipped
// bases restored as N.
func fullRead(r *sam.Sam) ([]dna.Base, []uint8) {
	var leadHard, trailHard int
	if len(r.Cigar) > 0 && r.Cigar[0].Op == 'H' {
		leadHard = r.Cigar[0].RunLength
	}
	if len(r.Cigar) > 1 && r.Cigar[len(r.Cigar)-1].Op == 'H' {
		trailHard = r.Cigar[len(r.Cigar)-1].RunLength
	}
	n := leadHard + len(r.Seq) + trailHard
	bases := make([]dna.Base, n)
	quals := make([]uint8, n)
	for i := range bases {
		bases[i] = dna.N
	}
	copy(bases[leadHard:], r.Seq)
	if len(r.Qual) == len(r.Seq) {
		for i := 0; i < len(r.Qual); i++ {
			quals[leadHard+i] = r.Qual[i] - asciiOffset
		}
	}
	if !sam.IsPosStrand(*r) {
		dna.ReverseComplement(bases)
		for i, j := 0, len(quals)-1; i < j; i, j = i+1, j-1 {
			quals[i], quals[j] = quals[j], quals[i]
		}
	}
	return bases, quals
}

func unalignedSequence(r *sam.Sam, cfg Config) (fastq.Fastq, bool, error) {
	var ans fastq.Fastq
	if sam.IsNotPrimaryAlign(*r) || sam.IsSupplementaryAlign(*r) {
		return ans, false, nil
	}
	ans.Name = r.QName
	if cfg.UniqueNames {
		switch {
		case r.Flag&0x40 == 0x40:
			ans.Name += "/1"
		case r.Flag&0x80 == 0x80:
			ans.Name += "/2"
		}
	}
	if sam.IsUnmapped(*r) {
		ans.Seq, ans.Qual = rawRead(r)
		return ans, true, nil
	}
	if !cfg.IncludeSoftClips {
		return ans, false, nil
	}
	start, end := clipLengths(r)
	if start < cfg.MinSequenceLength && end < cfg.MinSequenceLength {
		return ans, false, nil
	}
	chimeric, err := evidence.ChimericAlignments(r)
	if err != nil {
		return ans, false, fmt.Errorf("%s: %w", r.QName, err)
	}
	alignments := append([]evidence.ChimericAlignment{evidence.NewChimericAlignment(r)}, chimeric...)
	length := alignments[0].ReadLength()
	var best span
	for _, s := range unalignedSpans(alignments, length) {
		if !cfg.IncludeInternal && s.start != 0 && s.end != length {
			continue
		}
		if s.end-s.start > best.end-best.start {
			best = s
		}
	}
	if best.end == best.start {
		return ans, false, nil
	}
	bases, quals := fullRead(r)
	if best.end > len(bases) {
		return ans, false, fmt.Errorf("%s: cigar does not match read length", r.QName)
	}
	ans.Seq, ans.Qual = bases[best.start:best.end], quals[best.start:best.end]
	return ans, true, nil
}

// rawRead returns the bases and qualities of r as stored.
func rawRead(r *sam.Sam) ([]dna.Base, []uint8) {
	bases := append([]dna.Base{}, r.Seq...)
	quals := make([]uint8, len(bases))
	if len(r.Qual) == len(r.Seq) {
		for i := 0; i < len(r.Qual); i++ {
			quals[i] = r.Qual[i] - asciiOffset
		}
	}
	return bases, quals
}
