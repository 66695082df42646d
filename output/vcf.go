// Package output writes assemblies as VCF breakends, BAM records and FASTQ breakend sequences.
package output

import (
	"fmt"
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/fai"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/vcf"
	"strings"
)

// VcfWriter writes one breakend record per assembly, two for breakpoint assemblies.
type VcfWriter struct {
	out   *fileio.EasyWriter
	coord *linear.Coordinate
}

// NewVcfWriter creates filename and writes the header.
func NewVcfWriter(filename string, coord *linear.Coordinate, sample string) *VcfWriter {
	w := &VcfWriter{out: fileio.EasyCreate(filename), coord: coord}
	vcf.NewWriteHeader(w.out, makeVcfHeader(coord, sample))
	return w
}

func makeVcfHeader(coord *linear.Coordinate, sample string) vcf.Header {
	var header vcf.Header
	header.Text = append(header.Text, "##fileformat=VCFv4.2")
	header.Text = append(header.Text, strings.TrimSuffix(fai.VcfContigHeader(coord.Dictionary()), "\n"))
	header.Text = append(header.Text, "##INFO=<ID=SVTYPE,Number=1,Type=String,Description=\"Type of structural variant\">")
	header.Text = append(header.Text, "##INFO=<ID=MATEID,Number=.,Type=String,Description=\"ID of mate breakend\">")
	header.Text = append(header.Text, "##INFO=<ID=IMPRECISE,Number=0,Type=Flag,Description=\"Imprecise structural variation\">")
	header.Text = append(header.Text, "##INFO=<ID=CIPOS,Number=2,Type=Integer,Description=\"Confidence interval around POS\">")
	header.Text = append(header.Text, "##INFO=<ID=AS,Number=1,Type=Integer,Description=\"Assembled bases anchored to the reference\">")
	header.Text = append(header.Text, "##INFO=<ID=BL,Number=1,Type=Integer,Description=\"Assembled bases beyond the breakend\">")
	header.Text = append(header.Text, "##INFO=<ID=SC,Number=1,Type=Integer,Description=\"Evidence supporting the assembly\">")
	header.Text = append(header.Text, "##INFO=<ID=MQ,Number=1,Type=Integer,Description=\"Highest mapping quality of supporting evidence\">")
	header.Text = append(header.Text, fmt.Sprintf("##FILTER=<ID=%s,Description=\"Assembly matches the reference\">", assembly.FilterReference))
	header.Text = append(header.Text, fmt.Sprintf("##FILTER=<ID=%s,Description=\"Breakend sequence is a short tandem repeat\">", assembly.FilterLowComplexity))
	header.Text = append(header.Text, fmt.Sprintf("##FILTER=<ID=%s,Description=\"No evidence supports the assembled breakend\">", assembly.FilterNoSupport))
	header.Text = append(header.Text, "##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">")
	header.Text = append(header.Text, fmt.Sprintf("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t%s", sample))
	return header
}

// Write writes the breakend records of a.
func (w *VcfWriter) Write(a *assembly.Assembly) {
	for _, v := range w.ToVcf(a) {
		vcf.WriteVcf(w.out, v)
	}
}

// Close closes the output file.
func (w *VcfWriter) Close() error {
	return w.out.Close()
}

// ToVcf returns the breakend records of a.
func (w *VcfWriter) ToVcf(a *assembly.Assembly) []vcf.Vcf {
	b := a.Breakend()
	v := newBreakend(a, w.coord.Name(b.RefIdx), b.Start)
	if !a.IsExact() {
		v.Ref = "N"
		v.Alt = []string{singleBreakendAlt(b.Direction, "N", dna.BasesToString(a.BreakendSequence()))}
		v.Info += fmt.Sprintf(";IMPRECISE;CIPOS=0,%d", b.End-b.Start)
		return []vcf.Vcf{v}
	}
	anchor := dna.BasesToString(a.AnchorSequence())
	ref := "N"
	if len(anchor) > 0 {
		ref = anchor[len(anchor)-1:]
		if b.Direction == evidence.Backward {
			ref = anchor[:1]
		}
	}
	v.Ref = ref
	if !a.IsBreakpoint() {
		v.Alt = []string{singleBreakendAlt(b.Direction, ref, dna.BasesToString(a.BreakendSequence()))}
		return []vcf.Vcf{v}
	}

	bp := a.Breakpoint()
	ins := dna.BasesToString(a.InsertedSequence())
	remoteChr := w.coord.Name(bp.RefIdx2)
	v.Id = a.EvidenceID() + "_o"
	v.Alt = []string{breakpointAlt(b.Direction, ref, ins, bp.Direction2, remoteChr, bp.Start2)}
	v.Info += ";MATEID=" + a.EvidenceID() + "_h"

	m := newBreakend(a, remoteChr, bp.Start2)
	m.Id = a.EvidenceID() + "_h"
	m.Ref = remoteAnchorBase(a)
	m.Alt = []string{breakpointAlt(bp.Direction2, m.Ref, ins, b.Direction, v.Chr, b.Start)}
	m.Info += ";MATEID=" + v.Id
	return []vcf.Vcf{v, m}
}

func newBreakend(a *assembly.Assembly, chr string, pos int) vcf.Vcf {
	var v vcf.Vcf
	v.Chr = chr
	v.Pos = pos
	v.Id = a.EvidenceID()
	v.Qual = a.BreakendQual()
	v.Filter = "PASS"
	if len(a.Filters()) > 0 {
		v.Filter = strings.Join(a.Filters(), ";")
	}
	v.Info = fmt.Sprintf("SVTYPE=BND;AS=%d;BL=%d;SC=%d;MQ=%d", a.AnchorLength(), a.BreakendLength(), a.SupportingEvidenceCount(), a.LocalMapq())
	v.Format = []string{"GT"}
	v.Samples = make([]vcf.Sample, 1)
	v.Samples[0].Alleles = []int16{1}
	v.Samples[0].FormatData = []string{""}
	return v
}

func remoteAnchorBase(a *assembly.Assembly) string {
	r, found := a.RemoteRecord()
	if !found || len(r.Cigar) == 0 {
		return "N"
	}
	var lead int
	if r.Cigar[0].Op == 'S' {
		lead = r.Cigar[0].RunLength
	}
	if lead >= len(r.Seq) {
		return "N"
	}
	return string(dna.BaseToRune(r.Seq[lead]))
}

// singleBreakendAlt renders a breakend with no known partner.
func singleBreakendAlt(dir evidence.Direction, ref, seq string) string {
	if dir == evidence.Forward {
		return ref + seq + "."
	}
	return "." + seq + ref
}

// breakpointAlt renders the mated breakend notation of VCFv4.2 section 5.4.
func breakpointAlt(dir evidence.Direction, ref, ins string, remoteDir evidence.Direction, chr string, pos int) string {
	p := fmt.Sprintf("%s:%d", chr, pos)
	switch {
	case dir == evidence.Forward && remoteDir == evidence.Backward:
		return ref + ins + "[" + p + "["
	case dir == evidence.Forward:
		return ref + ins + "]" + p + "]"
	case remoteDir == evidence.Forward:
		return "]" + p + "]" + ins + ref
	default:
		return "[" + p + "[" + ins + ref
	}
}
