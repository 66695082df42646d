package output

import (
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/vertgenlab/gonomics/fastq"
	"github.com/vertgenlab/gonomics/fileio"
)

// FastqWriter writes the breakend sequence of each assembly for resequencing.
type FastqWriter struct {
	out *fileio.EasyWriter
}

// NewFastqWriter creates filename.
func NewFastqWriter(filename string) *FastqWriter {
	return &FastqWriter{out: fileio.EasyCreate(filename)}
}

// Write writes the breakend sequence of a. Assemblies without breakend bases are skipped.
func (w *FastqWriter) Write(a *assembly.Assembly) {
	if a.BreakendLength() == 0 {
		return
	}
	fastq.WriteToFileHandle(w.out, fastq.Fastq{
		Name: a.EvidenceID(),
		Seq:  a.BreakendSequence(),
		Qual: a.BreakendQuality(),
	})
}

// Close closes the output file.
func (w *FastqWriter) Close() error {
	return w.out.Close()
}
