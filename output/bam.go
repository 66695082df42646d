package output

import (
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/vertgenlab/gonomics/chromInfo"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/sam"
)

// BamWriter writes each assembly as a record pair: the assembly and its remote anchor,
// realignment, or unmapped breakend placeholder.
type BamWriter struct {
	file *fileio.EasyWriter
	bw   *sam.BamWriter
}

// NewBamWriter creates an unsorted bam file over the given references.
func NewBamWriter(filename string, dict []chromInfo.ChromInfo) *BamWriter {
	file := fileio.EasyCreate(filename)
	return &BamWriter{file: file, bw: sam.NewBamWriter(file, sam.GenerateHeader(dict, nil, sam.Unsorted, sam.None))}
}

// Write writes the record pair of a.
func (w *BamWriter) Write(a *assembly.Assembly) {
	primary, mate := a.PairedRecords()
	sam.WriteToBamFileHandle(w.bw, primary, 0)
	sam.WriteToBamFileHandle(w.bw, mate, 0)
}

// Close flushes the bam and closes the file.
func (w *BamWriter) Close() error {
	if err := w.bw.Close(); err != nil {
		return err
	}
	return w.file.Close()
}
