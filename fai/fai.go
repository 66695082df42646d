// Package fai provides random access to an indexed fasta reference.
package fai

import (
	"errors"
	"fmt"
	"github.com/vertgenlab/gonomics/chromInfo"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fasta"
	"github.com/vertgenlab/gonomics/fileio"
	"strconv"
	"strings"
	"sync"
)

var ErrUnknownSequence = errors.New("sequence not found in reference index")

// Index stores the byte offset for each fasta sequencing allowing for efficient random access.
type Index struct {
	chroms  []chrOffset    // for search by index
	nameMap map[string]int // maps chr name to index in chroms
}

// String method for Index enables easy writing with the fmt package.
func (idx Index) String() string {
	answer := new(strings.Builder)
	for i := range idx.chroms {
		answer.WriteString(idx.chroms[i].String())
		answer.WriteByte('\n')
	}
	return answer.String()
}

// Size returns the length of chr, or -1 if chr is not in the index.
func (idx Index) Size(chr string) int {
	i, found := idx.nameMap[chr]
	if !found {
		return -1
	}
	return idx.chroms[i].len
}

// Dictionary lists the indexed sequences in file order.
func (idx Index) Dictionary() []chromInfo.ChromInfo {
	ans := make([]chromInfo.ChromInfo, len(idx.chroms))
	for i := range idx.chroms {
		ans[i] = chromInfo.ChromInfo{Name: idx.chroms[i].name, Size: idx.chroms[i].len, Order: i}
	}
	return ans
}

// chrOffset has offset information about each reference. Equivalent to one line of a fai file.
type chrOffset struct {
	name         string // Name of this reference sequence
	len          int    // Total length of this reference sequence, in bases
	offset       int    // Offset within the FASTA file of this sequence's first base
	basesPerLine int    // The number of bases on each line
	bytesPerLine int    // The number of bytes in each line, including the newline
}

// String method for chrOffset enables easy writing with the fmt package.
func (c chrOffset) String() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%d", c.name, c.len, c.offset, c.basesPerLine, c.bytesPerLine)
}

// ReadIndex reads a fai index file to an Index struct that can be used for random access.
func ReadIndex(filename string) (Index, error) {
	file := fileio.EasyOpen(filename)
	var answer Index
	var curr chrOffset
	var line string
	var col []string
	var done bool
	var err error
	var lineNum int
	fields := []*int{&curr.len, &curr.offset, &curr.basesPerLine, &curr.bytesPerLine}
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		lineNum++
		col = strings.Split(line, "\t")
		if len(col) != 5 {
			file.Close()
			return Index{}, fmt.Errorf("malformed index file %s line %d: expected 5 columns, found %d", filename, lineNum, len(col))
		}
		curr.name = col[0]
		for i := range fields {
			if *fields[i], err = strconv.Atoi(col[i+1]); err != nil {
				file.Close()
				return Index{}, fmt.Errorf("malformed index file %s line %d: %w", filename, lineNum, err)
			}
		}
		answer.chroms = append(answer.chroms, curr)
	}

	if err = file.Close(); err != nil {
		return Index{}, err
	}

	answer.nameMap = make(map[string]int)
	for i := range answer.chroms {
		answer.nameMap[answer.chroms[i].name] = i
	}
	return answer, nil
}

// VcfContigHeader renders the contig lines of a vcf header.
func VcfContigHeader(chroms []chromInfo.ChromInfo) string {
	ans := new(strings.Builder)
	for i := range chroms {
		ans.WriteString(fmt.Sprintf("##contig=<ID=%s,length=%d>\n", chroms[i].Name, chroms[i].Size))
	}
	return ans.String()
}

// Reference reads subsequences from an indexed fasta. It is safe for concurrent use.
type Reference struct {
	idx    Index
	seeker *fasta.Seeker
	mu     sync.Mutex
}

// OpenReference opens fastaFile using the index at fastaFile.fai.
func OpenReference(fastaFile string) (*Reference, error) {
	idx, err := ReadIndex(fastaFile + ".fai")
	if err != nil {
		return nil, err
	}
	return &Reference{idx: idx, seeker: fasta.NewSeeker(fastaFile, fastaFile+".fai")}, nil
}

// Subsequence returns bases [start, end] of name, 1-based inclusive.
func (r *Reference) Subsequence(name string, start, end int) ([]dna.Base, error) {
	size := r.idx.Size(name)
	if size < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownSequence)
	}
	if start < 1 || end > size || start > end {
		return nil, fmt.Errorf("requested %s:%d-%d outside of sequence of length %d", name, start, end, size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fasta.SeekByName(r.seeker, name, start-1, end)
}

// SequenceLength returns the length of name.
func (r *Reference) SequenceLength(name string) (int, error) {
	size := r.idx.Size(name)
	if size < 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrUnknownSequence)
	}
	return size, nil
}

// Dictionary lists the reference sequences.
func (r *Reference) Dictionary() []chromInfo.ChromInfo {
	return r.idx.Dictionary()
}

// Close releases the underlying file.
func (r *Reference) Close() {
	r.seeker.Close()
}
