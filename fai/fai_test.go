package fai

import (
	"errors"
	"github.com/vertgenlab/gonomics/dna"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testFasta = ">chr1\nACGTACGTAC\nGGTT\n>chr2\nTTTTT\n"
const testFai = "chr1\t14\t6\t10\t11\nchr2\t5\t28\t5\t6\n"

func writeReference(t *testing.T) string {
	dir := t.TempDir()
	fa := filepath.Join(dir, "ref.fa")
	if err := os.WriteFile(fa, []byte(testFasta), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fa+".fai", []byte(testFai), 0644); err != nil {
		t.Fatal(err)
	}
	return fa
}

func TestReadIndex(t *testing.T) {
	fa := writeReference(t)
	idx, err := ReadIndex(fa + ".fai")
	if err != nil {
		t.Fatal(err)
	}
	if idx.String() != testFai || idx.Size("chr2") != 5 || idx.Size("chrX") != -1 {
		t.Error("problem reading index", idx.String())
	}
	d := idx.Dictionary()
	if len(d) != 2 || d[1].Name != "chr2" || d[1].Order != 1 {
		t.Error("problem with dictionary", d)
	}
	if !strings.Contains(VcfContigHeader(d), "##contig=<ID=chr1,length=14>\n") {
		t.Error("problem with contig header", VcfContigHeader(d))
	}

	bad := filepath.Join(t.TempDir(), "bad.fai")
	if err = os.WriteFile(bad, []byte("chr1\t14\t6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err = ReadIndex(bad); err == nil {
		t.Error("problem rejecting malformed index")
	}
}

func TestReference(t *testing.T) {
	ref, err := OpenReference(writeReference(t))
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()
	seq, err := ref.Subsequence("chr1", 9, 12)
	if err != nil || dna.BasesToString(seq) != "ACGG" {
		t.Error("problem reading subsequence", dna.BasesToString(seq), err)
	}
	if n, _ := ref.SequenceLength("chr1"); n != 14 {
		t.Error("problem with sequence length", n)
	}
	if _, err = ref.SequenceLength("chrX"); !errors.Is(err, ErrUnknownSequence) {
		t.Error("problem with unknown sequence", err)
	}
	if _, err = ref.Subsequence("chr2", 3, 6); err == nil {
		t.Error("problem rejecting out of bounds request")
	}
}
