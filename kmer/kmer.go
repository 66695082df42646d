// Package kmer packs fixed length windows of nucleotides into integers, two bits per base.
package kmer

import (
	"github.com/vertgenlab/gonomics/dna"
	"golang.org/x/exp/slices"
	"strings"
)

// MaxK is the longest k-mer that fits in a Kmer.
const MaxK int = 32

// Kmer is a 2-bit packed sequence of at most MaxK bases. The first base occupies the highest bits.
type Kmer uint64

// ReadKmer is one window of a read. Value is meaningless when Ambiguous is set.
type ReadKmer struct {
	Value     Kmer
	Ambiguous bool
}

const invalidBits uint8 = 255

// baseBits encodes a base. Soft-masked bases encode as their upper case form.
func baseBits(b dna.Base) uint8 {
	switch b {
	case dna.A, dna.LowerA:
		return 0
	case dna.C, dna.LowerC:
		return 1
	case dna.G, dna.LowerG:
		return 2
	case dna.T, dna.LowerT:
		return 3
	default:
		return invalidBits
	}
}

var bitsToBase = [4]dna.Base{dna.A, dna.C, dna.G, dna.T}

func mask(k int) Kmer {
	if k >= MaxK {
		return ^Kmer(0)
	}
	return ^(^Kmer(0) << Kmer(2*k))
}

// Encode packs seq into a single k-mer of length len(seq).
func Encode(seq []dna.Base) ReadKmer {
	var ans ReadKmer
	var bits uint8
	for i := range seq {
		bits = baseBits(seq[i])
		if bits == invalidBits {
			return ReadKmer{Ambiguous: true}
		}
		ans.Value = ans.Value<<2 | Kmer(bits)
	}
	return ans
}

// Kmers returns every length k window of seq in sequence order.
func Kmers(seq []dna.Base, k int) []ReadKmer {
	if k <= 0 || k > MaxK || len(seq) < k {
		return nil
	}
	ans := make([]ReadKmer, len(seq)-k+1)
	m := mask(k)
	var curr Kmer
	var lastAmbiguous int = -1 // index of the most recent ambiguous base
	var bits uint8
	for i := range seq {
		bits = baseBits(seq[i])
		if bits == invalidBits {
			lastAmbiguous = i
			bits = 0
		}
		curr = (curr<<2 | Kmer(bits)) & m
		if i >= k-1 {
			ans[i-k+1] = ReadKmer{Value: curr, Ambiguous: lastAmbiguous > i-k}
		}
	}
	return ans
}

// Bases unpacks km into k bases.
func (km Kmer) Bases(k int) []dna.Base {
	ans := make([]dna.Base, k)
	for i := k - 1; i >= 0; i-- {
		ans[i] = bitsToBase[km&3]
		km >>= 2
	}
	return ans
}

// LastBase returns the final base of km.
func (km Kmer) LastBase() dna.Base {
	return bitsToBase[km&3]
}

// FirstBase returns the leading base of a length k km.
func (km Kmer) FirstBase(k int) dna.Base {
	return bitsToBase[(km>>Kmer(2*(k-1)))&3]
}

// Successors returns the four k-mers that overlap km by k-1 bases on its right.
func (km Kmer) Successors(k int) [4]Kmer {
	var ans [4]Kmer
	m := mask(k)
	for i := range ans {
		ans[i] = (km<<2 | Kmer(i)) & m
	}
	return ans
}

// Predecessors returns the four k-mers that overlap km by k-1 bases on its left.
func (km Kmer) Predecessors(k int) [4]Kmer {
	var ans [4]Kmer
	for i := range ans {
		ans[i] = km>>2 | Kmer(i)<<Kmer(2*(k-1))
	}
	return ans
}

// ReverseComplement returns the reverse complement of a length k km.
func (km Kmer) ReverseComplement(k int) Kmer {
	var ans Kmer
	for i := 0; i < k; i++ {
		ans = ans<<2 | (3 - km&3)
		km >>= 2
	}
	return ans
}

// ReverseComplementKmers turns the windows of a sequence into the windows of its
// reverse complement, in place.
func ReverseComplementKmers(kmers []ReadKmer, k int) {
	slices.Reverse(kmers)
	for i := range kmers {
		kmers[i].Value = kmers[i].Value.ReverseComplement(k)
	}
}

// String returns km as a length k string.
func (km Kmer) String(k int) string {
	s := new(strings.Builder)
	for _, b := range km.Bases(k) {
		s.WriteRune(dna.BaseToRune(b))
	}
	return s.String()
}
