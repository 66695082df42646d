// Package repeats detects perfect tandem repeats in assembled sequence.
package repeats

import (
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/vertgenlab/gonomics/dna"
)

// DefaultMaxUnit is the longest repeat unit considered low complexity.
const DefaultMaxUnit int = 2

// BuildKmpFailure calculates the Knuth-Morris-Pratt failure function for input pattern
// based on https://www.personal.kent.edu/~rmuhamma/Algorithms/MyAlgorithms/StringMatch/kuthMP.htm
func BuildKmpFailure(pattern []dna.Base) []int {
	// failure[i] = length of the longest proper prefix of pattern[0:i] which is also a proper suffix of pattern[0:i]
	failure := make([]int, len(pattern))
	length := 0
	i := 1
	for i < len(pattern) {
		if pattern[i] == pattern[length] {
			failure[i] = length + 1
			length++
			i++
		} else {
			if length > 0 {
				// consider AAACAAAA and i = 7; i is not incremented here
				length = failure[length-1]
			} else {
				failure[i] = 0
				i++
			}
		}
	}
	return failure
}

// FindRepeat returns the shortest unit that tiles seq exactly and the number of copies.
// A sequence that is not a tandem repeat is its own unit with one copy. Case is ignored.
func FindRepeat(seq []dna.Base) (numRepeats int, repeatUnit []dna.Base) {
	if len(seq) == 0 {
		return 0, nil
	}
	upper := make([]dna.Base, len(seq))
	copy(upper, seq)
	dna.AllToUpper(upper)
	failure := BuildKmpFailure(upper)
	period := len(seq) - failure[len(failure)-1]
	if len(seq)%period != 0 {
		return 1, seq
	}
	return len(seq) / period, seq[:period]
}

// IsLowComplexity reports whether seq is at least two copies of a unit of no more than maxUnit bases.
func IsLowComplexity(seq []dna.Base, maxUnit int) bool {
	numRepeats, unit := FindRepeat(seq)
	return numRepeats > 1 && len(unit) <= maxUnit
}

// FilterLowComplexity marks a if its breakend sequence is low complexity and reports whether it did.
func FilterLowComplexity(a *assembly.Assembly, maxUnit int) bool {
	if a.BreakendLength() == 0 || !IsLowComplexity(a.BreakendSequence(), maxUnit) {
		return false
	}
	a.FilterAssembly(assembly.FilterLowComplexity)
	return true
}
