package evidence

import (
	"fmt"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/sam"
	"strconv"
	"strings"
)

// ChimericAlignment is one segment of a split read alignment, as listed in the SA tag.
type ChimericAlignment struct {
	RName    string
	Pos      int // 1-based
	Negative bool
	Cigar    []cigar.Cigar
	MapQ     int
	NM       int
}

// NewChimericAlignment describes the alignment of the record itself.
func NewChimericAlignment(r *sam.Sam) ChimericAlignment {
	return ChimericAlignment{
		RName:    r.RName,
		Pos:      int(r.Pos),
		Negative: !sam.IsPosStrand(*r),
		Cigar:    r.Cigar,
		MapQ:     int(r.MapQ),
	}
}

// ChimericAlignments returns the other segments listed in the SA tag of r. Records without
// tags, including those not decoded from bam, have none.
func ChimericAlignments(r *sam.Sam) ([]ChimericAlignment, error) {
	query, found, err := sam.QueryTag(*r, "SA")
	if err != nil || !found {
		return nil, nil
	}
	sa, ok := query.(string)
	if !ok {
		return nil, fmt.Errorf("SA tag is not a string")
	}
	return ParseChimericAlignments(sa)
}

// ParseChimericAlignments parses the value of an SA tag.
func ParseChimericAlignments(sa string) ([]ChimericAlignment, error) {
	var ans []ChimericAlignment
	var fields []string
	var curr ChimericAlignment
	var err error
	for _, s := range strings.Split(sa, ";") {
		if s == "" {
			continue
		}
		fields = strings.Split(s, ",")
		if len(fields) != 6 {
			return nil, fmt.Errorf("malformed SA tag entry '%s'", s)
		}
		curr.RName = fields[0]
		if curr.Pos, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("malformed SA tag position '%s': %w", s, err)
		}
		switch fields[2] {
		case "+":
			curr.Negative = false
		case "-":
			curr.Negative = true
		default:
			return nil, fmt.Errorf("malformed SA tag strand '%s'", s)
		}
		curr.Cigar = cigar.FromString(fields[3])
		if curr.MapQ, err = strconv.Atoi(fields[4]); err != nil {
			return nil, fmt.Errorf("malformed SA tag mapq '%s': %w", s, err)
		}
		if curr.NM, err = strconv.Atoi(fields[5]); err != nil {
			return nil, fmt.Errorf("malformed SA tag edit distance '%s': %w", s, err)
		}
		ans = append(ans, curr)
	}
	return ans, nil
}

// ReadLength is the length of the full read, clipped bases included.
func (c ChimericAlignment) ReadLength() int {
	return queryLength(c.Cigar)
}

// AlignmentEnd is the 1-based position of the last aligned base.
func (c ChimericAlignment) AlignmentEnd() int {
	return c.Pos + referenceLength(c.Cigar) - 1
}

// QueryInterval returns the aligned bases [start, end) as offsets in the original
// sequencing orientation of the read.
func (c ChimericAlignment) QueryInterval() (start, end int) {
	leadSoft, leadHard, trailSoft, trailHard := clipLengths(c.Cigar)
	length := c.ReadLength()
	start = leadSoft + leadHard
	end = length - trailSoft - trailHard
	if c.Negative {
		start, end = length-end, length-start
	}
	return start, end
}

func (c ChimericAlignment) String() string {
	var strand byte = '+'
	if c.Negative {
		strand = '-'
	}
	return fmt.Sprintf("%s,%d,%c,%s,%d,%d", c.RName, c.Pos, strand, cigar.ToString(c.Cigar), c.MapQ, c.NM)
}
