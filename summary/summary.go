// Package summary reports statistics over a set of assemblies.
package summary

import (
	"fmt"
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/guptarohit/asciigraph"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"strings"
)

// Summary counts assemblies by class.
type Summary struct {
	Assemblies  int
	Exact       int
	Inexact     int
	Breakpoints int
	Filtered    int
	Filters     map[string]int

	BreakendLengths []float64
	Quals           []float64
}

// New returns an empty Summary.
func New() *Summary {
	return &Summary{Filters: make(map[string]int)}
}

// Summarize collects the statistics of assemblies.
func Summarize(assemblies []*assembly.Assembly) *Summary {
	s := New()
	for _, a := range assemblies {
		s.Add(a)
	}
	return s
}

// Add counts a.
func (s *Summary) Add(a *assembly.Assembly) {
	s.Assemblies++
	if a.IsExact() {
		s.Exact++
	} else {
		s.Inexact++
	}
	if a.IsBreakpoint() {
		s.Breakpoints++
	}
	if len(a.Filters()) > 0 {
		s.Filtered++
	}
	for _, f := range a.Filters() {
		s.Filters[f]++
	}
	s.BreakendLengths = append(s.BreakendLengths, float64(a.BreakendLength()))
	s.Quals = append(s.Quals, a.BreakendQual())
}

// BreakendLength returns the mean and standard deviation of breakend lengths.
func (s *Summary) BreakendLength() (mean, stdDev float64) {
	if len(s.BreakendLengths) < 2 {
		return stat.Mean(s.BreakendLengths, nil), 0
	}
	return stat.MeanStdDev(s.BreakendLengths, nil)
}

func (s *Summary) String() string {
	ans := new(strings.Builder)
	mean, sd := s.BreakendLength()
	fmt.Fprintf(ans, "Assemblies:\t%d\n", s.Assemblies)
	fmt.Fprintf(ans, "Exact:\t%d\n", s.Exact)
	fmt.Fprintf(ans, "Inexact:\t%d\n", s.Inexact)
	fmt.Fprintf(ans, "Breakpoints:\t%d\n", s.Breakpoints)
	fmt.Fprintf(ans, "Filtered:\t%d\n", s.Filtered)
	filters := maps.Keys(s.Filters)
	slices.Sort(filters)
	for _, f := range filters {
		fmt.Fprintf(ans, "  %s:\t%d\n", f, s.Filters[f])
	}
	if s.Assemblies > 0 {
		fmt.Fprintf(ans, "Breakend length:\t%.1f +/- %.1f\n", mean, sd)
		fmt.Fprintf(ans, "Mean breakend quality:\t%.1f\n", stat.Mean(s.Quals, nil))
	}
	return ans.String()
}

// histogram counts breakend lengths in bins of equal width.
func (s *Summary) histogram(bins int) []float64 {
	if len(s.BreakendLengths) == 0 || bins < 1 {
		return nil
	}
	width := floats.Max(s.BreakendLengths)/float64(bins) + 1
	ans := make([]float64, bins)
	for _, l := range s.BreakendLengths {
		i := int(l / width)
		if i >= bins {
			i = bins - 1
		}
		ans[i]++
	}
	return ans
}

// Plot renders the breakend length distribution for the terminal.
func (s *Summary) Plot() string {
	hist := s.histogram(50)
	if hist == nil {
		return ""
	}
	return asciigraph.Plot(hist, asciigraph.Height(10), asciigraph.Precision(0), asciigraph.Caption("breakend length distribution"))
}

// SaveHistogram writes a histogram of breakend lengths to filename. The format is taken from
// the file extension.
func (s *Summary) SaveHistogram(filename string) error {
	if len(s.BreakendLengths) == 0 {
		return fmt.Errorf("no assemblies to plot")
	}
	p := plot.New()
	p.Title.Text = "Breakend length"
	p.X.Label.Text = "Assembled bases beyond the breakend"
	p.Y.Label.Text = "Assemblies"
	h, err := plotter.NewHist(plotter.Values(s.BreakendLengths), 50)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(15*vg.Centimeter, 10*vg.Centimeter, filename)
}
