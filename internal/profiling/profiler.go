package profiling

import (
	"fmt"
	"log"
	"strings"

	"trgemu/domain/dataset"
)

// ColumnProfiler summarises emulation output columns for the run report
type ColumnProfiler struct {
	only map[string]bool
}

// NewColumnProfiler creates a column profiler. When columns are given, only
// those output columns are summarised.
func NewColumnProfiler(columns ...string) *ColumnProfiler {
	p := &ColumnProfiler{}
	if len(columns) > 0 {
		p.only = make(map[string]bool, len(columns))
		for _, c := range columns {
			p.only[c] = true
		}
	}
	return p
}

// Profile summarises the named numeric and boolean columns of ds in the
// given order. String columns, unknown names and columns outside the
// profiler's selection are skipped.
func (p *ColumnProfiler) Profile(ds *dataset.Dataset, columns []string) []Summary {
	out := make([]Summary, 0, len(columns))
	for _, name := range columns {
		if p.only != nil && !p.only[name] {
			continue
		}
		c, ok := ds.Column(name)
		if !ok || c.Kind() == dataset.KindString {
			continue
		}
		s := Summary{Name: name, Kind: c.Kind().String()}
		if err := summarize(&s, c.Floats()); err != nil {
			log.Printf("[Profiler] Column %s: %v", name, err)
		}
		out = append(out, s)
	}
	return out
}

// Format renders summaries as an aligned text table
func Format(summaries []Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-34s %6s %8s %12s %12s %12s %12s\n", "column", "kind", "rows", "mean", "std", "min", "max")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%-34s %6s %8d %12.4g %12.4g %12.4g %12.4g\n", s.Name, s.Kind, s.Count, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return b.String()
}
