package feature

import (
	"strconv"

	"trgemu/domain/dataset"
)

// Spec says where each key of a feature record is read from for one
// candidate or one candidate pair.
type Spec struct {
	Candidate string
	Indices   []int
	keys      []string
	columns   []string
}

// Keys returns the record keys in field order.
func (s Spec) Keys() []string { return s.keys }

// Columns returns the dataset column read for each key.
func (s Spec) Columns() []string { return s.columns }

// Column returns the column feeding key, if present.
func (s Spec) Column(key string) (string, bool) {
	for i, k := range s.keys {
		if k == key {
			return s.columns[i], true
		}
	}
	return "", false
}

// TrackSpecs builds one spec per candidate reading "<candidate>_<column>".
func TrackSpecs(candidates []string, fields Fields) []Spec {
	out := make([]Spec, 0, len(candidates))
	for i, cand := range candidates {
		s := Spec{Candidate: cand, Indices: []int{i}, keys: fields.Keys(), columns: make([]string, len(fields))}
		for j, f := range fields {
			s.columns[j] = cand + "_" + f.Column
		}
		out = append(out, s)
	}
	return out
}

// PairSpecs builds one spec per unordered pair (i, j), i before j in
// indices, reading "<prefix>_<column>_<i>_<j>".
func PairSpecs(prefix string, fields Fields, indices []int) []Spec {
	combos := Combinations(len(indices), 2)
	out := make([]Spec, 0, len(combos))
	for _, c := range combos {
		a, b := indices[c[0]], indices[c[1]]
		suffix := "_" + strconv.Itoa(a) + "_" + strconv.Itoa(b)
		s := Spec{Candidate: prefix, Indices: []int{a, b}, keys: fields.Keys(), columns: make([]string, len(fields))}
		for j, f := range fields {
			s.columns[j] = prefix + "_" + f.Column + suffix
		}
		out = append(out, s)
	}
	return out
}

// Combinations returns every k-subset of {0..n-1} as ascending index
// slices, in lexicographic order.
func Combinations(n, k int) [][]int {
	if k <= 0 || k > n {
		return nil
	}
	var out [][]int
	cur := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			cur[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return out
}

// ColumnsOf returns every column read by specs, in order.
func ColumnsOf(specs []Spec) []string {
	var out []string
	for _, s := range specs {
		out = append(out, s.columns...)
	}
	return out
}

// Record is the ordered key to value view of one candidate or pair on one row.
type Record struct {
	Candidate string
	Indices   []int
	keys      []string
	values    []float64
}

// Bind reads the spec's columns from the row under the cursor. Missing
// columns surface through r.Err().
func (s Spec) Bind(r *dataset.Row) Record {
	rec := Record{Candidate: s.Candidate, Indices: s.Indices, keys: s.keys, values: make([]float64, len(s.columns))}
	for i, c := range s.columns {
		rec.values[i] = r.Float(c)
	}
	return rec
}

// BindAll binds every spec against the same row.
func BindAll(specs []Spec, r *dataset.Row) []Record {
	out := make([]Record, len(specs))
	for i, s := range specs {
		out[i] = s.Bind(r)
	}
	return out
}

// NewRecord builds a record directly from key/value pairs.
func NewRecord(keys []string, values []float64) Record {
	return Record{keys: keys, values: values}
}

// Get returns the value stored under key, or 0 when absent.
func (r Record) Get(key string) float64 {
	for i, k := range r.keys {
		if k == key {
			return r.values[i]
		}
	}
	return 0
}

// Has reports whether key is part of the record.
func (r Record) Has(key string) bool {
	for _, k := range r.keys {
		if k == key {
			return true
		}
	}
	return false
}

func (r Record) Keys() []string    { return r.keys }
func (r Record) Values() []float64 { return r.values }
