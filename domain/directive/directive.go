package directive

import (
	"fmt"

	"trgemu/domain/core"
	"trgemu/domain/dataset"
)

// Kind distinguishes the two directive variants.
type Kind int

const (
	KindDefine Kind = iota
	KindFilter
)

func (k Kind) String() string {
	switch k {
	case KindDefine:
		return "define"
	case KindFilter:
		return "filter"
	}
	return "unknown"
}

// DefineFunc computes the value of a new column for one row.
type DefineFunc func(r *dataset.Row) (dataset.Value, error)

// Predicate decides whether a row survives a filter.
type Predicate func(r *dataset.Row) (bool, error)

// Directive is one step of a transformation plan: either a Define that adds
// (or replaces) a named column, or an anonymous Filter that drops rows.
// Fields are unexported so a filter can never carry a name or be retained.
type Directive struct {
	kind   Kind
	name   string
	retain bool
	define DefineFunc
	filter Predicate
	src    string
	needs  []string
}

// Option adjusts a directive at construction.
type Option func(*Directive)

// Uses declares the columns a closure directive reads, so that Bind can
// reject a plan before any row is evaluated.
func Uses(columns ...string) Option {
	return func(d *Directive) {
		d.needs = append(d.needs, columns...)
	}
}

// Describe sets the text recorded for a closure directive in plan hashes and
// logs. Expression directives describe themselves by their source.
func Describe(text string) Option {
	return func(d *Directive) {
		d.src = text
	}
}

// Define creates a column-producing directive from a typed closure.
func Define(name string, fn DefineFunc, retain bool, opts ...Option) Directive {
	d := Directive{kind: KindDefine, name: name, retain: retain, define: fn}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Filter creates a row-selecting directive from a typed closure.
func Filter(pred Predicate, opts ...Option) Directive {
	d := Directive{kind: KindFilter, filter: pred}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// DefineFloat is Define for the common case of a float-valued closure that
// only reads the row.
func DefineFloat(name string, fn func(r *dataset.Row) float64, retain bool, opts ...Option) Directive {
	return Define(name, func(r *dataset.Row) (dataset.Value, error) {
		return dataset.Float(fn(r)), nil
	}, retain, opts...)
}

// DefineBool is Define for a boolean-valued closure that only reads the row.
func DefineBool(name string, fn func(r *dataset.Row) bool, retain bool, opts ...Option) Directive {
	return Define(name, func(r *dataset.Row) (dataset.Value, error) {
		return dataset.Bool(fn(r)), nil
	}, retain, opts...)
}

// Alias defines name as a copy of an existing column.
func Alias(name, column string, retain bool) Directive {
	return Define(name, func(r *dataset.Row) (dataset.Value, error) {
		return r.Value(column), nil
	}, retain, Uses(column), Describe(column))
}

func (d Directive) Kind() Kind { return d.kind }

// References returns the columns the directive reads: the parsed identifiers
// of an expression, or the Uses declaration of a closure.
func (d Directive) References() ([]string, error) {
	if d.IsExpr() {
		refs, err := References(d.src)
		if err != nil {
			return nil, core.NewExpressionError(d.label(), err)
		}
		return refs, nil
	}
	return d.needs, nil
}

// Name is empty for filters.
func (d Directive) Name() string { return d.name }

// Retain reports whether the column is part of the output. Always false for filters.
func (d Directive) Retain() bool { return d.retain }

// Source returns the expression text, or the description of a closure.
func (d Directive) Source() string { return d.src }

// IsExpr reports whether the directive is compiled from an expression string.
func (d Directive) IsExpr() bool {
	return d.src != "" && d.define == nil && d.filter == nil
}

// String renders the directive the way run logs and plan hashes see it.
func (d Directive) String() string {
	switch d.kind {
	case KindDefine:
		flag := ""
		if d.retain {
			flag = " [retain]"
		}
		return fmt.Sprintf("define %s = %s%s", d.name, d.describe(), flag)
	case KindFilter:
		return fmt.Sprintf("filter %s", d.describe())
	}
	return "invalid directive"
}

func (d Directive) describe() string {
	if d.src != "" {
		return d.src
	}
	return "<closure>"
}
