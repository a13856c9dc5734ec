package directive

import (
	"fmt"

	"trgemu/domain/core"
	"trgemu/domain/dataset"

	"github.com/expr-lang/expr/vm"
)

// Bound is a directive resolved against the columns of its base dataset.
// It is safe for concurrent use by multiple rows.
type Bound struct {
	d       Directive
	program *vm.Program
	refs    []string
	kinds   map[string]dataset.Kind
}

// Bind validates the directive against base. Expression directives are
// compiled once here; unknown identifiers fail with core.ErrUnknownColumn.
func (d Directive) Bind(base *dataset.Dataset) (*Bound, error) {
	b := &Bound{d: d}
	if d.IsExpr() {
		program, refs, kinds, err := compile(d, base)
		if err != nil {
			return nil, err
		}
		b.program, b.refs, b.kinds = program, refs, kinds
		return b, nil
	}

	for _, name := range d.needs {
		if !base.Has(name) {
			return nil, core.NewExpressionError(d.label(), core.NewUnknownColumnError(name))
		}
	}
	if d.kind == KindDefine && d.define == nil {
		return nil, core.NewExpressionError(d.label(), fmt.Errorf("define has no body"))
	}
	if d.kind == KindFilter && d.filter == nil {
		return nil, core.NewExpressionError(d.label(), fmt.Errorf("filter has no predicate"))
	}
	return b, nil
}

// Directive returns the unbound directive.
func (b *Bound) Directive() Directive { return b.d }

// Define evaluates the column value for the row under the cursor.
func (b *Bound) Define(r *dataset.Row) (dataset.Value, error) {
	if b.program != nil {
		out, err := evalExpr(b.program, b.refs, b.kinds, r)
		if err != nil {
			return dataset.Value{}, core.NewExpressionError(b.d.label(), err)
		}
		v, ok := dataset.FromAny(out)
		if !ok {
			return dataset.Value{}, core.NewExpressionError(b.d.label(), fmt.Errorf("%w: result of type %T", core.ErrTypeMismatch, out))
		}
		return v, nil
	}

	v, err := b.d.define(r)
	if err == nil {
		err = r.Err()
	}
	if err != nil {
		return dataset.Value{}, core.NewExpressionError(b.d.label(), err)
	}
	if !v.IsValid() {
		return dataset.Value{}, core.NewExpressionError(b.d.label(), fmt.Errorf("%w: define returned no value", core.ErrTypeMismatch))
	}
	return v, nil
}

// Keep evaluates the filter predicate for the row under the cursor.
func (b *Bound) Keep(r *dataset.Row) (bool, error) {
	if b.program != nil {
		out, err := evalExpr(b.program, b.refs, b.kinds, r)
		if err != nil {
			return false, core.NewExpressionError(b.d.label(), err)
		}
		keep, ok := out.(bool)
		if !ok {
			return false, core.NewExpressionError(b.d.label(), fmt.Errorf("%w: filter result of type %T", core.ErrTypeMismatch, out))
		}
		return keep, nil
	}

	keep, err := b.d.filter(r)
	if err == nil {
		err = r.Err()
	}
	if err != nil {
		return false, core.NewExpressionError(b.d.label(), err)
	}
	return keep, nil
}

func (d Directive) label() string {
	if d.kind == KindFilter {
		return "filter(" + d.describe() + ")"
	}
	return d.name
}
