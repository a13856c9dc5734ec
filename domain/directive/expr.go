package directive

import (
	"fmt"
	"math"
	"sort"

	"trgemu/domain/core"
	"trgemu/domain/dataset"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// DefineExpr creates a Define whose value is an expression over the columns
// of the base dataset, for example "FitVar_q2 / 1e6" or "log(d0_PT)".
func DefineExpr(name, src string, retain bool) Directive {
	return Directive{kind: KindDefine, name: name, retain: retain, src: src}
}

// FilterExpr creates a Filter from a boolean expression, for example
// "NumSPDHits < 450".
func FilterExpr(src string) Directive {
	return Directive{kind: KindFilter, src: src}
}

// mathFunctions are available to every expression in addition to the
// interpreter builtins.
var mathFunctions = map[string]func(float64) float64{
	"log":   math.Log,
	"log10": math.Log10,
	"exp":   math.Exp,
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"atan":  math.Atan,
	"acos":  math.Acos,
}

var binaryFunctions = map[string]func(float64, float64) float64{
	"pow":   math.Pow,
	"hypot": math.Hypot,
	"atan2": math.Atan2,
	"fmax":  math.Max,
	"fmin":  math.Min,
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: expected number, got %T", core.ErrTypeMismatch, v)
}

func functionOptions() []expr.Option {
	opts := make([]expr.Option, 0, len(mathFunctions)+len(binaryFunctions))
	for name, fn := range mathFunctions {
		fn := fn
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%w: %s takes one argument", core.ErrTypeMismatch, name)
			}
			x, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			return fn(x), nil
		}))
	}
	for name, fn := range binaryFunctions {
		fn := fn
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("%w: %s takes two arguments", core.ErrTypeMismatch, name)
			}
			x, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			y, err := toFloat(params[1])
			if err != nil {
				return nil, err
			}
			return fn(x, y), nil
		}))
	}
	return opts
}

// identifierCollector gathers the free names of an expression, separating
// function callees from variable references.
type identifierCollector struct {
	names map[string]bool
	calls map[string]bool
}

func (c *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.names[n.Value] = true
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.calls[id.Value] = true
		}
	}
}

// References parses src and returns the column names it reads, sorted.
func References(src string) ([]string, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	c := &identifierCollector{names: map[string]bool{}, calls: map[string]bool{}}
	ast.Walk(&tree.Node, c)

	refs := make([]string, 0, len(c.names))
	for name := range c.names {
		if c.calls[name] {
			continue
		}
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs, nil
}

func zeroOf(k dataset.Kind) any {
	switch k {
	case dataset.KindInt:
		return int64(0)
	case dataset.KindBool:
		return false
	case dataset.KindString:
		return ""
	}
	return float64(0)
}

// compile checks every referenced name against the base dataset and builds
// the program with an environment typed by the base columns.
func compile(d Directive, base *dataset.Dataset) (*vm.Program, []string, map[string]dataset.Kind, error) {
	refs, err := References(d.src)
	if err != nil {
		return nil, nil, nil, core.NewExpressionError(d.label(), err)
	}

	env := make(map[string]any, len(refs))
	kinds := make(map[string]dataset.Kind, len(refs))
	for _, name := range refs {
		c, ok := base.Column(name)
		if !ok {
			return nil, nil, nil, core.NewExpressionError(d.label(), core.NewUnknownColumnError(name))
		}
		env[name] = zeroOf(c.Kind())
		kinds[name] = c.Kind()
	}

	opts := append(functionOptions(), expr.Env(env))
	if d.kind == KindFilter {
		opts = append(opts, expr.AsBool())
	}
	program, err := expr.Compile(d.src, opts...)
	if err != nil {
		return nil, nil, nil, core.NewExpressionError(d.label(), err)
	}
	return program, refs, kinds, nil
}

func evalExpr(program *vm.Program, refs []string, kinds map[string]dataset.Kind, r *dataset.Row) (any, error) {
	env := make(map[string]any, len(refs))
	for _, name := range refs {
		switch kinds[name] {
		case dataset.KindInt:
			env[name] = r.Int(name)
		case dataset.KindBool:
			env[name] = r.Bool(name)
		case dataset.KindString:
			env[name] = r.String(name)
		default:
			env[name] = r.Float(name)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}
