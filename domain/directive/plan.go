package directive

import (
	"strconv"

	"trgemu/domain/core"
)

// Plan is an ordered list of directives. Order is significant: each
// directive sees the snapshot produced by its predecessor.
type Plan struct {
	directives []Directive
}

// NewPlan creates a plan from directives in evaluation order.
func NewPlan(directives ...Directive) *Plan {
	return &Plan{directives: append([]Directive(nil), directives...)}
}

// Append adds directives to the end of the plan.
func (p *Plan) Append(directives ...Directive) *Plan {
	p.directives = append(p.directives, directives...)
	return p
}

// Extend appends every directive of other.
func (p *Plan) Extend(other *Plan) *Plan {
	if other == nil {
		return p
	}
	return p.Append(other.directives...)
}

// Directives returns the directives in order.
func (p *Plan) Directives() []Directive {
	return p.directives
}

// Len returns the number of directives.
func (p *Plan) Len() int { return len(p.directives) }

// Validate checks the structural rules of every directive. An empty plan is valid.
func (p *Plan) Validate() error {
	for i, d := range p.directives {
		switch d.kind {
		case KindDefine:
			if d.name == "" {
				return core.NewValidationError("directive", "define at position "+strconv.Itoa(i)+" has no name")
			}
			if d.define == nil && d.src == "" {
				return core.NewValidationError("directive", "define "+d.name+" has no body")
			}
		case KindFilter:
			if d.filter == nil && d.src == "" {
				return core.NewValidationError("directive", "filter at position "+strconv.Itoa(i)+" has no predicate")
			}
		default:
			return core.NewValidationError("directive", "unknown kind at position "+strconv.Itoa(i))
		}
	}
	return nil
}

// Check walks the plan against the columns of the initial dataset without
// evaluating a row. A reference to a name that is neither an initial column
// nor defined by an earlier directive fails with core.ErrUnknownColumn.
func (p *Plan) Check(columns []string) error {
	available := make(map[string]bool, len(columns)+len(p.directives))
	for _, c := range columns {
		available[c] = true
	}
	for _, d := range p.directives {
		refs, err := d.References()
		if err != nil {
			return err
		}
		for _, name := range refs {
			if !available[name] {
				return core.NewExpressionError(d.label(), core.NewUnknownColumnError(name))
			}
		}
		if d.kind == KindDefine {
			available[d.name] = true
		}
	}
	return nil
}

// Inputs returns the names the plan reads before any of its own directives
// defines them, in first-use order.
func (p *Plan) Inputs() ([]string, error) {
	defined := make(map[string]bool, len(p.directives))
	seen := make(map[string]bool)
	var out []string
	for _, d := range p.directives {
		refs, err := d.References()
		if err != nil {
			return nil, err
		}
		for _, name := range refs {
			if defined[name] || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		if d.kind == KindDefine {
			defined[d.name] = true
		}
	}
	return out, nil
}

// Defines returns the names of every define, retained or not, in order.
func (p *Plan) Defines() []string {
	var out []string
	for _, d := range p.directives {
		if d.kind == KindDefine {
			out = append(out, d.name)
		}
	}
	return out
}

// Descriptions renders every directive in order.
func (p *Plan) Descriptions() []string {
	out := make([]string, len(p.directives))
	for i, d := range p.directives {
		out[i] = d.String()
	}
	return out
}

// Hash computes a deterministic fingerprint of the ordered plan.
func (p *Plan) Hash() core.PlanHash {
	return core.ComputePlanHash(p.Descriptions())
}

// Retained returns the names of retained defines in declaration order,
// duplicates included.
func (p *Plan) Retained() []string {
	var out []string
	for _, d := range p.directives {
		if d.retain {
			out = append(out, d.name)
		}
	}
	return out
}

// MergeColumns returns retained followed by each identifier that is not
// already present. Duplicates inside retained are dropped, keeping the first.
func MergeColumns(retained []string, identifiers ...string) []string {
	seen := make(map[string]bool, len(retained)+len(identifiers))
	out := make([]string, 0, len(retained)+len(identifiers))
	for _, lists := range [][]string{retained, identifiers} {
		for _, name := range lists {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
