package dataset

import "math"

var nan = math.NaN()

// Value is a single typed cell produced by a Define directive.
type Value struct {
	kind  Kind
	valid bool
	f     float64
	i     int64
	b     bool
	s     string
}

func Float(v float64) Value { return Value{kind: KindFloat, valid: true, f: v} }
func Int(v int64) Value     { return Value{kind: KindInt, valid: true, i: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, valid: true, b: v} }
func String(v string) Value { return Value{kind: KindString, valid: true, s: v} }

// Kind returns the value's storage kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value was set by one of the constructors.
func (v Value) IsValid() bool { return v.valid }

// AsFloat converts numeric and boolean values to float64.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	}
	return nan
}

// AsBool reports truthiness: booleans as-is, numbers when non-zero.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	}
	return v.s != ""
}

// FromAny converts a dynamically typed result (e.g. from the expression
// interpreter) to a Value.
func FromAny(x any) (Value, bool) {
	switch t := x.(type) {
	case float64:
		return Float(t), true
	case float32:
		return Float(float64(t)), true
	case int:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case int32:
		return Int(int64(t)), true
	case uint32:
		return Int(int64(t)), true
	case uint64:
		return Int(int64(t)), true
	case bool:
		return Bool(t), true
	case string:
		return String(t), true
	}
	return Value{}, false
}
