package repository

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Op names a comparison operator.
type Op string

// Supported operators.
const (
	OpEq    Op = "eq"
	OpNe    Op = "ne"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpIn    Op = "in"
	OpNotIn Op = "nin"
)

// Ops lists every supported operator.
func Ops() []Op { return []Op{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn} }

// Condition is a single operator applied to a field. In and NotIn use Values;
// every other operator uses Value.
type Condition struct {
	Op     Op
	Value  any
	Values []any
}

// Eq matches fields strictly equal to v.
func Eq(v any) Condition { return Condition{Op: OpEq, Value: v} }

// Ne matches fields not strictly equal to v.
func Ne(v any) Condition { return Condition{Op: OpNe, Value: v} }

// Gt matches fields ordered after v.
func Gt(v any) Condition { return Condition{Op: OpGt, Value: v} }

// Gte matches fields ordered at or after v.
func Gte(v any) Condition { return Condition{Op: OpGte, Value: v} }

// Lt matches fields ordered before v.
func Lt(v any) Condition { return Condition{Op: OpLt, Value: v} }

// Lte matches fields ordered at or before v.
func Lte(v any) Condition { return Condition{Op: OpLte, Value: v} }

// In matches fields equal to any of values.
func In(values ...any) Condition { return Condition{Op: OpIn, Values: values} }

// NotIn matches fields equal to none of values.
func NotIn(values ...any) Condition { return Condition{Op: OpNotIn, Values: values} }

// Filter maps field names to conditions. An entity matches when every
// condition on every field holds. The empty filter matches everything.
type Filter map[string][]Condition

// Where starts a filter on field.
func Where(field string, conds ...Condition) Filter {
	return Filter{}.And(field, conds...)
}

// And returns a copy of f with conds added to field.
func (f Filter) And(field string, conds ...Condition) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = append([]Condition(nil), v...)
	}
	out[field] = append(out[field], conds...)
	return out
}

// FilterFromMap converts the loosely typed form used at the edges: each
// field maps either to a literal (equality) or to an object of operator keys
// ({"gte": 100, "lt": 200}). Operator objects must contain only operator keys.
func FilterFromMap(m map[string]any) (Filter, error) {
	f := Filter{}
	for field, raw := range m {
		ops, ok := raw.(map[string]any)
		if !ok || !allOperatorKeys(ops) {
			f[field] = append(f[field], Eq(raw))
			continue
		}
		keys := make([]string, 0, len(ops))
		for k := range ops {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cond, err := conditionFor(Op(k), ops[k])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			f[field] = append(f[field], cond)
		}
	}
	return f, nil
}

func allOperatorKeys(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !validOp(Op(k)) {
			return false
		}
	}
	return true
}

func conditionFor(op Op, value any) (Condition, error) {
	switch op {
	case OpIn, OpNotIn:
		list, ok := value.([]any)
		if !ok {
			return Condition{}, fmt.Errorf("%w: %s expects a list", ErrInvalidFilter, op)
		}
		return Condition{Op: op, Values: list}, nil
	default:
		if !validOp(op) {
			return Condition{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, op)
		}
		return Condition{Op: op, Value: value}, nil
	}
}

func validOp(op Op) bool {
	for _, known := range Ops() {
		if op == known {
			return true
		}
	}
	return false
}

// compiled is a filter with every operand normalised to its JSON form.
type compiled map[string][]Condition

func (f Filter) compile() (compiled, error) {
	out := make(compiled, len(f))
	for field, conds := range f {
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidFilter)
		}
		for _, c := range conds {
			if !validOp(c.Op) {
				return nil, fmt.Errorf("%w: unknown operator %q on %s", ErrInvalidFilter, c.Op, field)
			}
			norm := Condition{Op: c.Op}
			var err error
			if c.Op == OpIn || c.Op == OpNotIn {
				norm.Values = make([]any, len(c.Values))
				for i, v := range c.Values {
					if norm.Values[i], err = normalize(v); err != nil {
						return nil, fmt.Errorf("%w: %s operand: %v", ErrInvalidFilter, field, err)
					}
				}
			} else if norm.Value, err = normalize(c.Value); err != nil {
				return nil, fmt.Errorf("%w: %s operand: %v", ErrInvalidFilter, field, err)
			}
			out[field] = append(out[field], norm)
		}
	}
	return out, nil
}

func (c compiled) matches(doc map[string]any) bool {
	for field, conds := range c {
		value, present := doc[field]
		for _, cond := range conds {
			if !evaluate(cond, value, present) {
				return false
			}
		}
	}
	return true
}

// evaluate treats a missing field as null for equality and membership;
// ordering operators never match a missing field.
func evaluate(c Condition, value any, present bool) bool {
	switch c.Op {
	case OpEq:
		return strictEqual(value, c.Value)
	case OpNe:
		return !strictEqual(value, c.Value)
	case OpIn:
		return memberOf(value, c.Values)
	case OpNotIn:
		return !memberOf(value, c.Values)
	}
	if !present {
		return false
	}
	cmp, ok := compareValues(value, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

func memberOf(value any, set []any) bool {
	for _, candidate := range set {
		if strictEqual(value, candidate) {
			return true
		}
	}
	return false
}

func strictEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// normalize maps a Go value onto the JSON value space (float64, string,
// bool, nil, []any, map[string]any) so operands compare like stored fields.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toDocument renders an entity as its persisted JSON object.
func toDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
