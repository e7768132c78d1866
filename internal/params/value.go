package params

import (
	"errors"
	"fmt"
)

// ErrInvalidParameterValue is returned when a raw value cannot be resolved to
// a parameter Value.
var ErrInvalidParameterValue = errors.New("invalid parameter value")

// Kind tags the variant held by a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindScalar
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a parameter value: absent, a scalar passed through unchanged, or a
// comma-delimited list of alternatives.
type Value struct {
	kind   Kind
	scalar any
	raw    string
}

// Absent returns the absence marker.
func Absent() Value { return Value{kind: KindAbsent} }

// Scalar wraps v so expansion copies it unchanged into every combination.
func Scalar(v any) Value { return Value{kind: KindScalar, scalar: v} }

// List wraps a comma-delimited string whose tokens are permutated over.
func List(s string) Value { return Value{kind: KindList, raw: s} }

// FromAny resolves a loosely typed value: nil is absent, a string is a
// delimited list, booleans and numbers are scalars.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return t, nil
	case string:
		return List(t), nil
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(t), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidParameterValue, v)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Interface returns the underlying payload: nil when absent, the raw string
// for a list and the wrapped value for a scalar.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindList:
		return v.raw
	default:
		return nil
	}
}

// candidates returns the values a non-absent Value contributes to the product.
func (v Value) candidates() []Value {
	if v.kind != KindList {
		return []Value{v}
	}
	tokens := splitTokens(v.raw)
	out := make([]Value, len(tokens))
	for i, tok := range tokens {
		out[i] = Scalar(tok)
	}
	return out
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindList:
		return fmt.Sprintf("%q", v.raw)
	default:
		return fmt.Sprintf("%v", v.scalar)
	}
}
