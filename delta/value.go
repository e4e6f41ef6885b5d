// Package delta implements the rich-text operational-transformation core:
// the Delta document/edit representation and the Compose, Transform,
// Normalize and TransformPosition operators that make concurrent edits to
// it convergent.
package delta

import "math"

// Kind identifies which of the four attribute-value constructors a Value
// holds.
type Kind int

const (
	// KindNull marks a tombstone: "clear this attribute on retained
	// characters." It is distinct from a missing key.
	KindNull Kind = iota
	KindString
	KindNumber
	KindBoolean
)

// Value is an attribute value: String, Number, Boolean, or Null. Null is a
// first-class constructor, not the absence of a value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// NullValue returns the tombstone value.
func NullValue() Value { return Value{kind: KindNull} }

// StringValue wraps a UTF-8 string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a double-precision float. Integer-typed wire values are
// still modelled as floats.
func NumberValue(x float64) Value { return Value{kind: KindNumber, num: x} }

// BooleanValue wraps a bool.
func BooleanValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// String is the string payload; meaningful only when Kind() == KindString.
func (v Value) String() string { return v.str }

// Number is the float payload; meaningful only when Kind() == KindNumber.
func (v Value) Number() float64 { return v.num }

// Boolean is the bool payload; meaningful only when Kind() == KindBoolean.
func (v Value) Boolean() bool { return v.b }

// Equal compares structurally over the variant tag and its payload.
// Numbers compare bit-identically via their double representation.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return math.Float64bits(v.num) == math.Float64bits(other.num)
	case KindBoolean:
		return v.b == other.b
	default: // KindNull
		return true
	}
}
