package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

// Value variants. The set is closed: effect parameters and keyframe
// values are always one of these.
const (
	ValueFloat ValueKind = iota + 1
	ValueVec2
	ValueVec3
	ValueVec4
	ValueString
)

// Value is a tagged union for effect parameters and keyframe values.
// The zero Value is invalid; construct values with Float, Vec2, Vec3,
// Vec4, or Str.
type Value struct {
	kind ValueKind
	vec  [4]float64
	str  string
}

// Float creates a scalar value.
func Float(f float64) Value {
	return Value{kind: ValueFloat, vec: [4]float64{f}}
}

// Vec2 creates a 2-vector value.
func Vec2(x, y float64) Value {
	return Value{kind: ValueVec2, vec: [4]float64{x, y}}
}

// Vec3 creates a 3-vector value.
func Vec3(x, y, z float64) Value {
	return Value{kind: ValueVec3, vec: [4]float64{x, y, z}}
}

// Vec4 creates a 4-vector value.
func Vec4(x, y, z, w float64) Value {
	return Value{kind: ValueVec4, vec: [4]float64{x, y, z, w}}
}

// Str creates a string value.
func Str(s string) Value {
	return Value{kind: ValueString, str: s}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind {
	return v.kind
}

// AsFloat returns the scalar component, or false if v is not a float.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != ValueFloat {
		return 0, false
	}
	return v.vec[0], true
}

// AsVec returns the vector components, or false if v is not a vector.
// The slice length matches the variant (2, 3, or 4).
func (v Value) AsVec() ([]float64, bool) {
	switch v.kind {
	case ValueVec2:
		return v.vec[:2], true
	case ValueVec3:
		return v.vec[:3], true
	case ValueVec4:
		return v.vec[:4], true
	default:
		return nil, false
	}
}

// AsString returns the string component, or false if v is not a string.
func (v Value) AsString() (string, bool) {
	if v.kind != ValueString {
		return "", false
	}
	return v.str, true
}

// Equal returns true if both values hold the same variant and contents.
func (v Value) Equal(other Value) bool {
	return v == other
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case ValueFloat:
		return strconv.FormatFloat(v.vec[0], 'g', -1, 64)
	case ValueVec2, ValueVec3, ValueVec4:
		n := int(v.kind-ValueVec2) + 2
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			parts[i] = strconv.FormatFloat(v.vec[i], 'g', -1, 64)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case ValueString:
		return strconv.Quote(v.str)
	default:
		return fmt.Sprintf("value(%d)", uint8(v.kind))
	}
}
