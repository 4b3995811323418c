// Package jsondoc holds the JSON value model used by the editor: a tagged union
// over null, bool, number, string, array and insertion-ordered object, with a
// strict parser and the two canonical text renderings (inline and pretty).
package jsondoc

import (
	"encoding/json"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	// s holds string content, or the literal text of a number.
	s   string
	arr []Value
	obj *Object
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number literal. The literal is kept verbatim so documents
// round-trip without float formatting drift.
func Number(n json.Number) Value { return Value{kind: KindNumber, s: string(n)} }

// Int wraps an integer.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a list of values. The slice is copied.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, arr: out}
}

// FromObject wraps an object. A nil object becomes an empty one.
func FromObject(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }
func (v Value) IsArray() bool  { return v.kind == KindArray }

// AsObject returns the object held by v.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// AsArray returns the items held by v. Callers must not modify the slice.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Equal reports whether a and b are the same JSON value. Object key order is
// ignored and numbers compare by numeric value when both literals parse.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		if a.s == b.s {
			return true
		}
		x, errA := strconv.ParseFloat(a.s, 64)
		y, errB := strconv.ParseFloat(b.s, 64)
		return errA == nil && errB == nil && x == y
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for _, key := range a.obj.keys {
			other, ok := b.obj.Get(key)
			if !ok || !Equal(a.obj.values[key], other) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders v as compact JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(Compact(v)), nil
}

// UnmarshalJSON parses data strictly, keeping object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBytes(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
