package ir

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"gopkg.in/yaml.v3"
)

// Value is a sealed interface over the field values carried by orders and
// assets. Only Null, String, Int, Number and Bool implement it.
type Value interface {
	irValue() // Sealed
	Kind() Kind
}

// Kind names the dynamic type of a Value.
type Kind string

const (
	KindNull   Kind = "null"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
)

// Null is an explicit null field value. A field that is present but null is
// different from a field that is absent.
type Null struct{}

func (Null) irValue()   {}
func (Null) Kind() Kind { return KindNull }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a textual field value (identifiers, enums, free text).
type String string

func (String) irValue()   {}
func (String) Kind() Kind { return KindString }

// Int is an integral field value. Account and subscriber numbers exceed
// float64 precision, so integers are kept exact.
type Int int64

func (Int) irValue()   {}
func (Int) Kind() Kind { return KindNumber }

// Number is a fractional field value such as a price or a charge. Integral
// inputs become Int unless they are out of int64 range.
type Number float64

func (Number) irValue()   {}
func (Number) Kind() Kind { return KindNumber }

// Bool is a boolean field value.
type Bool bool

func (Bool) irValue()   {}
func (Bool) Kind() Kind { return KindBool }

// FromAny converts a decoded JSON, YAML or CUE scalar into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return fromFloat(f), nil
	case float64:
		return fromFloat(val), nil
	case float32:
		return fromFloat(float64(val)), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return Number(val), nil
		}
		return Int(val), nil
	case time.Time:
		return String(val.UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported field value type %T: only string, number, bool and null are allowed", v)
	}
}

// maxExactFloat is the largest magnitude below which every integer is
// representable as a float64.
const maxExactFloat = 1 << 53

// fromFloat keeps integral floats as Int so that a value decoded from YAML
// and the same value decoded from JSON compare and serialize alike.
func fromFloat(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) <= maxExactFloat {
		return Int(int64(f))
	}
	return Number(f)
}

// Text returns the textual form of v used by string comparisons.
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Number:
		return formatNumber(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return ""
	}
}

// Float interprets v as a number. Strings are parsed after trimming.
func Float(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Number:
		return float64(val), true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsEmpty reports whether v is null or a blank string.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case String:
		return strings.TrimSpace(string(val)) == ""
	default:
		return false
	}
}

// Native converts v back to a plain Go value (nil, string, float64, bool).
// Int becomes float64 because CEL and JSONLogic compare numbers as doubles.
func Native(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return float64(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// Fields maps field names to values for a single order or asset.
// Use SortedKeys() for deterministic iteration.
type Fields map[string]Value

// FieldsFrom converts a decoded document into Fields.
func FieldsFrom(m map[string]any) (Fields, error) {
	fields := make(Fields, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

// Native returns the fields as a plain map for expression engines.
func (f Fields) Native() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = Native(v)
	}
	return out
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// UnmarshalJSON implements json.Unmarshaler for Fields. Numbers keep their
// precision through json.Number before conversion.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	fields, err := FieldsFrom(raw)
	if err != nil {
		return err
	}
	*f = fields
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Fields.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	fields, err := FieldsFrom(raw)
	if err != nil {
		return err
	}
	*f = fields
	return nil
}

// CompareNumbers orders two numeric values. Two Ints and an Int against an
// integral Number compare exactly; otherwise both sides compare as float64.
// ok is false when either side is not numeric.
func CompareNumbers(a, b Value) (c int, ok bool) {
	ai, aInt := exactInt(a)
	bi, bInt := exactInt(b)
	if aInt && bInt {
		return cmp.Compare(ai, bi), true
	}
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return 0, false
	}
	return cmp.Compare(af, bf), true
}

func exactInt(v Value) (int64, bool) {
	switch val := v.(type) {
	case Int:
		return int64(val), true
	case Number:
		f := float64(val)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

func numeric(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Number:
		return float64(val), true
	}
	return 0, false
}

// compareUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string order is by UTF-8 bytes and differs for
// supplementary-plane characters.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// formatNumber renders a float the way ECMAScript does for the common
// cases: integers without a fraction, everything else in shortest form.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'e', -1, 64)
}
