package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the runtime kind of a telemetry value
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is a coerced telemetry value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null returns the null value
func Null() Value { return Value{} }

// IntValue wraps an integer
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a float
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// Coerce converts raw snapshot text into a typed value: an integer when the
// text parses as one, a float when it is otherwise numeric, else the trimmed
// string.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return StringValue(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return StringValue(s)
	}
	return Number(f)
}

// Number wraps a float, collapsing integral values to KindInt
func Number(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return IntValue(int64(f))
	}
	return FloatValue(f)
}

// ValueOf converts a decoded Go value (JSON, YAML, script export) into a Value
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return Coerce(x)
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case uint64:
		return IntValue(int64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case bool:
		return StringValue(strconv.FormatBool(x))
	case json.Number:
		return Coerce(x.String())
	default:
		return Null()
	}
}

// Kind returns the kind of the value
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether the value is an int or a float
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// Int returns the value as an integer (floats are truncated, strings parsed)
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindString:
		i, _ := strconv.ParseInt(v.s, 10, 64)
		return i
	}
	return 0
}

// Float returns the value as a float
func (v Value) Float() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindString:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	}
	return 0
}

// String returns the textual form; null renders as the empty string
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	}
	return ""
}

// Interface returns the value as nil, int64, float64 or string
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	}
	return nil
}

// Equal reports whether two values are the same. Ints and floats compare
// numerically; other kinds must match exactly.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == KindNull || o.kind == KindNull:
		return v.kind == o.kind
	case v.kind == KindInt && o.kind == KindInt:
		return v.i == o.i
	case v.IsNumber() && o.IsNumber():
		return v.Float() == o.Float()
	case v.kind == KindString && o.kind == KindString:
		return v.s == o.s
	}
	return false
}

// Compare orders v against o. Numbers compare numerically (null counts as
// zero), strings lexically. ok is false when the kinds cannot be ordered.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	switch {
	case v.kind == KindString && o.kind == KindString:
		return strings.Compare(v.s, o.s), true
	case (v.IsNumber() || v.IsNull()) && (o.IsNumber() || o.IsNull()):
		if v.kind == KindInt && o.kind == KindInt {
			return cmpInt(v.i, o.i), true
		}
		a, b := v.Float(), o.Float()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MarshalJSON encodes the value as its plain JSON counterpart
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON scalar into a value
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}
