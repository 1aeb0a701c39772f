package expr

import "strconv"

type VKind int

const (
	VNull VKind = iota
	VNum
	VStr
)

// Value is the scalar result of theme resolution: a number or a piece of
// text (color, CSS fragment, class list). The zero Value is null.
type Value struct {
	K VKind
	N float64
	S string
}

func Null() Value         { return Value{K: VNull} }
func Num(v float64) Value { return Value{K: VNum, N: v} }
func Str(v string) Value  { return Value{K: VStr, S: v} }

func (v Value) IsNull() bool { return v.K == VNull }

// Numeric reports the value as a float64. Strings count as numeric when
// they parse as one ("12", "1.5"), matching how substituted variables are
// treated inside arithmetic expressions.
func (v Value) Numeric() (float64, bool) {
	switch v.K {
	case VNum:
		return v.N, true
	case VStr:
		n, err := strconv.ParseFloat(v.S, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Format renders the value for interpolation into CSS/text. Whole-number
// floats print without a fractional part.
func (v Value) Format() string {
	switch v.K {
	case VNum:
		return strconv.FormatFloat(v.N, 'f', -1, 64)
	case VStr:
		return v.S
	default:
		return ""
	}
}

func ValueEqual(a, b Value) bool {
	if a.K != b.K {
		return false
	}
	switch a.K {
	case VNum:
		return a.N == b.N
	case VStr:
		return a.S == b.S
	default:
		return true
	}
}

// FromAny converts a decoded document scalar (JSON/TOML/YAML) to a Value.
func FromAny(raw any) (Value, bool) {
	switch v := raw.(type) {
	case string:
		return Str(v), true
	case float64:
		return Num(v), true
	case float32:
		return Num(float64(v)), true
	case int:
		return Num(float64(v)), true
	case int64:
		return Num(float64(v)), true
	case uint64:
		return Num(float64(v)), true
	case bool:
		if v {
			return Str("true"), true
		}
		return Str("false"), true
	default:
		return Null(), false
	}
}
