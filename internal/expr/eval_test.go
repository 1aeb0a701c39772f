package expr

import (
	"testing"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
)

func evalNum(t *testing.T, src string, vars map[string]Value) float64 {
	t.Helper()
	v, err := Evaluate(src, vars)
	if err != nil {
		t.Fatalf("evaluate %q: %v", src, err)
	}
	if v.K != VNum {
		t.Fatalf("expected numeric result for %q, got %q", src, v.Format())
	}
	return v.N
}

func TestEvaluateRoundTrip(t *testing.T) {
	if got := evalNum(t, "${a} * 2", map[string]Value{"a": Num(4)}); got != 8 {
		t.Fatalf("expected 8, got %v", got)
	}
	if got := evalNum(t, "(${a} + 4) * 1.5", map[string]Value{"a": Num(2)}); got != 9 {
		t.Fatalf("expected 9, got %v", got)
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 / 2", 8},
		{"10 % 4", 2},
		{"2 * 3 % 4", 2},
		{"-3 + 5", 2},
		{"2 * -3", -6},
	}
	for _, tc := range cases {
		if got := evalNum(t, tc.src, nil); got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.src, tc.want, got)
		}
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	_, err := Evaluate("${a} / 0", map[string]Value{"a": Num(1)})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errdef.CodeOf(err) != errdef.CodeExpression {
		t.Fatalf("expected expression error, got %v", err)
	}

	_, err = Evaluate("5 % 0", nil)
	if errdef.CodeOf(err) != errdef.CodeExpression {
		t.Fatalf("expected expression error for modulo, got %v", err)
	}
}

func TestEvaluateStringInterpolation(t *testing.T) {
	vars := map[string]Value{
		"start": Str("#1e3a8a"),
		"end":   Str("#9333ea"),
	}
	v, err := Evaluate("linear-gradient(135deg, ${start} 0%, ${end} 100%)", vars)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := "linear-gradient(135deg, #1e3a8a 0%, #9333ea 100%)"
	if v.K != VStr || v.S != want {
		t.Fatalf("expected %q, got %q", want, v.Format())
	}
}

func TestEvaluateNumericStringVariable(t *testing.T) {
	if got := evalNum(t, "${size} + 8", map[string]Value{"size": Str("24")}); got != 32 {
		t.Fatalf("expected 32, got %v", got)
	}
}

func TestEvaluateWholeNumberFormat(t *testing.T) {
	v, err := Evaluate("16 * 0.5", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v.Format() != "8" {
		t.Fatalf("expected \"8\", got %q", v.Format())
	}
	v, err = Evaluate("3 / 2", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v.Format() != "1.5" {
		t.Fatalf("expected \"1.5\", got %q", v.Format())
	}
}

func TestEvaluateUndefinedVariable(t *testing.T) {
	_, err := Evaluate("${missing} + 1", nil)
	if errdef.CodeOf(err) != errdef.CodeUndefinedVar {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
}

func TestEvaluateTrailingGarbage(t *testing.T) {
	_, err := Evaluate("1 2", nil)
	if errdef.CodeOf(err) != errdef.CodeExpression {
		t.Fatalf("expected expression error, got %v", err)
	}
}

func TestEvaluateUnbalancedParens(t *testing.T) {
	_, err := Evaluate("(1 + 2", nil)
	if errdef.CodeOf(err) != errdef.CodeExpression {
		t.Fatalf("expected expression error, got %v", err)
	}
}

func TestIsTemplate(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"${primary}", true},
		{"16 + 8", true},
		{"#ff0000", false},
		{"bold", false},
		{"5rem", false},
		{"sans-serif", false},
	}
	for _, tc := range cases {
		if got := IsTemplate(tc.src); got != tc.want {
			t.Fatalf("IsTemplate(%q): expected %v, got %v", tc.src, tc.want, got)
		}
	}
}
