package errdef

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnknown       Code = "unknown"
	CodeSyntax        Code = "syntax"
	CodeExpression    Code = "expression"
	CodeCycle         Code = "cycle"
	CodeDepth         Code = "depth"
	CodeUndefinedVar  Code = "undefined_variable"
	CodePathSecurity  Code = "path_security"
	CodeResourceLimit Code = "resource_limit"
	CodeUnknownSymbol Code = "unknown_symbol"
	CodeInheritance   Code = "inheritance"
	CodeStyleNotFound Code = "style_not_found"
	CodeFilesystem    Code = "filesystem"
)

type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the classification of err, walking wrapped chains.
// Unclassified errors report CodeUnknown.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Message returns the outermost classified message without the wrapped
// cause, or the plain error text for unclassified errors.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
