package theme

import (
	"strings"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
)

// shellMeta are bytes that never belong in a theme filename. Screening
// happens before any filesystem call, so a hostile reference cannot reach
// the OS even as a failed stat.
const shellMeta = ";&|`$<>(){}[]!#*?\"'"

func checkFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return errdef.New(errdef.CodePathSecurity, "empty theme filename")
	}
	if strings.ContainsRune(name, 0) {
		return errdef.New(errdef.CodePathSecurity, "null byte in theme filename")
	}
	if strings.ContainsAny(name, "/\\") {
		return errdef.New(errdef.CodePathSecurity, "theme reference %q must be a bare filename", name)
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return errdef.New(errdef.CodePathSecurity, "path traversal in theme reference %q", name)
	}
	if i := strings.IndexAny(name, shellMeta); i >= 0 {
		return errdef.New(errdef.CodePathSecurity, "illegal character %q in theme reference %q", name[i], name)
	}
	if strings.ContainsAny(name, "\n\r") {
		return errdef.New(errdef.CodePathSecurity, "control character in theme reference %q", name)
	}
	return nil
}

func checkSymbol(symbol string) error {
	if symbol == "" {
		return errdef.New(errdef.CodeUnknownSymbol, "empty theme root symbol")
	}
	for i := 0; i < len(symbol); i++ {
		ch := symbol[i]
		ok := ch == '_' ||
			(ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9')
		if !ok {
			return errdef.New(errdef.CodeUnknownSymbol, "invalid theme root symbol %q", symbol)
		}
	}
	return nil
}
