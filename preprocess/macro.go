// Package preprocess resolves includes and runs the C-style preprocessor
// over effect sources before they reach the fx parser.
package preprocess

import (
	"fmt"
	"strings"
)

// Macro is a predefined object-like macro.
type Macro struct {
	Name  string
	Value string
}

func (m Macro) String() string {
	return m.Name + "=" + m.Value
}

// ParseMacro parses the command-line form NAME[=VALUE]. A missing value
// defines the macro as 1.
func ParseMacro(s string) (Macro, error) {
	name, value, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return Macro{}, fmt.Errorf("invalid macro name %q", name)
	}
	if !found {
		value = "1"
	}
	return Macro{Name: name, Value: value}, nil
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
