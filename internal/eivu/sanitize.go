package eivu

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sanitize turns an arbitrary client-supplied filename into a storage-safe
// base name. It never fails: empty input yields "unnamed".
func Sanitize(raw string) string {
	name := norm.NFC.String(raw)
	name = strings.ReplaceAll(name, `\`, "/")

	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if allowedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name = b.String()

	if name != "" && strings.Trim(name, ".") == "" {
		name = "_" + name
	}
	if name == "" {
		name = "unnamed"
	}
	return name
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '+', r == '_':
		return true
	}
	return false
}
