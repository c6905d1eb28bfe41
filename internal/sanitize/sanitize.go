// Package sanitize turns user-supplied file names and URLs into basenames
// that are safe to embed in storage keys.
package sanitize

import (
	"net/url"
	"strings"
)

const unnamed = "unnamed"

var bracketReplacer = strings.NewReplacer("[", "_", "]", "_")

// Basename derives a lower-cased, filesystem- and URL-safe file name from a
// raw name, path or URL. Only the last path element survives; query strings
// and fragments of URLs are dropped. Every character outside [A-Za-z0-9._-]
// is replaced with an underscore, a name made only of dots gets a leading
// underscore and an empty name becomes "unnamed".
//
// Basename never fails and is idempotent: Basename(Basename(x)) == Basename(x).
func Basename(raw string) string {
	// Brackets are legal in user-agent supplied names but rejected by URL parsers.
	raw = bracketReplacer.Replace(raw)

	p := raw
	if u, err := url.Parse(raw); err == nil && u.Opaque == "" {
		p = u.Path
	}

	p = strings.ReplaceAll(p, `\`, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}

	name, ext := splitExt(p)
	name = replaceUnsafe(name)
	ext = replaceUnsafe(ext)

	if name != "" && strings.Trim(name, ".") == "" {
		name = "_" + name
	}
	if name == "" {
		name = unnamed
	}

	return strings.ToLower(name + ext)
}

// splitExt separates a trailing ".ext" from base. Dot-files and names that
// end in a dot have no extension.
func splitExt(base string) (string, string) {
	i := strings.LastIndex(base, ".")
	if i <= 0 || i == len(base)-1 {
		return base, ""
	}
	if strings.Trim(base[:i], ".") == "" {
		return base, ""
	}
	return base[:i], base[i:]
}

func replaceUnsafe(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
