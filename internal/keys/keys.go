// Package keys derives the canonical storage keys under which attachment
// versions are stored.
package keys

import (
	"path"
	"strings"
	"unicode"
)

// Func builds the storage key of one version of one attachment.
// Attachment types may supply their own layout; Default is used otherwise.
type Func func(ownerType, ownerID, field, version, basename string) string

// Prefix is the top-level directory of every default key.
const Prefix = "uploads"

// Default lays keys out as uploads/{owner_type}/{owner_id}/{field}/{version}/{basename}.
// Every identifying component gets its own path segment, so two distinct
// tuples never produce the same key as long as no component contains a slash.
func Default(ownerType, ownerID, field, version, basename string) string {
	return path.Join(Prefix, segment(Snake(ownerType)), segment(ownerID), segment(field), segment(version), segment(basename))
}

// Snake converts a Go-style type name ("BlogPost", "HTTPRequest") into its
// snake_case form ("blog_post", "http_request"). Package qualifiers such as
// "models.Post" are dropped.
func Snake(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		name = name[i+1:]
	}

	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// segment keeps one component from escaping its path position.
func segment(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	if s == "" || s == "." || s == ".." {
		return "_" + s
	}
	return s
}
