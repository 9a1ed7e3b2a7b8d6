// Package naming turns arbitrary titles and URL segments into identifiers that are safe both as
// local file names and as repository path segments.
package naming

import (
	"regexp"
	"strings"
)

var (
	// Anything that is not a letter, digit, combining mark, ASCII whitespace, dot, underscore or
	// hyphen.  This covers the filesystem specials (\ / : * ? " < > |) and the JCR ones ([ ] | *).
	illegalChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s._-]+`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Sanitize maps input to a path-safe name.  Rules are applied in order:
//
//  1. strip characters that are illegal in file names or repository path segments;
//  2. collapse runs of whitespace to a single space;
//  3. trim leading and trailing whitespace;
//  4. replace the remaining spaces with hyphens.
//
// A result made up only of dots would be a relative path reference, so it becomes "".
//
// Sanitize is pure, and Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(input string) string {
	s := illegalChars.ReplaceAllString(input, "")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")

	if strings.Trim(s, ".") == "" {
		return ""
	}
	return s
}

// SanitizePtr is Sanitize for optional input: nil in, nil out.
func SanitizePtr(input *string) *string {
	if input == nil {
		return nil
	}
	s := Sanitize(*input)
	return &s
}
