package crlv

import (
	"regexp"
	"strings"
)

// IsLabel reports whether line is a field label rather than a value: either a
// registered label or any line carrying a colon.
func IsLabel(line string) bool {
	if strings.Contains(line, ":") {
		return true
	}
	_, ok := labelKeys[labelKey(line)]
	return ok
}

// KnownLabels returns the registered label spellings.
func KnownLabels() []string {
	out := make([]string, len(knownLabels))
	copy(out, knownLabels)
	return out
}

// labelLine compiles a pattern matched against the folded key of a whole line
// (see labelKey): upper case, unaccented, " / " around slashes.
func labelLine(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)$`)
}

// matchesLabel reports whether line is the label described by re.
func matchesLabel(re *regexp.Regexp, line string) bool {
	return re.MatchString(labelKey(line))
}
