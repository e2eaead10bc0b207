package crlv

import (
	"regexp"
	"strings"
)

// Validator accepts or rejects a candidate value.
type Validator func(string) bool

// ScanAfter looks at most maxLookahead lines past lines[idx] and returns the
// first line that is not blank, not noise, not a label and accepted by
// validate (when non-nil). Rejected candidates do not stop the scan.
func ScanAfter(lines []string, idx, maxLookahead int, validate Validator) (string, bool) {
	if idx < -1 {
		idx = -1
	}
	end := idx + maxLookahead
	if end > len(lines)-1 {
		end = len(lines) - 1
	}

	for j := idx + 1; j <= end; j++ {
		v := strings.TrimSpace(lines[j])
		if v == "" || IsNoise(v) || IsLabel(v) {
			continue
		}
		if validate != nil && !validate(v) {
			continue
		}
		return v, true
	}
	return "", false
}

// ScanLabel runs ScanAfter from every line matching label, in document order,
// and returns the first value found.
func ScanLabel(lines []string, label *regexp.Regexp, maxLookahead int, validate Validator) (string, bool) {
	for i, line := range lines {
		if !matchesLabel(label, line) {
			continue
		}
		if v, ok := ScanAfter(lines, i, maxLookahead, validate); ok {
			return v, true
		}
	}
	return "", false
}
