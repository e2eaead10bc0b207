// Package crlv extracts vehicle registration fields (CRV / CRLV-e) from noisy
// OCR text and coalesces per-document records into per-vehicle records.
//
// The engine is pure: it performs no I/O and holds no mutable state, so any
// number of documents may be extracted concurrently. Coalesce must see the
// whole batch.
package crlv

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Aashish23092/crlv-reader/utils"
)

// Accented capitals that OCR commonly mangles on these documents.
var glyphRepair = strings.NewReplacer(
	"Ę", "E", "Ě", "E",
	"Â", "A", "Î", "I", "Ô", "O", "Û", "U",
	"Ä", "A", "Ö", "O", "Ü", "U",
)

var (
	reHorizontalSpace = regexp.MustCompile(`[\t\p{Zs}]+`)
	reBlankRun        = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText cleans raw OCR text. It is idempotent.
func NormalizeText(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = glyphRepair.Replace(s)
	s = reHorizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")

	return reBlankRun.ReplaceAllString(s, "\n\n")
}

// Document is the normalized text of one input document. It is never
// modified after NewDocument returns.
type Document struct {
	Text  string
	Lines []string
}

// NewDocument normalizes raw and splits it into non-empty lines.
func NewDocument(raw string) Document {
	text := NormalizeText(raw)
	return Document{
		Text:  text,
		Lines: utils.SplitLines(text),
	}
}

// Flat returns the text with line breaks replaced by spaces.
func (d Document) Flat() string {
	return strings.ReplaceAll(d.Text, "\n", " ")
}

// Upper returns the upper-cased text.
func (d Document) Upper() string {
	return strings.ToUpper(d.Text)
}
