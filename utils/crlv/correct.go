package crlv

import (
	"regexp"
	"strings"
)

var (
	reMercosulPlate = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z][0-9]{2}$`)
	reLegacyPlate   = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)
)

// Glyphs OCR confuses between letters and digits.
var (
	letterToDigit = map[rune]rune{'O': '0', 'I': '1', 'L': '1', 'B': '8', 'S': '5'}
	digitToLetter = map[rune]rune{'0': 'O', '1': 'I', '8': 'B', '5': 'S'}
)

// plateFormats lists digit positions per format, tried in order.
var plateFormats = [][7]bool{
	{false, false, false, true, false, true, true}, // Mercosul AAA9A99
	{false, false, false, true, true, true, true},  // legacy AAA9999
}

// IsValidPlate reports whether p has the Mercosul or the legacy plate shape.
func IsValidPlate(p string) bool {
	return reMercosulPlate.MatchString(p) || reLegacyPlate.MatchString(p)
}

// CleanPlate upper-cases p and drops hyphens and spaces.
func CleanPlate(p string) string {
	p = strings.ToUpper(strings.TrimSpace(p))
	return strings.NewReplacer("-", "", " ", "").Replace(p)
}

// CorrectPlate maps confusable glyphs onto the character class each position
// expects. Both formats are tried; when neither yields a valid plate the
// token is returned unchanged.
func CorrectPlate(token string) string {
	clean := CleanPlate(token)
	if IsValidPlate(clean) {
		return clean
	}

	runes := []rune(clean)
	if len(runes) != 7 {
		return token
	}

	for _, digits := range plateFormats {
		candidate := make([]rune, 7)
		for i, r := range runes {
			candidate[i] = r
			if digits[i] {
				if d, ok := letterToDigit[r]; ok {
					candidate[i] = d
				}
			} else if l, ok := digitToLetter[r]; ok {
				candidate[i] = l
			}
		}
		if c := string(candidate); IsValidPlate(c) {
			return c
		}
	}
	return token
}

var ocrDigitRepair = strings.NewReplacer(
	"O", "0", "o", "0",
	"I", "1", "l", "1", "L", "1",
	"B", "8",
	"S", "5",
)

// FixOCRDigits maps letters OCR confuses with digits onto the digits. Use it
// only on tokens expected to be numeric.
func FixOCRDigits(s string) string {
	return ocrDigitRepair.Replace(s)
}
