package crlv

import (
	"regexp"
	"strconv"
	"strings"
)

var reNumber = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// SmartNumber picks the most plausible number in window. Numbers followed by
// the unit CV are skipped. Among the rest the first decimal wins, then the
// largest positive value, then the first candidate.
func SmartNumber(window string) (float64, bool) {
	var (
		first    float64
		found    bool
		best     float64
		positive bool
	)

	for _, loc := range reNumber.FindAllStringIndex(window, -1) {
		if followedByCV(window[loc[1]:]) {
			continue
		}
		tok := window[loc[0]:loc[1]]
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", "."), 64)
		if err != nil {
			continue
		}
		if strings.ContainsAny(tok, ".,") {
			return v, true
		}
		if !found {
			first, found = v, true
		}
		if v > 0 && (!positive || v > best) {
			best, positive = v, true
		}
	}

	if positive {
		return best, true
	}
	return first, found
}

func followedByCV(rest string) bool {
	rest = strings.TrimLeft(rest, " ")
	return len(rest) >= 2 && strings.EqualFold(rest[:2], "CV")
}

// SmartNumberAfter applies SmartNumber to the window characters following
// the last occurrence of label in text.
func SmartNumberAfter(label *regexp.Regexp, text string, window int) (float64, bool) {
	locs := label.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return 0, false
	}
	tail := text[locs[len(locs)-1][1]:]
	if len(tail) > window {
		tail = tail[:window]
	}
	return SmartNumber(strings.ReplaceAll(tail, "\n", " "))
}

// FormatNumber renders v without trailing zeros, using sep as the decimal
// separator.
func FormatNumber(v float64, sep string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if sep != "." {
		s = strings.Replace(s, ".", sep, 1)
	}
	return s
}

var (
	reCodeToken     = regexp.MustCompile(`^[A-Z0-9\-]{8,}$`)
	rePeople        = regexp.MustCompile(`^(\d{1,3})\s*P$`)
	reUnitQuantity  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(KG|TON|T|L)\b`)
	reBareNumber    = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)$`)
	reKgOrPeople    = regexp.MustCompile(`\b(?:KG|P)\b`)
	reAlphaOnlyWord = regexp.MustCompile(`^[A-ZÀ-Ý.]+$`)
)

// CapacityValue reads a load capacity from a value line: a people count
// ("5P"), a quantity with unit ("500 KG") or a bare number ("0,50").
// Power ratings, ratio tokens and code-shaped tokens yield "".
func CapacityValue(s string) string {
	t := strings.ToUpper(strings.TrimSpace(s))
	if v := capacityToken(t); v != "" {
		return v
	}

	// "PARTICULAR 0,50": a capacity printed after a word-only prefix.
	fields := strings.Fields(t)
	if len(fields) < 2 {
		return ""
	}
	for _, w := range fields[:len(fields)-1] {
		if !reAlphaOnlyWord.MatchString(w) {
			return ""
		}
	}
	return capacityToken(fields[len(fields)-1])
}

func capacityToken(t string) string {
	if t == "" {
		return ""
	}
	if strings.Contains(t, "CV") || strings.Contains(t, "POT") || strings.Contains(t, "CIL") {
		return ""
	}
	if strings.Contains(t, "/") && !reKgOrPeople.MatchString(t) {
		return ""
	}
	if reCodeToken.MatchString(t) {
		return ""
	}
	if m := rePeople.FindStringSubmatch(t); m != nil {
		return m[1] + "P"
	}
	if m := reUnitQuantity.FindStringSubmatch(t); m != nil {
		return strings.ReplaceAll(m[1], ".", ",") + " " + m[2]
	}
	if m := reBareNumber.FindStringSubmatch(t); m != nil {
		return strings.ReplaceAll(m[1], ".", ",")
	}
	return ""
}

// WeightValue reads a gross weight from a value line. Zero, power ratings,
// ratio tokens and code-shaped tokens yield "".
func WeightValue(s string) string {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" || reCodeToken.MatchString(t) {
		return ""
	}
	if strings.Contains(t, "/") && !strings.Contains(t, "KG") {
		return ""
	}
	v, ok := SmartNumber(t)
	if !ok || v <= 0 {
		return ""
	}
	return FormatNumber(v, ".")
}
