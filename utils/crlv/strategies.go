package crlv

import (
	"regexp"
	"strings"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/utils"
)

// Context is what a strategy may read besides the document: the fields
// resolved before it and the engine configuration.
type Context struct {
	Prior  dto.Fields
	Config Config
}

// Strategy resolves one field. Strategies are pure and interchangeable.
type Strategy func(doc Document, ctx Context) (string, bool)

// ---------------- generic strategies ----------------

// scanStrategy runs the lookahead scanner from every matching label line.
func scanStrategy(label *regexp.Regexp, lookahead int, validate Validator, shape func(string) string) Strategy {
	return func(doc Document, _ Context) (string, bool) {
		v, ok := ScanLabel(doc.Lines, label, lookahead, validate)
		if !ok {
			return "", false
		}
		return shaped(v, shape)
	}
}

// regexStrategy returns the first capture group of re (in text order) that
// validates, shaped.
func regexStrategy(re *regexp.Regexp, group int, validate Validator, shape func(string) string) Strategy {
	return func(doc Document, _ Context) (string, bool) {
		for _, m := range re.FindAllStringSubmatch(doc.Text, -1) {
			v := strings.TrimSpace(m[group])
			if validate != nil && !validate(v) {
				continue
			}
			if out, ok := shaped(v, shape); ok {
				return out, true
			}
		}
		return "", false
	}
}

// smartNumberStrategy applies the smart number rule after the last label.
func smartNumberStrategy(label *regexp.Regexp, window int, sep string) Strategy {
	return func(doc Document, _ Context) (string, bool) {
		v, ok := SmartNumberAfter(label, doc.Text, window)
		if !ok || v <= 0 {
			return "", false
		}
		return FormatNumber(v, sep), true
	}
}

func shaped(v string, shape func(string) string) (string, bool) {
	if shape != nil {
		v = shape(v)
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// windowsAfter returns up to size bytes of text after every match of label.
func windowsAfter(label *regexp.Regexp, text string, size int) []string {
	locs := label.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		end := loc[1] + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, strings.ReplaceAll(text[loc[1]:end], "\n", " "))
	}
	return out
}

// ---------------- shared validators and shapes ----------------

var reDigitRun = regexp.MustCompile(`\d+`)

// digitRunIn returns the first run of min..max digits in s, ignoring spaces.
func digitRunIn(s string, lo, hi int) string {
	for _, run := range reDigitRun.FindAllString(strings.ReplaceAll(s, " ", ""), -1) {
		if len(run) >= lo && len(run) <= hi {
			return run
		}
	}
	return ""
}

// numericValue accepts a value made only of digits (or OCR confusions of
// digits) and separators, with lo..hi digits.
func numericValue(lo, hi int) Validator {
	return func(v string) bool {
		fixed := FixOCRDigits(strings.NewReplacer(".", "", "-", "", " ", "").Replace(v))
		if fixed == "" || utils.OnlyDigits(fixed) != fixed {
			return false
		}
		return len(fixed) >= lo && len(fixed) <= hi
	}
}

func digitsOf(v string) string {
	return utils.OnlyDigits(FixOCRDigits(v))
}

func upperWords(v string) string {
	return strings.ToUpper(utils.CollapseSpaces(strings.Trim(v, "*: ")))
}

// ---------------- plate ----------------

var rePlatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bPLACA[ \t]*[:\-]?\s*([A-Z0-9]{3}-?[A-Z0-9]{4})\b`),
	regexp.MustCompile(`(?i)\bPLACA\s+EXERC[ÍI]CIO\s+([A-Z0-9]{3}-?[A-Z0-9]{4})\b`),
	regexp.MustCompile(`(?i)\bPLACA\s+ANTERIOR\s*/\s*UF\s+([A-Z0-9]{3}-?[A-Z0-9]{4})\b`),
}

var (
	rePlateToken  = regexp.MustCompile(`\b[A-Z0-9]{3}-?[A-Z0-9]{4}\b`)
	reASCIILetter = regexp.MustCompile(`[A-Z]`)
)

// plateInLine returns the first token of v that corrects to a valid plate.
func plateInLine(v string) string {
	for _, tok := range strings.Fields(v) {
		if p := CorrectPlate(tok); IsValidPlate(p) {
			return p
		}
	}
	return ""
}

func platePatterns(doc Document, _ Context) (string, bool) {
	for _, re := range rePlatePatterns {
		for _, m := range re.FindAllStringSubmatch(doc.Text, -1) {
			if p := CorrectPlate(m[1]); IsValidPlate(p) {
				return p, true
			}
		}
	}
	return "", false
}

// globalPlateScan tries every 7-character token of the document. Tokens with
// fewer than two letters are ignored: numbers corrected into plates are
// almost always false positives.
func globalPlateScan(doc Document, ctx Context) (string, bool) {
	if !ctx.Config.GlobalPlateScan {
		return "", false
	}
	for _, tok := range rePlateToken.FindAllString(doc.Upper(), -1) {
		if len(reASCIILetter.FindAllString(tok, -1)) < 2 {
			continue
		}
		if p := CorrectPlate(tok); IsValidPlate(p) {
			return p, true
		}
	}
	return "", false
}

// ---------------- chassis ----------------

var (
	reVIN          = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	reChassisLabel = regexp.MustCompile(`\bCHASSI\b`)
)

func isVIN(tok string) bool {
	return len(tok) == 17 && utils.HasDigit(tok) && reASCIILetter.MatchString(tok)
}

func chassisAfterLabel(doc Document, _ Context) (string, bool) {
	for _, w := range windowsAfter(reChassisLabel, doc.Upper(), 600) {
		for _, tok := range reVIN.FindAllString(w, -1) {
			if isVIN(tok) {
				return tok, true
			}
		}
	}
	return "", false
}

func chassisLastOccurrence(doc Document, _ Context) (string, bool) {
	toks := reVIN.FindAllString(doc.Upper(), -1)
	for i := len(toks) - 1; i >= 0; i-- {
		if isVIN(toks[i]) {
			return toks[i], true
		}
	}
	return "", false
}

// validChassisLine accepts a single token of 11 to 25 letters and digits,
// covering pre-VIN chassis numbers.
func validChassisLine(v string) bool {
	if strings.ContainsAny(strings.TrimSpace(v), " /") {
		return false
	}
	a := utils.OnlyAlnum(v)
	return len(a) >= 11 && len(a) <= 25 && utils.HasDigit(a) && reASCIILetter.MatchString(a)
}

// ---------------- engine ----------------

var (
	reEngineLabel = regexp.MustCompile(`\bMOTOR\b`)
	reEngineToken = regexp.MustCompile(`\b[A-Z0-9][A-Z0-9\-]{4,}[A-Z0-9]\b`)
)

func validEngineToken(tok string) bool {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	if _, rejected := engineRejectKeys[tok]; rejected {
		return false
	}
	if isOwnerID(tok) {
		return false
	}
	return len(utils.OnlyAlnum(tok)) >= 6 && utils.HasDigit(tok) && !IsLabel(tok)
}

// isOwnerID reports whether tok is shaped like a CPF or CNPJ, formatted,
// bare or masked.
func isOwnerID(tok string) bool {
	v := strings.ReplaceAll(strings.TrimSpace(tok), " ", "")
	return reCPFShape.MatchString(v) || reCNPJShape.MatchString(v)
}

// maskOwnerIDs blanks formatted CPF and CNPJ numbers so that their
// fragments ("0001-95") are not read as tokens.
func maskOwnerIDs(s string) string {
	s = reCNPJAny.ReplaceAllString(s, " ")
	return reCPFAny.ReplaceAllString(s, " ")
}

func validEngineLine(v string) bool {
	return !strings.Contains(strings.TrimSpace(v), " ") && validEngineToken(v)
}

// engineAfterLabel takes the first plausible token after MOTOR, skipping
// identifiers already attributed to other fields and the owner's CPF/CNPJ.
func engineAfterLabel(doc Document, ctx Context) (string, bool) {
	taken := make(map[string]struct{})
	for _, f := range []dto.Field{dto.FieldRenavam, dto.FieldChassis, dto.FieldCRVNumber,
		dto.FieldCLASecurityCode, dto.FieldCRVSecurityNumber, dto.FieldPlate} {
		if v := utils.OnlyAlnum(ctx.Prior.Get(f)); v != "" {
			taken[v] = struct{}{}
		}
	}

	for _, w := range windowsAfter(reEngineLabel, doc.Upper(), 400) {
		for _, tok := range reEngineToken.FindAllString(maskOwnerIDs(w), -1) {
			if _, dup := taken[utils.OnlyAlnum(tok)]; dup {
				continue
			}
			if validEngineToken(tok) {
				return tok, true
			}
		}
	}
	return "", false
}

// ---------------- years ----------------

var reYearPairs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ANO\s*(?:DE\s*)?FABRICA[ÇC][ÃA]O\s*[:\s]*ANO\s*(?:DE\s*)?MODELO\s*[:\s]*([12]\d{3})\s*[/\s]\s*([12]\d{3})\b`),
	regexp.MustCompile(`(?i)ANO\s*FAB\.?\s*/\s*(?:ANO\s*)?MOD\.?\s*[:\s]*([12]\d{3})\s*/\s*([12]\d{3})\b`),
}

var (
	reFabricationYear = regexp.MustCompile(`(?i)ANO\s*(?:DE\s*)?FABRICA[ÇC][ÃA]O\s*[:\s]*([12]\d{3})\b`)
	reModelYear       = regexp.MustCompile(`(?i)ANO\s*(?:DE\s*)?MODELO\s*[:\s]*([12]\d{3})\b`)
	reYear            = regexp.MustCompile(`^[12]\d{3}$`)
)

// yearPair reads fabrication and model years printed side by side.
func yearPair(group int) Strategy {
	return func(doc Document, _ Context) (string, bool) {
		for _, re := range reYearPairs {
			if m := re.FindStringSubmatch(doc.Text); m != nil {
				return m[group], true
			}
		}
		return "", false
	}
}

// ---------------- color and fuel ----------------

var reColorFuelLabels = regexp.MustCompile(`(?i)COR\s*PREDOMINANTE\s*COMBUST[ÍI]VEL`)

// compositeColorFuel handles both labels and both values merged on one line.
func compositeColorFuel(doc Document) (color, fuel string) {
	for _, w := range windowsAfter(reColorFuelLabels, doc.Text, 160) {
		for _, tok := range strings.Fields(w) {
			if color == "" {
				color = CanonicalColor(tok)
			}
			if fuel == "" {
				fuel = FuelValue(tok)
			}
		}
		if color != "" || fuel != "" {
			return color, fuel
		}
	}
	return "", ""
}

func compositeColor(doc Document, _ Context) (string, bool) {
	c, _ := compositeColorFuel(doc)
	return c, c != ""
}

func compositeFuel(doc Document, _ Context) (string, bool) {
	_, f := compositeColorFuel(doc)
	return f, f != ""
}

// ---------------- species, category, body ----------------

var reSpeciesTail = regexp.MustCompile(`\s+(?:CAT\b.*|CAPACIDADE.*|PESO BRUTO TOTAL.*|CATEGORIA.*)$`)

func validSpecies(v string) bool {
	letters := 0
	for _, r := range v {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			letters++
		}
	}
	return letters >= 3 && !utils.HasDigit(v)
}

func cleanSpecies(v string) string {
	v = strings.ToUpper(utils.CollapseSpaces(v))
	v = reSpeciesTail.ReplaceAllString(v, "")
	if IsLabel(v) {
		return ""
	}
	return upperWords(v)
}

var reCategoryWord = regexp.MustCompile(`\b(PARTICULAR|OFICIAL|ALUGUEL|APRENDIZAGEM|COLECAO|DIPLOMATICO|EXPERIENCIA)\b`)

func categoryAnywhere(doc Document, _ Context) (string, bool) {
	m := reCategoryWord.FindString(utils.FoldAccents(doc.Upper()))
	if m == "" {
		return "", false
	}
	return categoryVocabulary[m], true
}

var reNao = regexp.MustCompile(`(?i)\bN\s?[AÃ]\s?O\b`)

func validBody(v string) bool {
	return utils.HasLetter(v) && len([]rune(strings.TrimSpace(v))) >= 3
}

func cleanBody(v string) string {
	return upperWords(reNao.ReplaceAllString(v, "NÃO"))
}

// ---------------- power / displacement ----------------

var (
	rePowerLabel = regexp.MustCompile(`(?i)POT[ÊE]NCIA\s*/?\s*CILINDRADA|\bPOT\.?\s*/\s*CIL\b\.?`)
	rePowerPair  = regexp.MustCompile(`(\d{1,4})\s*CV\s*/\s*(\d{2,5})\b`)
	rePowerOnly  = regexp.MustCompile(`(\d{1,4})\s*CV\b`)
)

// powerValue renders "<power>CV/<displacement>" from a value line.
func powerValue(v string) string {
	t := strings.ReplaceAll(strings.ToUpper(v), "OCV", "0CV")
	if m := rePowerPair.FindStringSubmatch(t); m != nil {
		return m[1] + "CV/" + m[2]
	}
	if m := rePowerOnly.FindStringSubmatch(t); m != nil {
		return m[1] + "CV"
	}
	return ""
}

func powerAfterLabel(doc Document, _ Context) (string, bool) {
	for _, w := range windowsAfter(rePowerLabel, doc.Text, 160) {
		if p := powerValue(w); p != "" {
			return p, true
		}
	}
	return "", false
}

func powerLine(v string) string {
	if p := powerValue(v); p != "" {
		return p
	}
	return upperWords(strings.ReplaceAll(strings.ToUpper(v), "OCV", "0CV"))
}

// ---------------- owner ----------------

var (
	reOwnerBlock    = regexp.MustCompile(`(?is)\bNOME\b(.{1,200}?)\bCPF\s*/\s*CNPJ\b`)
	reCompanyLabel  = regexp.MustCompile(`(?i)^\s*/?\s*RAZ[ÃA]O\s+SOCIAL\b`)
	reOnlySymbols   = regexp.MustCompile(`^[\d\s\p{P}\p{S}]+$`)
	reOwnerBoilerOr = regexp.MustCompile(`(?i)` + strings.Join(ownerBoilerplate, "|"))
)

func validOwner(v string) bool {
	v = strings.TrimSpace(v)
	if len([]rune(v)) < 5 || !utils.HasLetter(v) || reOnlySymbols.MatchString(v) {
		return false
	}
	return !IsNoise(v) && !IsLabel(v)
}

func cleanOwner(v string) string {
	v = reOwnerBoilerOr.ReplaceAllString(v, " ")
	v = reCompanyLabel.ReplaceAllString(v, " ")
	return strings.Trim(upperWords(v), ":-/ ")
}

func ownerBlock(doc Document, _ Context) (string, bool) {
	for _, m := range reOwnerBlock.FindAllStringSubmatch(doc.Text, -1) {
		if v := cleanOwner(m[1]); validOwner(v) {
			return v, true
		}
	}
	return "", false
}

// ---------------- CPF / CNPJ ----------------

var (
	reCPFShape  = regexp.MustCompile(`^[\d*]{3}\.?[\d*]{3}\.?[\d*]{3}-?[\d*]{2}$`)
	reCNPJShape = regexp.MustCompile(`^[\d*]{2}\.?[\d*]{3}\.?[\d*]{3}/?[\d*]{4}-?[\d*]{2}$`)
	reIDInline  = regexp.MustCompile(`(?i)CPF\s*/\s*CNPJ[\s:]*([\d*][\d.*/\-]{10,18})`)
	reCPFAny    = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)
	reCNPJAny   = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`)
)

func idShape(re *regexp.Regexp) Validator {
	return func(v string) bool {
		v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
		return re.MatchString(v) && len(utils.OnlyDigits(v)) >= 3
	}
}

func compactID(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), " ", "")
}

func firstMatch(re *regexp.Regexp) Strategy {
	return func(doc Document, _ Context) (string, bool) {
		m := re.FindString(doc.Text)
		return m, m != ""
	}
}

// ---------------- location, state, issue date ----------------

var (
	reCityUF    = regexp.MustCompile(`^([A-ZÀ-Ý][A-ZÀ-Ý' ]{2,}?)\s*[-/]?\s+([A-Z]{2})$`)
	reDateTail  = regexp.MustCompile(`\s+\d{2}/\d{2}/\d{4}.*$`)
	reDateAny   = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	reIssueDate = regexp.MustCompile(`(?i)\bDATA\s*(?:DE\s*)?(?:EMISS[ÃA]O\s*)?[:\s]*(\d{2}/\d{2}/\d{4})`)
)

var reLocalData = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bLOCAL\s+DATA\s+([A-ZÀ-Ý][A-ZÀ-Ý' ]+?)\s*[-/]?\s+([A-Z]{2})\s+(\d{2}/\d{2}/\d{4})`),
	regexp.MustCompile(`(?i)\bLOCAL\s*\n\s*([A-ZÀ-Ý][A-ZÀ-Ý' ]+?)\s*[-/]?\s+([A-Z]{2})\s*\n\s*DATA\s*\n\s*(\d{2}/\d{2}/\d{4})`),
}

// splitCityUF splits "SAO PAULO SP" (optionally followed by a date).
func splitCityUF(v string) (city, uf string, ok bool) {
	t := strings.ToUpper(utils.CollapseSpaces(v))
	t = reDateTail.ReplaceAllString(t, "")
	m := reCityUF.FindStringSubmatch(t)
	if m == nil || !IsState(m[2]) {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), m[2], true
}

const footerLines = 60

// footerLocation reads the "CITY UF" line printed near the end of the
// document, which is the most reliable copy.
func footerLocation(doc Document) (city, uf string, ok bool) {
	for i, n := len(doc.Lines)-1, 0; i >= 0 && n < footerLines; i, n = i-1, n+1 {
		line := doc.Lines[i]
		if IsLabel(line) || strings.ContainsAny(line, "/0123456789") {
			continue
		}
		c, u, found := splitCityUF(line)
		if !found || IsColor(c) || IsFuel(c) || CanonicalCategory(c) != "" {
			continue
		}
		return c, u, true
	}
	return "", "", false
}

func localDateBlock(doc Document) (city, uf, date string, ok bool) {
	for _, re := range reLocalData {
		m := re.FindStringSubmatch(doc.Text)
		if m == nil || !IsState(m[2]) {
			continue
		}
		return strings.ToUpper(strings.TrimSpace(m[1])), strings.ToUpper(m[2]), m[3], true
	}
	return "", "", "", false
}

func validLocationLine(v string) bool {
	t := strings.ToUpper(strings.TrimSpace(v))
	for _, p := range []string{"CPF", "CNPJ", "DATA"} {
		if strings.HasPrefix(t, p) {
			return false
		}
	}
	return utils.HasLetter(reDateTail.ReplaceAllString(t, ""))
}

func locationLine(v string) string {
	if city, _, ok := splitCityUF(v); ok {
		return city
	}
	return upperWords(reDateTail.ReplaceAllString(v, ""))
}

func stateLine(v string) string {
	if _, uf, ok := splitCityUF(v); ok {
		return uf
	}
	return ""
}

func locationFooter(doc Document, _ Context) (string, bool) {
	c, _, ok := footerLocation(doc)
	return c, ok
}

func stateFooter(doc Document, _ Context) (string, bool) {
	_, u, ok := footerLocation(doc)
	return u, ok
}

func locationBlock(doc Document, _ Context) (string, bool) {
	c, _, _, ok := localDateBlock(doc)
	return c, ok
}

func stateBlock(doc Document, _ Context) (string, bool) {
	_, u, _, ok := localDateBlock(doc)
	return u, ok
}

func dateBlock(doc Document, _ Context) (string, bool) {
	_, _, d, ok := localDateBlock(doc)
	return d, ok
}

// ---------------- security codes ----------------

var (
	reCLAInline    = regexp.MustCompile(`(?is)C[ÓO]D(?:IGO|\.)?\s*(?:DE\s*)?SEGURAN[ÇC]A\s*(?:DO\s*)?(?:CLA|CRLV-?E)[\s:]*(?:CAT\b[\s:.]*)?([0-9][0-9 \t]{7,30})`)
	reCRVSecLabel  = regexp.MustCompile(`(?i)N(?:[ÚU]MERO|[º°.])?\s*DE\s*SEGURAN[ÇC]A\s*(?:DO\s*)?CRV`)
	reCRVSecBroken = regexp.MustCompile(`(?is)N[ÚU]MERO\s*DE\s*SEGURAN[ÇC]A.{0,80}?CRV[^0-9]{0,40}?(\d{11})(?:\D|$)`)
	reCATWord      = regexp.MustCompile(`(?i)\bCAT\b`)
)

func claDigits(v string) string {
	return digitRunIn(v, 8, 20)
}

// crvSecurityDigits finds an 11-digit run, repairing OCR letters inside
// tokens that already carry digits.
func crvSecurityDigits(v string) string {
	toks := strings.Fields(reCATWord.ReplaceAllString(v, " "))
	for i, tok := range toks {
		if utils.HasDigit(tok) {
			toks[i] = FixOCRDigits(tok)
		}
	}
	for _, run := range reDigitRun.FindAllString(strings.Join(toks, " "), -1) {
		if len(run) == 11 {
			return run
		}
	}
	return ""
}

func crvSecurityWindow(doc Document, _ Context) (string, bool) {
	for _, w := range windowsAfter(reCRVSecLabel, doc.Text, 200) {
		if v := crvSecurityDigits(w); v != "" {
			return v, true
		}
	}
	return "", false
}

// ---------------- free text blocks ----------------

// textBlock joins the lines following a label line up to a blank line, at
// most maxLines lines. When stopAtLabel is set a registered label also ends
// the block.
func textBlock(label *regexp.Regexp, maxLines int, stopAtLabel bool) Strategy {
	return func(doc Document, _ Context) (string, bool) {
		lines := strings.Split(doc.Text, "\n")
		for i, line := range lines {
			if !matchesLabel(label, line) {
				continue
			}
			var parts []string
			for j := i + 1; j < len(lines) && len(parts) < maxLines; j++ {
				l := strings.TrimSpace(lines[j])
				if l == "" {
					break
				}
				if _, isLabel := labelKeys[labelKey(l)]; isLabel && stopAtLabel {
					break
				}
				if IsNoise(l) {
					continue
				}
				parts = append(parts, l)
			}
			if v := utils.CollapseSpaces(strings.Join(parts, " ")); v != "" {
				return v, true
			}
		}
		return "", false
	}
}
