package crlv

import (
	"regexp"
	"strings"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/utils"
)

// Derive fills the computed fields of a record and applies display
// formatting to identifiers. It reads only values already present.
func Derive(fields dto.Fields) {
	maker, model := SplitModel(fields.Get(dto.FieldModel))
	fields[dto.FieldManufacturer] = maker
	fields[dto.FieldCleanModel] = model

	primary, secondary := SplitFuel(fields.Get(dto.FieldFuel))
	fields[dto.FieldFuelPrimary] = primary
	fields[dto.FieldFuelSecondary] = secondary

	fields[dto.FieldVehicleYear] = VehicleYear(fields.Get(dto.FieldModelYear), fields.Get(dto.FieldFabricationYear))

	fields[dto.FieldCPF] = FormatCPF(fields.Get(dto.FieldCPF))
	fields[dto.FieldCNPJ] = FormatCNPJ(fields.Get(dto.FieldCNPJ))
	fields[dto.FieldPlate] = FormatPlate(fields.Get(dto.FieldPlate))
}

// importedPrefix marks imported vehicles ("I/BMW X1").
const importedPrefix = "I/"

// SplitModel splits a raw model string into manufacturer and model.
//
//	"VW/GOL 1.0"          -> "VW", "GOL 1.0"
//	"FIAT/FIAT STRADA"    -> "FIAT", "STRADA"
//	"LAND ROVER DEFENDER" -> "LAND ROVER", "DEFENDER"
//
// A string without separator or known brand is returned unsplit as the model.
func SplitModel(raw string) (manufacturer, model string) {
	s := strings.ToUpper(utils.CollapseSpaces(raw))
	if s == "" {
		return "", ""
	}
	s = strings.TrimPrefix(s, importedPrefix)

	if left, right, ok := strings.Cut(s, "/"); ok {
		maker := strings.TrimSpace(left)
		rest := strings.TrimSpace(right)
		if maker != "" && rest != "" {
			return maker, stripMaker(maker, rest)
		}
	}

	words := strings.Fields(s)
	for n := 2; n >= 1; n-- {
		if len(words) <= n {
			continue
		}
		if cand := strings.Join(words[:n], " "); IsManufacturer(cand) {
			return cand, strings.Join(words[n:], " ")
		}
	}
	return "", s
}

// stripMaker removes a repetition of the manufacturer at the start of model.
func stripMaker(maker, model string) string {
	if rest, ok := strings.CutPrefix(model, maker+" "); ok && rest != "" {
		return strings.TrimSpace(rest)
	}
	return model
}

var reFuelSeparator = regexp.MustCompile(`\s*[/+,;]\s*|\s+E\s+`)

// SplitFuel splits a fuel value into primary and secondary fuels,
// normalizing synonyms. secondary is "" when only one fuel is present.
func SplitFuel(raw string) (primary, secondary string) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", ""
	}

	var fuels []string
	seen := make(map[string]bool)
	for _, tok := range reFuelSeparator.Split(s, -1) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if canon, ok := fuelSynonyms[utils.FoldKey(tok)]; ok {
			tok = canon
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		fuels = append(fuels, tok)
	}

	switch len(fuels) {
	case 0:
		return "", ""
	case 1:
		return fuels[0], ""
	default:
		return fuels[0], fuels[1]
	}
}

// VehicleYear renders "<model>/<fabrication>" when both years are known.
func VehicleYear(modelYear, fabricationYear string) string {
	if modelYear == "" || fabricationYear == "" {
		return ""
	}
	return modelYear + "/" + fabricationYear
}

// FormatCPF punctuates an 11-digit CPF. Other values are returned unchanged.
func FormatCPF(v string) string {
	d := utils.OnlyDigits(v)
	if len(d) != 11 || strings.Contains(v, "*") {
		return v
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

// FormatCNPJ punctuates a 14-digit CNPJ. Other values are returned unchanged.
func FormatCNPJ(v string) string {
	d := utils.OnlyDigits(v)
	if len(d) != 14 || strings.Contains(v, "*") {
		return v
	}
	return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
}

// FormatPlate groups a 7-character plate as "ABC1-234".
func FormatPlate(v string) string {
	p := CleanPlate(v)
	if len(p) != 7 {
		return v
	}
	return p[:4] + "-" + p[4:]
}
