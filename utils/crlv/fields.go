package crlv

import (
	"regexp"

	"github.com/Aashish23092/crlv-reader/dto"
)

// FieldSpec describes how one canonical field is resolved. Strategies run in
// order and the first non-empty result wins.
type FieldSpec struct {
	Field dto.Field
	// Label matches the folded label line (see labelKey) used by the
	// lookahead scan.
	Label     *regexp.Regexp
	Validate  Validator
	Lookahead int
	// Shape turns an accepted scan candidate into the stored value.
	Shape      func(string) string
	Strategies []Strategy
	// DistinctFromRenavam discards candidates whose digits equal the
	// record's Renavam, moving on to the next strategy.
	DistinctFromRenavam bool
}

// scan is the lookahead strategy built from the FieldSpec's own label,
// validator, window and shape.
func (s FieldSpec) scan() Strategy {
	return scanStrategy(s.Label, s.Lookahead, s.Validate, s.Shape)
}

// registry is ordered so that fields read by later strategies through
// Context.Prior are resolved first.
var registry = []FieldSpec{
	renavamSpec(),
	crvNumberSpec(),
	claSecuritySpec(),
	crvSecuritySpec(),
	chassisSpec(),
	plateSpec(),
	engineSpec(),
	fabricationYearSpec(),
	modelYearSpec(),
	modelSpec(),
	colorSpec(),
	fuelSpec(),
	speciesSpec(),
	categorySpec(),
	capacitySpec(),
	powerSpec(),
	grossWeightSpec(),
	bodySpec(),
	ownerSpec(),
	cpfSpec(),
	cnpjSpec(),
	locationSpec(),
	stateSpec(),
	issueDateSpec(),
	senatranSpec(),
	dpvatSpec(),
}

// Registry returns the extracted field specs in resolution order.
func Registry() []FieldSpec {
	out := make([]FieldSpec, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the FieldSpec of an extracted field.
func Lookup(f dto.Field) (FieldSpec, bool) {
	for _, s := range registry {
		if s.Field == f {
			return s, true
		}
	}
	return FieldSpec{}, false
}

// derivedFields are computed from other fields rather than read.
var derivedFields = map[dto.Field]bool{
	dto.FieldManufacturer:  true,
	dto.FieldCleanModel:    true,
	dto.FieldFuelPrimary:   true,
	dto.FieldFuelSecondary: true,
	dto.FieldVehicleYear:   true,
}

// FieldInfos describes every canonical field for API clients.
func FieldInfos() []dto.FieldInfo {
	out := make([]dto.FieldInfo, 0, len(dto.CanonicalFields))
	for _, f := range dto.CanonicalFields {
		info := dto.FieldInfo{Field: f, Column: f.Column(), Derived: derivedFields[f]}
		if s, ok := Lookup(f); ok {
			info.Lookahead = s.Lookahead
		}
		out = append(out, info)
	}
	return out
}

// ---------------- identifiers ----------------

var (
	reRenavam   = regexp.MustCompile(`(?i)(?:C[ÓO]DIGO\s*)?RENAVAM[:\s]*([\d.\-]{9,14})`)
	reCRVNumber = regexp.MustCompile(`(?i)N[ÚU]MERO\s+DO\s+CRV[:\s]*([\d.\-]{6,})`)
)

func renavamSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldRenavam,
		Label:     labelLine(`(?:CODIGO )?RENAVAM`),
		Validate:  numericValue(9, 11),
		Lookahead: 4,
		Shape:     digitsOf,
	}
	s.Strategies = []Strategy{regexStrategy(reRenavam, 1, s.Validate, s.Shape), s.scan()}
	return s
}

func crvNumberSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCRVNumber,
		Label:     labelLine(`(?:NUMERO DO )?CRV`),
		Validate:  numericValue(6, 20),
		Lookahead: 4,
		Shape:     digitsOf,
	}
	s.Strategies = []Strategy{regexStrategy(reCRVNumber, 1, s.Validate, s.Shape), s.scan()}
	return s
}

func claSecuritySpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCLASecurityCode,
		Label:     labelLine(`CODIGO DE SEGURANCA DO CLA|COD\. SEGURANCA CLA|CODIGO SEGURANCA CLA|CODIGO DE SEGURANCA DO CRLV-E|CLA`),
		Validate:  func(v string) bool { return claDigits(v) != "" },
		Lookahead: 10,
		Shape:     claDigits,
	}
	s.Strategies = []Strategy{s.scan(), regexStrategy(reCLAInline, 1, s.Validate, s.Shape)}
	s.DistinctFromRenavam = true
	return s
}

func crvSecuritySpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCRVSecurityNumber,
		Label:     labelLine(`(?:NUMERO|N[O°º.]?) DE SEGURANCA(?: DO)? CRV`),
		Validate:  func(v string) bool { return crvSecurityDigits(v) != "" },
		Lookahead: 10,
		Shape:     crvSecurityDigits,
	}
	s.Strategies = []Strategy{s.scan(), crvSecurityWindow, regexStrategy(reCRVSecBroken, 1, nil, nil)}
	s.DistinctFromRenavam = true
	return s
}

// ---------------- vehicle ----------------

func chassisSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldChassis,
		Label:     labelLine(`CHASSI`),
		Validate:  validChassisLine,
		Lookahead: 60,
		Shape:     upperWords,
	}
	s.Strategies = []Strategy{chassisAfterLabel, chassisLastOccurrence, s.scan()}
	return s
}

func plateSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldPlate,
		Label:     labelLine(`PLACA(?: EXERCICIO)?`),
		Validate:  func(v string) bool { return plateInLine(v) != "" },
		Lookahead: 8,
		Shape:     plateInLine,
	}
	s.Strategies = []Strategy{platePatterns, s.scan(), globalPlateScan}
	return s
}

func engineSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldEngine,
		Label:     labelLine(`MOTOR`),
		Validate:  validEngineLine,
		Lookahead: 12,
		Shape:     upperWords,
	}
	s.Strategies = []Strategy{engineAfterLabel, s.scan()}
	return s
}

func validYear(v string) bool {
	return reYear.MatchString(v)
}

func fabricationYearSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldFabricationYear,
		Label:     labelLine(`ANO (?:DE )?FABRICACAO|ANO FAB\.?`),
		Validate:  validYear,
		Lookahead: 4,
	}
	s.Strategies = []Strategy{yearPair(1), regexStrategy(reFabricationYear, 1, validYear, nil), s.scan()}
	return s
}

func modelYearSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldModelYear,
		Label:     labelLine(`ANO (?:DE )?MODELO|ANO MOD\.?`),
		Validate:  validYear,
		Lookahead: 4,
	}
	s.Strategies = []Strategy{yearPair(2), regexStrategy(reModelYear, 1, validYear, nil), s.scan()}
	return s
}

var reModelInline = regexp.MustCompile(`(?i)MARCA\s*/\s*MODELO(?:\s*/\s*VERS[ÃA]O)?[ \t:]+([^\n]*\pL[^\n]*)`)

func validModel(v string) bool {
	return len([]rune(v)) >= 2 && !IsNoise(v) && reASCIILetter.MatchString(upperWords(v))
}

func modelSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldModel,
		Label:     labelLine(`MARCA / MODELO(?: / VERSAO)?`),
		Validate:  validModel,
		Lookahead: 4,
		Shape:     upperWords,
	}
	s.Strategies = []Strategy{s.scan(), regexStrategy(reModelInline, 1, validModel, upperWords)}
	return s
}

func colorSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldColor,
		Label:     labelLine(`COR(?: PREDOMINANTE)?(?: COMBUSTIVEL)?`),
		Validate:  IsColor,
		Lookahead: 60,
		Shape:     CanonicalColor,
	}
	s.Strategies = []Strategy{s.scan(), compositeColor}
	return s
}

func fuelSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldFuel,
		Label:     labelLine(`COMBUSTIVEL|COMB\.?|COR PREDOMINANTE COMBUSTIVEL`),
		Validate:  IsFuel,
		Lookahead: 12,
		Shape:     FuelValue,
	}
	s.Strategies = []Strategy{s.scan(), compositeFuel}
	return s
}

var reSpeciesInline = regexp.MustCompile(`(?i)ESP[ÉE]CIE\s*/\s*TIPO[ \t:]+([^\n]+)`)

func speciesSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldSpeciesType,
		Label:     labelLine(`ESPECIE / TIPO`),
		Validate:  validSpecies,
		Lookahead: 4,
		Shape:     cleanSpecies,
	}
	s.Strategies = []Strategy{s.scan(), regexStrategy(reSpeciesInline, 1, validSpecies, cleanSpecies)}
	return s
}

var reCategoryInline = regexp.MustCompile(`(?i)\bCATEGORIA\b[ \t:]+(\pL+)`)

func validCategory(v string) bool {
	return CanonicalCategory(v) != ""
}

func categorySpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCategory,
		Label:     labelLine(`CATEGORIA(?: CAPACIDADE)?`),
		Validate:  validCategory,
		Lookahead: 6,
		Shape:     CanonicalCategory,
	}
	s.Strategies = []Strategy{
		s.scan(),
		regexStrategy(reCategoryInline, 1, validCategory, CanonicalCategory),
		categoryAnywhere,
	}
	return s
}

// ---------------- measures ----------------

var (
	reCapacityLabel  = regexp.MustCompile(`(?i)\bCAPACIDADE\b`)
	reCapacityInline = regexp.MustCompile(`(?i)\bCAPACIDADE\b[\s:]*(\d+(?:[.,]\d+)?\s*(?:KG|TON|T|L|P)?)\b`)
	reWeightLabel    = regexp.MustCompile(`(?i)PESO\s+BRUTO\s+TOTAL|\bPBT\b`)
	reWeightInline   = regexp.MustCompile(`(?i)(?:PESO\s+BRUTO\s+TOTAL|\bPBT\b)[\s:]*(\d+(?:[.,]\d+)?)`)
)

func validCapacity(v string) bool {
	return CapacityValue(v) != ""
}

func capacitySpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCapacity,
		Label:     labelLine(`CAPACIDADE|CAP\.?|CATEGORIA CAPACIDADE`),
		Validate:  validCapacity,
		Lookahead: 50,
		Shape:     CapacityValue,
	}
	s.Strategies = []Strategy{
		s.scan(),
		smartNumberStrategy(reCapacityLabel, 200, ","),
		regexStrategy(reCapacityInline, 1, validCapacity, CapacityValue),
	}
	return s
}

func powerSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldPowerDisplacement,
		Label:     labelLine(`POTENCIA(?: / | )CILINDRADA(?: PESO BRUTO TOTAL)?|POT\. / CIL\.?`),
		Validate:  func(v string) bool { return reDigitRun.MatchString(v) },
		Lookahead: 8,
		Shape:     powerLine,
	}
	s.Strategies = []Strategy{powerAfterLabel, s.scan()}
	return s
}

func validWeight(v string) bool {
	return WeightValue(v) != ""
}

func grossWeightSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldGrossWeight,
		Label:     labelLine(`PESO BRUTO TOTAL|PBT`),
		Validate:  validWeight,
		Lookahead: 20,
		Shape:     WeightValue,
	}
	s.Strategies = []Strategy{
		s.scan(),
		smartNumberStrategy(reWeightLabel, 240, "."),
		regexStrategy(reWeightInline, 1, validWeight, WeightValue),
	}
	return s
}

var reBodyInline = regexp.MustCompile(`(?i)\bCARROCERIA\b[ \t:]+([^\n]*\pL[^\n]*)`)

func bodySpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldBody,
		Label:     labelLine(`CARROCERIA`),
		Validate:  validBody,
		Lookahead: 12,
		Shape:     cleanBody,
	}
	s.Strategies = []Strategy{s.scan(), regexStrategy(reBodyInline, 1, validBody, cleanBody)}
	return s
}

// ---------------- owner ----------------

func ownerSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldOwner,
		Label:     labelLine(`NOME(?: / RAZAO SOCIAL)?`),
		Validate:  validOwner,
		Lookahead: 12,
		Shape:     cleanOwner,
	}
	s.Strategies = []Strategy{ownerBlock, s.scan()}
	return s
}

var reIDLabel = labelLine(`CPF / CNPJ`)

func cpfSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCPF,
		Label:     reIDLabel,
		Validate:  idShape(reCPFShape),
		Lookahead: 8,
		Shape:     compactID,
	}
	s.Strategies = []Strategy{
		s.scan(),
		regexStrategy(reIDInline, 1, s.Validate, compactID),
		firstMatch(reCPFAny),
	}
	return s
}

func cnpjSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldCNPJ,
		Label:     reIDLabel,
		Validate:  idShape(reCNPJShape),
		Lookahead: 8,
		Shape:     compactID,
	}
	s.Strategies = []Strategy{
		s.scan(),
		regexStrategy(reIDInline, 1, s.Validate, compactID),
		firstMatch(reCNPJAny),
	}
	return s
}

// ---------------- issuance ----------------

func locationSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldLocation,
		Label:     labelLine(`LOCAL`),
		Validate:  validLocationLine,
		Lookahead: 4,
		Shape:     locationLine,
	}
	s.Strategies = []Strategy{locationFooter, locationBlock, s.scan()}
	return s
}

func stateSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldState,
		Label:     labelLine(`LOCAL`),
		Validate:  func(v string) bool { return stateLine(v) != "" },
		Lookahead: 4,
		Shape:     stateLine,
	}
	ufLabel := scanStrategy(labelLine(`UF`), 4, IsState, upperWords)
	s.Strategies = []Strategy{stateFooter, stateBlock, s.scan(), ufLabel}
	return s
}

func firstDate(v string) string {
	return reDateAny.FindString(v)
}

func issueDateSpec() FieldSpec {
	s := FieldSpec{
		Field:     dto.FieldIssueDate,
		Label:     labelLine(`DATA(?: DE EMISSAO| EMISSAO)?|LOCAL DATA`),
		Validate:  func(v string) bool { return firstDate(v) != "" },
		Lookahead: 4,
		Shape:     firstDate,
	}
	s.Strategies = []Strategy{s.scan(), regexStrategy(reIssueDate, 1, nil, nil), dateBlock}
	return s
}

// ---------------- free text ----------------

// maxBlockRunes caps free-text blocks so a missing terminator cannot swallow
// the rest of the document.
const maxBlockRunes = 300

func capBlock(v string) string {
	r := []rune(v)
	if len(r) > maxBlockRunes {
		r = r[:maxBlockRunes]
	}
	return string(r)
}

func senatranSpec() FieldSpec {
	s := FieldSpec{
		Field: dto.FieldSenatranMessages,
		Label: labelLine(`MENSAGENS SENATRAN|OBSERVACOES DO VEICULO`),
		Shape: capBlock,
	}
	s.Strategies = []Strategy{capped(textBlock(s.Label, 6, true))}
	return s
}

func dpvatSpec() FieldSpec {
	s := FieldSpec{
		Field: dto.FieldDPVAT,
		Label: labelLine(`(?:INFORMACOES|DADOS) DO SEGURO DPVAT`),
		Shape: capBlock,
	}
	s.Strategies = []Strategy{capped(textBlock(s.Label, 6, false))}
	return s
}

func capped(st Strategy) Strategy {
	return func(doc Document, ctx Context) (string, bool) {
		v, ok := st(doc, ctx)
		if !ok {
			return "", false
		}
		return capBlock(v), true
	}
}
