package crlv

import (
	"regexp"
	"strings"

	"github.com/Aashish23092/crlv-reader/utils"
)

// knownLabels are the label lines seen across issuing authorities, including
// abbreviations and labels that OCR merges onto one line.
var knownLabels = []string{
	"CÓDIGO RENAVAM", "RENAVAM", "PLACA", "EXERCÍCIO", "PLACA EXERCÍCIO",
	"ANO FABRICAÇÃO", "ANO MODELO", "ANO FABRICAÇÃO ANO MODELO",
	"NÚMERO DO CRV", "CRV", "CÓDIGO DE SEGURANÇA DO CLA", "CÓD. SEGURANÇA CLA",
	"CODIGO SEGURANCA CLA", "CÓDIGO DE SEGURANÇA DO CRLV-E", "CLA", "CAT", "CAT. TARIF",
	"MARCA / MODELO", "MARCA / MODELO / VERSÃO", "ESPÉCIE / TIPO", "PLACA ANTERIOR / UF",
	"CHASSI", "COR", "COR PREDOMINANTE", "COMBUSTÍVEL", "COR PREDOMINANTE COMBUSTÍVEL",
	"OBSERVAÇÕES DO VEÍCULO", "MENSAGENS SENATRAN", "CATEGORIA", "CAPACIDADE",
	"CATEGORIA CAPACIDADE", "POTÊNCIA CILINDRADA", "POTÊNCIA/CILINDRADA",
	"POTÊNCIA/CILINDRADA PESO BRUTO TOTAL", "PESO BRUTO TOTAL", "CMT", "EIXOS", "LOTAÇÃO",
	"CMT EIXOS LOTAÇÃO", "MOTOR", "CARROCERIA", "NOME", "NOME/RAZÃO SOCIAL", "CPF/CNPJ",
	"LOCAL", "DATA", "LOCAL DATA", "INFORMAÇÕES DO SEGURO DPVAT", "DADOS DO SEGURO DPVAT",
	"DATA DE QUITAÇÃO", "NÚMERO DE SEGURANÇA DO CRV",
}

// noiseValues are placeholder lines printed where a value is absent.
var noiseValues = []string{"***", "*******/**", "*", "*.*", "CMT", "-", "--", "---"}

// colorVocabulary maps each accepted color word to its canonical spelling.
var colorVocabulary = map[string]string{
	"BRANCA":   "BRANCA",
	"BRANCO":   "BRANCA",
	"PRETA":    "PRETA",
	"PRETO":    "PRETA",
	"PRATA":    "PRATA",
	"PRATEADA": "PRATA",
	"PRATEADO": "PRATA",
	"VERMELHA": "VERMELHA",
	"VERMELHO": "VERMELHA",
	"AZUL":     "AZUL",
	"VERDE":    "VERDE",
	"AMARELA":  "AMARELA",
	"AMARELO":  "AMARELA",
	"CINZA":    "CINZA",
	"MARROM":   "MARROM",
	"DOURADA":  "DOURADA",
	"DOURADO":  "DOURADA",
	"LARANJA":  "LARANJA",
	"BEGE":     "BEGE",
	"ROSA":     "ROSA",
	"ROXA":     "ROXA",
	"ROXO":     "ROXA",
	"GRENA":    "GRENA",
	"FANTASIA": "FANTASIA",
}

// fuelVocabulary lists the accepted fuel words, longest first so that
// alternation prefers BIODIESEL over DIESEL.
var fuelVocabulary = []string{
	"GAS NATURAL VEICULAR", "BIODIESEL", "GASOLINA", "ELETRICO", "HIBRIDO",
	"ALCOOL", "ETANOL", "DIESEL", "FLEX", "GNV",
}

// fuelSynonyms maps alternate spellings onto the canonical term.
var fuelSynonyms = map[string]string{
	"ETANOL":               "ALCOOL",
	"GAS NATURAL VEICULAR": "GNV",
}

// manufacturers are brand names recognized at the start of a model string.
var manufacturers = []string{
	"AGRALE", "AUDI", "BMW", "CAOA", "CHEVROLET", "CHEV", "CHERY", "CITROEN", "DAF",
	"DAIHATSU", "DODGE", "EFFA", "FIAT", "FORD", "GEELY", "GMC", "HAFEI", "HINO", "HONDA",
	"HYUNDAI", "IVECO", "JAC", "JEEP", "KAWASAKI", "KIA", "LAND ROVER", "LEXUS", "MAN",
	"MASERATI", "MERCEDES", "MERCEDES-BENZ", "MERCEDES BENZ", "M.BENZ", "MITSUBISHI",
	"NEW HOLLAND", "NISSAN", "PEUGEOT", "RENAULT", "SCANIA", "SHINERAY", "SPRINTER",
	"SUBARU", "SUZUKI", "TOYOTA", "TRIUMPH", "VOLKSWAGEN", "VW", "VOLVO", "YAMAHA",
}

// states are the Brazilian federative unit codes.
var states = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
	"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// categoryVocabulary maps folded category words to their printed form.
var categoryVocabulary = map[string]string{
	"PARTICULAR":   "PARTICULAR",
	"OFICIAL":      "OFICIAL",
	"ALUGUEL":      "ALUGUEL",
	"APRENDIZAGEM": "APRENDIZAGEM",
	"COLECAO":      "COLEÇÃO",
	"DIPLOMATICO":  "DIPLOMÁTICO",
	"EXPERIENCIA":  "EXPERIÊNCIA",
}

// ownerBoilerplate are signature phrases printed inside the owner block.
var ownerBoilerplate = []string{
	"ASSINADO DIGITALMENTE PELO DETRAN",
	"DOCUMENTO ASSINADO DIGITALMENTE",
}

// engineRejects are tokens that follow the MOTOR label but are never engine codes.
var engineRejects = []string{"QRCODE", "***", "CMT"}

var reSlashSpacing = regexp.MustCompile(`\s*/\s*`)

// labelKey folds a line for label comparison: upper case, no accents, single
// spaces, and " / " around slashes.
func labelKey(s string) string {
	return reSlashSpacing.ReplaceAllString(utils.FoldKey(s), " / ")
}

func keySet(keyFn func(string) string, values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[keyFn(v)] = struct{}{}
	}
	return set
}

var (
	labelKeys        = keySet(labelKey, knownLabels...)
	noiseKeys        = keySet(strings.ToUpper, noiseValues...)
	stateKeys        = keySet(strings.ToUpper, states...)
	manufacturerKeys = keySet(utils.FoldKey, manufacturers...)
	engineRejectKeys = keySet(strings.ToUpper, engineRejects...)
	reFuelWord       = regexp.MustCompile(`\b(` + strings.Join(fuelVocabulary, "|") + `)\b`)
	reWordSplit      = regexp.MustCompile(`[^A-Z]+`)
)

// IsNoise reports whether v is a placeholder value.
func IsNoise(v string) bool {
	_, ok := noiseKeys[strings.ToUpper(strings.TrimSpace(v))]
	return ok
}

// IsState reports whether uf is a Brazilian state code.
func IsState(uf string) bool {
	_, ok := stateKeys[strings.ToUpper(strings.TrimSpace(uf))]
	return ok
}

// IsManufacturer reports whether name is a known brand.
func IsManufacturer(name string) bool {
	_, ok := manufacturerKeys[utils.FoldKey(name)]
	return ok
}

// CanonicalColor returns the first color word of v in canonical spelling,
// or "" when v names no known color.
func CanonicalColor(v string) string {
	for _, w := range reWordSplit.Split(utils.FoldKey(v), -1) {
		if c, ok := colorVocabulary[w]; ok {
			return c
		}
	}
	return ""
}

// IsColor reports whether v contains a known color word.
func IsColor(v string) bool {
	return CanonicalColor(v) != ""
}

// FuelValue returns the fuel words found in v joined by "/", or "".
func FuelValue(v string) string {
	words := reFuelWord.FindAllString(utils.FoldKey(v), -1)
	return strings.Join(words, "/")
}

// IsFuel reports whether v contains a known fuel word.
func IsFuel(v string) bool {
	return FuelValue(v) != ""
}

// CanonicalCategory returns the printed category when the first word of v is a
// known category, or "".
func CanonicalCategory(v string) string {
	words := strings.Fields(utils.FoldKey(v))
	if len(words) == 0 {
		return ""
	}
	return categoryVocabulary[strings.Trim(words[0], ".,;:")]
}
