package crlv

import (
	"testing"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCRLV = `REPÚBLICA FEDERATIVA DO BRASIL
DEPARTAMENTO NACIONAL DE TRÂNSITO
CERTIFICADO DE REGISTRO E LICENCIAMENTO DE VEÍCULO - DIGITAL
CÓDIGO RENAVAM
01234567890
PLACA
ABC1D23
EXERCÍCIO
2024
ANO FABRICAÇÃO
2019
ANO MODELO
2020
NÚMERO DO CRV
123456789012
CÓDIGO DE SEGURANÇA DO CLA
98765432101
CAT
MARCA / MODELO / VERSÃO
VW/GOL 1.0L MC4
ESPÉCIE / TIPO
PASSAGEIRO AUTOMOVEL
PLACA ANTERIOR / UF
*******/**
CHASSI
9BWAG45U1KT123456
COR PREDOMINANTE
BRANCA
COMBUSTÍVEL
ALCOOL/GASOLINA
CATEGORIA
PARTICULAR
CAPACIDADE
5P
POTÊNCIA/CILINDRADA
82CV/999
PESO BRUTO TOTAL
1.5
MOTOR
CSE123456
CMT
1.55
EIXOS
2
CARROCERIA
NAO APLICAVEL
NOME
JOSE DA SILVA
CPF / CNPJ
12345678909
LOCAL
SAO PAULO SP
DATA
12/03/2024
MENSAGENS SENATRAN
SEM RESTRICOES

NÚMERO DE SEGURANÇA DO CRV
45678901234
`

func TestExtractFieldsSample(t *testing.T) {
	rec := NewEngine(DefaultConfig()).ExtractFields(sampleCRLV)
	f := rec.Fields

	expected := map[dto.Field]string{
		dto.FieldPlate:             "ABC1-D23",
		dto.FieldRenavam:           "01234567890",
		dto.FieldChassis:           "9BWAG45U1KT123456",
		dto.FieldEngine:            "CSE123456",
		dto.FieldFabricationYear:   "2019",
		dto.FieldModelYear:         "2020",
		dto.FieldVehicleYear:       "2020/2019",
		dto.FieldModel:             "VW/GOL 1.0L MC4",
		dto.FieldManufacturer:      "VW",
		dto.FieldCleanModel:        "GOL 1.0L MC4",
		dto.FieldColor:             "BRANCA",
		dto.FieldFuel:              "ALCOOL/GASOLINA",
		dto.FieldFuelPrimary:       "ALCOOL",
		dto.FieldFuelSecondary:     "GASOLINA",
		dto.FieldSpeciesType:       "PASSAGEIRO AUTOMOVEL",
		dto.FieldCategory:          "PARTICULAR",
		dto.FieldCapacity:          "5P",
		dto.FieldPowerDisplacement: "82CV/999",
		dto.FieldGrossWeight:       "1.5",
		dto.FieldBody:              "NÃO APLICAVEL",
		dto.FieldOwner:             "JOSE DA SILVA",
		dto.FieldCPF:               "123.456.789-09",
		dto.FieldCNPJ:              "",
		dto.FieldLocation:          "SAO PAULO",
		dto.FieldState:             "SP",
		dto.FieldIssueDate:         "12/03/2024",
		dto.FieldCRVNumber:         "123456789012",
		dto.FieldCLASecurityCode:   "98765432101",
		dto.FieldCRVSecurityNumber: "45678901234",
		dto.FieldSenatranMessages:  "SEM RESTRICOES",
		dto.FieldDPVAT:             "",
	}
	for field, want := range expected {
		assert.Equal(t, want, f.Get(field), "field %s", field)
	}

	assert.ElementsMatch(t, []dto.Field{dto.FieldCNPJ, dto.FieldDPVAT}, rec.MissingFields())
	assert.Empty(t, rec.RawText)
}

func TestExtractFieldsEmptyInput(t *testing.T) {
	rec := ExtractFields("")

	assert.Len(t, rec.Fields, len(dto.CanonicalFields))
	assert.Equal(t, dto.CanonicalFields, rec.MissingFields())
}

func TestEngineIgnoresOwnerDocument(t *testing.T) {
	for _, id := range []string{"123.456.789-09", "12345678909", "12.345.678/0001-95"} {
		text := "MOTOR\n*\nNOME\nJOSE DA SILVA\nCPF / CNPJ\n" + id + "\n"

		rec := NewEngine(DefaultConfig()).ExtractFields(text)
		assert.Equal(t, "", rec.Fields.Get(dto.FieldEngine), id)
	}

	rec := NewEngine(DefaultConfig()).ExtractFields("MOTOR\nCSE123456\nCPF / CNPJ\n123.456.789-09\n")
	assert.Equal(t, "CSE123456", rec.Fields.Get(dto.FieldEngine))
}

func TestSecurityCodeEqualToRenavamIsDiscarded(t *testing.T) {
	text := "CÓDIGO RENAVAM\n01234567890\nNÚMERO DE SEGURANÇA DO CRV\n01234567890\n"

	rec := NewEngine(DefaultConfig()).ExtractFields(text)
	assert.Equal(t, "01234567890", rec.Fields.Get(dto.FieldRenavam))
	assert.Equal(t, "", rec.Fields.Get(dto.FieldCRVSecurityNumber))

	cfg := DefaultConfig()
	cfg.RenavamCollisionGuard = false
	rec = NewEngine(cfg).ExtractFields(text)
	assert.Equal(t, "01234567890", rec.Fields.Get(dto.FieldCRVSecurityNumber))
}

func TestInlineLayout(t *testing.T) {
	text := "MARCA/MODELO: FIAT/STRADA WORKING\nANO FAB./MOD.: 2018/2019\nPLACA: QRS-5678\n"

	f := ExtractFields(text).Fields

	assert.Equal(t, "FIAT", f.Get(dto.FieldManufacturer))
	assert.Equal(t, "STRADA WORKING", f.Get(dto.FieldCleanModel))
	assert.Equal(t, "2018", f.Get(dto.FieldFabricationYear))
	assert.Equal(t, "2019", f.Get(dto.FieldModelYear))
	assert.Equal(t, "QRS5-678", f.Get(dto.FieldPlate))
}

func TestCompositeColorFuelLine(t *testing.T) {
	f := ExtractFields("COR PREDOMINANTE COMBUSTÍVEL PRATA GASOLINA").Fields

	assert.Equal(t, "PRATA", f.Get(dto.FieldColor))
	assert.Equal(t, "GASOLINA", f.Get(dto.FieldFuel))
	assert.Equal(t, "GASOLINA", f.Get(dto.FieldFuelPrimary))
}

func TestGlobalPlateScanSwitch(t *testing.T) {
	text := "VEICULO ABC1D23 EM TRANSITO"

	assert.Equal(t, "ABC1-D23", NewEngine(DefaultConfig()).ExtractFields(text).Fields.Get(dto.FieldPlate))
	assert.Equal(t, "", NewEngine(Config{}).ExtractFields(text).Fields.Get(dto.FieldPlate))
}

func TestExtractDocument(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepRawText = true

	rec, err := NewEngine(cfg).ExtractDocument("doc-1.pdf", "RENAVAM 01234567890")
	require.NoError(t, err)

	assert.Equal(t, "doc-1.pdf", rec.DocumentID)
	assert.Equal(t, "RENAVAM 01234567890", rec.RawText)
	assert.Equal(t, "01234567890", rec.Fields.Get(dto.FieldRenavam))
}

func TestRegistry(t *testing.T) {
	specs := Registry()
	require.NotEmpty(t, specs)

	seen := make(map[dto.Field]bool)
	for _, s := range specs {
		assert.False(t, seen[s.Field], "duplicate FieldSpec for %s", s.Field)
		seen[s.Field] = true
		assert.NotEmpty(t, s.Strategies, "field %s", s.Field)
	}

	// Every canonical field is either read or derived.
	for _, info := range FieldInfos() {
		assert.True(t, seen[info.Field] || info.Derived, "field %s", info.Field)
	}

	spec, ok := Lookup(dto.FieldRenavam)
	require.True(t, ok)
	assert.Equal(t, 4, spec.Lookahead)

	_, ok = Lookup(dto.FieldManufacturer)
	assert.False(t, ok)
}
