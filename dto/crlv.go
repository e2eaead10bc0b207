package dto

// Field identifies one column of an extracted CRV/CRLV record.
type Field string

const (
	FieldPlate             Field = "plate"
	FieldRenavam           Field = "renavam"
	FieldChassis           Field = "chassis"
	FieldEngine            Field = "engine"
	FieldFabricationYear   Field = "fabrication_year"
	FieldModelYear         Field = "model_year"
	FieldModel             Field = "model"
	FieldManufacturer      Field = "manufacturer"
	FieldCleanModel        Field = "clean_model"
	FieldColor             Field = "color"
	FieldFuel              Field = "fuel"
	FieldFuelPrimary       Field = "fuel_primary"
	FieldFuelSecondary     Field = "fuel_secondary"
	FieldSpeciesType       Field = "species_type"
	FieldCategory          Field = "category"
	FieldCapacity          Field = "capacity"
	FieldPowerDisplacement Field = "power_displacement"
	FieldGrossWeight       Field = "gross_weight"
	FieldBody              Field = "body"
	FieldOwner             Field = "owner"
	FieldCPF               Field = "cpf"
	FieldCNPJ              Field = "cnpj"
	FieldLocation          Field = "location"
	FieldState             Field = "state"
	FieldIssueDate         Field = "issue_date"
	FieldCRVNumber         Field = "crv_number"
	FieldCLASecurityCode   Field = "cla_security_code"
	FieldCRVSecurityNumber Field = "crv_security_number"
	FieldVehicleYear       Field = "vehicle_year"
	FieldSenatranMessages  Field = "senatran_messages"
	FieldDPVAT             Field = "dpvat_insurance"
)

// CanonicalFields is the fixed field order of every record.
var CanonicalFields = []Field{
	FieldPlate, FieldRenavam, FieldChassis, FieldEngine, FieldFabricationYear, FieldModelYear,
	FieldModel, FieldManufacturer, FieldCleanModel, FieldColor, FieldFuel, FieldFuelPrimary,
	FieldFuelSecondary, FieldSpeciesType, FieldCategory, FieldCapacity, FieldPowerDisplacement,
	FieldGrossWeight, FieldBody, FieldOwner, FieldCPF, FieldCNPJ, FieldLocation, FieldState,
	FieldIssueDate, FieldCRVNumber, FieldCLASecurityCode, FieldCRVSecurityNumber, FieldVehicleYear,
	FieldSenatranMessages, FieldDPVAT,
}

var fieldColumns = map[Field]string{
	FieldPlate:             "Placa",
	FieldRenavam:           "Renavam",
	FieldChassis:           "Chassi",
	FieldEngine:            "Motor",
	FieldFabricationYear:   "Ano Fabricação",
	FieldModelYear:         "Ano Modelo",
	FieldModel:             "Modelo",
	FieldManufacturer:      "Fabricante",
	FieldCleanModel:        "Modelo_Limpo",
	FieldColor:             "Cor",
	FieldFuel:              "Combustível",
	FieldFuelPrimary:       "Combustivel_Principal",
	FieldFuelSecondary:     "Combustivel_Secundario",
	FieldSpeciesType:       "Espécie / Tipo",
	FieldCategory:          "Categoria",
	FieldCapacity:          "Capacidade",
	FieldPowerDisplacement: "Potência/Cilindrada",
	FieldGrossWeight:       "Peso Bruto Total",
	FieldBody:              "Carroceria",
	FieldOwner:             "Proprietário",
	FieldCPF:               "CPF",
	FieldCNPJ:              "CNPJ",
	FieldLocation:          "Local",
	FieldState:             "UF",
	FieldIssueDate:         "Data Emissão",
	FieldCRVNumber:         "Número do CRV",
	FieldCLASecurityCode:   "Código Segurança CLA",
	FieldCRVSecurityNumber: "NumeroSegurancaCRV",
	FieldVehicleYear:       "TIPO_ANO_VEICULO",
	FieldSenatranMessages:  "Mensagens SENATRAN",
	FieldDPVAT:             "Seguro DPVAT",
}

// Column returns the spreadsheet header used for the field.
func (f Field) Column() string {
	if c, ok := fieldColumns[f]; ok {
		return c
	}
	return string(f)
}

// Operator-supplied batch columns. They are copied onto records but never
// extracted from document text.
const (
	ExtraCenter         = "CENTRO"
	ExtraCostCenter     = "CENTRO_CUSTO"
	ExtraEquipment      = "EQUIPAMENTO"
	ExtraVehicleType    = "TIPO_VEICULO"
	ExtraDivision       = "DIVISAO"
	ExtraCatalogProfile = "PERFIL_CATALOGO"
	ExtraFuelOilType    = "TIPO_CARBURANTE_OLEO"
	ExtraManagement     = "GERENCIA"
)

// ExtraFields lists the operator-supplied columns accepted by a batch.
var ExtraFields = []string{
	ExtraCenter, ExtraCostCenter, ExtraEquipment, ExtraVehicleType,
	ExtraDivision, ExtraCatalogProfile, ExtraFuelOilType, ExtraManagement,
}

// Fields maps a field to its extracted value. Unresolved fields hold "".
type Fields map[Field]string

// Get returns the value of f, or "" when absent.
func (f Fields) Get(field Field) string {
	if f == nil {
		return ""
	}
	return f[field]
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// NewFields returns a map holding every canonical field with an empty value.
func NewFields() Fields {
	f := make(Fields, len(CanonicalFields))
	for _, field := range CanonicalFields {
		f[field] = ""
	}
	return f
}

// ExtractedRecord is the result of running the engine over one document.
type ExtractedRecord struct {
	DocumentID string            `json:"document_id"`
	Fields     Fields            `json:"fields"`
	Extras     map[string]string `json:"extras,omitempty"`
	QRPayload  string            `json:"qr_payload,omitempty"`
	RawText    string            `json:"raw_text,omitempty"`
}

// MissingFields lists the canonical fields left unresolved, in canonical order.
func (r ExtractedRecord) MissingFields() []Field {
	missing := make([]Field, 0)
	for _, f := range CanonicalFields {
		if r.Fields.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// MergeKind names the identifier a MergeKey was built from.
type MergeKind string

const (
	MergeByRenavam     MergeKind = "renavam"
	MergeByPlate       MergeKind = "plate"
	MergeByCRVNumber   MergeKind = "crv_number"
	MergeBySecurityCRV MergeKind = "crv_security_number"
	MergeByDocument    MergeKind = "document"
)

// MergeKey is the normalized identity used to recognize the same vehicle
// across documents.
type MergeKey struct {
	Kind  MergeKind `json:"kind"`
	Value string    `json:"value"`
}

func (k MergeKey) String() string {
	return string(k.Kind) + ":" + k.Value
}

// FieldConflict records a later document disagreeing with a kept value.
type FieldConflict struct {
	Field      Field  `json:"field"`
	Kept       string `json:"kept"`
	Discarded  string `json:"discarded"`
	DocumentID string `json:"document_id"`
}

// VehicleRecord is one coalesced vehicle built from one or more documents.
type VehicleRecord struct {
	Key       MergeKey          `json:"key"`
	Fields    Fields            `json:"fields"`
	Extras    map[string]string `json:"extras,omitempty"`
	Sources   []string          `json:"sources"`
	Conflicts []FieldConflict   `json:"conflicts,omitempty"`
}
