package service

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Aashish23092/crlv-reader/config"
	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/xuri/excelize/v2"
)

// FleetColumns is the column order of the fleet equipment layout.
var FleetColumns = []string{
	"EQUNR_SAP", "EQART", "EQTYP", "SHTXT", "GROES", "INBDT", "HERST", "TYPBZ", "INVNR", "BAUJJ",
	"SWERK", "ABCKZ", "BUKRS", "GSBER", "KOSTL", "IWERK", "INGRP", "GEWRK", "WERGW", "EQFNR",
	"RBNR", "TPLNR", "LICENSE_NUM", "EXPIRY_DATE", "FLEET_VIN", "CHASSIS_NUM", "BRGEW", "GEWEI",
	"GROSS_WGT", "LOAD_WGT", "LOAD_VOL", "VOL_UNIT", "LOAD_HGT", "LOAD_DIM_UNIT", "LOAD_WID(15)",
	"LOAD_LEN(15)", "NO_COMPART", "FLEET_USE", "ENGINE_TYPE", "ENGINE_SNR", "ENGINE_POWER",
	"UNIT_POWER", "ENGINE_CAP", "UNIT_CAP", "SPEED_MAX", "SPEED_UNIT", "REVOLUTIONS", "ENGINE_CYL",
	"FUEL_PRI", "FUEL_SEC", "OIL_TYPE", "MWERT1", "MWERT2", "MWERT3", "MWERT4", "MWERT5", "MWERT6",
	"MWERT8", "MWERT9", "MWERT10", "MWERT11", "MWERT12", "MWERT14", "MWERT15", "MWERT16", "MWERT17",
	"MWERT18", "MWERT19", "MWERT20", "MWERT21", "MWERT22", "MWERT23", "MWERT25", "MWERT26",
	"MWERT27", "MWERT28", "MWERT29", "MSGRP", "NUM_AXLE", "INDFIM",
}

const (
	recordsSheet  = "CRLV"
	failuresSheet = "Falhas"
)

// FleetRow is one vehicle in the fleet layout, keyed by column.
type FleetRow map[string]string

var (
	fleetColumnSet = func() map[string]bool {
		set := make(map[string]bool, len(FleetColumns))
		for _, c := range FleetColumns {
			set[c] = true
		}
		return set
	}()

	reTrailingNumber = regexp.MustCompile(`^(.*?)(\d+)$`)
	rePower          = regexp.MustCompile(`(\d+)\s*CV`)
	reDisplacement   = regexp.MustCompile(`/\s*(\d{2,4})\b`)
)

// vehicleColumns maps layout columns filled straight from a field.
var vehicleColumns = []struct {
	column string
	field  dto.Field
}{
	{"HERST", dto.FieldManufacturer},
	{"BAUJJ", dto.FieldFabricationYear},
	{"LICENSE_NUM", dto.FieldPlate},
	{"FLEET_VIN", dto.FieldRenavam},
	{"CHASSIS_NUM", dto.FieldChassis},
	{"ENGINE_SNR", dto.FieldEngine},
	{"FUEL_PRI", dto.FieldFuelPrimary},
	{"FUEL_SEC", dto.FieldFuelSecondary},
	{"MWERT1", dto.FieldVehicleYear},
	{"MWERT3", dto.FieldColor},
	{"MWERT5", dto.FieldLocation},
	{"MWERT6", dto.FieldState},
	{"MWERT11", dto.FieldCRVNumber},
	{"MWERT12", dto.FieldCRVSecurityNumber},
	{"MWERT15", dto.FieldCNPJ},
	{"MWERT16", dto.FieldOwner},
}

// extraColumns maps operator extras to the layout columns they fill.
var extraColumns = map[string][]string{
	dto.ExtraCenter:      {"SWERK", "IWERK", "WERGW", "RBNR"},
	dto.ExtraCostCenter:  {"KOSTL"},
	dto.ExtraDivision:    {"GSBER"},
	dto.ExtraVehicleType: {"EQART"},
	dto.ExtraManagement:  {"INVNR"},
	dto.ExtraFuelOilType: {"OIL_TYPE"},
}

type ExportService struct {
	cfg config.ExportConfig
}

func NewExportService(cfg config.ExportConfig) *ExportService {
	return &ExportService{cfg: cfg}
}

// Export renders the vehicles and failures of a batch as an xlsx workbook.
func (s *ExportService) Export(vehicles []dto.VehicleRecord, failures []dto.DocumentFailure) ([]byte, error) {
	return WriteWorkbook(vehicles, failures, s.cfg)
}

// BuildFleetRows maps coalesced vehicles to the fleet layout. Fixed defaults
// from cfg are applied last and override mapped values.
func BuildFleetRows(vehicles []dto.VehicleRecord, cfg config.ExportConfig) []FleetRow {
	rows := make([]FleetRow, 0, len(vehicles))
	equipment := equipmentCodes(vehicles)

	for i, v := range vehicles {
		row := make(FleetRow, len(FleetColumns))

		model := v.Fields.Get(dto.FieldCleanModel)
		if model == "" {
			model = v.Fields.Get(dto.FieldModel)
		}
		row["SHTXT"] = model
		row["TYPBZ"] = model

		for _, m := range vehicleColumns {
			row[m.column] = v.Fields.Get(m.field)
		}
		row["EXPIRY_DATE"] = sapDate(v.Fields.Get(dto.FieldIssueDate))

		for extra, columns := range extraColumns {
			for _, c := range columns {
				row[c] = v.Extras[extra]
			}
		}
		row["EQUNR_SAP"] = equipment[i]

		if weight, unit, ok := normalizeWeight(v.Fields.Get(dto.FieldGrossWeight)); ok {
			row["BRGEW"] = weight
			row["GEWEI"] = unit
		}

		power, powerUnit, capacity, capacityUnit := parsePowerDisplacement(v.Fields.Get(dto.FieldPowerDisplacement))
		row["ENGINE_POWER"] = power
		row["UNIT_POWER"] = powerUnit
		row["ENGINE_CAP"] = capacity
		row["UNIT_CAP"] = capacityUnit

		for k, val := range cfg.Defaults {
			if fleetColumnSet[k] {
				row[k] = val
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// equipmentCodes expands a single equipment base code shared by the whole
// batch into sequential codes. Otherwise each vehicle keeps its own value.
func equipmentCodes(vehicles []dto.VehicleRecord) []string {
	codes := make([]string, len(vehicles))
	unique := make(map[string]bool)
	for i, v := range vehicles {
		codes[i] = strings.TrimSpace(v.Extras[dto.ExtraEquipment])
		if codes[i] != "" {
			unique[codes[i]] = true
		}
	}
	if len(unique) != 1 {
		return codes
	}
	for base := range unique {
		return sequentialCodes(base, len(vehicles))
	}
	return codes
}

// sequentialCodes generates n codes from base keeping its prefix and the
// zero padding of its trailing number: EPD-0001265, EPD-0001266, ...
// A base without a trailing number gets a counter appended.
func sequentialCodes(base string, n int) []string {
	out := make([]string, n)
	base = strings.TrimSpace(base)
	if base == "" {
		return out
	}

	m := reTrailingNumber.FindStringSubmatch(base)
	var start int64
	var err error
	if m != nil {
		start, err = strconv.ParseInt(m[2], 10, 64)
	}
	if m == nil || err != nil {
		for i := range out {
			out[i] = base + strconv.Itoa(i+1)
		}
		return out
	}

	prefix, width := m[1], len(m[2])
	for i := range out {
		out[i] = fmt.Sprintf("%s%0*d", prefix, width, start+int64(i))
	}
	return out
}

// normalizeWeight reads a gross weight. Values up to 20 are tonnes,
// larger ones kilograms.
func normalizeWeight(value string) (string, string, bool) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return "", "", false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", "", false
	}
	unit := "KG"
	if v <= 20 {
		unit = "T"
	}
	return strconv.FormatFloat(v, 'f', -1, 64), unit, true
}

// parsePowerDisplacement splits "75CV/999" into power 75 CV and
// displacement 999 CC.
func parsePowerDisplacement(value string) (power, powerUnit, capacity, capacityUnit string) {
	txt := strings.ToUpper(strings.TrimSpace(value))
	if txt == "" {
		return
	}
	txt = strings.ReplaceAll(txt, "OCV", "0CV")

	if m := rePower.FindStringSubmatch(txt); m != nil {
		power, powerUnit = strings.TrimLeft(m[1], "0"), "CV"
		if power == "" {
			power = "0"
		}
	}
	if m := reDisplacement.FindStringSubmatch(txt); m != nil {
		capacity, capacityUnit = m[1], "CC"
	}
	return
}

// sapDate converts dd/mm/yyyy into dd.mm.yyyy. Unparseable values are kept.
func sapDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t, err := time.Parse("02/01/2006", value)
	if err != nil {
		return value
	}
	return t.Format("02.01.2006")
}

func headerFor(cfg config.ExportConfig, column string) string {
	if h, ok := cfg.ColumnHeaders[column]; ok && h != "" {
		return h
	}
	return column
}

// WriteWorkbook renders the fleet layout plus a sheet with every extracted
// field and a sheet with the failed documents. With cfg.TemplatePath set the
// layout sheet of the template is filled in place.
func WriteWorkbook(vehicles []dto.VehicleRecord, failures []dto.DocumentFailure, cfg config.ExportConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rows := BuildFleetRows(vehicles, cfg)

	var f *excelize.File
	if cfg.TemplatePath != "" {
		tpl, err := excelize.OpenFile(cfg.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("open template: %w", err)
		}
		f = tpl
		defer f.Close()
		if err := fillTemplate(f, rows, cfg); err != nil {
			return nil, err
		}
	} else {
		f = excelize.NewFile()
		defer f.Close()
		if err := writeLayoutSheet(f, rows, cfg); err != nil {
			return nil, err
		}
	}

	if err := writeRecordsSheet(f, vehicles); err != nil {
		return nil, err
	}
	if err := writeFailuresSheet(f, failures); err != nil {
		return nil, err
	}

	if index, _ := f.GetSheetIndex(cfg.SheetName); index != -1 {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	log.Printf("Workbook written: %d vehicles, %d failures", len(rows), len(failures))
	return buf.Bytes(), nil
}

func writeLayoutSheet(f *excelize.File, rows []FleetRow, cfg config.ExportConfig) error {
	if err := f.SetSheetName(f.GetSheetName(0), cfg.SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sheet := cfg.SheetName

	for i, col := range FleetColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, cfg.HeaderRow)
		_ = f.SetCellValue(sheet, cell, headerFor(cfg, col))
	}
	for r, row := range rows {
		for i, col := range FleetColumns {
			if v := row[col]; v != "" {
				cell, _ := excelize.CoordinatesToCellName(i+1, cfg.DataStartRow+r)
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
	}
	return nil
}

// fillTemplate writes rows under the template headers, matched by text.
// Old values in the data region are cleared and the style of the first data
// row is copied onto every written row.
func fillTemplate(f *excelize.File, rows []FleetRow, cfg config.ExportConfig) error {
	sheet := cfg.SheetName
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		return fmt.Errorf("%w: %s", dto.ErrTemplateSheet, sheet)
	}

	existing, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	headerIndex := make(map[string]int)
	if cfg.HeaderRow <= len(existing) {
		for i, h := range existing[cfg.HeaderRow-1] {
			if h = strings.TrimSpace(h); h != "" {
				headerIndex[h] = i + 1
			}
		}
	}

	type target struct {
		column string
		index  int
	}
	var targets []target
	var missing []string
	for _, col := range FleetColumns {
		if idx, ok := headerIndex[headerFor(cfg, col)]; ok {
			targets = append(targets, target{col, idx})
		} else {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		if cfg.Strict {
			return fmt.Errorf("template has no header for columns: %s", strings.Join(missing, ", "))
		}
		log.Printf("Template has no header for %d layout columns", len(missing))
	}

	maxCol := 0
	lastRow := cfg.DataStartRow - 1
	for r, cells := range existing {
		if len(cells) > maxCol {
			maxCol = len(cells)
		}
		if r+1 < cfg.DataStartRow {
			continue
		}
		for _, c := range cells {
			if strings.TrimSpace(c) != "" {
				lastRow = r + 1
				break
			}
		}
	}

	styles := make(map[int]int, len(targets))
	for _, t := range targets {
		cell, _ := excelize.CoordinatesToCellName(t.index, cfg.DataStartRow)
		if style, err := f.GetCellStyle(sheet, cell); err == nil {
			styles[t.index] = style
		}
	}

	for r := cfg.DataStartRow; r <= lastRow; r++ {
		for c := 1; c <= maxCol; c++ {
			cell, _ := excelize.CoordinatesToCellName(c, r)
			_ = f.SetCellStr(sheet, cell, "")
		}
	}

	for r, row := range rows {
		excelRow := cfg.DataStartRow + r
		for _, t := range targets {
			cell, _ := excelize.CoordinatesToCellName(t.index, excelRow)
			if style, ok := styles[t.index]; ok && style != 0 {
				_ = f.SetCellStyle(sheet, cell, cell, style)
			}
			if v := row[t.column]; v != "" {
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
	}
	return nil
}

func resetSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index != -1 {
		return f.DeleteSheet(sheet)
	}
	return nil
}

func writeRecordsSheet(f *excelize.File, vehicles []dto.VehicleRecord) error {
	if err := resetSheet(f, recordsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", recordsSheet, err)
	}

	headers := []string{"Chave"}
	for _, field := range dto.CanonicalFields {
		headers = append(headers, field.Column())
	}
	headers = append(headers, dto.ExtraFields...)
	headers = append(headers, "Documentos", "Conflitos")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(recordsSheet, cell, h)
	}

	for r, v := range vehicles {
		row := r + 2
		write := func(col int, val string) {
			if val == "" {
				return
			}
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(recordsSheet, cell, val)
		}

		col := 1
		write(col, v.Key.String())
		for _, field := range dto.CanonicalFields {
			col++
			write(col, v.Fields.Get(field))
		}
		for _, extra := range dto.ExtraFields {
			col++
			write(col, v.Extras[extra])
		}
		col++
		write(col, strings.Join(v.Sources, "; "))
		col++
		write(col, conflictSummary(v.Conflicts))
	}

	_ = f.SetColWidth(recordsSheet, "A", "A", 26)
	return nil
}

func conflictSummary(conflicts []dto.FieldConflict) string {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("%s: %s x %s (%s)", c.Field, c.Kept, c.Discarded, c.DocumentID))
	}
	return strings.Join(parts, "; ")
}

func writeFailuresSheet(f *excelize.File, failures []dto.DocumentFailure) error {
	if err := resetSheet(f, failuresSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(failuresSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", failuresSheet, err)
	}

	_ = f.SetCellValue(failuresSheet, "A1", "Documento")
	_ = f.SetCellValue(failuresSheet, "B1", "Erro")
	for i, fail := range failures {
		row := i + 2
		_ = f.SetCellValue(failuresSheet, fmt.Sprintf("A%d", row), fail.DocumentID)
		_ = f.SetCellValue(failuresSheet, fmt.Sprintf("B%d", row), fail.Error)
	}

	_ = f.SetColWidth(failuresSheet, "A", "A", 40)
	_ = f.SetColWidth(failuresSheet, "B", "B", 80)
	return nil
}
