package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExportConfig describes the fleet spreadsheet layout.
type ExportConfig struct {
	SheetName    string `yaml:"sheet_name"`
	HeaderRow    int    `yaml:"header_row"`
	DataStartRow int    `yaml:"data_start_row"`
	// TemplatePath, when set, is an existing workbook whose sheet is filled
	// in place instead of creating a new one.
	TemplatePath string `yaml:"template_path"`
	// Defaults are fixed values written to every row, overriding mapped ones.
	Defaults map[string]string `yaml:"defaults"`
	// ColumnHeaders maps a layout column to the header text used in the
	// template when they differ.
	ColumnHeaders map[string]string `yaml:"column_headers"`
	// Strict fails the export when a layout column has no header in the
	// template.
	Strict bool `yaml:"strict"`
}

// DefaultExportConfig returns the layout of the standard fleet template.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		SheetName:    "FROTA-Layout_excel_Geral",
		HeaderRow:    4,
		DataStartRow: 6,
		Defaults: map[string]string{
			"EQTYP":       "V",
			"INGRP":       "PM1",
			"GEWRK":       "FRT-MEC",
			"EXPIRY_DATE": "31.12.9999",
			"MWERT4":      "AGUARDANDO ATIVACAO",
			"MWERT25":     "AGUARDANDO ATIVACAO",
			"INDFIM":      "X",
			"MWERT14":     "01",
		},
		ColumnHeaders: map[string]string{
			"EQTYP": `EQTYP = "V"-Veículos`,
			"INGRP": "INGRP (Fixo = PM1)",
		},
	}
}

// LoadExportConfig reads a YAML layout over DefaultExportConfig. Map entries
// given in the file are merged into the default maps. An empty path returns
// the defaults.
func LoadExportConfig(path string) (ExportConfig, error) {
	cfg := DefaultExportConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read export config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse export config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the row layout.
func (c ExportConfig) Validate() error {
	if c.SheetName == "" {
		return fmt.Errorf("export config: sheet_name is required")
	}
	if c.HeaderRow < 1 {
		return fmt.Errorf("export config: header_row must be positive, got %d", c.HeaderRow)
	}
	if c.DataStartRow <= c.HeaderRow {
		return fmt.Errorf("export config: data_start_row (%d) must be below header_row (%d)", c.DataStartRow, c.HeaderRow)
	}
	return nil
}
