package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "TESSERACT_LANG", "MAX_FILE_SIZE_MB", "OCR_SPACE_API_KEY",
		"OCR_TIMEOUT_SECONDS", "BATCH_WORKERS", "PLATE_GLOBAL_SCAN", "KEEP_RAW_TEXT", "EXPORT_CONFIG"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "por", cfg.TesseractLanguage)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, "", cfg.OCRSpaceAPIKey)
	assert.Equal(t, 90*time.Second, cfg.OCRTimeout)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.True(t, cfg.GlobalPlateScan)
	assert.False(t, cfg.KeepRawText)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAX_FILE_SIZE_MB", "25")
	t.Setenv("OCR_SPACE_API_KEY", "secret")
	t.Setenv("BATCH_WORKERS", "not-a-number")
	t.Setenv("PLATE_GLOBAL_SCAN", "false")
	t.Setenv("KEEP_RAW_TEXT", "1")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, int64(25*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, "secret", cfg.OCRSpaceAPIKey)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.False(t, cfg.GlobalPlateScan)
	assert.True(t, cfg.KeepRawText)
}

func TestLoadExportConfig(t *testing.T) {
	cfg, err := LoadExportConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultExportConfig(), cfg)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	content := "sheet_name: Frota\nheader_row: 1\ndata_start_row: 2\ndefaults:\n  EQTYP: X\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err = LoadExportConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Frota", cfg.SheetName)
	assert.Equal(t, 1, cfg.HeaderRow)
	assert.Equal(t, 2, cfg.DataStartRow)
	assert.Equal(t, "X", cfg.Defaults["EQTYP"])
}

func TestLoadExportConfigErrors(t *testing.T) {
	_, err := LoadExportConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("header_row: 6\ndata_start_row: 4\n"), 0o644))

	_, err = LoadExportConfig(path)
	assert.Error(t, err)
}
