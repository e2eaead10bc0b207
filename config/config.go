package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort        string
	TesseractDataPath string
	TesseractLanguage string
	MaxFileSize       int64

	// OCR.Space is used for scanned documents when an API key is set,
	// local tesseract otherwise.
	OCRSpaceAPIKey string
	OCRSpaceURL    string
	OCRTimeout     time.Duration
	OCRMaxRetries  int

	// MinTextLayerChars is the shortest PDF text layer accepted without OCR.
	MinTextLayerChars int
	BatchWorkers      int

	GlobalPlateScan  bool
	KeepRawText      bool
	ExportConfigPath string
}

func LoadConfig() *Config {
	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		TesseractDataPath: getEnv("TESSDATA_PREFIX", "/usr/share/tesseract-ocr/5/tessdata/"),
		TesseractLanguage: getEnv("TESSERACT_LANG", "por"),
		MaxFileSize:       int64(getEnvAsInt("MAX_FILE_SIZE_MB", 10)) * 1024 * 1024,
		OCRSpaceAPIKey:    getEnv("OCR_SPACE_API_KEY", ""),
		OCRSpaceURL:       getEnv("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
		OCRTimeout:        time.Duration(getEnvAsInt("OCR_TIMEOUT_SECONDS", 90)) * time.Second,
		OCRMaxRetries:     getEnvAsInt("OCR_MAX_RETRIES", 3),
		MinTextLayerChars: getEnvAsInt("MIN_TEXT_LAYER_CHARS", 120),
		BatchWorkers:      getEnvAsInt("BATCH_WORKERS", 4),
		GlobalPlateScan:   getEnvAsBool("PLATE_GLOBAL_SCAN", true),
		KeepRawText:       getEnvAsBool("KEEP_RAW_TEXT", false),
		ExportConfigPath:  getEnv("EXPORT_CONFIG", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && intVal > 0 {
			return intVal
		}
		log.Printf("Warning: invalid value %q for %s, using %d", value, key, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
		log.Printf("Warning: invalid value %q for %s, using %t", value, key, defaultValue)
	}
	return defaultValue
}
