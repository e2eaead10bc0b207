package main

import (
	"log"

	"github.com/Aashish23092/crlv-reader/client"
	"github.com/Aashish23092/crlv-reader/config"
	"github.com/Aashish23092/crlv-reader/handler"
	"github.com/Aashish23092/crlv-reader/service"
	"github.com/Aashish23092/crlv-reader/utils/crlv"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()
	log.Println("TESSDATA_PREFIX set to:", cfg.TesseractDataPath)

	exportCfg, err := config.LoadExportConfig(cfg.ExportConfigPath)
	if err != nil {
		log.Fatalf("Failed to load export config: %v", err)
	}

	// Initialize OCR clients
	tesseractClient := client.NewTesseractClient(cfg.TesseractDataPath, cfg.TesseractLanguage)
	defer tesseractClient.Close()

	ocrSpaceClient := client.NewOCRSpaceClient(cfg.OCRSpaceAPIKey, cfg.OCRSpaceURL, cfg.OCRTimeout, cfg.OCRMaxRetries)
	if ocrSpaceClient.Enabled() {
		log.Println("OCR.Space enabled for scanned documents")
	} else {
		log.Println("OCR_SPACE_API_KEY not set, scanned documents use local tesseract")
	}

	// Initialize service layer
	textProvider := service.NewTextProvider(
		service.NewPDFProcessor(),
		ocrSpaceClient,
		tesseractClient,
		service.NewQRDecoder(),
		cfg.MinTextLayerChars,
	)

	engine := crlv.NewEngine(crlv.Config{
		GlobalPlateScan:       cfg.GlobalPlateScan,
		RenavamCollisionGuard: true,
		KeepRawText:           cfg.KeepRawText,
	})

	crlvService := service.NewCRLVService(textProvider, engine, cfg.BatchWorkers)
	exportService := service.NewExportService(exportCfg)

	// Initialize handler layer
	crlvHandler := handler.NewCRLVHandler(crlvService, exportService, cfg.MaxFileSize)

	// Setup Gin router
	router := gin.Default()

	// Configure max multipart memory (32 MB)
	router.MaxMultipartMemory = 32 << 20

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "CRLV Reader",
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		crlvRoutes := api.Group("/crlv")
		{
			crlvRoutes.GET("/fields", crlvHandler.ListFields)
			crlvRoutes.POST("/text", crlvHandler.ExtractText)
			crlvRoutes.POST("/extract", crlvHandler.ExtractDocument)
			crlvRoutes.POST("/batch", crlvHandler.ProcessBatch)
			crlvRoutes.POST("/export", crlvHandler.Export)
		}
	}

	// Start server
	log.Printf("Starting CRLV Reader on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
