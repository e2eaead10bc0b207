// Command crlvbatch extracts a directory or list of CRV/CRLV files and writes
// the fleet workbook, without the HTTP server.
//
//	crlvbatch -out frota.xlsx -extras '{"CENTRO":"MP01"}' docs/*.pdf
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Aashish23092/crlv-reader/client"
	"github.com/Aashish23092/crlv-reader/config"
	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/service"
	"github.com/Aashish23092/crlv-reader/utils/crlv"
)

func main() {
	out := flag.String("out", "frota.xlsx", "output workbook path")
	jsonOut := flag.String("json", "", "also write the batch result as JSON to this path")
	extrasJSON := flag.String("extras", "", `operator columns as a JSON object, e.g. {"CENTRO":"MP01"}`)
	textInputs := flag.Bool("text", false, "inputs are OCR text files (.txt) instead of documents")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: crlvbatch [flags] file-or-dir...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	exportCfg, err := config.LoadExportConfig(cfg.ExportConfigPath)
	if err != nil {
		log.Fatalf("Failed to load export config: %v", err)
	}

	extras, err := dto.ParseExtras(*extrasJSON)
	if err != nil {
		log.Fatalf("Invalid -extras: %v", err)
	}

	paths, err := collectPaths(flag.Args())
	if err != nil {
		log.Fatalf("Failed to list inputs: %v", err)
	}

	inputs := make([]dto.DocumentInput, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Printf("Skipping %s: %v", p, err)
			continue
		}
		input := dto.DocumentInput{Name: filepath.Base(p)}
		if *textInputs {
			input.Text = string(data)
		} else {
			input.Data = data
		}
		inputs = append(inputs, input)
	}

	tesseractClient := client.NewTesseractClient(cfg.TesseractDataPath, cfg.TesseractLanguage)
	defer tesseractClient.Close()

	textProvider := service.NewTextProvider(
		service.NewPDFProcessor(),
		client.NewOCRSpaceClient(cfg.OCRSpaceAPIKey, cfg.OCRSpaceURL, cfg.OCRTimeout, cfg.OCRMaxRetries),
		tesseractClient,
		service.NewQRDecoder(),
		cfg.MinTextLayerChars,
	)
	engine := crlv.NewEngine(crlv.Config{
		GlobalPlateScan:       cfg.GlobalPlateScan,
		RenavamCollisionGuard: true,
		KeepRawText:           cfg.KeepRawText,
	})
	svc := service.NewCRLVService(textProvider, engine, cfg.BatchWorkers)

	// Ctrl-C stops new documents; the ones running still finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, err := svc.ProcessBatch(ctx, inputs, extras)
	if err != nil {
		log.Fatalf("Batch failed: %v", err)
	}

	for _, doc := range resp.Documents {
		if doc.Error != "" {
			log.Printf("FAIL %s: %s", doc.DocumentID, doc.Error)
			continue
		}
		log.Printf("OK   %s (%s) missing: %s", doc.DocumentID, doc.TextSource, joinFields(doc.MissingFields))
	}

	data, err := service.NewExportService(exportCfg).Export(resp.Vehicles, resp.Failures)
	if err != nil {
		log.Fatalf("Failed to build workbook: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}

	if *jsonOut != "" {
		raw, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		if err := os.WriteFile(*jsonOut, raw, 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", *jsonOut, err)
		}
	}

	log.Printf("%d documents, %d records, %d vehicles, %d failures -> %s",
		len(resp.Documents), resp.RecordCount, resp.VehicleCount, len(resp.Failures), *out)
	if resp.Cancelled {
		log.Printf("Interrupted: %d of %d documents were processed", len(resp.Documents), len(inputs))
		os.Exit(1)
	}
}

// collectPaths expands directories into the supported files they contain.
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !supported(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	return paths, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".txt":
		return true
	}
	return false
}

func joinFields(fields []dto.Field) string {
	if len(fields) == 0 {
		return "-"
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
