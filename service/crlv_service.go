package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/utils/crlv"
	"github.com/google/uuid"
)

type CRLVService struct {
	textProvider TextProvider
	engine       *crlv.Engine
	workers      int
}

func NewCRLVService(textProvider TextProvider, engine *crlv.Engine, workers int) *CRLVService {
	if workers < 1 {
		workers = 1
	}
	return &CRLVService{
		textProvider: textProvider,
		engine:       engine,
		workers:      workers,
	}
}

// ExtractText runs the engine over text that was acquired elsewhere. Empty
// text yields a record with every field missing.
func (s *CRLVService) ExtractText(documentID, text string) dto.DocumentResult {
	result := dto.DocumentResult{
		DocumentID:    documentID,
		MissingFields: []dto.Field{},
	}
	s.extract(&result, documentID, dto.DocumentText{Text: text, Source: SourceInline})
	return result
}

// ProcessDocument acquires the text of one document and extracts its
// fields. Failures, panics included, are reported in the result, never
// returned.
func (s *CRLVService) ProcessDocument(ctx context.Context, input dto.DocumentInput) (result dto.DocumentResult) {
	result = dto.DocumentResult{
		DocumentID:    input.Name,
		MissingFields: []dto.Field{},
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered panic while processing %s: %v", input.Name, r)
			result.Record = nil
			result.MissingFields = []dto.Field{}
			fail(&result, fmt.Errorf("%w: document %q: %v", dto.ErrExtractionFailed, input.Name, r))
		}
	}()

	doc := dto.DocumentText{Text: input.Text, Source: SourceInline}
	if strings.TrimSpace(doc.Text) == "" {
		if s.textProvider == nil {
			fail(&result, fmt.Errorf("%w: %s", dto.ErrNoText, input.Name))
			return result
		}
		acquired, err := s.textProvider.ExtractText(ctx, input.Name, input.Data)
		if err != nil {
			log.Printf("Text acquisition failed for %s: %v", input.Name, err)
			fail(&result, err)
			return result
		}
		doc = acquired
	}

	s.extract(&result, input.Name, doc)
	return result
}

func (s *CRLVService) extract(result *dto.DocumentResult, documentID string, doc dto.DocumentText) {
	result.TextSource = doc.Source
	result.OCRConfidence = doc.Confidence

	rec, err := s.engine.ExtractDocument(documentID, doc.Text)
	if err != nil {
		log.Printf("Extraction failed for %s: %v", documentID, err)
		fail(result, err)
		return
	}
	rec.QRPayload = doc.QRPayload

	result.Record = &rec
	result.MissingFields = rec.MissingFields()
	log.Printf("Extracted %s from %s: %d fields missing", documentID, doc.Source, len(result.MissingFields))
}

func fail(result *dto.DocumentResult, err error) {
	result.Err = err
	result.Error = err.Error()
}

// ProcessBatch extracts every document with a bounded number of workers and
// coalesces the records into vehicles. Cancelling ctx stops new documents
// from starting; documents already running complete and the partial batch
// is returned with Cancelled set.
func (s *CRLVService) ProcessBatch(ctx context.Context, inputs []dto.DocumentInput, extras map[string]string) (*dto.BatchResponse, error) {
	if len(inputs) == 0 {
		return nil, dto.ErrNoDocuments
	}

	results := make([]dto.DocumentResult, len(inputs))
	started := make([]bool, len(inputs))
	sem := make(chan struct{}, s.workers)
	work := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	cancelled := false

submit:
	for i, input := range inputs {
		if input.Name == "" {
			input.Name = fmt.Sprintf("documento-%d", i+1)
		}

		select {
		case <-ctx.Done():
			cancelled = true
			break submit
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			cancelled = true
			break submit
		}

		started[i] = true
		wg.Add(1)
		go func(i int, input dto.DocumentInput) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.ProcessDocument(work, input)
		}(i, input)
	}

	wg.Wait()

	if cancelled {
		log.Printf("Batch cancelled: %d of %d documents started", countTrue(started), len(inputs))
	}

	response := &dto.BatchResponse{
		BatchID:     uuid.NewString(),
		Documents:   make([]dto.DocumentResult, 0, len(inputs)),
		Failures:    make([]dto.DocumentFailure, 0),
		Cancelled:   cancelled,
		ProcessedAt: time.Now().Format(time.RFC3339),
	}

	var records []dto.ExtractedRecord
	for i, res := range results {
		if !started[i] {
			continue
		}
		if res.Record != nil {
			res.Record.Extras = applyExtras(extras)
			records = append(records, *res.Record)
		} else {
			response.Failures = append(response.Failures, dto.DocumentFailure{
				DocumentID: res.DocumentID,
				Error:      res.Error,
			})
		}
		response.Documents = append(response.Documents, res)
	}

	response.Vehicles = crlv.Coalesce(records)
	response.RecordCount = len(records)
	response.VehicleCount = len(response.Vehicles)

	log.Printf("Batch %s: %d records, %d vehicles, %d failures",
		response.BatchID, response.RecordCount, response.VehicleCount, len(response.Failures))
	return response, nil
}

// applyExtras returns a copy of the non-empty extras, or nil.
func applyExtras(extras map[string]string) map[string]string {
	var out map[string]string
	for k, v := range extras {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(extras))
		}
		out[k] = v
	}
	return out
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
