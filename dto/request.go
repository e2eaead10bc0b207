package dto

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
)

// DocumentInput is one document handed to the batch driver. When Text is set
// text acquisition is skipped.
type DocumentInput struct {
	Name string
	Data []byte
	Text string
}

// TextExtractRequest carries OCR text that was acquired elsewhere. Empty text
// is accepted and yields a record with every field missing.
type TextExtractRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// BatchRequest represents an uploaded batch
type BatchRequest struct {
	Files  []*multipart.FileHeader `form:"files[]" binding:"required"`
	Extras string                  `form:"extras"`
}

// Validate performs basic validation on the request
func (r *BatchRequest) Validate() error {
	if len(r.Files) == 0 {
		return ErrNoDocuments
	}
	_, err := r.ParseExtras()
	return err
}

// ParseExtras decodes the optional extras JSON object. Keys are matched
// case-insensitively against ExtraFields.
func (r *BatchRequest) ParseExtras() (map[string]string, error) {
	return ParseExtras(r.Extras)
}

// ParseExtras decodes an extras JSON object into canonical column names.
func ParseExtras(raw string) (map[string]string, error) {
	extras := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return extras, nil
	}

	var in map[string]string
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("invalid extras JSON: %w", err)
	}

	for k, v := range in {
		name := strings.ToUpper(strings.TrimSpace(k))
		if !isExtraField(name) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidExtraField, k)
		}
		if v = strings.TrimSpace(v); v != "" {
			extras[name] = v
		}
	}
	return extras, nil
}

func isExtraField(name string) bool {
	for _, f := range ExtraFields {
		if f == name {
			return true
		}
	}
	return false
}
