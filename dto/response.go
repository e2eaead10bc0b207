package dto

import "errors"

// Custom errors
var (
	ErrNoDocuments       = errors.New("at least one document is required")
	ErrExtractionFailed  = errors.New("field extraction failed")
	ErrNoText            = errors.New("no text could be acquired from document")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrTemplateSheet     = errors.New("template sheet not found")
	ErrInvalidExtraField = errors.New("unknown extra field")
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// DocumentText is what a text provider returns for one document.
type DocumentText struct {
	Text      string `json:"text"`
	Source    string `json:"source"` // text_layer, ocr_space, tesseract, inline
	QRPayload string `json:"qr_payload,omitempty"`
	// Confidence is the mean word confidence (0-100) when the text came from
	// tesseract.
	Confidence float64 `json:"confidence,omitempty"`
}

// DocumentResult is the per-document outcome of an extraction.
type DocumentResult struct {
	DocumentID    string           `json:"document_id"`
	TextSource    string           `json:"text_source,omitempty"`
	OCRConfidence float64          `json:"ocr_confidence,omitempty"`
	Record        *ExtractedRecord `json:"record,omitempty"`
	MissingFields []Field          `json:"missing_fields"`
	Error         string           `json:"error,omitempty"`
	Err           error            `json:"-"`
}

// DocumentFailure is a document that produced no record.
type DocumentFailure struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

// BatchResponse is the result of a coalesced batch.
type BatchResponse struct {
	BatchID      string            `json:"batch_id"`
	Vehicles     []VehicleRecord   `json:"vehicles"`
	Documents    []DocumentResult  `json:"documents"`
	Failures     []DocumentFailure `json:"failures"`
	RecordCount  int               `json:"record_count"`
	VehicleCount int               `json:"vehicle_count"`
	Cancelled    bool              `json:"cancelled"`
	ProcessedAt  string            `json:"processed_at"`
}

// FieldInfo describes one entry of the field registry.
type FieldInfo struct {
	Field     Field  `json:"field"`
	Column    string `json:"column"`
	Lookahead int    `json:"lookahead"`
	Derived   bool   `json:"derived"`
}
