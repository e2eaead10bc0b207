package crlv

import (
	"fmt"
	"strings"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/utils"
)

// Config holds the engine switches. It is passed explicitly and never read
// from the environment by this package.
type Config struct {
	// GlobalPlateScan enables the last-resort plate search over every
	// 7-character token of the document.
	GlobalPlateScan bool
	// RenavamCollisionGuard discards security codes equal to the Renavam.
	RenavamCollisionGuard bool
	// KeepRawText copies the normalized text into the record.
	KeepRawText bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		GlobalPlateScan:       true,
		RenavamCollisionGuard: true,
	}
}

// Engine extracts fields from document text. It is safe for concurrent use.
type Engine struct {
	cfg   Config
	specs []FieldSpec
}

// NewEngine creates an engine over the field registry.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, specs: registry}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// ExtractFields runs every field spec over rawText. It never fails: fields
// that cannot be resolved are left empty.
func (e *Engine) ExtractFields(rawText string) dto.ExtractedRecord {
	doc := NewDocument(rawText)
	fields := dto.NewFields()
	ctx := Context{Prior: fields, Config: e.cfg}

	for _, spec := range e.specs {
		fields[spec.Field] = e.resolve(spec, doc, ctx)
	}
	Derive(fields)

	rec := dto.ExtractedRecord{Fields: fields}
	if e.cfg.KeepRawText {
		rec.RawText = doc.Text
	}
	return rec
}

// ExtractDocument is ExtractFields for one identified document. A panic
// raised while scanning is returned as an error wrapping
// dto.ErrExtractionFailed so that a batch can carry on.
func (e *Engine) ExtractDocument(documentID, rawText string) (rec dto.ExtractedRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = dto.ExtractedRecord{}
			err = fmt.Errorf("%w: document %q: %v", dto.ErrExtractionFailed, documentID, r)
		}
	}()

	rec = e.ExtractFields(rawText)
	rec.DocumentID = documentID
	return rec, nil
}

func (e *Engine) resolve(spec FieldSpec, doc Document, ctx Context) string {
	renavam := utils.OnlyDigits(ctx.Prior.Get(dto.FieldRenavam))

	for _, strategy := range spec.Strategies {
		v, ok := strategy(doc, ctx)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		if spec.DistinctFromRenavam && e.cfg.RenavamCollisionGuard &&
			renavam != "" && utils.OnlyDigits(v) == renavam {
			continue
		}
		return v
	}
	return ""
}

var defaultEngine = NewEngine(DefaultConfig())

// ExtractFields runs the default engine over rawText.
func ExtractFields(rawText string) dto.ExtractedRecord {
	return defaultEngine.ExtractFields(rawText)
}
