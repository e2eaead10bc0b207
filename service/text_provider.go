package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/disintegration/imaging"
)

// Text sources reported in dto.DocumentText.Source.
const (
	SourceTextLayer = "text_layer"
	SourceOCRSpace  = "ocr_space"
	SourceTesseract = "tesseract"
	SourceInline    = "inline"
)

// RemoteOCR is a hosted OCR service such as OCR.Space.
type RemoteOCR interface {
	Enabled() bool
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

// ImageOCR recognizes the text of one encoded image and reports its mean
// word confidence.
type ImageOCR interface {
	ExtractTextAndQuality(data []byte) (string, float64, error)
}

// TextProvider turns an uploaded document into plain text.
type TextProvider interface {
	ExtractText(ctx context.Context, name string, data []byte) (dto.DocumentText, error)
}

type textProvider struct {
	pdfProcessor      PDFProcessor
	remoteOCR         RemoteOCR
	imageOCR          ImageOCR
	qrDecoder         QRDecoder
	minTextLayerChars int
}

func NewTextProvider(
	pdfProcessor PDFProcessor,
	remoteOCR RemoteOCR,
	imageOCR ImageOCR,
	qrDecoder QRDecoder,
	minTextLayerChars int,
) TextProvider {
	return &textProvider{
		pdfProcessor:      pdfProcessor,
		remoteOCR:         remoteOCR,
		imageOCR:          imageOCR,
		qrDecoder:         qrDecoder,
		minTextLayerChars: minTextLayerChars,
	}
}

type fileKind int

const (
	kindUnknown fileKind = iota
	kindPDF
	kindImage
)

func detectKind(name string, data []byte) fileKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return kindPDF
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif":
		return kindImage
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return kindPDF
	}
	if strings.HasPrefix(http.DetectContentType(data), "image/") {
		return kindImage
	}
	return kindUnknown
}

func (p *textProvider) ExtractText(ctx context.Context, name string, data []byte) (dto.DocumentText, error) {
	if len(data) == 0 {
		return dto.DocumentText{}, fmt.Errorf("%w: %s is empty", dto.ErrNoText, name)
	}

	switch detectKind(name, data) {
	case kindPDF:
		return p.fromPDF(ctx, name, data)
	case kindImage:
		return p.fromImage(ctx, name, data)
	default:
		return dto.DocumentText{}, fmt.Errorf("%w: %s", dto.ErrUnsupportedFile, name)
	}
}

func (p *textProvider) fromPDF(ctx context.Context, name string, data []byte) (dto.DocumentText, error) {
	if _, err := p.pdfProcessor.PageCount(data); err != nil {
		return dto.DocumentText{}, fmt.Errorf("%w: %s: %v", dto.ErrUnsupportedFile, name, err)
	}

	text, err := p.pdfProcessor.ExtractText(data)
	if err != nil {
		log.Printf("PDF text extraction failed for %s: %v", name, err)
	}
	if acceptableTextLayer(text, p.minTextLayerChars) {
		log.Printf("Using PDF text layer for %s (%d characters)", name, len(text))
		return dto.DocumentText{Text: text, Source: SourceTextLayer, QRPayload: p.pdfQRPayload(name, data)}, nil
	}

	log.Printf("PDF %s seems to be scanned or has unusable text, attempting OCR", name)
	if err := ctx.Err(); err != nil {
		return dto.DocumentText{}, err
	}

	if text, ok := p.remote(ctx, name, data); ok {
		return dto.DocumentText{Text: text, Source: SourceOCRSpace, QRPayload: p.pdfQRPayload(name, data)}, nil
	}

	images, err := p.pdfProcessor.ExtractImages(data)
	if err != nil {
		return dto.DocumentText{}, fmt.Errorf("%w: %s: %v", dto.ErrNoText, name, err)
	}
	if len(images) == 0 {
		return dto.DocumentText{}, fmt.Errorf("%w: %s has no page images", dto.ErrNoText, name)
	}

	var (
		pages   []string
		confSum float64
	)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return dto.DocumentText{}, err
		}
		pageText, conf, err := p.ocrImage(img)
		if err != nil {
			log.Printf("OCR failed for %s page image %d: %v", name, i+1, err)
			continue
		}
		pages = append(pages, pageText)
		confSum += conf
	}

	result := dto.DocumentText{
		Text:      strings.Join(pages, "\n"),
		Source:    SourceTesseract,
		QRPayload: firstQRPayload(p.qrDecoder, images),
	}
	if len(pages) > 0 {
		result.Confidence = confSum / float64(len(pages))
	}
	if strings.TrimSpace(result.Text) == "" {
		return dto.DocumentText{}, fmt.Errorf("%w: %s", dto.ErrNoText, name)
	}
	return result, nil
}

func (p *textProvider) fromImage(ctx context.Context, name string, data []byte) (dto.DocumentText, error) {
	var qr string
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		qr = firstQRPayload(p.qrDecoder, []image.Image{img})
	}

	if text, ok := p.remote(ctx, name, data); ok {
		return dto.DocumentText{Text: text, Source: SourceOCRSpace, QRPayload: qr}, nil
	}
	if err := ctx.Err(); err != nil {
		return dto.DocumentText{}, err
	}
	if p.imageOCR == nil {
		return dto.DocumentText{}, fmt.Errorf("%w: no OCR engine available for %s", dto.ErrNoText, name)
	}

	text, conf, err := p.imageOCR.ExtractTextAndQuality(data)
	if err != nil {
		return dto.DocumentText{}, fmt.Errorf("%w: %s: %v", dto.ErrNoText, name, err)
	}
	if strings.TrimSpace(text) == "" {
		return dto.DocumentText{}, fmt.Errorf("%w: %s", dto.ErrNoText, name)
	}
	return dto.DocumentText{Text: text, Source: SourceTesseract, QRPayload: qr, Confidence: conf}, nil
}

// remote tries the hosted OCR service. A failure falls back to local OCR.
func (p *textProvider) remote(ctx context.Context, name string, data []byte) (string, bool) {
	if p.remoteOCR == nil || !p.remoteOCR.Enabled() {
		return "", false
	}
	text, err := p.remoteOCR.ExtractText(ctx, name, data)
	if err != nil {
		log.Printf("Remote OCR failed for %s, falling back to tesseract: %v", name, err)
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func (p *textProvider) ocrImage(img image.Image) (string, float64, error) {
	if p.imageOCR == nil {
		return "", 0, fmt.Errorf("no OCR engine available")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", 0, fmt.Errorf("failed to encode page image: %w", err)
	}
	return p.imageOCR.ExtractTextAndQuality(buf.Bytes())
}

// pdfQRPayload scans the page images of a PDF whose text came from another
// source. Failures only cost the payload.
func (p *textProvider) pdfQRPayload(name string, data []byte) string {
	if p.qrDecoder == nil {
		return ""
	}
	images, err := p.pdfProcessor.ExtractImages(data)
	if err != nil {
		log.Printf("No page images for QR scan of %s: %v", name, err)
		return ""
	}
	return firstQRPayload(p.qrDecoder, images)
}

// acceptableTextLayer rejects short layers and layers made of unmapped
// glyph ids ("(cid:12)").
func acceptableTextLayer(text string, minChars int) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minChars {
		return false
	}
	return !strings.Contains(strings.ToUpper(trimmed), "CID:")
}
