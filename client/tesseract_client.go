package client

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// minOCRWidth is the width below which scans are upscaled before OCR.
const minOCRWidth = 1600

// ErrClientClosed is returned once Close has been called.
var ErrClientClosed = errors.New("tesseract client is closed")

// TesseractClient keeps idle gosseract clients for reuse. A gosseract client
// is not safe for concurrent use, so each call takes one out of the pool.
type TesseractClient struct {
	dataPath string
	language string

	mu     sync.Mutex
	idle   []*gosseract.Client
	closed bool
}

func NewTesseractClient(dataPath, language string) *TesseractClient {
	if language == "" {
		language = "por"
	}
	return &TesseractClient{
		dataPath: dataPath,
		language: language,
	}
}

// ExtractTextAndQuality runs Tesseract over an encoded image (PNG, JPEG, ...)
// after preprocessing it. It returns the recognized text and the mean word
// confidence reported by Tesseract.
func (tc *TesseractClient) ExtractTextAndQuality(data []byte) (string, float64, error) {
	client, err := tc.acquire()
	if err != nil {
		return "", 0, err
	}
	defer tc.release(client)

	prepared, err := PreprocessImage(data)
	if err != nil {
		// Tesseract can still read formats imaging cannot decode
		log.Printf("Image preprocessing skipped: %v", err)
		prepared = data
	}

	if err := client.SetImageFromBytes(prepared); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("failed to extract text: %w", err)
	}

	// Get bounding boxes to calculate confidence
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return text, 0, nil
	}

	var totalConf float64
	for _, box := range boxes {
		totalConf += box.Confidence
	}

	avgConf := 0.0
	if len(boxes) > 0 {
		avgConf = totalConf / float64(len(boxes))
	}

	return text, avgConf, nil
}

func (tc *TesseractClient) acquire() (*gosseract.Client, error) {
	tc.mu.Lock()
	if tc.closed {
		tc.mu.Unlock()
		return nil, ErrClientClosed
	}
	if n := len(tc.idle); n > 0 {
		client := tc.idle[n-1]
		tc.idle = tc.idle[:n-1]
		tc.mu.Unlock()
		return client, nil
	}
	tc.mu.Unlock()

	client := gosseract.NewClient()
	if tc.dataPath != "" {
		if err := client.SetTessdataPrefix(tc.dataPath); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(tc.language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

func (tc *TesseractClient) release(client *gosseract.Client) {
	tc.mu.Lock()
	if tc.closed {
		tc.mu.Unlock()
		client.Close()
		return
	}
	tc.idle = append(tc.idle, client)
	tc.mu.Unlock()
}

// Close releases the pooled clients. Calls running when Close is called
// release theirs on return.
func (tc *TesseractClient) Close() {
	tc.mu.Lock()
	if tc.closed {
		tc.mu.Unlock()
		return
	}
	tc.closed = true
	idle := tc.idle
	tc.idle = nil
	tc.mu.Unlock()

	for _, client := range idle {
		client.Close()
	}
	log.Printf("Tesseract client closed (%d idle engines released)", len(idle))
}

// PreprocessImage prepares a scanned page for OCR: grayscale, contrast,
// sharpening and upscaling of small scans. The result is PNG encoded.
func PreprocessImage(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img := preprocess(src)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func preprocess(src image.Image) *image.NRGBA {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)

	if w := img.Bounds().Dx(); w > 0 && w < minOCRWidth {
		img = imaging.Resize(img, minOCRWidth, 0, imaging.Lanczos)
	}
	return img
}
