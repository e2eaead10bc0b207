package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// ocrEngine selects the OCR.Space recognition engine (2 handles accented
// Portuguese better).
const ocrEngine = "2"

var errNoParsedText = errors.New("OCR.Space returned no parsed text")

// OCRSpaceClient sends documents to the OCR.Space parse API.
type OCRSpaceClient struct {
	apiKey     string
	apiURL     string
	language   string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

// NewOCRSpaceClient creates a client. An empty apiKey yields a disabled
// client (see Enabled).
func NewOCRSpaceClient(apiKey, apiURL string, timeout time.Duration, maxRetries int) *OCRSpaceClient {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &OCRSpaceClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		language:   "por",
		maxRetries: maxRetries,
		backoff:    time.Second,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *OCRSpaceClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// ExtractText uploads a PDF or image and returns the text of all pages.
// Failed attempts are retried with a linear backoff until ctx is done.
func (c *OCRSpaceClient) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("OCR.Space API key not configured")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		text, err := c.parse(ctx, filename, data)
		if err == nil {
			log.Printf("OCR.Space extracted %d characters from %s", len(text), filename)
			return text, nil
		}
		lastErr = err
		log.Printf("OCR.Space attempt %d/%d failed for %s: %v", attempt, c.maxRetries, filename, err)

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}

	return "", fmt.Errorf("OCR.Space failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *OCRSpaceClient) parse(ctx context.Context, filename string, data []byte) (string, error) {
	body, contentType, err := c.buildForm(filename, data)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OCR.Space API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("OCR.Space API returned status %d: %s", resp.StatusCode, string(msg))
	}

	var result ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode OCR.Space response: %w", err)
	}

	if result.IsErroredOnProcessing && len(result.ParsedResults) == 0 {
		return "", fmt.Errorf("OCR.Space processing error: %s", string(result.ErrorMessage))
	}

	pages := make([]string, 0, len(result.ParsedResults))
	for _, r := range result.ParsedResults {
		pages = append(pages, r.ParsedText)
	}
	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", errNoParsedText
	}
	return text, nil
}

func (c *OCRSpaceClient) buildForm(filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"apikey":            c.apiKey,
		"language":          c.language,
		"isOverlayRequired": "false",
		"OCREngine":         ocrEngine,
	}
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		fields["filetype"] = strings.ToUpper(ext)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
