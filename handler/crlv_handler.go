package handler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/service"
	"github.com/Aashish23092/crlv-reader/utils/crlv"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CRLVHandler struct {
	crlvService   *service.CRLVService
	exportService *service.ExportService
	maxFileSize   int64
}

func NewCRLVHandler(crlvService *service.CRLVService, exportService *service.ExportService, maxFileSize int64) *CRLVHandler {
	return &CRLVHandler{
		crlvService:   crlvService,
		exportService: exportService,
		maxFileSize:   maxFileSize,
	}
}

// ListFields handles GET /crlv/fields
func (h *CRLVHandler) ListFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields": crlv.FieldInfos(),
		"extras": dto.ExtraFields,
	})
}

// ExtractText handles POST /crlv/text with OCR text acquired by the caller.
func (h *CRLVHandler) ExtractText(c *gin.Context) {
	var req dto.TextExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := h.crlvService.ExtractText(req.DocumentID, req.Text)
	if result.Record == nil {
		h.sendError(c, http.StatusUnprocessableEntity, result.Error, result.Err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExtractDocument handles POST /crlv/extract for a single uploaded file.
func (h *CRLVHandler) ExtractDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "File is required", err)
		return
	}

	input, err := h.readFile(file)
	if err != nil {
		h.sendError(c, statusFor(err), "Failed to read file", err)
		return
	}

	log.Printf("Processing document %s (%d bytes)", file.Filename, file.Size)
	result := h.crlvService.ProcessDocument(c.Request.Context(), input)
	if result.Record == nil {
		h.sendError(c, http.StatusUnprocessableEntity, result.Error, result.Err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProcessBatch handles POST /crlv/batch
func (h *CRLVHandler) ProcessBatch(c *gin.Context) {
	resp, ok := h.runBatch(c)
	if !ok {
		return
	}
	log.Println("CRLV batch completed successfully")
	c.JSON(http.StatusOK, resp)
}

// Export handles POST /crlv/export and answers with the fleet workbook.
func (h *CRLVHandler) Export(c *gin.Context) {
	resp, ok := h.runBatch(c)
	if !ok {
		return
	}

	data, err := h.exportService.Export(resp.Vehicles, resp.Failures)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to build workbook", fmt.Errorf("%w: %w", errExportFailed, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="frota_%s.xlsx"`, resp.BatchID))
	c.Header("X-Batch-Id", resp.BatchID)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *CRLVHandler) runBatch(c *gin.Context) (*dto.BatchResponse, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Failed to parse multipart form", err)
		return nil, false
	}

	request := &dto.BatchRequest{
		Files:  form.File["files[]"],
		Extras: c.PostForm("extras"),
	}
	if err := request.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error(), err)
		return nil, false
	}
	extras, _ := request.ParseExtras()

	inputs := make([]dto.DocumentInput, 0, len(request.Files))
	for _, file := range request.Files {
		input, err := h.readFile(file)
		if err != nil {
			h.sendError(c, statusFor(err), "Failed to read file", err)
			return nil, false
		}
		inputs = append(inputs, input)
	}

	log.Printf("Processing batch of %d files", len(inputs))

	resp, err := h.crlvService.ProcessBatch(c.Request.Context(), inputs, extras)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to process batch", err)
		return nil, false
	}
	return resp, true
}

var (
	errFileTooLarge = errors.New("file exceeds maximum size")
	errExportFailed = errors.New("failed to build workbook")
)

func (h *CRLVHandler) readFile(file *multipart.FileHeader) (dto.DocumentInput, error) {
	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		return dto.DocumentInput{}, fmt.Errorf("%w: %s (%d bytes)", errFileTooLarge, file.Filename, file.Size)
	}

	f, err := file.Open()
	if err != nil {
		return dto.DocumentInput{}, fmt.Errorf("failed to open file %s: %w", file.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return dto.DocumentInput{}, fmt.Errorf("failed to read file %s: %w", file.Filename, err)
	}
	return dto.DocumentInput{Name: file.Filename, Data: data}, nil
}

func statusFor(err error) int {
	if errors.Is(err, errFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// sendError sends a structured error response
func (h *CRLVHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		log.Printf("Error: %s - %v", message, err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   errorCode(statusCode, err),
		Message: errorMsg,
		Code:    statusCode,
	})
}

// errorCode maps err onto the code reported in ErrorResponse.Error.
func errorCode(statusCode int, err error) string {
	switch {
	case errors.Is(err, dto.ErrNoDocuments):
		return "NO_DOCUMENTS"
	case errors.Is(err, dto.ErrInvalidExtraField):
		return "INVALID_EXTRA_FIELD"
	case errors.Is(err, errFileTooLarge):
		return "FILE_TOO_LARGE"
	case errors.Is(err, dto.ErrUnsupportedFile):
		return "UNSUPPORTED_FILE"
	case errors.Is(err, dto.ErrNoText):
		return "NO_TEXT"
	case errors.Is(err, errExportFailed):
		return "EXPORT_FAILED"
	case errors.Is(err, dto.ErrExtractionFailed):
		return "EXTRACTION_FAILED"
	}
	if statusCode == http.StatusBadRequest {
		return "INVALID_REQUEST"
	}
	return "EXTRACTION_FAILED"
}
