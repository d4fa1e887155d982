package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/metrics"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
	"github.com/ProstoyVadila/ml-service/internal/service"
)

// ExtractionHandler handles receipt extraction endpoints.
type ExtractionHandler struct {
	svc            service.ExtractionService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewExtractionHandler creates a new ExtractionHandler. maxUploadBytes <= 0
// leaves uploads unbounded.
func NewExtractionHandler(svc service.ExtractionService, maxUploadBytes int64, l *zap.Logger) *ExtractionHandler {
	return &ExtractionHandler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger.OrNop(l)}
}

// ExtractText handles POST /api/v1/extract/text
func (h *ExtractionHandler) ExtractText(c *gin.Context) {
	var req ExtractTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	res, err := h.svc.ExtractText(c.Request.Context(), req.Text)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	metrics.SuccessfulRequests.Inc()
	RespondOK(c, toExtractionDTO(res))
}

// ExtractImage handles POST /api/v1/extract/image with a multipart "file".
func (h *ExtractionHandler) ExtractImage(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		if status, code, msg := MapDomainError(err); status == http.StatusRequestEntityTooLarge {
			RespondError(c, status, code, msg)
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	img, err := ocr.Decode(data)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	out, err := h.svc.ExtractImage(c.Request.Context(), img)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	metrics.SuccessfulRequests.Inc()
	RespondOK(c, toImageExtractionDTO(out))
}
