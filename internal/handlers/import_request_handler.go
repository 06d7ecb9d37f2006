package handler

import (
	"context"
	"net/http"

	"participant-import-backend/internal/parser"
	"participant-import-backend/internal/services/importrequest"
	"participant-import-backend/internal/services/reconciler"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ImportRequestService is the workflow surface the HTTP layer needs.
type ImportRequestService interface {
	Import(ctx context.Context, in importrequest.ImportInput) (*importrequest.ImportRequest, error)
	Preview(ctx context.Context, eventID string, rows []reconciler.RawRow) (reconciler.Result, error)
	Approve(ctx context.Context, id, approvedBy string) (*importrequest.ImportRequest, error)
	Reject(ctx context.Context, id, approvedBy, reason string) (*importrequest.ImportRequest, error)
	Complete(ctx context.Context, id string) (*importrequest.ImportRequest, error)
	Get(ctx context.Context, id string) (*importrequest.ImportRequest, error)
	ListByEvent(ctx context.Context, eventID string) ([]importrequest.ImportRequest, error)
	ListByEmpresa(ctx context.Context, empresaID string) ([]importrequest.ImportRequest, error)
	ListAll(ctx context.Context) ([]importrequest.ImportRequest, error)
	Stats(ctx context.Context, eventID string) (importrequest.Stats, error)
}

type ImportRequestHandler struct {
	service ImportRequestService
	maxRows int
}

func NewImportRequestHandler(s ImportRequestService, maxRows int) *ImportRequestHandler {
	return &ImportRequestHandler{service: s, maxRows: maxRows}
}

type approvePayload struct {
	ApprovedBy string `json:"approvedBy"`
}

type rejectPayload struct {
	ApprovedBy string `json:"approvedBy"`
	Reason     string `json:"reason"`
}

// Create reconciles an uploaded sheet and stores it as a pending request.
func (h *ImportRequestHandler) Create(c *gin.Context) {
	rows, filename, ok := h.readUpload(c)
	if !ok {
		return
	}

	req, err := h.service.Import(c.Request.Context(), importrequest.ImportInput{
		EventID:     c.Param("eventId"),
		EmpresaID:   c.PostForm("empresaId"),
		FileName:    filename,
		RequestedBy: c.PostForm("requestedBy"),
		Rows:        rows,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// Preview returns the reconciliation of an uploaded sheet without storing it.
func (h *ImportRequestHandler) Preview(c *gin.Context) {
	rows, _, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.service.Preview(c.Request.Context(), c.Param("eventId"), rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ImportRequestHandler) Approve(c *gin.Context) {
	var payload approvePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	req, err := h.service.Approve(c.Request.Context(), c.Param("id"), payload.ApprovedBy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *ImportRequestHandler) Reject(c *gin.Context) {
	var payload rejectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	req, err := h.service.Reject(c.Request.Context(), c.Param("id"), payload.ApprovedBy, payload.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Complete is called once the approved rows have been materialized.
func (h *ImportRequestHandler) Complete(c *gin.Context) {
	req, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *ImportRequestHandler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *ImportRequestHandler) ListByEvent(c *gin.Context) {
	items, err := h.service.ListByEvent(c.Request.Context(), c.Param("eventId"))
	writeList(c, items, err)
}

func (h *ImportRequestHandler) ListByEmpresa(c *gin.Context) {
	items, err := h.service.ListByEmpresa(c.Request.Context(), c.Param("empresaId"))
	writeList(c, items, err)
}

func (h *ImportRequestHandler) ListAll(c *gin.Context) {
	items, err := h.service.ListAll(c.Request.Context())
	writeList(c, items, err)
}

func (h *ImportRequestHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// readUpload parses the multipart "file" field. On failure the response has
// already been written.
func (h *ImportRequestHandler) readUpload(c *gin.Context) ([]reconciler.RawRow, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return nil, "", false
	}
	defer file.Close()

	rows, err := parser.Parse(file, header.Filename, h.maxRows)
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("rejected upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return rows, header.Filename, true
}

func writeList(c *gin.Context, items []importrequest.ImportRequest, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []importrequest.ImportRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// writeError maps workflow errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importrequest.ErrValidation), errors.Is(err, importrequest.ErrInvalidReconciliation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, importrequest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "import request not found"})
	case errors.Is(err, importrequest.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_transition"})
	case errors.Is(err, importrequest.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "this request was already processed", "code": "conflict"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
