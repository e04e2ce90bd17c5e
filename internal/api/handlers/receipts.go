package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

// ReceiptsHandler handles the receipt upload endpoint.
type ReceiptsHandler struct {
	pipeline   *pipeline.Pipeline
	maxBytes   int64
	production bool
	log        zerolog.Logger
}

func NewReceiptsHandler(p *pipeline.Pipeline, maxBytes int64, production bool, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		pipeline:   p,
		maxBytes:   maxBytes,
		production: production,
		log:        log,
	}
}

// Upload handles POST /api/ocr/receipt. The image arrives as the multipart
// field "receipt"; the created transaction is returned on success.
func (h *ReceiptsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request.")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No files were uploaded.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file.")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	tx, err := h.pipeline.Process(r.Context(), pipeline.Receipt{
		OwnerID:  ownerID,
		FileName: header.Filename,
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Str("file", header.Filename).Msg("Receipt processing failed")
		middleware.WriteDomainError(w, err, h.production)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Receipt processed and transaction created.",
		"transaction": tx,
	})
}
