package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vedran77/careteam/internal/storage"
)

// FileHandler streams blobs for stores that sign URLs with storage.URLSigner.
type FileHandler struct {
	signer *storage.URLSigner
	store  storage.Store
	logger *slog.Logger
}

func NewFileHandler(signer *storage.URLSigner, store storage.Store, logger *slog.Logger) *FileHandler {
	return &FileHandler{signer: signer, store: store, logger: logger}
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	tok, err := h.signer.Verify(r.PathValue("token"))
	if err != nil {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Link is invalid or has expired")
		return
	}

	rc, obj, err := h.store.Open(r.Context(), tok.Key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "File not found")
		case errors.Is(err, storage.ErrForbidden):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Access denied")
		default:
			h.logger.Error("open file", "key", tok.Key, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}
	defer rc.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	disposition := tok.Disposition
	if disposition == storage.DispositionPreview && !storage.InlineSafe(ct) {
		disposition = storage.DispositionDownload
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", storage.ContentDisposition(disposition, tok.FileName))
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("streaming file interrupted", "key", tok.Key, "error", err)
	}
}
