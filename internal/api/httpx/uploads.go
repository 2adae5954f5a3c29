package httpx

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
)

// Upload takes a multipart form with the photo in the "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize+maxBodySize)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(w, r, domain.Invalid("file", "the file is larger than %d MiB", app.MaxUploadSize>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_upload", "a multipart form with a file field is required")
		return
	}
	defer file.Close()

	up, err := h.uploads.Upload(r.Context(), principal(r), file)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// SignUpload issues a fresh URL for an existing upload.
func (h *Handler) SignUpload(w http.ResponseWriter, r *http.Request) {
	var req SignUploadRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	url, err := h.uploads.SignedURL(r.Context(), principal(r), req.Key)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key, "url": url})
}

// ServeUpload is reached through a signed URL and needs no bearer token.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, ctype, err := h.uploads.Open(r.Context(), key, r.URL.Query().Get("token"))
	if err != nil {
		fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "upload stream interrupted", "key", key, "error", err)
	}
}

func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.Remove(r.Context(), principal(r), chi.URLParam(r, "*")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
