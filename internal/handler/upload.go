package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/storage"
)

// inlineImageTypes lists the cover types a browser may render in place.
// SVG is left out on purpose: it can carry script.
var inlineImageTypes = map[string]string{
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"ico":  "image/x-icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// UploadHandler serves stored covers back under /uploads/{name}, whichever
// backend holds them.
type UploadHandler struct {
	files  storage.FileStorage
	logger *slog.Logger
}

func NewUploadHandler(files storage.FileStorage, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{files: files, logger: logger}
}

// HandleServe streams one cover.
//
// HTTP: GET /uploads/{name}
//
// The extension in the key is chosen by the uploader, so only raster image
// types from inlineImageTypes are served inline. Anything else (.html,
// .svg, no extension) goes out as an octet-stream attachment, and every
// response carries a sandboxing CSP, so no uploaded file can run script on
// this origin with the visitor's session cookie. Both backends
// return seekable readers (*os.File, *minio.Object), so http.ServeContent
// can answer Range requests.
func (h *UploadHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !storage.ValidKey(name) {
		writeError(w, apperror.NotFound("upload", name))
		return
	}

	rc, err := h.files.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, apperror.NotFound("upload", name))
			return
		}
		h.logger.Error("failed to open cover",
			slog.String("key", name),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	defer rc.Close()

	if contentType, ok := inlineImageTypes[strings.ToLower(storage.Extension(name))]; ok {
		w.Header().Set("Content-Type", contentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("cover stream interrupted",
			slog.String("key", name),
			slog.String("error", err.Error()),
		)
	}
}
