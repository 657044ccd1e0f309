package handler

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/service"
)

const (
	// MaxPostBodyBytes caps a create or update request, cover included.
	MaxPostBodyBytes = 10 << 20
	// multipartMemory is how much of a multipart body is kept in memory;
	// the rest of the upload spills to temporary files.
	multipartMemory = 1 << 20
)

// PostHandler serves the /post routes. It parses forms and hands plain
// values to the PostService, which makes every access decision.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// HandleCreate creates a post authored by the caller.
//
// HTTP: POST /post  multipart/form-data: title, summary, content, file (optional)
// Auth: Required
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form, err := h.parsePostForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer form.close()

	post, err := h.posts.Create(r.Context(), identityFrom(r), form.input, form.cover)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleList returns the most recent posts with their authors.
//
// HTTP: GET /post?limit=N  (limit optional, at most 20)
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := h.posts.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post with its author, or 404.
//
// HTTP: GET /post/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleUpdate overwrites a post's fields and, if a file is attached, its
// cover.
//
// HTTP: PUT /post/{id}  multipart/form-data: id (optional), title, summary, content, file (optional)
// Auth: checked by the service after the post is found (OptionalAuth route)
//
// A form "id" that disagrees with the path is rejected before anything
// else happens.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := h.parsePostForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer form.close()

	if form.id != "" && form.id != id {
		writeError(w, apperror.ValidationFailed("id", "id in body does not match the URL"))
		return
	}

	post, err := h.posts.Update(r.Context(), identityFrom(r), id, form.input, form.cover)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /post/{id}
// Auth: checked by the service after the post is found (OptionalAuth route)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), identityFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// postForm is a parsed create/update request.
type postForm struct {
	id    string
	input service.PostInput
	cover *service.Cover
	file  multipart.File
	mf    *multipart.Form
}

// close releases the uploaded file and any temporary files spilled to disk.
func (f *postForm) close() {
	if f.file != nil {
		f.file.Close()
	}
	if f.mf != nil {
		f.mf.RemoveAll()
	}
}

// parsePostForm reads a multipart or urlencoded body of at most
// MaxPostBodyBytes. A missing "file" part means no cover.
func (h *PostHandler) parsePostForm(w http.ResponseWriter, r *http.Request) (*postForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxPostBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.ValidationFailed("body", "request body exceeds 10 MiB")
		}
		return nil, apperror.ValidationFailed("body", "malformed form body")
	}

	form := &postForm{
		id: r.FormValue("id"),
		input: service.PostInput{
			Title:   r.FormValue("title"),
			Summary: r.FormValue("summary"),
			Content: r.FormValue("content"),
		},
		mf: r.MultipartForm,
	}

	if r.MultipartForm == nil {
		return form, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil
		}
		form.close()
		return nil, apperror.ValidationFailed("file", "unreadable file upload")
	}

	form.file = file
	form.cover = &service.Cover{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return form, nil
}

// identityFrom returns the caller's identity, or nil for an anonymous
// request. The service decides whether nil is acceptable.
func identityFrom(r *http.Request) *auth.Identity {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return identity
}
