package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"expensedocs/internal/core"
	applog "expensedocs/internal/log"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	in, err := readNewCategory(formValues{r.PostForm})
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	category, err := s.backend.CreateCategory(r.Context(), in)
	if err != nil {
		s.logFailure(r, "create category", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse(fmt.Sprintf("Category %q created", category.Name)).
		Trigger(EventCategoriesChanged, nil).
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	patch, err := readCategoryPatch(formValues{r.PostForm})
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	category, err := s.backend.UpdateCategory(r.Context(), id, patch)
	if err != nil {
		s.logFailure(r, "update category", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse(fmt.Sprintf("Category %q updated", category.Name)).
		Trigger(EventCategoriesChanged, nil).
		Trigger(EventDocumentsChanged, nil).
		Write(w)
}

// handleDeleteCategory also refreshes documents: the backend removes the
// category's documents with it.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.backend.DeleteCategory(r.Context(), id); err != nil {
		s.logFailure(r, "delete category", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse("Category deleted").
		Trigger(EventCategoriesChanged, nil).
		Trigger(EventDocumentsChanged, nil).
		Write(w)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, failure := s.parseDocumentRequest(w, r)
	if failure != nil {
		failure.Write(w)
		return
	}
	defer cleanup()

	f := formValues{r.PostForm}
	in, err := readDocument(f)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if upload == nil && in.URL == "" {
		UnprocessableEntityError("invalid input: URL is required unless a file is attached").Write(w)
		return
	}

	doc := in.newDocument(f)
	if upload != nil {
		url, err := s.backend.UploadFile(r.Context(), *upload)
		if err != nil {
			s.logFailure(r, "upload file", err)
			BackendFailure(err).Write(w)
			return
		}
		doc.URL = url
		if doc.DocumentType == nil || *doc.DocumentType == "" {
			doc.DocumentType = core.Ptr(fileDocumentType)
		}
	}

	created, err := s.backend.CreateDocument(r.Context(), doc)
	if err != nil {
		s.logFailure(r, "create document", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse(fmt.Sprintf("Document %q added", created.Title)).
		Trigger(EventDocumentsChanged, nil).
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	patch, err := readDocumentPatch(formValues{r.PostForm})
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	updated, err := s.backend.UpdateDocument(r.Context(), id, patch)
	if err != nil {
		s.logFailure(r, "update document", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse(fmt.Sprintf("Document %q updated", updated.Title)).
		Trigger(EventDocumentsChanged, nil).
		Write(w)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.backend.DeleteDocument(r.Context(), id); err != nil {
		s.logFailure(r, "delete document", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse("Document deleted").
		Trigger(EventDocumentsChanged, nil).
		Write(w)
}

// handleUpload stores a file on its own and hands its URL back to the page.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, failure := s.parseDocumentRequest(w, r)
	if failure != nil {
		failure.Write(w)
		return
	}
	defer cleanup()
	if upload == nil {
		UnprocessableEntityError("invalid input: file is required").Write(w)
		return
	}

	url, err := s.backend.UploadFile(r.Context(), *upload)
	if err != nil {
		s.logFailure(r, "upload file", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse("Uploaded "+upload.Filename+" to "+url).
		TriggerFileUploaded(url).
		TriggerFormReset().
		Write(w)
}

// fileDocumentType marks documents whose URL points at an uploaded object.
const fileDocumentType = "file"

// parseDocumentRequest parses url-encoded and multipart bodies alike. The
// upload is nil when no file was attached.
func (s *Server) parseDocumentRequest(w http.ResponseWriter, r *http.Request) (*core.Upload, func(), *HTMXResponseBuilder) {
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, noop, BadRequestError("Invalid request format")
		}
		return nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, ErrorResponse(http.StatusRequestEntityTooLarge, "File is too large")
		}
		return nil, noop, BadRequestError("Invalid request format")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return nil, noop, BadRequestError("Invalid file upload")
	}
	return fileUpload(file, header), func() {
		_ = file.Close()
		cleanup()
	}, nil
}

func fileUpload(file multipart.File, header *multipart.FileHeader) *core.Upload {
	return &core.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}
}

func (s *Server) logFailure(r *http.Request, op string, err error) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Request failed",
		applog.FieldOperation, op, applog.FieldError, err)
}
