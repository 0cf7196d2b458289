package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/service"
)

// multipartSlack covers form fields and part headers around the file.
const multipartSlack = 1 << 20

type DocumentHandler struct {
	svc    *service.DocumentService
	signer *blob.Signer
}

func NewDocumentHandler(svc *service.DocumentService, signer *blob.Signer) *DocumentHandler {
	return &DocumentHandler{svc: svc, signer: signer}
}

func (h *DocumentHandler) ListByToken(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *DocumentHandler) ListBySubmission(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListBySubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	accessToken := chi.URLParam(r, "token")
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxFileSize+multipartSlack)
	if err := r.ParseMultipartForm(models.MaxFileSize + multipartSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			// An unknown token still reads as unauthorized.
			if err := h.svc.CheckToken(r.Context(), accessToken); err != nil {
				writeError(w, err)
				return
			}
			writeError(w, apperr.PayloadTooLarge("file exceeds the 10 MB limit"))
			return
		}
		writeError(w, apperr.Validation("expected a multipart form upload"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.ValidationFields("file is required", map[string]string{"file": "file is required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, models.MaxFileSize+1))
	if err != nil {
		writeError(w, apperr.Validation("could not read uploaded file"))
		return
	}

	f, err := h.svc.Upload(r.Context(), accessToken, service.UploadInput{
		Category:     models.Category(r.FormValue("category")),
		DocumentName: r.FormValue("documentName"),
		Description:  r.FormValue("description"),
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	if err := h.svc.DeleteFile(r.Context(), chi.URLParam(r, "token"), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Download serves a blob behind a signed URL.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	key, filename, err := h.signer.Verify(chi.URLParam(r, "signed"))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			writeError(w, apperr.Expired("this download link has expired"))
			return
		}
		writeError(w, apperr.NotFound("download link is invalid"))
		return
	}
	data, contentType, err := h.svc.Blob(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.Write(data)
}
