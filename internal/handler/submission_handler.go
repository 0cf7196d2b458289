package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/service"
)

type SubmissionHandler struct {
	svc *service.SubmissionService
}

func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

// CreatePublic opens a submission from the sponsor-facing form.
func (h *SubmissionHandler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubmissionInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.SendInvitation = false
	sub, err := h.svc.Create(r.Context(), req, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Finalize(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Create opens a collection request on behalf of staff.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubmissionInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.svc.Create(r.Context(), req, callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	list, err := h.svc.List(r.Context(), status, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateStatusInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req, callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) History(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
