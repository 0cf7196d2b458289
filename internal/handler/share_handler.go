package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/service"
)

type ShareHandler struct {
	svc *service.ShareService
}

func NewShareHandler(svc *service.ShareService) *ShareHandler {
	return &ShareHandler{svc: svc}
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateShareLinkInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	link, err := h.svc.Create(r.Context(), chi.URLParam(r, "id"), req, callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Revoke(r.Context(), chi.URLParam(r, "linkID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "linkID")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Access serves GET (no password) and POST {"password": "..."}.
func (h *ShareHandler) Access(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	view, err := h.svc.Access(r.Context(), chi.URLParam(r, "shareToken"), req.Password, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}
