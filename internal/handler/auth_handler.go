package handler

import (
	"net/http"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/auth"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUser(r.Context())
	if claims == nil {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	user, err := h.svc.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// callerID is the user id of the authenticated staff member, or "".
func callerID(r *http.Request) string {
	if c := auth.GetUser(r.Context()); c != nil {
		return c.UserID
	}
	return ""
}
