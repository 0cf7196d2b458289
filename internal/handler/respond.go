package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Code   apperr.Kind       `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its kind. Internal causes never
// reach the body.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: apperr.Message(err), Code: apperr.KindOf(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.KindValidation {
		body.Fields = ae.Fields
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// clientIP expects RemoteAddr to have been rewritten by chi's RealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
