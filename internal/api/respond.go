package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
)

// errorBody is the JSON shape of every failed response
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeJSON writes v as application/json with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status through its kind
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	if status >= http.StatusInternalServerError {
		fields := []zap.Field{
			zap.String("path", r.URL.Path),
			zap.Stringer("kind", kind),
			zap.Error(err),
		}
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Op() != "" {
			fields = append(fields, zap.String("op", ae.Op()))
		}
		s.logger.Error("request failed", fields...)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

// writeFile sends data as a download
func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
