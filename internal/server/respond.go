package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/render"
	"github.com/abhisek/vibekids/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Unexpected errors are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, store.ErrAlreadyCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: "quiz already completed"})
	case errors.Is(err, render.ErrRender):
		s.logger.Warn("render failed", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "visualization unavailable"})
	default:
		s.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "something went wrong"})
	}
}

// decode reads a JSON body into v. Malformed input is a validation error.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperr.Invalid(typeErr.Field, "must be a %s", typeErr.Type)
		}
		return apperr.Invalid("body", "invalid JSON: %v", err)
	}
	return nil
}

// scalarString accepts a JSON number or string and returns its text.
func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func required(field, value string) error {
	if value == "" {
		return apperr.Invalid(field, "is required")
	}
	return nil
}
