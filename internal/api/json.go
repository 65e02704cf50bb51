package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/marknote/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error    string   `json:"error" validate:"required"`
	Messages []string `json:"messages,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a store error to a status code. Unclassified errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error, messages []string) {
	var (
		status int
		msg    string
	)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrValidation):
		status, msg = http.StatusBadRequest, "invalid request"
	case errors.Is(err, apperr.ErrAlreadyExists):
		status, msg = http.StatusConflict, "note already exists"
	case errors.Is(err, apperr.ErrConflict):
		status, msg = http.StatusConflict, "checksum mismatch"
	case errors.Is(err, apperr.ErrNoSelection):
		status, msg = http.StatusConflict, "no note selected"
	default:
		logger.Error(op+" failed", slog.String("error", err.Error()))
		status, msg = http.StatusInternalServerError, "internal error"
	}
	writeJSON(w, status, errResponse{Error: msg, Messages: messages})
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
