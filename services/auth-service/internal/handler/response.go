package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/usecase"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
}

var defaultStatusByKind = map[usecase.Kind]int{
	usecase.KindValidation: http.StatusBadRequest,
	usecase.KindConflict:   http.StatusBadRequest,
	usecase.KindNotFound:   http.StatusNotFound,
	usecase.KindAuth:       http.StatusBadRequest,
	usecase.KindUnexpected: http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// decodeJSON reads a JSON body into dst, rejecting bodies larger than maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		hlog.FromRequest(r).Debug().Err(err).Msg("invalid request body")
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	return true
}

// writeError maps a usecase error to a status code. overrides replaces the
// default status for individual kinds on endpoints that report them differently.
func writeError(w http.ResponseWriter, r *http.Request, err error, overrides map[usecase.Kind]int) {
	kind := usecase.KindOf(err)

	status, ok := overrides[kind]
	if !ok {
		status = defaultStatusByKind[kind]
	}

	logger := hlog.FromRequest(r)
	if kind == usecase.KindUnexpected {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Stringer("kind", kind).Str("path", r.URL.Path).Msg("request rejected")
	}

	writeMessage(w, status, usecase.MessageOf(err))
}
