package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its status code. Internal details are logged,
// not returned.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = http.StatusText(status)
		if errors.Is(err, apperr.ErrEntitlementWriteFailure) {
			msg = apperr.ErrEntitlementWriteFailure.Error()
		}
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func tenantID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.Wrap(apperr.ErrTenantNotFound, "invalid tenant id")
	}
	return id, nil
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Wrapf(apperr.ErrValidation, "request body exceeds %d bytes", maxBodyBytes)
		}
		return errors.Wrap(apperr.ErrValidation, "bad request body")
	}
	return nil
}
