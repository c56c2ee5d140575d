package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// writeError maps domain errors onto status codes. message is what the
// client sees for anything that is not a validation error.
func writeError(w http.ResponseWriter, err error, message string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		zap.S().Debugw(message, "error", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorMessageResponse{Response: ve.Message, Field: ve.Field, Details: ve.Details})
	case errors.Is(err, models.ErrUnauthorized):
		config.ErrorStatus(message, http.StatusUnauthorized, w, err)
	case errors.Is(err, models.ErrForbidden):
		config.ErrorStatus(message, http.StatusForbidden, w, err)
	case errors.Is(err, models.ErrNotFound):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	case errors.Is(err, models.ErrRejectedTransition):
		config.ErrorStatus(message, http.StatusConflict, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
