package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"kaderisasi-backend-go/internal/apperr"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WriteRepoError maps repository error kinds onto HTTP statuses.
func WriteRepoError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsKind(err, apperr.KindNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case apperr.IsKind(err, apperr.KindConstraintViolation):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case apperr.IsKind(err, apperr.KindUploadFailed),
		apperr.IsKind(err, apperr.KindStorageWrite),
		apperr.IsKind(err, apperr.KindStorageRead):
		WriteError(w, http.StatusBadGateway, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
