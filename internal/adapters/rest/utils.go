package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"idealista-parser-service/internal/core/domain"
)

// WriteJSONError отправляет JSON-ответ с полем "error" и заданным статусом
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, map[string]string{"error": message})
}

// RespondWithJSON отправляет JSON-ответ
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// writeDomainError переводит ошибки клиента API в HTTP статусы
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		countryErr    *domain.UnsupportedCountryError
		validationErr *domain.ValidationError
		apiErr        *domain.APIError
		authErr       *domain.AuthenticationError
		decodingErr   *domain.DecodingError
	)

	switch {
	case errors.As(err, &countryErr), errors.As(err, &validationErr):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		RespondWithJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":           apiErr.Error(),
			"upstream_status": apiErr.StatusCode,
			"upstream_code":   apiErr.Code,
			"upstream_detail": apiErr.Payload,
		})
	case errors.As(err, &authErr), errors.As(err, &decodingErr):
		WriteJSONError(w, http.StatusBadGateway, err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}
