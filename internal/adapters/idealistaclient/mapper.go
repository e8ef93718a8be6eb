package idealistaclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"idealista-parser-service/internal/contracts"
	"idealista-parser-service/internal/core/domain"
)

const (
	noDescription = "No description available"
	unknownCode   = "Unknown error"
)

var errMissingAccessToken = errors.New("token response does not contain access_token")

// toSearchResponse проверяет тело по схеме и только потом разбирает.
// Подставлять нули вместо отсутствующих полей нельзя.
func toSearchResponse(body []byte) (*domain.SearchResponse, error) {
	if err := contracts.ValidateSearchResponse(body); err != nil {
		return nil, &domain.DecodingError{Err: err}
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.DecodingError{Err: err}
	}
	if resp.ElementList == nil {
		resp.ElementList = []domain.Property{}
	}
	return &resp, nil
}

// toAPIError собирает ошибку API из тела ответа с ошибочным статусом
func toAPIError(status int, body []byte) *domain.APIError {
	apiErr := &domain.APIError{
		StatusCode:  status,
		Code:        unknownCode,
		Description: noDescription,
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		// тело не JSON, сохраняем как есть
		if len(body) > 0 {
			apiErr.Payload = map[string]any{"raw": string(body)}
		}
		return apiErr
	}
	apiErr.Payload = payload

	if desc := stringField(payload, "error_description"); desc != "" {
		apiErr.Description = desc
	} else if msg := stringField(payload, "message"); msg != "" {
		apiErr.Description = msg
	}
	if code := stringField(payload, "error"); code != "" {
		apiErr.Code = code
	}
	return apiErr
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
