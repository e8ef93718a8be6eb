package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoAuthMethod - ошибка конфигурации клиента: нет ни токена, ни пары ключ/секрет
// (или переданы оба способа сразу).
var ErrNoAuthMethod = errors.New("no valid authentication method provided: either a token or an API key and secret are required")

// UnsupportedCountryError возвращается до любого сетевого вызова
type UnsupportedCountryError struct {
	Country  Country
	Accepted []Country
}

func (e *UnsupportedCountryError) Error() string {
	accepted := make([]string, len(e.Accepted))
	for i, c := range e.Accepted {
		accepted[i] = string(c)
	}
	return fmt.Sprintf("country '%s' is not supported, supported countries are: %s", e.Country, strings.Join(accepted, ", "))
}

// ValidationError - некорректное значение поля запроса
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid search request: %s %s", e.Field, e.Reason)
}

// AuthenticationError - не удалось обменять ключ/секрет на токен
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// APIError - API ответил не-успешным статусом.
// Payload хранит разобранное тело ошибки как есть.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Payload     map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error querying API (status %d): %s - %s", e.StatusCode, e.Code, e.Description)
}

// DecodingError - успешный ответ не соответствует ожидаемой структуре
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("failed to decode search response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }
