package port

import (
	"context"
	"idealista-parser-service/internal/core/domain"
)

// SearchClientPort - один запрос одной страницы выдачи
type SearchClientPort interface {
	// Query проверяет страну и запрос, отправляет его и разбирает ответ.
	// Ошибки: *domain.UnsupportedCountryError, *domain.ValidationError,
	// *domain.APIError, *domain.DecodingError.
	Query(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// TokenProviderPort обменивает учетные данные на bearer-токен
type TokenProviderPort interface {
	Token(ctx context.Context) (string, error)
}
