package port

import (
	"context"
	"idealista-parser-service/internal/core/domain"

	"github.com/google/uuid"
)

// PagePublisherPort отправляет полученную страницу дальше (например, в очередь)
type PagePublisherPort interface {
	PublishPage(ctx context.Context, runID uuid.UUID, request domain.SearchRequest, page *domain.SearchResponse) error
}
