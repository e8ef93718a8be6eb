package usecases_port

import (
	"context"
	"idealista-parser-service/internal/core/domain"
)

type QueryPagePort interface {
	Execute(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}
