package usecases_port

import (
	"context"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/usecase"
)

type FetchAllPagesPort interface {
	Execute(ctx context.Context, run *usecase.PaginationRun, onProgress func(domain.PageProgress)) error
	Start(ctx context.Context, base domain.SearchRequest, onProgress func(domain.PageProgress)) *usecase.RunHandle
}
