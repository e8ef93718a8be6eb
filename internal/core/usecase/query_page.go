package usecase

import (
	"context"
	"fmt"

	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/port"
)

// QueryPageUseCase - одиночный запрос одной страницы
type QueryPageUseCase struct {
	client port.SearchClientPort
}

func NewQueryPageUseCase(client port.SearchClientPort) *QueryPageUseCase {
	return &QueryPageUseCase{client: client}
}

func (uc *QueryPageUseCase) Execute(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "QueryPage",
		"country":  string(req.Country),
	})

	resp, err := uc.client.Query(ctx, req)
	if err != nil {
		ucLogger.Error("Search query failed", err, nil)
		return nil, fmt.Errorf("query page use case: %w", err)
	}

	ucLogger.Info("Search query succeeded", port.Fields{
		"page":        resp.ActualPage,
		"total_pages": resp.TotalPages,
		"items":       len(resp.ElementList),
	})
	return resp, nil
}
