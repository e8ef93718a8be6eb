package rabbitmq

import (
	"time"

	"idealista-parser-service/internal/core/domain"

	"github.com/google/uuid"
)

// PropertyPageFetchedEventDTO - тело события PropertyPageFetchedEvent/1.0.0
type PropertyPageFetchedEventDTO struct {
	RunID           uuid.UUID         `json:"run_id"`
	Country         string            `json:"country"`
	Operation       string            `json:"operation"`
	PropertyType    string            `json:"property_type"`
	Page            int               `json:"page"`
	TotalPages      int               `json:"total_pages"`
	Total           int               `json:"total"`
	PropertiesCount int               `json:"properties_count"`
	FetchedAt       time.Time         `json:"fetched_at"`
	Properties      []domain.Property `json:"properties"`
}

func toPageFetchedEventDTO(runID uuid.UUID, req domain.SearchRequest, page *domain.SearchResponse, now time.Time) PropertyPageFetchedEventDTO {
	properties := page.ElementList
	if properties == nil {
		properties = []domain.Property{}
	}
	return PropertyPageFetchedEventDTO{
		RunID:           runID,
		Country:         string(req.Country),
		Operation:       string(req.Operation),
		PropertyType:    string(req.PropertyType),
		Page:            page.ActualPage,
		TotalPages:      page.TotalPages,
		Total:           page.Total,
		PropertiesCount: len(page.ElementList),
		FetchedAt:       now.UTC(),
		Properties:      properties,
	}
}
