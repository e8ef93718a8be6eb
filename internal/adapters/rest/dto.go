package rest

import (
	"fmt"
	"strings"
	"time"

	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/usecase"

	"github.com/google/uuid"
)

// SearchRequestDTO - тело POST /api/v1/search и POST /api/v1/runs
type SearchRequestDTO struct {
	Country       string   `json:"country"`
	Operation     string   `json:"operation"`
	PropertyType  string   `json:"property_type"`
	LocationID    *string  `json:"location_id,omitempty"`
	Center        *string  `json:"center,omitempty"` // "lat,lon"
	Distance      *float64 `json:"distance,omitempty"`
	MinPrice      *float64 `json:"min_price,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	MaxItems      int      `json:"max_items,omitempty"`
	NumPage       int      `json:"num_page,omitempty"`
	Locale        *string  `json:"locale,omitempty"`
	SinceDate     *string  `json:"since_date,omitempty"` // YYYY-MM-DD
	Order         *string  `json:"order,omitempty"`
	Sort          *string  `json:"sort,omitempty"`
	HasMultimedia *bool    `json:"has_multimedia,omitempty"`
	BankOffer     *bool    `json:"bank_offer,omitempty"`
	AdIDs         []string `json:"ad_ids,omitempty"`
}

// toDomain переводит только форматы; значения проверяет сам SearchRequest
func (d SearchRequestDTO) toDomain() (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Country:       domain.Country(strings.ToLower(strings.TrimSpace(d.Country))),
		Operation:     domain.Operation(d.Operation),
		PropertyType:  domain.PropertyType(d.PropertyType),
		LocationID:    d.LocationID,
		Distance:      d.Distance,
		MinPrice:      d.MinPrice,
		MaxPrice:      d.MaxPrice,
		MaxItems:      d.MaxItems,
		NumPage:       d.NumPage,
		HasMultimedia: d.HasMultimedia,
		BankOffer:     d.BankOffer,
		AdIDs:         d.AdIDs,
	}

	if d.Center != nil {
		center, err := domain.ParseCoordinates(*d.Center)
		if err != nil {
			return domain.SearchRequest{}, &domain.ValidationError{Field: "center", Reason: err.Error()}
		}
		req.Center = &center
	}
	if d.SinceDate != nil {
		since, err := time.Parse(domain.SinceDateLayout, *d.SinceDate)
		if err != nil {
			return domain.SearchRequest{}, &domain.ValidationError{Field: "since_date", Reason: fmt.Sprintf("must be in YYYY-MM-DD format, got %q", *d.SinceDate)}
		}
		req.SinceDate = &since
	}
	if d.Locale != nil {
		locale := domain.Locale(*d.Locale)
		req.Locale = &locale
	}
	if d.Order != nil {
		order := domain.Order(*d.Order)
		req.Order = &order
	}
	if d.Sort != nil {
		sort := domain.SortField(*d.Sort)
		req.Sort = &sort
	}
	return req, nil
}

type StartRunResponseDTO struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
}

// RunDTO - состояние выгрузки для GET /api/v1/runs/{id}
type RunDTO struct {
	RunID           uuid.UUID  `json:"run_id"`
	Country         string     `json:"country"`
	Status          string     `json:"status"`
	PagesFetched    int        `json:"pages_fetched"`
	TotalPages      int        `json:"total_pages"`
	Total           int        `json:"total"`
	ItemsPerPage    int        `json:"items_per_page"`
	PropertiesCount int        `json:"properties_count"`
	CancelRequested bool       `json:"cancel_requested"`
	Error           string     `json:"error,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

func toRunDTO(s usecase.RunSnapshot) RunDTO {
	dto := RunDTO{
		RunID:           s.ID,
		Country:         string(s.Country),
		Status:          string(s.Status),
		PagesFetched:    s.PagesFetched,
		TotalPages:      s.TotalPages,
		Total:           s.Total,
		ItemsPerPage:    s.ItemsPerPage,
		PropertiesCount: s.PropertiesCount,
		CancelRequested: s.CancelRequested,
	}
	if s.Err != nil {
		dto.Error = s.Err.Error()
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		dto.StartedAt = &started
	}
	if !s.FinishedAt.IsZero() {
		finished := s.FinishedAt
		dto.FinishedAt = &finished
	}
	return dto
}

// RunPropertiesDTO - все объекты выгрузки одним списком
type RunPropertiesDTO struct {
	RunID      uuid.UUID         `json:"run_id"`
	Status     string            `json:"status"`
	Count      int               `json:"count"`
	Properties []domain.Property `json:"properties"`
}
