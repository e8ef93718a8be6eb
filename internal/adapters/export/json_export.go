package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"idealista-parser-service/internal/core/domain"
)

var ErrNoResults = errors.New("no results to export")

type Metadata struct {
	Total           int       `json:"total"`
	PagesFetched    int       `json:"pages_fetched"`
	TotalPages      int       `json:"total_pages"`
	ItemsPerPage    int       `json:"items_per_page"`
	PropertiesCount int       `json:"properties_count"`
	ExportDate      time.Time `json:"export_date"`
	MultiPageFetch  bool      `json:"multi_page_fetch"`
}

// Document - содержимое JSON файла выгрузки
type Document struct {
	Metadata   Metadata          `json:"metadata"`
	Properties []domain.Property `json:"properties"`
}

// BuildDocument собирает документ из страниц в порядке их получения.
// Метаданные пагинации берутся из первой страницы.
func BuildDocument(responses []*domain.SearchResponse, multiPage bool, now time.Time) (*Document, error) {
	if len(responses) == 0 {
		return nil, ErrNoResults
	}

	properties := make([]domain.Property, 0)
	for _, resp := range responses {
		properties = append(properties, resp.ElementList...)
	}

	first := responses[0]
	return &Document{
		Metadata: Metadata{
			Total:           first.Total,
			PagesFetched:    len(responses),
			TotalPages:      first.TotalPages,
			ItemsPerPage:    first.ItemsPerPage,
			PropertiesCount: len(properties),
			ExportDate:      now,
			MultiPageFetch:  multiPage,
		},
		Properties: properties,
	}, nil
}

func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export document: %w", err)
	}
	return nil
}

func SaveJSON(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSON(f, doc); err != nil {
		return err
	}
	return f.Close()
}
