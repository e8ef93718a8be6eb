package idealistaclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/port"

	"github.com/gocolly/colly/v2"
)

// Query выполняет один поисковый запрос (одна страница, один POST).
// Страна и поля запроса проверяются до любого сетевого вызова.
func (c *Client) Query(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	endpoint, ok := c.endpointFor(req.Country)
	if !ok {
		return nil, &domain.UnsupportedCountryError{Country: req.Country, Accepted: constants.AcceptedCountries()}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalized()

	logger := contextkeys.LoggerFromContext(ctx)
	queryLogger := logger.WithFields(port.Fields{
		"component": "IdealistaClient(Query)",
		"country":   string(req.Country),
		"page":      req.NumPage,
	})

	// одноразовый клон: лимиты общие, обработчики свои
	collector := c.collector.Clone()
	collector.Context = ctx

	var (
		result      *domain.SearchResponse
		responseErr error
		outcome     = outcomeTransport
	)

	collector.OnRequest(func(r *colly.Request) {
		queryLogger.Debug("Making search request", port.Fields{"url": r.URL.String()})
	})

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			apiErr := toAPIError(r.StatusCode, r.Body)
			queryLogger.Warn("API returned an error status", port.Fields{
				"status":      r.StatusCode,
				"code":        apiErr.Code,
				"description": apiErr.Description,
			})
			outcome = outcomeAPIError
			responseErr = apiErr
			return
		}

		resp, err := toSearchResponse(r.Body)
		if err != nil {
			queryLogger.Error("Failed to decode search response", err, nil)
			outcome = outcomeDecode
			responseErr = err
			return
		}
		outcome = outcomeSuccess
		result = resp
	})

	collector.OnError(func(r *colly.Response, err error) {
		// сюда попадают только ошибки транспорта, статусы разбираются в OnResponse
		queryLogger.Error("Search request failed", err, port.Fields{"status": r.StatusCode})
		if responseErr == nil {
			responseErr = fmt.Errorf("idealista client: request to %s failed: %w", endpoint, err)
		}
	})

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+c.token)
	hdr.Set("User-Agent", c.userAgent)
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	hdr.Set("Accept", "application/json")

	body := buildForm(req).Encode()

	started := time.Now()
	visitErr := collector.Request(http.MethodPost, endpoint, strings.NewReader(body), nil, hdr)
	requestDuration.WithLabelValues(string(req.Country)).Observe(time.Since(started).Seconds())
	requestsTotal.WithLabelValues(string(req.Country), outcome).Inc()

	if responseErr != nil {
		return nil, responseErr
	}
	if visitErr != nil {
		queryLogger.Error("Failed to send search request", visitErr, port.Fields{"url": endpoint})
		return nil, fmt.Errorf("idealista client: failed to send request to %s: %w", endpoint, visitErr)
	}
	if result == nil {
		return nil, fmt.Errorf("idealista client: no response received from %s", endpoint)
	}

	queryLogger.Info("Search page fetched", port.Fields{
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"items":       len(result.ElementList),
	})
	return result, nil
}
