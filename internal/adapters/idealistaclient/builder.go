package idealistaclient

import (
	"net/url"
	"strconv"
	"strings"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/core/domain"
)

func (c *Client) endpointFor(country domain.Country) (string, bool) {
	path, ok := constants.SearchEndpoints[country]
	if !ok {
		return "", false
	}
	return strings.TrimRight(c.baseURL, "/") + path, true
}

// buildForm переводит запрос в form-параметры API.
// Незаданные необязательные поля не отправляются совсем.
func buildForm(req domain.SearchRequest) url.Values {
	form := url.Values{}
	form.Set("operation", string(req.Operation))
	form.Set("propertyType", string(req.PropertyType))
	form.Set("maxItems", strconv.Itoa(req.MaxItems))
	form.Set("numPage", strconv.Itoa(req.NumPage))

	if req.LocationID != nil {
		form.Set("locationId", *req.LocationID)
	}
	if req.Center != nil {
		form.Set("center", req.Center.String())
	}
	if req.Distance != nil {
		form.Set("distance", formatFloat(*req.Distance))
	}
	if req.MinPrice != nil {
		form.Set("minPrice", formatFloat(*req.MinPrice))
	}
	if req.MaxPrice != nil {
		form.Set("maxPrice", formatFloat(*req.MaxPrice))
	}
	if req.Locale != nil {
		form.Set("locale", string(*req.Locale))
	}
	if req.SinceDate != nil {
		form.Set("sinceDate", req.SinceDate.Format(domain.SinceDateLayout))
	}
	if req.Order != nil {
		form.Set("order", string(*req.Order))
	}
	if req.Sort != nil {
		form.Set("sort", string(*req.Sort))
	}
	if req.HasMultimedia != nil {
		form.Set("hasMultimedia", strconv.FormatBool(*req.HasMultimedia))
	}
	if req.BankOffer != nil {
		form.Set("bankOffer", strconv.FormatBool(*req.BankOffer))
	}
	if len(req.AdIDs) > 0 {
		form.Set("adIds", strings.Join(req.AdIDs, ","))
	}
	return form
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
