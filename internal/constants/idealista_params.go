package constants

import (
	"idealista-parser-service/internal/core/domain"
	"sort"
	"time"
)

const (
	// DefaultBaseURL - хост API; путь поиска берется из SearchEndpoints
	DefaultBaseURL = "https://api.idealista.com"
	// DefaultTokenURL - endpoint обмена ключа/секрета на bearer-токен
	DefaultTokenURL = "https://api.idealista.com/oauth/token"
	TokenScope      = "read"

	// UserAgent - фиксированный идентификатор клиента в каждом запросе
	UserAgent = "idealista-parser-service/1.0"

	DefaultPageDelay      = 2 * time.Second
	DefaultRequestTimeout = 60 * time.Second
)

// SearchEndpoints - разрешенные страны и шаблон пути поиска для каждой.
// Страна, которой нет в таблице, отклоняется до сетевого вызова.
var SearchEndpoints = map[domain.Country]string{
	domain.CountrySpain:    "/3.5/es/search",
	domain.CountryPortugal: "/3.5/pt/search",
	domain.CountryItaly:    "/3.5/it/search",
}

// AcceptedCountries - отсортированный список кодов из SearchEndpoints
func AcceptedCountries() []domain.Country {
	countries := make([]domain.Country, 0, len(SearchEndpoints))
	for c := range SearchEndpoints {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i] < countries[j] })
	return countries
}
