package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Country код страны, для которой у API есть отдельный endpoint
type Country string

const (
	CountrySpain    Country = "es"
	CountryPortugal Country = "pt"
	CountryItaly    Country = "it"
)

// Operation тип сделки
type Operation string

const (
	OperationSale Operation = "sale"
	OperationRent Operation = "rent"
)

// PropertyType категория объекта недвижимости в терминах API
type PropertyType string

const (
	PropertyTypeHomes    PropertyType = "homes"
	PropertyTypeOffices  PropertyType = "offices"
	PropertyTypePremises PropertyType = "premises"
	PropertyTypeGarages  PropertyType = "garages"
	PropertyTypeBedrooms PropertyType = "bedrooms"
)

type Locale string

const (
	LocaleSpanish    Locale = "es_ES"
	LocaleCatalan    Locale = "ca_ES"
	LocaleEnglish    Locale = "en_GB"
	LocalePortuguese Locale = "pt_PT"
	LocaleItalian    Locale = "it_IT"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SortField поле сортировки выдачи
type SortField string

const (
	SortByPrice            SortField = "price"
	SortByPublicationDate  SortField = "publicationDate"
	SortBySize             SortField = "size"
	SortByFloor            SortField = "floor"
	SortByDistance         SortField = "distance"
	SortByModificationDate SortField = "modificationDate"
)

const (
	DefaultMaxItems = 20
	MaxItemsLimit   = 50
	DefaultNumPage  = 1

	// SinceDateLayout формат sinceDate на проводе
	SinceDateLayout = "2006-01-02"
)

var (
	validOperations    = map[Operation]struct{}{OperationSale: {}, OperationRent: {}}
	validPropertyTypes = map[PropertyType]struct{}{
		PropertyTypeHomes: {}, PropertyTypeOffices: {}, PropertyTypePremises: {},
		PropertyTypeGarages: {}, PropertyTypeBedrooms: {},
	}
	validLocales = map[Locale]struct{}{
		LocaleSpanish: {}, LocaleCatalan: {}, LocaleEnglish: {}, LocalePortuguese: {}, LocaleItalian: {},
	}
	validOrders     = map[Order]struct{}{OrderAsc: {}, OrderDesc: {}}
	validSortFields = map[SortField]struct{}{
		SortByPrice: {}, SortByPublicationDate: {}, SortBySize: {}, SortByFloor: {},
		SortByDistance: {}, SortByModificationDate: {},
	}
)

// Tag возвращает BCP 47 тег локали (es_ES -> es-ES)
func (l Locale) Tag() (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(string(l), "_", "-"))
}

// Coordinates центр поиска
type Coordinates struct {
	Lat float64
	Lon float64
}

// String - формат "lat,lon", который ожидает API, без экспоненты
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// ParseCoordinates разбирает строку вида "40.4165,-3.70256"
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("center must be in 'lat,lon' format, got %q", s)
	}
	lat, err := parseFinite(parts[0])
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := parseFinite(parts[1])
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SearchRequest описывает один поисковый запрос к API.
// Необязательные поля - указатели: nil означает "не отправлять".
type SearchRequest struct {
	Country      Country
	Operation    Operation
	PropertyType PropertyType

	LocationID *string
	Center     *Coordinates
	Distance   *float64 // в метрах

	MinPrice *float64
	MaxPrice *float64

	MaxItems int // 0 -> DefaultMaxItems
	NumPage  int // 0 -> DefaultNumPage

	Locale        *Locale
	SinceDate     *time.Time
	Order         *Order
	Sort          *SortField
	HasMultimedia *bool
	BankOffer     *bool
	AdIDs         []string
}

// Normalized возвращает копию запроса с подставленными значениями по умолчанию
func (r SearchRequest) Normalized() SearchRequest {
	n := r.clone()
	if n.MaxItems == 0 {
		n.MaxItems = DefaultMaxItems
	}
	if n.NumPage == 0 {
		n.NumPage = DefaultNumPage
	}
	return n
}

// WithPage - клон запроса с другим номером страницы. Исходный запрос не меняется.
func (r SearchRequest) WithPage(page int) SearchRequest {
	n := r.clone()
	n.NumPage = page
	return n
}

// clone копирует все указатели и срезы, чтобы копии не делили состояние
func (r SearchRequest) clone() SearchRequest {
	n := r
	n.LocationID = clonePtr(r.LocationID)
	n.Center = clonePtr(r.Center)
	n.Distance = clonePtr(r.Distance)
	n.MinPrice = clonePtr(r.MinPrice)
	n.MaxPrice = clonePtr(r.MaxPrice)
	n.Locale = clonePtr(r.Locale)
	n.SinceDate = clonePtr(r.SinceDate)
	n.Order = clonePtr(r.Order)
	n.Sort = clonePtr(r.Sort)
	n.HasMultimedia = clonePtr(r.HasMultimedia)
	n.BankOffer = clonePtr(r.BankOffer)
	if r.AdIDs != nil {
		n.AdIDs = append([]string(nil), r.AdIDs...)
	}
	return n
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Validate проверяет поля запроса, кроме страны.
// Страна проверяется клиентом по таблице endpoint'ов.
func (r SearchRequest) Validate() error {
	if _, ok := validOperations[r.Operation]; !ok {
		return &ValidationError{Field: "operation", Reason: fmt.Sprintf("unsupported value %q", r.Operation)}
	}
	if _, ok := validPropertyTypes[r.PropertyType]; !ok {
		return &ValidationError{Field: "property_type", Reason: fmt.Sprintf("unsupported value %q", r.PropertyType)}
	}

	if r.LocationID != nil && strings.TrimSpace(*r.LocationID) == "" {
		return &ValidationError{Field: "location_id", Reason: "must not be blank"}
	}
	if r.Center != nil {
		// NaN не попадает ни в один диапазон
		inRange := r.Center.Lat >= -90 && r.Center.Lat <= 90 && r.Center.Lon >= -180 && r.Center.Lon <= 180
		if !inRange {
			return &ValidationError{Field: "center", Reason: fmt.Sprintf("coordinates out of range: %s", r.Center)}
		}
	}
	if r.Distance != nil && !(*r.Distance > 0 && isFinite(*r.Distance)) {
		return &ValidationError{Field: "distance", Reason: "must be a positive number of meters"}
	}

	if r.MinPrice != nil && !(*r.MinPrice >= 0 && isFinite(*r.MinPrice)) {
		return &ValidationError{Field: "min_price", Reason: "must be a finite non-negative number"}
	}
	if r.MaxPrice != nil && !(*r.MaxPrice >= 0 && isFinite(*r.MaxPrice)) {
		return &ValidationError{Field: "max_price", Reason: "must be a finite non-negative number"}
	}
	if r.MinPrice != nil && r.MaxPrice != nil && *r.MinPrice > *r.MaxPrice {
		return &ValidationError{Field: "min_price", Reason: "must not exceed max_price"}
	}

	if r.MaxItems != 0 && (r.MaxItems < 1 || r.MaxItems > MaxItemsLimit) {
		return &ValidationError{Field: "max_items", Reason: fmt.Sprintf("must be between 1 and %d", MaxItemsLimit)}
	}
	if r.NumPage < 0 {
		return &ValidationError{Field: "num_page", Reason: "must be at least 1"}
	}

	if r.Locale != nil {
		if _, ok := validLocales[*r.Locale]; !ok {
			return &ValidationError{Field: "locale", Reason: fmt.Sprintf("unsupported value %q", *r.Locale)}
		}
		if _, err := r.Locale.Tag(); err != nil {
			return &ValidationError{Field: "locale", Reason: err.Error()}
		}
	}
	if r.Order != nil {
		if _, ok := validOrders[*r.Order]; !ok {
			return &ValidationError{Field: "order", Reason: fmt.Sprintf("unsupported value %q", *r.Order)}
		}
	}
	if r.Sort != nil {
		if _, ok := validSortFields[*r.Sort]; !ok {
			return &ValidationError{Field: "sort", Reason: fmt.Sprintf("unsupported value %q", *r.Sort)}
		}
	}
	for i, id := range r.AdIDs {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Field: "ad_ids", Reason: fmt.Sprintf("element %d is blank", i)}
		}
	}
	return nil
}
