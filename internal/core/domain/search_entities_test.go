package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validRequest() SearchRequest {
	return SearchRequest{Country: CountrySpain, Operation: OperationSale, PropertyType: PropertyTypeHomes}
}

func TestNormalized_AppliesDefaults(t *testing.T) {
	req := validRequest()

	n := req.Normalized()

	assert.Equal(t, DefaultMaxItems, n.MaxItems)
	assert.Equal(t, DefaultNumPage, n.NumPage)
	assert.Zero(t, req.MaxItems, "receiver must not change")
	assert.Zero(t, req.NumPage)
}

func TestNormalized_KeepsExplicitValues(t *testing.T) {
	req := validRequest()
	req.MaxItems = 50
	req.NumPage = 4

	n := req.Normalized()

	assert.Equal(t, 50, n.MaxItems)
	assert.Equal(t, 4, n.NumPage)
}

func TestWithPage_DoesNotShareState(t *testing.T) {
	req := validRequest()
	req.LocationID = ptr("0-EU-ES-28")
	req.MinPrice = ptr(100000.0)
	req.Center = &Coordinates{Lat: 40.4, Lon: -3.7}
	req.AdIDs = []string{"1", "2"}
	req.NumPage = 1

	next := req.WithPage(5)
	*next.LocationID = "0-EU-ES-08"
	*next.MinPrice = 1
	next.Center.Lat = 0
	next.AdIDs[0] = "changed"

	assert.Equal(t, 5, next.NumPage)
	assert.Equal(t, 1, req.NumPage)
	assert.Equal(t, "0-EU-ES-28", *req.LocationID)
	assert.Equal(t, 100000.0, *req.MinPrice)
	assert.Equal(t, 40.4, req.Center.Lat)
	assert.Equal(t, []string{"1", "2"}, req.AdIDs)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		mut   func(r *SearchRequest)
		field string
	}{
		{"valid minimal", func(r *SearchRequest) {}, ""},
		{"valid full", func(r *SearchRequest) {
			r.LocationID = ptr("0-EU-ES-28")
			r.Center = &Coordinates{Lat: 40.4165, Lon: -3.70256}
			r.Distance = ptr(1500.0)
			r.MinPrice = ptr(100.0)
			r.MaxPrice = ptr(200.0)
			r.MaxItems = MaxItemsLimit
			r.Locale = ptr(LocaleEnglish)
			r.Order = ptr(OrderDesc)
			r.Sort = ptr(SortByPublicationDate)
			r.SinceDate = ptr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			r.AdIDs = []string{"123"}
		}, ""},
		{"unknown operation", func(r *SearchRequest) { r.Operation = "swap" }, "operation"},
		{"unknown property type", func(r *SearchRequest) { r.PropertyType = "castles" }, "property_type"},
		{"blank location id", func(r *SearchRequest) { r.LocationID = ptr("  ") }, "location_id"},
		{"latitude out of range", func(r *SearchRequest) { r.Center = &Coordinates{Lat: 91, Lon: 0} }, "center"},
		{"zero distance", func(r *SearchRequest) { r.Distance = ptr(0.0) }, "distance"},
		{"NaN distance", func(r *SearchRequest) { r.Distance = ptr(math.NaN()) }, "distance"},
		{"infinite distance", func(r *SearchRequest) { r.Distance = ptr(math.Inf(1)) }, "distance"},
		{"NaN latitude", func(r *SearchRequest) { r.Center = &Coordinates{Lat: math.NaN(), Lon: 0} }, "center"},
		{"NaN longitude", func(r *SearchRequest) { r.Center = &Coordinates{Lat: 0, Lon: math.NaN()} }, "center"},
		{"NaN min price", func(r *SearchRequest) { r.MinPrice = ptr(math.NaN()) }, "min_price"},
		{"infinite max price", func(r *SearchRequest) { r.MaxPrice = ptr(math.Inf(1)) }, "max_price"},
		{"negative min price", func(r *SearchRequest) { r.MinPrice = ptr(-1.0) }, "min_price"},
		{"negative max price", func(r *SearchRequest) { r.MaxPrice = ptr(-1.0) }, "max_price"},
		{"min above max", func(r *SearchRequest) { r.MinPrice = ptr(300.0); r.MaxPrice = ptr(200.0) }, "min_price"},
		{"max items above limit", func(r *SearchRequest) { r.MaxItems = MaxItemsLimit + 1 }, "max_items"},
		{"negative max items", func(r *SearchRequest) { r.MaxItems = -1 }, "max_items"},
		{"negative page", func(r *SearchRequest) { r.NumPage = -2 }, "num_page"},
		{"unknown locale", func(r *SearchRequest) { r.Locale = ptr(Locale("fr_FR")) }, "locale"},
		{"unknown order", func(r *SearchRequest) { r.Order = ptr(Order("up")) }, "order"},
		{"unknown sort", func(r *SearchRequest) { r.Sort = ptr(SortField("rooms")) }, "sort"},
		{"blank ad id", func(r *SearchRequest) { r.AdIDs = []string{"1", ""} }, "ad_ids"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mut(&req)

			err := req.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestValidate_DoesNotCheckCountry(t *testing.T) {
	req := validRequest()
	req.Country = "fr"
	assert.NoError(t, req.Validate())
}

func TestParseCoordinates(t *testing.T) {
	c, err := ParseCoordinates("40.4165, -3.70256")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Lat: 40.4165, Lon: -3.70256}, c)
	assert.Equal(t, "40.4165,-3.70256", c.String())

	for _, bad := range []string{
		"", "40.4", "a,b", "1,2,3",
		"40.4abc,-3.7xyz", "NaN,NaN", "40.4,Inf", "-Inf,3", "40.4,",
	} {
		_, err := ParseCoordinates(bad)
		assert.Error(t, err, bad)
	}
}

func TestCoordinatesString_NoExponent(t *testing.T) {
	assert.Equal(t, "0.00001,-3.70256", Coordinates{Lat: 0.00001, Lon: -3.70256}.String())
	assert.Equal(t, "0,0", Coordinates{}.String())
	assert.Equal(t, "-89.999999,179.5", Coordinates{Lat: -89.999999, Lon: 179.5}.String())
}

func TestLocaleTag(t *testing.T) {
	tag, err := LocaleSpanish.Tag()
	require.NoError(t, err)
	assert.Equal(t, "es-ES", tag.String())

	tag, err = LocaleEnglish.Tag()
	require.NoError(t, err)
	assert.Equal(t, "en-GB", tag.String())
}

func TestErrorMessages(t *testing.T) {
	err := &UnsupportedCountryError{Country: "fr", Accepted: []Country{CountrySpain, CountryItaly, CountryPortugal}}
	assert.Equal(t, "country 'fr' is not supported, supported countries are: es, it, pt", err.Error())

	apiErr := &APIError{StatusCode: 401, Code: "invalid_token", Description: "Access token expired"}
	assert.Contains(t, apiErr.Error(), "401")
	assert.Contains(t, apiErr.Error(), "invalid_token")
	assert.Contains(t, apiErr.Error(), "Access token expired")
}
