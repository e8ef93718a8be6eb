package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProperty = `{"propertyCode":"98765","thumbnail":"https://img/1.jpg","price":250000.0,"latitude":40.4165,"longitude":-3.70256,"rooms":3,"detailedType":{"typology":"flat"},"hasVideo":false,"address":"Calle Mayor","parkingSpace":null}`

func TestProperty_UnmarshalTypedFields(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(sampleProperty), &p))

	assert.Equal(t, "98765", p.PropertyCode)
	assert.Equal(t, 250000.0, p.Price)
	assert.Equal(t, 3, p.Rooms)
	assert.Equal(t, "Calle Mayor", p.Address)
	assert.Equal(t, 40.4165, p.Latitude)
	assert.True(t, p.HasCoordinates())
}

func TestProperty_KeepsKeyOrderAndRawValues(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(sampleProperty), &p))

	assert.Equal(t, []string{
		"propertyCode", "thumbnail", "price", "latitude", "longitude", "rooms",
		"detailedType", "hasVideo", "address", "parkingSpace",
	}, p.Keys())

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, sampleProperty, string(out))
}

func TestProperty_Extra(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(sampleProperty), &p))

	extra := p.Extra()
	keys := make([]string, len(extra))
	for i, f := range extra {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"thumbnail", "detailedType", "hasVideo", "parkingSpace"}, keys)
	assert.JSONEq(t, `{"typology":"flat"}`, string(extra[1].Raw))
}

func TestProperty_ToMapKeepsNumbers(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(sampleProperty), &p))

	m, err := p.ToMap()
	require.NoError(t, err)
	assert.Equal(t, json.Number("250000.0"), m["price"])
	assert.Equal(t, json.Number("3"), m["rooms"])
	assert.Nil(t, m["parkingSpace"])
	assert.Contains(t, m, "parkingSpace")
	assert.Equal(t, map[string]any{"typology": "flat"}, m["detailedType"])
}

func TestProperty_WithoutCoordinates(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want bool
	}{
		{"no coordinates", `{"propertyCode":"1","price":10}`, false},
		{"latitude only", `{"propertyCode":"1","latitude":40.4}`, false},
		{"longitude only", `{"propertyCode":"1","longitude":-3.7}`, false},
		{"null longitude", `{"propertyCode":"1","latitude":40.4,"longitude":null}`, false},
		{"null latitude", `{"propertyCode":"1","latitude":null,"longitude":-3.7}`, false},
		{"both present", `{"propertyCode":"1","latitude":40.4,"longitude":-3.7}`, true},
		{"zero is still a coordinate", `{"propertyCode":"1","latitude":0,"longitude":0}`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Property
			require.NoError(t, json.Unmarshal([]byte(tc.body), &p))
			assert.Equal(t, tc.want, p.HasCoordinates())
		})
	}
}

func TestProperty_FieldsReturnsCopy(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(sampleProperty), &p))

	fields := p.Fields()
	fields[0].Key = "mutated"

	assert.Equal(t, "propertyCode", p.Keys()[0])
}

func TestProperty_BuiltInCode(t *testing.T) {
	p := Property{PropertyCode: "1", Price: 100, Latitude: 41.38, Longitude: 2.17}

	assert.True(t, p.HasCoordinates())
	assert.Equal(t, "propertyCode", p.Keys()[0])
	assert.Empty(t, p.Extra())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	var back Property
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "1", back.PropertyCode)
	assert.Equal(t, 100.0, back.Price)
}

func TestProperty_RejectsNonObject(t *testing.T) {
	var p Property
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &p))
}

func TestSearchResponse_Decode(t *testing.T) {
	body := `{"total":2,"totalPages":1,"actualPage":1,"itemsPerPage":20,"paginable":false,
		"summary":["Madrid"],"elementList":[{"propertyCode":"a"},{"propertyCode":"b"}]}`

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.ElementList, 2)
	assert.Equal(t, "b", resp.ElementList[1].PropertyCode)
	assert.Equal(t, []string{"Madrid"}, resp.Summary)
}
