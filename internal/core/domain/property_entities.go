package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field - одно поле объекта в том порядке, в котором его прислал API
type Field struct {
	Key string
	Raw json.RawMessage
}

// Property - объект из elementList.
// Типизированная часть покрывает то, что нужно ядру; все остальные ключи
// сохраняются в fields без изменений и попадают в экспорт.
type Property struct {
	PropertyCode string
	PropertyType string
	Operation    string
	Address      string
	Price        float64
	Size         float64
	Rooms        int
	Bathrooms    int
	Latitude     float64
	Longitude    float64
	Country      string
	Province     string
	Municipality string
	URL          string

	fields []Field
}

// ключи, которые разбираются в типизированные поля
var knownPropertyKeys = map[string]struct{}{
	"propertyCode": {}, "propertyType": {}, "operation": {}, "address": {}, "price": {},
	"size": {}, "rooms": {}, "bathrooms": {}, "latitude": {}, "longitude": {},
	"country": {}, "province": {}, "municipality": {}, "url": {},
}

// propertyCore нужен, чтобы разобрать типизированные поля без рекурсии в UnmarshalJSON
type propertyCore struct {
	PropertyCode string  `json:"propertyCode"`
	PropertyType string  `json:"propertyType"`
	Operation    string  `json:"operation"`
	Address      string  `json:"address"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	Rooms        int     `json:"rooms"`
	Bathrooms    int     `json:"bathrooms"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Country      string  `json:"country"`
	Province     string  `json:"province"`
	Municipality string  `json:"municipality"`
	URL          string  `json:"url"`
}

// UnmarshalJSON запоминает порядок ключей и разбирает известные поля
func (p *Property) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("property must be a JSON object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected property key token %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("property field %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	var core propertyCore
	if err := json.Unmarshal(data, &core); err != nil {
		return fmt.Errorf("property core fields: %w", err)
	}

	*p = Property{
		PropertyCode: core.PropertyCode,
		PropertyType: core.PropertyType,
		Operation:    core.Operation,
		Address:      core.Address,
		Price:        core.Price,
		Size:         core.Size,
		Rooms:        core.Rooms,
		Bathrooms:    core.Bathrooms,
		Latitude:     core.Latitude,
		Longitude:    core.Longitude,
		Country:      core.Country,
		Province:     core.Province,
		Municipality: core.Municipality,
		URL:          core.URL,
		fields:       fields,
	}
	return nil
}

// MarshalJSON отдает объект в исходном виде и порядке ключей
func (p Property) MarshalJSON() ([]byte, error) {
	if p.fields == nil {
		return json.Marshal(propertyCore{
			p.PropertyCode, p.PropertyType, p.Operation, p.Address, p.Price,
			p.Size, p.Rooms, p.Bathrooms, p.Latitude, p.Longitude,
			p.Country, p.Province, p.Municipality, p.URL,
		})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.Raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Fields - все поля объекта в порядке ответа API. Возвращается копия.
func (p Property) Fields() []Field {
	return p.allFields()
}

// allFields - поля из ответа API, а для объектов, собранных в коде, поля типизированной части
func (p Property) allFields() []Field {
	if p.fields != nil {
		out := make([]Field, len(p.fields))
		copy(out, p.fields)
		return out
	}

	var parsed Property
	data, err := p.MarshalJSON()
	if err != nil {
		return nil
	}
	if err := parsed.UnmarshalJSON(data); err != nil {
		return nil
	}
	return parsed.fields
}

// Extra - поля, которые не разбираются в типизированную часть, в исходном порядке
func (p Property) Extra() []Field {
	var extra []Field
	for _, f := range p.allFields() {
		if _, known := knownPropertyKeys[f.Key]; !known {
			extra = append(extra, f)
		}
	}
	return extra
}

// Keys - ключи объекта в порядке ответа API
func (p Property) Keys() []string {
	fields := p.allFields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// ToMap - плоское представление для экспорта. Числа сохраняются как json.Number,
// чтобы не терять точность.
func (p Property) ToMap() (map[string]any, error) {
	fields := p.allFields()
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		dec := json.NewDecoder(bytes.NewReader(f.Raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("property field %q: %w", f.Key, err)
		}
		out[f.Key] = v
	}
	return out, nil
}

// HasCoordinates - прислал ли API обе координаты объекта (null не считается)
func (p Property) HasCoordinates() bool {
	if p.fields == nil {
		return p.Latitude != 0 || p.Longitude != 0
	}
	var hasLat, hasLon bool
	for _, f := range p.fields {
		if bytes.Equal(bytes.TrimSpace(f.Raw), []byte("null")) {
			continue
		}
		switch f.Key {
		case "latitude":
			hasLat = true
		case "longitude":
			hasLon = true
		}
	}
	return hasLat && hasLon
}

// SearchResponse - одна страница выдачи
type SearchResponse struct {
	Total        int        `json:"total"`
	TotalPages   int        `json:"totalPages"`
	ActualPage   int        `json:"actualPage"`
	ItemsPerPage int        `json:"itemsPerPage"`
	ElementList  []Property `json:"elementList"`

	Paginable          bool     `json:"paginable,omitempty"`
	Summary            []string `json:"summary,omitempty"`
	LowerRangePosition int      `json:"lowerRangePosition,omitempty"`
	UpperRangePosition int      `json:"upperRangePosition,omitempty"`
}

// PageProgress - событие прогресса многостраничной выгрузки
type PageProgress struct {
	Page            int `json:"page"`
	TotalPages      int `json:"total_pages"`
	PropertiesCount int `json:"properties_count"`
}
