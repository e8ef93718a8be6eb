package locations

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Location - запись каталога locationId_list.json
type Location struct {
	Name       string `json:"name"`
	LocationID string `json:"locationId"`
	Type       string `json:"type"`
}

// Catalogue - справочник идентификаторов локаций для поиска по location_id
type Catalogue struct {
	locations []Location
}

func Parse(r io.Reader) (*Catalogue, error) {
	var locations []Location
	if err := json.NewDecoder(r).Decode(&locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations catalogue: %w", err)
	}
	return &Catalogue{locations: locations}, nil
}

// Load читает каталог из файла. Отсутствие файла возвращается как os.ErrNotExist.
func Load(path string) (*Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations catalogue: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (c *Catalogue) All() []Location {
	out := make([]Location, len(c.locations))
	copy(out, c.locations)
	return out
}

// Types - уникальные типы локаций по алфавиту
func (c *Catalogue) Types() []string {
	seen := make(map[string]struct{})
	for _, l := range c.locations {
		seen[l.Type] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ByType - локации заданного типа; пустой тип - все локации
func (c *Catalogue) ByType(locationType string) []Location {
	if locationType == "" {
		return c.All()
	}
	var out []Location
	for _, l := range c.locations {
		if l.Type == locationType {
			out = append(out, l)
		}
	}
	return out
}

// Search ищет по подстроке в названии без учета регистра
func (c *Catalogue) Search(query string) []Location {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(query))
	if needle == "" {
		return c.All()
	}
	var out []Location
	for _, l := range c.locations {
		if strings.Contains(folder.String(l.Name), needle) {
			out = append(out, l)
		}
	}
	return out
}

func (c *Catalogue) Lookup(locationID string) (Location, bool) {
	for _, l := range c.locations {
		if l.LocationID == locationID {
			return l, true
		}
	}
	return Location{}, false
}
