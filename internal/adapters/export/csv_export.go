package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"idealista-parser-service/internal/core/domain"

	"github.com/mmcloughlin/geohash"
)

// GeohashColumn - вычисляемая колонка, если у объекта есть координаты
const GeohashColumn = "geohash"

// WriteCSV пишет объекты в CSV. Колонки - отсортированное объединение ключей всех объектов.
func WriteCSV(w io.Writer, properties []domain.Property) error {
	if len(properties) == 0 {
		return ErrNoResults
	}

	rows := make([]map[string]string, len(properties))
	columns := make(map[string]struct{})
	for i, p := range properties {
		row, err := toRow(p)
		if err != nil {
			return fmt.Errorf("property %d: %w", i, err)
		}
		for k := range row {
			columns[k] = struct{}{}
		}
		rows[i] = row
	}

	header := make([]string, 0, len(columns))
	for k := range columns {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func SaveCSV(path string, properties []domain.Property) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, properties); err != nil {
		return err
	}
	return f.Close()
}

func toRow(p domain.Property) (map[string]string, error) {
	fields := p.Fields()
	row := make(map[string]string, len(fields)+1)
	for _, f := range fields {
		cell, err := cellValue(f.Raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		row[f.Key] = cell
	}

	if _, exists := row[GeohashColumn]; !exists && p.HasCoordinates() {
		row[GeohashColumn] = geohash.Encode(p.Latitude, p.Longitude)
	}
	return row, nil
}

// cellValue: строки без кавычек, числа как пришли, null - пустая ячейка,
// объекты и массивы - компактный JSON
func cellValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(trimmed), nil
	}
}
