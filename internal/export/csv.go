// Package export renders persisted record sets for download. Records carry
// flat scalar fields; the documented composites (imageData, table image
// cells) are JSON-encoded in place.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pagelens/pagelens/internal/models"
)

// ToCSV renders records as CSV. Columns are the union of keys that carry a
// scalar value in at least one record, sorted for stable output; composite
// values are JSON-encoded into their cell.
func ToCSV(records []models.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, nil
	}

	headerSet := make(map[string]struct{})
	for _, rec := range records {
		for key, value := range rec {
			if isScalar(value) {
				headerSet[key] = struct{}{}
			}
		}
	}

	headers := make([]string, 0, len(headerSet))
	for key := range headerSet {
		headers = append(headers, key)
	}
	sort.Strings(headers)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(headers))
	for _, rec := range records {
		for i, key := range headers {
			row[i] = cellString(rec[key])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, int:
		return true
	default:
		return false
	}
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
