package catalogue

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/anime-shed/image-search-go/internal/analyzer"
)

const columnPrefix = "tag$"

// ColumnName returns the catalogue column for a tagger.
func ColumnName(tagger string) string {
	return columnPrefix + tagger
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// columnType maps a storage kind to its SQLite column type. Number arrays
// are stored as JSON text.
func columnType(k analyzer.Kind) (string, error) {
	switch k {
	case analyzer.KindNumber:
		return "REAL", nil
	case analyzer.KindNumberArray, analyzer.KindString:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("unsupported storage kind %d", int(k))
	}
}

// encodeValue converts a tag value to its column representation. nil is
// written as NULL.
func encodeValue(k analyzer.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case analyzer.KindNumber:
		n, err := analyzer.AsNumber(v)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("non-finite number %v", n)
		}
		return n, nil
	case analyzer.KindNumberArray:
		a, err := analyzer.AsNumberArray(v)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode number array: %w", err)
		}
		return string(b), nil
	case analyzer.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%T is not a string", v)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage kind %d", int(k))
	}
}

// decodeValue converts a scanned column value back to a tag value.
func decodeValue(k analyzer.Kind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch k {
	case analyzer.KindNumber:
		if s, ok := raw.(string); ok {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("decode number %q: %w", s, err)
			}
			return n, nil
		}
		return analyzer.AsNumber(raw)
	case analyzer.KindNumberArray:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("decode number array from %T", raw)
		}
		var out []float64
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("decode number array: %w", err)
		}
		return out, nil
	case analyzer.KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return fmt.Sprint(raw), nil
	default:
		return nil, fmt.Errorf("unsupported storage kind %d", int(k))
	}
}
