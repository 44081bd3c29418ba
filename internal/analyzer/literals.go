package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

func parseNumber(text string) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil, apperrors.NewInvalidLiteral(fmt.Sprintf("%q is not a number", text), err)
	}
	return v, nil
}

func parseNumberList(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewInvalidLiteral("empty number list", nil)
	}
	parts := strings.Split(text, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, apperrors.NewInvalidLiteral(fmt.Sprintf("%q is not a number list", text), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// AsNumber converts a stored or produced NUMBER value.
func AsNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, apperrors.NewIncomparableValues(fmt.Sprintf("%T is not a number", v), nil)
	}
}

// AsNumberArray converts a stored or produced ARRAY_OF_NUMBER value.
func AsNumberArray(v any) ([]float64, error) {
	switch a := v.(type) {
	case []float64:
		return a, nil
	case []any:
		out := make([]float64, len(a))
		for i, e := range a {
			n, err := AsNumber(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, apperrors.NewIncomparableValues(fmt.Sprintf("%T is not a number array", v), nil)
	}
}

func numberPair(a, b any) (float64, float64, error) {
	l, err := AsNumber(a)
	if err != nil {
		return 0, 0, err
	}
	r, err := AsNumber(b)
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

func absDifference(l, r float64) float64 { return math.Abs(l - r) }

func signedDifference(l, r float64) float64 { return l - r }
