package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/ledgerline/finsight/internal/model"
)

// castValue coerces a raw extracted value to the field's declared type.
// Casting is lenient: on failure the original value is returned untouched
// rather than failing the field.
func castValue(value any, t model.FieldType) any {
	if value == nil {
		return nil
	}

	switch t {
	case model.FieldTypeDecimal:
		f, ok := toDecimal(value)
		if !ok {
			return value
		}
		return f

	case model.FieldTypeInteger:
		// Integer goes through a decimal intermediate so "2023.0" truncates
		// cleanly.
		f, ok := toDecimal(value)
		if !ok {
			return value
		}
		return int64(math.Trunc(f))

	case model.FieldTypeString:
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
		return value

	default:
		return value
	}
}

// toDecimal normalizes numeric strings: thousands separators (plain and
// non-breaking spaces) are stripped and a comma decimal mark becomes a dot.
func toDecimal(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.NewReplacer(" ", "", " ", "", " ", "").Replace(v)
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asFloat reads any numeric sheet value as a float64.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
