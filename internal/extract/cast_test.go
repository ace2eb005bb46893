package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerline/finsight/internal/model"
)

func TestCastDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"float passthrough", 1234.5, 1234.5},
		{"int", 1234, 1234.0},
		{"plain string", "1234.5", 1234.5},
		{"comma decimal mark", "1234,56", 1234.56},
		{"thousands spaces", "1 234 567", 1234567.0},
		{"nbsp thousands", "1 234 567,89", 1234567.89},
		{"unparseable kept as-is", "n/a", "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, castValue(tt.in, model.FieldTypeDecimal))
		})
	}
}

func TestCastInteger(t *testing.T) {
	assert.Equal(t, int64(2023), castValue("2023", model.FieldTypeInteger))
	assert.Equal(t, int64(2023), castValue("2023.0", model.FieldTypeInteger))
	assert.Equal(t, int64(2023), castValue(2023.7, model.FieldTypeInteger))
	assert.Equal(t, "unknown", castValue("unknown", model.FieldTypeInteger))
}

func TestCastString(t *testing.T) {
	assert.Equal(t, "ACME SA", castValue("  ACME SA \n", model.FieldTypeString))
	assert.Equal(t, 42, castValue(42, model.FieldTypeString))
}

func TestCastNil(t *testing.T) {
	assert.Nil(t, castValue(nil, model.FieldTypeDecimal))
}

func TestCastIdempotent(t *testing.T) {
	once := castValue("1 234,5", model.FieldTypeDecimal)
	twice := castValue(once, model.FieldTypeDecimal)
	assert.Equal(t, once, twice)
}
