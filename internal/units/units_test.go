package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/mandi-compare/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		unit     string
		want     float64
	}{
		{name: "quintal is canonical", quantity: "10", unit: Quintal, want: 10},
		{name: "ton is ten quintals", quantity: "1", unit: Ton, want: 10},
		{name: "kg is a hundredth", quantity: "100", unit: Kg, want: 1},
		{name: "fractional kg", quantity: "250", unit: Kg, want: 2.5},
		{name: "decimal ton", quantity: "2.5", unit: Ton, want: 25},
		{name: "surrounding whitespace", quantity: " 12 ", unit: Quintal, want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.quantity, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Equivalences(t *testing.T) {
	ton, err := Normalize("1", Ton)
	require.NoError(t, err)
	quintals, err := Normalize("10", Quintal)
	require.NoError(t, err)
	assert.Equal(t, quintals, ton)

	kg, err := Normalize("100", Kg)
	require.NoError(t, err)
	one, err := Normalize("1", Quintal)
	require.NoError(t, err)
	assert.Equal(t, one, kg)
}

func TestNormalize_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		unit     string
	}{
		{name: "non numeric", quantity: "ten", unit: Quintal},
		{name: "empty", quantity: "", unit: Quintal},
		{name: "zero", quantity: "0", unit: Quintal},
		{name: "negative", quantity: "-5", unit: Kg},
		{name: "unknown unit", quantity: "5", unit: "pound"},
		{name: "trailing garbage", quantity: "5abc", unit: Ton},
		{name: "overflows float", quantity: "1e400", unit: Quintal},
		{name: "underflows to zero", quantity: "1e-400", unit: Quintal},
		{name: "underflows after kg conversion", quantity: "1e-323", unit: Kg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.quantity, tt.unit)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}
