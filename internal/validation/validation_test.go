package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/mandi-compare/internal/model"
)

func validTrip() model.TripRequest {
	return model.TripRequest{
		Crop:     "wheat",
		Quantity: "10",
		Unit:     "quintal",
		Vehicle:  "tractor",
		Location: "L1",
	}
}

func TestValidateTrip(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *model.TripRequest)
		wantErr bool
	}{
		{name: "valid request", mutate: func(r *model.TripRequest) {}},
		{name: "missing crop", mutate: func(r *model.TripRequest) { r.Crop = "" }, wantErr: true},
		{name: "blank crop", mutate: func(r *model.TripRequest) { r.Crop = "   " }, wantErr: true},
		{name: "missing quantity", mutate: func(r *model.TripRequest) { r.Quantity = "" }, wantErr: true},
		{name: "missing vehicle", mutate: func(r *model.TripRequest) { r.Vehicle = "" }, wantErr: true},
		{name: "missing location", mutate: func(r *model.TripRequest) { r.Location = "" }, wantErr: true},
		{name: "unknown unit", mutate: func(r *model.TripRequest) { r.Unit = "pound" }, wantErr: true},
		{name: "ton unit", mutate: func(r *model.TripRequest) { r.Unit = "ton" }},
		{name: "kg unit", mutate: func(r *model.TripRequest) { r.Unit = "kg" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validTrip()
			tt.mutate(&req)

			err := ValidateTrip(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStruct_CatalogEntities(t *testing.T) {
	require.NoError(t, Struct(model.Vehicle{Type: "truck", Name: "Truck", RatePerKm: 35}))

	err := Struct(model.Vehicle{Type: "truck", Name: "Truck", RatePerKm: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RatePerKm")

	err = Struct(model.Market{
		ID:              "M1",
		Name:            "Mandi",
		Prices:          map[string]float64{"wheat": 2000},
		HandlingCharges: -10,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HandlingCharges")

	err = Struct(model.Market{
		ID:     "M1",
		Name:   "Mandi",
		Prices: map[string]float64{"wheat": 2000},
		HistoricalTrends: map[string]model.PriceTrend{
			"wheat": {Trend: "sideways", Change: 1},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}
