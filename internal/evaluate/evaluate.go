// Package evaluate computes the revenue, cost and profit of selling a load
// at a single market.
package evaluate

import (
	"fmt"

	"github.com/yourorg/mandi-compare/internal/model"
)

const (
	// PerishableDistanceKm is the distance beyond which perishable crops get a warning
	PerishableDistanceKm = 100.0

	// AverageSpeedKmh is the assumed average road speed used for travel time estimates
	AverageSpeedKmh = 40.0
)

// IneligibilityReason explains why a market was left out of a comparison.
type IneligibilityReason int

// Reasons a market can be ineligible
const (
	Eligible IneligibilityReason = iota
	MissingDistance
	MissingPrice
)

// String returns a stable label for logging and metrics
func (r IneligibilityReason) String() string {
	switch r {
	case Eligible:
		return "eligible"
	case MissingDistance:
		return "missing_distance"
	case MissingPrice:
		return "missing_price"
	default:
		return "unknown"
	}
}

// DistanceLookup resolves the precomputed distance from a location to a market.
type DistanceLookup func(locationID, marketID string) (float64, bool)

// Trip is the resolved context shared by every market evaluation of one request.
type Trip struct {
	Crop       model.Crop
	Vehicle    model.Vehicle
	LocationID string

	// Quintals is the normalized load size
	Quintals float64

	Distance DistanceLookup
}

// Outcome is the result of evaluating one market: either an evaluated
// market or the reason it is ineligible.
type Outcome struct {
	MarketID string
	Market   *model.EvaluatedMarket
	Reason   IneligibilityReason
}

// Eligible reports whether the market produced a profit record
func (o Outcome) Eligible() bool {
	return o.Reason == Eligible && o.Market != nil
}

// Evaluate computes the outcome of selling the trip's load at market m.
// It has no side effects.
func Evaluate(trip Trip, m model.Market) Outcome {
	distance, ok := trip.Distance(trip.LocationID, m.ID)
	if !ok {
		return Outcome{MarketID: m.ID, Reason: MissingDistance}
	}

	price, ok := m.Prices[trip.Crop.Type]
	if !ok {
		return Outcome{MarketID: m.ID, Reason: MissingPrice}
	}

	revenue := price * trip.Quintals
	costs := model.CostBreakdown{
		Transport: distance * trip.Vehicle.RatePerKm,
		Handling:  m.HandlingCharges,
		Other:     0,
	}
	costs.Total = costs.Transport + costs.Handling + costs.Other
	netProfit := revenue - costs.Total

	em := &model.EvaluatedMarket{
		ID:                m.ID,
		Name:              m.Name,
		Location:          m.Location,
		District:          m.District,
		Coordinates:       m.Coordinates,
		Distance:          distance,
		MarketPrice:       price,
		Revenue:           revenue,
		Costs:             costs,
		NetProfit:         netProfit,
		HistoricalInsight: m.Insight,
		PriceUpdatedAt:    m.PriceUpdatedAt,
	}

	if distance > 0 {
		perKm := netProfit / distance
		em.ProfitPerKm = &perKm
	}

	if revenue != 0 {
		margin := netProfit / revenue * 100
		ratio := costs.Total / revenue * 100
		em.ProfitMargin = &margin
		em.CostRatio = &ratio
	}

	if trend, ok := m.HistoricalTrends[trip.Crop.Type]; ok {
		alert := trend
		em.PriceAlert = &alert
	}

	em.PerishabilityWarning = perishabilityWarning(trip.Crop, distance)

	return Outcome{MarketID: m.ID, Market: em}
}

// perishabilityWarning returns a warning for perishable crops on long hauls
func perishabilityWarning(crop model.Crop, distance float64) *model.PerishabilityWarning {
	if !crop.Perishable || distance <= PerishableDistanceKm {
		return nil
	}

	travelTime := distance / AverageSpeedKmh
	return &model.PerishabilityWarning{
		Message:    fmt.Sprintf("Long journey (~%.1f hours). Ensure proper storage for %s.", travelTime, crop.Name),
		TravelTime: travelTime,
		ShelfLife:  crop.ShelfLife,
	}
}
