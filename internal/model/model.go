// Package model defines the core data structures for mandi-compare.
package model

// Coordinates is a latitude/longitude pair used for map rendering.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" yaml:"lng" validate:"gte=-180,lte=180"`
}

// Crop represents a tradable commodity in the catalog.
type Crop struct {
	// Type is the unique identifier of the crop, e.g. "wheat"
	Type string `json:"type" yaml:"type" validate:"required"`

	// Name is the display name
	Name string `json:"name" yaml:"name" validate:"required"`

	// Perishable marks crops that spoil during long journeys
	Perishable bool `json:"perishable" yaml:"perishable"`

	// ShelfLife is the shelf life in days
	ShelfLife int `json:"shelfLife" yaml:"shelfLife" validate:"gte=0"`
}

// Vehicle represents a transport option.
type Vehicle struct {
	Type         string  `json:"type" yaml:"type" validate:"required"`
	Name         string  `json:"name" yaml:"name" validate:"required"`
	Capacity     float64 `json:"capacity" yaml:"capacity" validate:"gte=0"`
	CapacityUnit string  `json:"capacityUnit" yaml:"capacityUnit"`

	// RatePerKm is the transport cost per kilometer in rupees
	RatePerKm float64 `json:"ratePerKm" yaml:"ratePerKm" validate:"gte=0"`
}

// Location represents a farmer's origin point.
type Location struct {
	ID          string       `json:"id" yaml:"id" validate:"required"`
	Name        string       `json:"name" yaml:"name" validate:"required"`
	Region      string       `json:"region" yaml:"region"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}

// Trend directions for price annotations.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
)

// PriceTrend is a short-term trend annotation attached to a market price.
type PriceTrend struct {
	// Trend is either "rising" or "falling"
	Trend string `json:"trend" yaml:"trend" validate:"oneof=rising falling"`

	// Change is the percentage change over the observation window
	Change float64 `json:"change" yaml:"change"`
}

// Market represents a selling destination (mandi).
type Market struct {
	ID          string      `json:"id" yaml:"id" validate:"required"`
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Location    string      `json:"location" yaml:"location"`
	District    string      `json:"district" yaml:"district"`
	Coordinates Coordinates `json:"coordinates" yaml:"coordinates"`

	// Prices maps crop type to price per quintal
	Prices map[string]float64 `json:"prices" yaml:"prices" validate:"dive,gt=0"`

	// HandlingCharges is the flat charge for unloading and commission
	HandlingCharges float64 `json:"handlingCharges" yaml:"handlingCharges" validate:"gte=0"`

	// HistoricalTrends maps crop type to its recent price trend
	HistoricalTrends map[string]PriceTrend `json:"historicalTrends,omitempty" yaml:"historicalTrends,omitempty" validate:"dive"`

	// Insight is a free-text note about the market
	Insight string `json:"insights,omitempty" yaml:"insights,omitempty"`

	// PriceUpdatedAt describes when prices were last refreshed
	PriceUpdatedAt string `json:"priceUpdatedAt,omitempty" yaml:"priceUpdatedAt,omitempty"`
}

// TripRequest is the farmer's input for a comparison.
type TripRequest struct {
	Crop string `json:"crop" validate:"required"`

	// Quantity is the raw numeric string entered by the user
	Quantity string `json:"quantity" validate:"required"`

	Unit     string `json:"unit" validate:"required,oneof=quintal ton kg"`
	Vehicle  string `json:"vehicle" validate:"required"`
	Location string `json:"location" validate:"required"`
}

// CostBreakdown holds the cost components of a trip to one market.
// Other is always present even when zero.
type CostBreakdown struct {
	Transport float64 `json:"transport"`
	Handling  float64 `json:"handling"`
	Other     float64 `json:"other"`
	Total     float64 `json:"total"`
}

// PerishabilityWarning is raised when a perishable crop travels far.
type PerishabilityWarning struct {
	Message string `json:"message"`

	// TravelTime is the estimated travel time in hours
	TravelTime float64 `json:"travelTime"`

	// ShelfLife is the crop shelf life in days
	ShelfLife int `json:"shelfLife"`
}

// Ratings relative to the best net profit.
const (
	RatingBest = "best"
	RatingGood = "good"
	RatingFair = "fair"
	RatingLow  = "low"
)

// EvaluatedMarket is the computed outcome for a single eligible market.
type EvaluatedMarket struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Location    string      `json:"location"`
	District    string      `json:"district"`
	Coordinates Coordinates `json:"coordinates"`

	Distance    float64       `json:"distance"`
	MarketPrice float64       `json:"marketPrice"`
	Revenue     float64       `json:"revenue"`
	Costs       CostBreakdown `json:"costs"`
	NetProfit   float64       `json:"netProfit"`

	// ProfitPerKm is nil when the distance is zero
	ProfitPerKm *float64 `json:"profitPerKm"`

	// ProfitMargin is a percentage; nil when revenue is zero
	ProfitMargin *float64 `json:"profitMargin"`

	// CostRatio is total cost as a percentage of revenue; nil when revenue is zero
	CostRatio *float64 `json:"costRatio"`

	// Rating is assigned during ranking
	Rating string `json:"rating,omitempty"`

	PriceAlert           *PriceTrend           `json:"priceAlert"`
	PerishabilityWarning *PerishabilityWarning `json:"perishabilityWarning"`
	HistoricalInsight    string                `json:"historicalInsight,omitempty"`
	PriceUpdatedAt       string                `json:"priceUpdatedAt,omitempty"`
}

// ProfitabilityResult is the output of a comparison.
// Markets is ordered by net profit descending; consumers may rely on
// Markets[0] being the best market.
type ProfitabilityResult struct {
	Markets              []EvaluatedMarket `json:"mandis"`
	BestMarket           *EvaluatedMarket  `json:"bestMandi"`
	NearestMarket        *EvaluatedMarket  `json:"nearestMandi"`
	PotentialSavings     float64           `json:"potentialSavings"`
	TotalMarketsCompared int               `json:"totalMarketsCompared"`

	// NoEligibleMarkets is set when no market has both price and distance data
	NoEligibleMarkets bool `json:"noEligibleMarkets"`

	Crop               Crop     `json:"cropDetails"`
	Location           Location `json:"locationDetails"`
	Vehicle            Vehicle  `json:"vehicleDetails"`
	QuantityInQuintals float64  `json:"quantityInQuintals"`

	Insights Insights `json:"insights"`
}

// Impact levels for potential savings.
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// Alert kinds raised by the insight generator.
const (
	AlertPriceTrend    = "price_trend"
	AlertPerishability = "perishability"
	AlertNearestTrap   = "nearest_not_best"
)

// Alert is a contextual warning about the recommended market.
type Alert struct {
	Kind     string `json:"kind"`
	MarketID string `json:"marketId"`
	Message  string `json:"message"`
}

// Insights holds comparative metrics derived from the ranked markets.
type Insights struct {
	PotentialSavings float64 `json:"potentialSavings"`

	// ExtraDistance is how much farther the best market is than the nearest, never negative
	ExtraDistance float64 `json:"extraDistance"`

	// ReturnPerExtraKm is zero when ExtraDistance is zero
	ReturnPerExtraKm float64 `json:"returnPerExtraKm"`

	ProfitSpread float64 `json:"profitSpread"`
	Impact       string  `json:"impact"`

	AverageDistance      float64 `json:"averageDistance"`
	BestProfitMargin     float64 `json:"bestProfitMargin"`
	BestProfitPerKm      float64 `json:"bestProfitPerKm"`
	TransportShare       float64 `json:"transportShare"`
	PriceAdvantage       float64 `json:"priceAdvantage"`
	LowestPayingMarketID string  `json:"lowestPayingMarketId,omitempty"`

	Alerts []Alert `json:"alerts"`
}
