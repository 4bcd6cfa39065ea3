// Package insight derives comparative decision metrics and contextual alerts
// from a ranked set of markets.
package insight

import (
	"fmt"

	"github.com/yourorg/mandi-compare/internal/model"
	"github.com/yourorg/mandi-compare/internal/ranking"
)

// Thresholds classify the potential gain of the best market over the nearest.
type Thresholds struct {
	// High is the savings amount above which the impact is "high"
	High float64 `mapstructure:"high" validate:"gtefield=Medium"`

	// Medium is the savings amount above which the impact is "medium"
	Medium float64 `mapstructure:"medium" validate:"gte=0"`
}

// DefaultThresholds returns the standard impact thresholds in rupees
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:   5000,
		Medium: 2000,
	}
}

// Classify maps a savings amount to an impact level
func (t Thresholds) Classify(savings float64) string {
	switch {
	case savings > t.High:
		return model.ImpactHigh
	case savings > t.Medium:
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

// PotentialSavings is the extra profit of best over nearest; zero when they
// are the same market.
func PotentialSavings(best, nearest *model.EvaluatedMarket) float64 {
	if best == nil || nearest == nil || best.ID == nearest.ID {
		return 0
	}
	return best.NetProfit - nearest.NetProfit
}

// Generate computes the insights for a profit-ordered list. best and nearest
// may refer to the same market. Degenerate input yields zero values.
func Generate(ranked []model.EvaluatedMarket, best, nearest *model.EvaluatedMarket, th Thresholds) model.Insights {
	out := model.Insights{
		Impact: model.ImpactLow,
		Alerts: []model.Alert{},
	}
	if len(ranked) == 0 || best == nil || nearest == nil {
		return out
	}

	out.PotentialSavings = PotentialSavings(best, nearest)
	out.Impact = th.Classify(out.PotentialSavings)

	if extra := best.Distance - nearest.Distance; extra > 0 {
		out.ExtraDistance = extra
		out.ReturnPerExtraKm = out.PotentialSavings / extra
	}

	worst := ranked[len(ranked)-1]
	out.ProfitSpread = best.NetProfit - worst.NetProfit

	out.AverageDistance = ranking.Mean(ranked, func(m model.EvaluatedMarket) float64 { return m.Distance })

	if best.ProfitMargin != nil {
		out.BestProfitMargin = *best.ProfitMargin
	}
	if best.ProfitPerKm != nil {
		out.BestProfitPerKm = *best.ProfitPerKm
	}
	if best.Revenue != 0 {
		out.TransportShare = best.Costs.Transport / best.Revenue * 100
	}

	lowest := ranking.Min(ranked, func(m model.EvaluatedMarket) float64 { return m.MarketPrice })
	if lowest != nil && best.MarketPrice > lowest.MarketPrice {
		out.PriceAdvantage = best.MarketPrice - lowest.MarketPrice
		out.LowestPayingMarketID = lowest.ID
	}

	out.Alerts = alerts(best, nearest, out)
	return out
}

func alerts(best, nearest *model.EvaluatedMarket, in model.Insights) []model.Alert {
	list := []model.Alert{}

	if in.PotentialSavings > 0 {
		list = append(list, model.Alert{
			Kind:     model.AlertNearestTrap,
			MarketID: best.ID,
			Message: fmt.Sprintf(
				"Your nearest market (%s - %.0f km) would give you ₹%.0f, but traveling %.0f km more to %s adds ₹%.0f.",
				nearest.Name, nearest.Distance, nearest.NetProfit, in.ExtraDistance, best.Name, in.PotentialSavings,
			),
		})
	}

	if best.PriceAlert != nil {
		var advice string
		switch best.PriceAlert.Trend {
		case model.TrendFalling:
			advice = "Consider visiting soon before prices drop further."
		case model.TrendRising:
			advice = "Good timing - prices are on the rise!"
		}
		list = append(list, model.Alert{
			Kind:     model.AlertPriceTrend,
			MarketID: best.ID,
			Message: fmt.Sprintf("Prices at %s have been %s (%.1f%% over 3 days). %s",
				best.Name, best.PriceAlert.Trend, best.PriceAlert.Change, advice),
		})
	}

	if best.PerishabilityWarning != nil {
		list = append(list, model.Alert{
			Kind:     model.AlertPerishability,
			MarketID: best.ID,
			Message:  best.PerishabilityWarning.Message,
		})
	}

	return list
}
