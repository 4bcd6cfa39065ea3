// Package ranking orders evaluated markets and selects the best and nearest
// options. It is the single source of truth for result ordering.
package ranking

import (
	"sort"

	"github.com/yourorg/mandi-compare/internal/model"
)

// Rating thresholds as a fraction of the best net profit.
const (
	GoodFraction = 0.90
	FairFraction = 0.75
)

// ByProfit returns a copy of markets ordered by net profit, highest first.
// Equal profits are ordered by market id so the result never depends on the
// input order. The result is never nil.
func ByProfit(markets []model.EvaluatedMarket) []model.EvaluatedMarket {
	sorted := make([]model.EvaluatedMarket, len(markets))
	copy(sorted, markets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].NetProfit != sorted[j].NetProfit {
			return sorted[i].NetProfit > sorted[j].NetProfit
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// ByDistance returns a copy of markets ordered by distance, nearest first,
// with equal distances ordered by market id.
func ByDistance(markets []model.EvaluatedMarket) []model.EvaluatedMarket {
	sorted := append([]model.EvaluatedMarket(nil), markets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// Best returns the first market of a profit-ordered list, or nil when empty.
func Best(ranked []model.EvaluatedMarket) *model.EvaluatedMarket {
	if len(ranked) == 0 {
		return nil
	}
	best := ranked[0]
	return &best
}

// Worst returns the last market of a profit-ordered list, or nil when empty.
func Worst(ranked []model.EvaluatedMarket) *model.EvaluatedMarket {
	if len(ranked) == 0 {
		return nil
	}
	worst := ranked[len(ranked)-1]
	return &worst
}

// Nearest returns the market with the smallest distance, computed
// independently of the profit order. Nil when empty.
func Nearest(markets []model.EvaluatedMarket) *model.EvaluatedMarket {
	if len(markets) == 0 {
		return nil
	}
	nearest := ByDistance(markets)[0]
	return &nearest
}

// Rate assigns each market of a profit-ordered list a rating relative to the
// best net profit. The list is modified in place.
func Rate(ranked []model.EvaluatedMarket) {
	if len(ranked) == 0 {
		return
	}

	top := ranked[0].NetProfit
	for i := range ranked {
		ranked[i].Rating = rating(ranked[i].NetProfit, top)
	}
}

func rating(profit, top float64) string {
	if profit == top {
		return model.RatingBest
	}
	// Fractions are meaningless when the best option loses money
	if top <= 0 {
		return model.RatingLow
	}

	switch share := profit / top; {
	case share >= GoodFraction:
		return model.RatingGood
	case share >= FairFraction:
		return model.RatingFair
	default:
		return model.RatingLow
	}
}

// Median returns the median of the selected value, or 0 for an empty list.
func Median(markets []model.EvaluatedMarket, selector func(model.EvaluatedMarket) float64) float64 {
	if len(markets) == 0 {
		return 0
	}

	values := make([]float64, 0, len(markets))
	for _, m := range markets {
		values = append(values, selector(m))
	}

	sort.Float64s(values)
	n := len(values)

	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}

// Mean returns the arithmetic mean of the selected value, or 0 for an empty list.
func Mean(markets []model.EvaluatedMarket, selector func(model.EvaluatedMarket) float64) float64 {
	if len(markets) == 0 {
		return 0
	}

	sum := 0.0
	for _, m := range markets {
		sum += selector(m)
	}
	return sum / float64(len(markets))
}

// Min returns the market with the smallest selected value, ties broken by
// list order. Nil when empty.
func Min(markets []model.EvaluatedMarket, selector func(model.EvaluatedMarket) float64) *model.EvaluatedMarket {
	if len(markets) == 0 {
		return nil
	}

	idx := 0
	for i := 1; i < len(markets); i++ {
		if selector(markets[i]) < selector(markets[idx]) {
			idx = i
		}
	}
	found := markets[idx]
	return &found
}
