package catalog

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// PriceOutlier describes a market price far outside the range paid by the
// other markets for the same crop.
type PriceOutlier struct {
	Crop     string
	MarketID string
	Price    float64
	Lower    float64
	Upper    float64
}

// AuditPrices flags per-crop price outliers using the interquartile range.
// It only reports; outliers stay in the snapshot and are still evaluated.
func AuditPrices(s *Snapshot, iqrMultiplier float64) []PriceOutlier {
	var outliers []PriceOutlier

	for _, crop := range s.crops {
		prices := make([]float64, 0, len(s.markets))
		for _, m := range s.markets {
			if p, ok := m.Prices[crop.Type]; ok {
				prices = append(prices, p)
			}
		}

		// Need at least 4 points for meaningful outlier detection
		if len(prices) < 4 {
			continue
		}

		sort.Float64s(prices)
		q1 := prices[len(prices)/4]
		q3 := prices[len(prices)*3/4]
		iqr := q3 - q1
		lower := q1 - iqrMultiplier*iqr
		upper := q3 + iqrMultiplier*iqr

		for _, m := range s.markets {
			p, ok := m.Prices[crop.Type]
			if !ok || (p >= lower && p <= upper) {
				continue
			}
			outliers = append(outliers, PriceOutlier{
				Crop:     crop.Type,
				MarketID: m.ID,
				Price:    p,
				Lower:    lower,
				Upper:    upper,
			})
			logrus.WithFields(logrus.Fields{
				"crop":   crop.Type,
				"market": m.ID,
				"price":  p,
				"bounds": []float64{lower, upper},
			}).Warn("Catalog price outside expected range")
		}
	}

	logrus.WithField("outliers", len(outliers)).Debug("Catalog price audit complete")
	return outliers
}
