package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourorg/mandi-compare/internal/model"
	"github.com/yourorg/mandi-compare/internal/units"
)

// newCompareCommand creates the compare command
func newCompareCommand(a *app) *cobra.Command {
	var req model.TripRequest

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Rank markets by net profit for a trip",
		Long: `Evaluate every market reachable from a location and rank them by the
net profit of selling the load there.

Examples:
  mandi compare --crop wheat --quantity 10 --vehicle tractor --location L1
  mandi compare --crop tomato --quantity 500 --unit kg --vehicle tempo --location L2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.engine().EvaluateMarkets(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.output == OutputJSON {
				return writeJSON(out, result)
			}
			return writeComparison(out, result)
		},
	}

	cmd.Flags().StringVar(&req.Crop, "crop", "", "Crop type, e.g. wheat")
	cmd.Flags().StringVar(&req.Quantity, "quantity", "", "Quantity to sell")
	cmd.Flags().StringVar(&req.Unit, "unit", units.Quintal, "Quantity unit: quintal, ton or kg")
	cmd.Flags().StringVar(&req.Vehicle, "vehicle", "", "Vehicle type, e.g. tractor")
	cmd.Flags().StringVar(&req.Location, "location", "", "Origin location id")

	for _, name := range []string{"crop", "quantity", "vehicle", "location"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// writeComparison renders a comparison as a table followed by the insights
func writeComparison(out io.Writer, result *model.ProfitabilityResult) error {
	fmt.Fprintf(out, "\n=== %s, %.2f quintals from %s by %s ===\n\n",
		result.Crop.Name, result.QuantityInQuintals, result.Location.Name, result.Vehicle.Name)

	if result.NoEligibleMarkets {
		fmt.Fprintln(out, "No market has both a price and a distance for this trip.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tMARKET\tDISTANCE\tPRICE\tREVENUE\tCOSTS\tNET PROFIT\tRATING")
	for i, m := range result.Markets {
		fmt.Fprintf(w, "%d\t%s\t%.0f km\t₹%.0f\t₹%.0f\t₹%.0f\t₹%.0f\t%s\n",
			i+1, m.Name, m.Distance, m.MarketPrice, m.Revenue, m.Costs.Total, m.NetProfit, m.Rating)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nBest:    %s (₹%.0f)\n", result.BestMarket.Name, result.BestMarket.NetProfit)
	fmt.Fprintf(out, "Nearest: %s (%.0f km)\n", result.NearestMarket.Name, result.NearestMarket.Distance)
	fmt.Fprintf(out, "Potential savings: ₹%.0f (%s impact)\n", result.PotentialSavings, result.Insights.Impact)

	for _, alert := range result.Insights.Alerts {
		fmt.Fprintf(out, "! %s\n", alert.Message)
	}
	return nil
}
