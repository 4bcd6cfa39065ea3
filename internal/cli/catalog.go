package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourorg/mandi-compare/internal/model"
)

// newCropsCommand creates the crops command
func newCropsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crops",
		Short: "List crops in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			crops := a.snapshot.Crops()
			if a.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), crops)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tPERISHABLE\tSHELF LIFE")
			for _, c := range crops {
				fmt.Fprintf(w, "%s\t%s\t%t\t%d days\n", c.Type, c.Name, c.Perishable, c.ShelfLife)
			}
			return w.Flush()
		},
	}
}

// newVehiclesCommand creates the vehicles command
func newVehiclesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "List transport options in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicles := a.snapshot.Vehicles()
			if a.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), vehicles)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tCAPACITY\tRATE")
			for _, v := range vehicles {
				fmt.Fprintf(w, "%s\t%s\t%g %s\t₹%g/km\n", v.Type, v.Name, v.Capacity, v.CapacityUnit, v.RatePerKm)
			}
			return w.Flush()
		},
	}
}

// newLocationsCommand creates the locations command
func newLocationsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List farmer origin locations in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			locations := a.snapshot.Locations()
			if a.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), locations)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tREGION")
			for _, l := range locations {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Name, l.Region)
			}
			return w.Flush()
		},
	}
}

// newMarketsCommand creates the markets command
func newMarketsCommand(a *app) *cobra.Command {
	var locationID string

	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List markets reachable from a location",
		Long: `List the markets that have a distance entry for a location, in catalog order.

Examples:
  mandi markets --location L1
  mandi markets --location L3 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.snapshot.Location(locationID); !ok {
				return fmt.Errorf("%w: unknown location %q", model.ErrInvalidInput, locationID)
			}

			markets := a.snapshot.MarketsForLocation(locationID)
			if a.output == OutputJSON {
				if markets == nil {
					markets = []model.Market{}
				}
				return writeJSON(cmd.OutOrStdout(), markets)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDISTRICT\tDISTANCE\tCROPS")
			for _, m := range markets {
				distance, _ := a.snapshot.Distance(locationID, m.ID)
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f km\t%s\n", m.ID, m.Name, m.District, distance, cropList(m))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&locationID, "location", "", "Origin location id")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

// cropList returns the crops a market prices, sorted for stable output
func cropList(m model.Market) string {
	crops := make([]string, 0, len(m.Prices))
	for crop := range m.Prices {
		crops = append(crops, crop)
	}
	sort.Strings(crops)
	return strings.Join(crops, ",")
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
