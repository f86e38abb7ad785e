package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pulse-cli/internal/analytics"
	"github.com/sells-group/pulse-cli/internal/geo"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run analytics over the warehouse",
	Long:  "Parameterized read queries over the pulse.* tables. All commands accept --year and --quarter; some accept --state and --limit.",
}

func init() {
	queryCmd.PersistentFlags().Int("year", 0, "filter by year")
	queryCmd.PersistentFlags().Int("quarter", 0, "filter by quarter (1-4)")
	queryCmd.PersistentFlags().String("state", "", "filter by state slug (where supported)")
	queryCmd.PersistentFlags().Int("limit", 0, "row limit (default from config)")
	rootCmd.AddCommand(queryCmd)
}

// queryFilter builds an analytics.Filter from the shared query flags.
func queryFilter(cmd *cobra.Command) analytics.Filter {
	year, _ := cmd.Flags().GetInt("year")
	quarter, _ := cmd.Flags().GetInt("quarter")
	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetInt("limit")

	if limit <= 0 {
		limit = cfg.Query.DefaultLimit
	}

	return analytics.Filter{Year: year, Quarter: quarter, State: state, Limit: limit}
}

// withAnalytics opens the postgres pool, runs fn against an analytics
// service and closes the pool afterwards.
func withAnalytics(cmd *cobra.Command, fn func(svc *analytics.Service, f analytics.Filter) error) error {
	pool, err := pulsePool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(analytics.New(pool), queryFilter(cmd))
}

var querySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Executive summary across all domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			sum, err := svc.ExecutiveSummary(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query summary")
			}
			printSummary(os.Stdout, sum)
			return nil
		})
	},
}

var queryTopStatesCmd = &cobra.Command{
	Use:   "top-states",
	Short: "States ranked by transaction amount",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.TopStatesByTransactionAmount(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query top-states")
			}
			w := newTable(os.Stdout, "STATE\tAMOUNT\tCOUNT")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%.2f\t%d\n", geo.DisplayName(row.State), row.TransAmount, row.TransCount)
			}
			return w.Flush()
		})
	},
}

var queryTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "Transaction volume by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.TransactionTypeDistribution(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query types")
			}
			w := newTable(os.Stdout, "TYPE\tAMOUNT\tCOUNT\tAVG VALUE")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%.2f\t%d\t%.2f\n", row.TransType, row.TransAmount, row.TransCount, row.AvgTransactionValue)
			}
			return w.Flush()
		})
	},
}

var queryTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Quarterly transaction trends for one year",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			if f.Year == 0 {
				return eris.New("query trends: --year is required")
			}
			out, err := svc.QuarterlyTrends(cmd.Context(), f.Year)
			if err != nil {
				return eris.Wrap(err, "query trends")
			}
			w := newTable(os.Stdout, "QUARTER\tAMOUNT\tCOUNT\tSTATES")
			for _, row := range out {
				fmt.Fprintf(w, "Q%d\t%.2f\t%d\t%d\n", row.Quarter, row.TransAmount, row.TransCount, row.ActiveStates)
			}
			return w.Flush()
		})
	},
}

var queryDistrictsCmd = &cobra.Command{
	Use:   "districts",
	Short: "Districts ranked by transaction amount",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.TopDistrictsByTransaction(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query districts")
			}
			w := newTable(os.Stdout, "STATE\tDISTRICT\tAMOUNT\tCOUNT")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", geo.DisplayName(row.State), row.District, row.TransAmount, row.TransCount)
			}
			return w.Flush()
		})
	},
}

var queryEngagementCmd = &cobra.Command{
	Use:   "engagement",
	Short: "Per-state user totals and engagement",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.UserEngagement(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query engagement")
			}
			w := newTable(os.Stdout, "STATE\tUSERS\tAPP OPENS\tOPENS/USER")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\n", geo.DisplayName(row.State), row.TotalUsers, row.TotalAppOpens, row.AvgOpensPerUser)
			}
			return w.Flush()
		})
	},
}

var queryDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Device brands ranked by device count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.DeviceBrandPopularity(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query devices")
			}
			w := newTable(os.Stdout, "BRAND\tDEVICES\tAVG SHARE")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", row.DeviceBrand, row.TotalDevices, row.AvgPercentage*100)
			}
			return w.Flush()
		})
	},
}

var queryGrowthCmd = &cobra.Command{
	Use:   "growth",
	Short: "User growth series and year-over-year transaction growth",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			users, err := svc.UserGrowth(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "query growth")
			}
			w := newTable(os.Stdout, "YEAR\tQUARTER\tUSERS\tAPP OPENS")
			for _, row := range users {
				fmt.Fprintf(w, "%d\tQ%d\t%d\t%d\n", row.Year, row.Quarter, row.TotalUsers, row.TotalAppOpens)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			yoy, err := svc.YearOverYearGrowth(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "query growth")
			}
			fmt.Println()
			w = newTable(os.Stdout, "YEAR\tAMOUNT\tCOUNT\tAMOUNT GROWTH\tCOUNT GROWTH")
			for _, row := range yoy {
				fmt.Fprintf(w, "%d\t%.2f\t%d\t%s\t%s\n",
					row.Year, row.TransAmount, row.TransCount,
					formatPct(row.AmountGrowth), formatPct(row.CountGrowth))
			}
			return w.Flush()
		})
	},
}

var queryInsuranceCmd = &cobra.Command{
	Use:   "insurance",
	Short: "Insurance adoption by state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.InsuranceAdoptionByState(cmd.Context(), f)
			if err != nil {
				return eris.Wrap(err, "query insurance")
			}
			w := newTable(os.Stdout, "STATE\tAMOUNT\tPOLICIES\tAVG VALUE")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%.2f\t%d\t%.2f\n", geo.DisplayName(row.State), row.InsurAmount, row.TotalPolicies, row.AvgPolicyValue)
			}
			return w.Flush()
		})
	},
}

var queryRegionsCmd = &cobra.Command{
	Use:   "regions <transaction|user|insurance>",
	Short: "Ranked districts or pincodes from the top tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byPincode, _ := cmd.Flags().GetBool("pincodes")
		dim := analytics.ByDistrict
		if byPincode {
			dim = analytics.ByPincode
		}

		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			out, err := svc.TopRegions(cmd.Context(), args[0], dim, f)
			if err != nil {
				return eris.Wrap(err, "query regions")
			}
			w := newTable(os.Stdout, "STATE\tNAME\tCOUNT\tAMOUNT")
			for _, row := range out {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", geo.DisplayName(row.State), row.Name, row.Count, row.Amount)
			}
			return w.Flush()
		})
	},
}

var queryTableCmd = &cobra.Command{
	Use:   "table <name>",
	Short: "Dump rows of one warehouse table",
	Long:  "Dumps a warehouse table, optionally filtered by --year and --quarter. The name must be one of the nine normalized tables.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withAnalytics(cmd, func(svc *analytics.Service, f analytics.Filter) error {
			data, err := svc.FetchTable(cmd.Context(), args[0], f)
			if err != nil {
				return eris.Wrap(err, "query table")
			}
			return renderTableData(os.Stdout, format, data)
		})
	},
}

func init() {
	queryRegionsCmd.Flags().Bool("pincodes", false, "rank pincodes instead of districts")
	queryTableCmd.Flags().String("format", "table", "output format: table, json or yaml")
	queryCmd.AddCommand(
		querySummaryCmd,
		queryTopStatesCmd,
		queryTypesCmd,
		queryTrendsCmd,
		queryDistrictsCmd,
		queryEngagementCmd,
		queryDevicesCmd,
		queryGrowthCmd,
		queryInsuranceCmd,
		queryRegionsCmd,
		queryTableCmd,
	)
}

func newTable(out io.Writer, header string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	return w
}

func printSummary(out io.Writer, sum *analytics.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Transaction amount\t%.2f\n", sum.TotalTransactionAmount)
	fmt.Fprintf(w, "Transactions\t%d\n", sum.TotalTransactions)
	fmt.Fprintf(w, "Avg transaction value\t%.2f\n", sum.AvgTransactionValue)
	fmt.Fprintf(w, "Active states\t%d\n", sum.ActiveStates)
	fmt.Fprintf(w, "Registered users\t%d\n", sum.TotalUsers)
	fmt.Fprintf(w, "App opens\t%d\n", sum.TotalAppOpens)
	fmt.Fprintf(w, "Avg engagement\t%.2f\n", sum.AvgEngagement)
	fmt.Fprintf(w, "Insurance amount\t%.2f\n", sum.TotalInsuranceAmount)
	fmt.Fprintf(w, "Insurance policies\t%d\n", sum.TotalPolicies)
	_ = w.Flush()
}

// renderTableData writes a table dump in the requested format. The json
// and yaml forms emit one object per row keyed by column name, which keeps
// the output stable regardless of column order changes.
func renderTableData(out io.Writer, format string, data *analytics.TableData) error {
	switch format {
	case "", "table":
		printTableData(out, data)
		return nil
	case "json", "yaml":
	default:
		return eris.Errorf("query table: unknown format %q", format)
	}

	docs := make([]map[string]any, 0, len(data.Rows))
	for _, row := range data.Rows {
		doc := make(map[string]any, len(data.Columns))
		for i, col := range data.Columns {
			doc[col] = row[i]
		}
		docs = append(docs, doc)
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	enc := yaml.NewEncoder(out)
	if err := enc.Encode(docs); err != nil {
		return err
	}
	return enc.Close()
}

func printTableData(out io.Writer, data *analytics.TableData) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, col := range data.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
	for _, row := range data.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprintf(w, "%v", v)
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func formatPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}
