package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NotCoffee418/european_smart_meter/pkg/aggregator"
	"github.com/NotCoffee418/european_smart_meter/pkg/report"
)

var reportBy string

var reportCmd = &cobra.Command{
	Use:   "report FROM..TO",
	Short: "Report energy usage over a date span",
	Long: `Reports net energy usage per tariff between the first second of FROM and the
last second of TO, e.g. "meterctl report 2024-01-01..2024-01-31".
Dates are interpreted in the configured timezone.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportBy, "by", "", "break the span down by hour, day or month")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := location(cfg)
	if err != nil {
		return err
	}
	start, end, err := report.ParseSpan(args[0], loc)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if reportBy == "" {
		usage, err := report.Generate(cmd.Context(), db, start, end)
		if err != nil {
			return fmt.Errorf("generating report: %w", err)
		}
		return report.Render(out, usage)
	}

	tf, err := aggregator.ParseTimeframe(reportBy)
	if err != nil {
		return err
	}
	buckets, err := aggregator.Breakdown(cmd.Context(), db, start, end, tf, loc)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	return renderBuckets(out, buckets)
}

func renderBuckets(w io.Writer, buckets []aggregator.Bucket) error {
	if len(buckets) == 0 {
		_, err := fmt.Fprintln(w, "No readings in span")
		return err
	}
	for i, b := range buckets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s - %s\n", b.StartTime.Format("2006-01-02 15:04"), b.EndTime.Format("2006-01-02 15:04"))
		if err := report.Render(w, b.Usage); err != nil {
			return err
		}
	}
	return nil
}
