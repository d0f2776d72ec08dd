package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NotCoffee418/european_smart_meter/pkg/feed"
	"github.com/NotCoffee418/european_smart_meter/pkg/telegram"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a raw P1 telegram without storing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	raw, err := feed.NewFileSource(args[0]).Fetch(cmd.Context())
	if err != nil {
		return err
	}

	t, err := telegram.ParseTelegram(raw, time.Now())
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "meter:  %s\n", t.Header)
	fmt.Fprintf(out, "active: %s\n", t.Active)
	for _, r := range t.Readings {
		fmt.Fprintf(out, "%-8s %s kWh  (%d J, %s)\n", r.Tariff.String()+":", r.Energy.Kwh(), int64(r.Energy), r.Fingerprint()[:12])
	}
	return nil
}
