package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NotCoffee418/european_smart_meter/pkg/importer"
	"github.com/NotCoffee418/european_smart_meter/pkg/ingest"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a historical CSV export",
	Long: `Imports cumulative meter readings from a CSV file with the columns
time, Electricity imported T1, Electricity imported T2,
Electricity exported T1, Electricity exported T2.
Readings that are already stored are skipped.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file to import")
	importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := location(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", importFile, err)
	}
	defer f.Close()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := ingest.NewPipeline(db)
	if err != nil {
		return err
	}

	res, err := importer.Import(cmd.Context(), f, loc, pipeline)
	if err != nil {
		return fmt.Errorf("importing %s: %w", importFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows: %d new readings, %d duplicates\n", res.Rows, res.New, res.Duplicate)
	return nil
}
