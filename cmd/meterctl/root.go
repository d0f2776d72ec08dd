package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NotCoffee418/european_smart_meter/pkg/config"
	"github.com/NotCoffee418/european_smart_meter/pkg/meterdb"
	"github.com/NotCoffee418/european_smart_meter/pkg/pathing"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "meterctl",
	Short: "Query and maintain the smart meter database",
	Long: `meterctl reports energy usage from the readings stored by meter_collector,
imports historical CSV exports and inspects raw P1 telegrams.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <config dir>/meter_collector.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default from config)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func loadConfig() (*config.MeterCollectorConfig, error) {
	if err := pathing.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openDB opens the database named by --db or the config.
func openDB(cfg *config.MeterCollectorConfig) (*meterdb.DB, error) {
	path := dbPath
	if path == "" {
		path = cfg.DatabasePath()
	}
	db, err := meterdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func location(cfg *config.MeterCollectorConfig) (*time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	return loc, nil
}
