// Meter collector polls the P1 feed, stores every new reading and serves
// the live stream to websocket, MQTT and Prometheus consumers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NotCoffee418/european_smart_meter/pkg/broadcast"
	"github.com/NotCoffee418/european_smart_meter/pkg/collector"
	"github.com/NotCoffee418/european_smart_meter/pkg/config"
	"github.com/NotCoffee418/european_smart_meter/pkg/feed"
	"github.com/NotCoffee418/european_smart_meter/pkg/ingest"
	"github.com/NotCoffee418/european_smart_meter/pkg/logging"
	"github.com/NotCoffee418/european_smart_meter/pkg/meterdb"
	"github.com/NotCoffee418/european_smart_meter/pkg/pathing"
	"github.com/NotCoffee418/european_smart_meter/pkg/publisher"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "meter_collector",
	Short:        "Collect and store smart meter readings from the P1 port",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is <config dir>/meter_collector.toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := pathing.EnsureDirs(); err != nil {
		return err
	}

	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	logger.WithField("config", path).Info("Starting European Smart Meter collector")

	db, err := meterdb.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := ingest.NewPipeline(db, ingest.WithRecentCache(cfg.RecentCacheSize))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	source, err := feed.New(cfg.Feed.Options())
	if err != nil {
		return err
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := broadcast.NewHub(logger, reg)
	notifiers := []collector.Notifier{hub}

	if cfg.MQTT.Enabled {
		mqttPublisher, err := publisher.New(publisher.Options{
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
		}, logger)
		if err != nil {
			return err
		}
		defer mqttPublisher.Close()
		notifiers = append(notifiers, mqttPublisher)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Enabled {
		srv := &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serve(srv, logger, stop)
		defer shutdown(srv, logger)
	}

	c := &collector.Collector{
		Source:    source,
		Pipeline:  pipeline,
		Notifiers: notifiers,
		Interval:  cfg.PollInterval.Duration,
		Timeout:   cfg.Feed.Timeout.Duration,
		Logger:    logger,
		Metrics:   collector.NewMetrics(reg),
	}
	logger.WithFields(logrus.Fields{
		"feed":     cfg.Feed.Kind,
		"interval": cfg.PollInterval.Duration.String(),
	}).Info("Polling meter")

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shutting down")
	return nil
}

func serve(srv *http.Server, logger logrus.FieldLogger, stop context.CancelFunc) {
	logger.Infof("Serving live readings on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("HTTP server failed")
		stop()
	}
}

func shutdown(srv *http.Server, logger logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown")
	}
}
