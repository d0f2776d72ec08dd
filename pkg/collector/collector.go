// Package collector polls a telegram feed and pushes every new reading
// through the ingestion pipeline.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NotCoffee418/european_smart_meter/pkg/feed"
	"github.com/NotCoffee418/european_smart_meter/pkg/ingest"
	"github.com/NotCoffee418/european_smart_meter/pkg/telegram"
	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// Notifier is told about readings that were newly persisted.
type Notifier interface {
	Notify(r types.Reading)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(types.Reading)

func (f NotifierFunc) Notify(r types.Reading) { f(r) }

// TickError tells which stage of a tick failed.
type TickError struct {
	Stage string
	Err   error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *TickError) Unwrap() error { return e.Err }

type Collector struct {
	Source    feed.Source
	Pipeline  *ingest.Pipeline
	Notifiers []Notifier
	// Interval between ticks. It also bounds a single fetch unless Timeout
	// is set.
	Interval time.Duration
	Timeout  time.Duration
	Logger   logrus.FieldLogger
	Metrics  *Metrics
	// Clock stamps parsed readings. Defaults to time.Now.
	Clock func() time.Time

	defaultsOnce sync.Once
}

// setDefaults fills unset fields once. Fields must not be changed after the
// first Tick or Run.
func (c *Collector) setDefaults() {
	c.defaultsOnce.Do(func() {
		if c.Logger == nil {
			c.Logger = logrus.StandardLogger()
		}
		if c.Metrics == nil {
			c.Metrics = NewMetrics(nil)
		}
		if c.Clock == nil {
			c.Clock = time.Now
		}
	})
}

// Tick fetches one telegram, parses it and ingests its readings. Notifiers
// see only the readings that were not stored before. A telegram that fails
// to parse stores nothing.
func (c *Collector) Tick(ctx context.Context) ([]types.Reading, error) {
	c.setDefaults()
	m := c.Metrics
	m.observeTick()

	fetchCtx := ctx
	if timeout := c.tickTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := c.Source.Fetch(fetchCtx)
	if err != nil {
		m.observeFailure(stageFetch)
		return nil, &TickError{Stage: stageFetch, Err: err}
	}

	readings, err := telegram.Parse(raw, c.Clock())
	if err != nil {
		m.observeFailure(stageParse)
		return nil, &TickError{Stage: stageParse, Err: err}
	}

	fresh, err := c.Pipeline.IngestAll(ctx, readings)
	m.observeReadings(len(readings), fresh)
	for _, r := range fresh {
		c.Logger.WithFields(logrus.Fields{
			"tariff":     r.Tariff.String(),
			"energy_kwh": r.Energy.Kwh().String(),
		}).Debug("stored reading")
		for _, n := range c.Notifiers {
			n.Notify(r)
		}
	}
	if err != nil {
		m.observeFailure(stageStore)
		return fresh, &TickError{Stage: stageStore, Err: err}
	}
	return fresh, nil
}

func (c *Collector) tickTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return c.Interval
}

// Run ticks immediately and then once per Interval until ctx is done. Failed
// ticks are logged and the loop carries on.
func (c *Collector) Run(ctx context.Context) error {
	c.setDefaults()
	if c.Interval <= 0 {
		return fmt.Errorf("collector interval must be positive, got %s", c.Interval)
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		if _, err := c.Tick(ctx); err != nil && ctx.Err() == nil {
			entry := c.Logger.WithError(err)
			var tickErr *TickError
			if errors.As(err, &tickErr) {
				entry = entry.WithField("stage", tickErr.Stage)
			}
			entry.Warn("poll tick failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
