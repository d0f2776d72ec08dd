package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/european_smart_meter/pkg/ingest"
	"github.com/NotCoffee418/european_smart_meter/pkg/logging"
	"github.com/NotCoffee418/european_smart_meter/pkg/meterdb"
	"github.com/NotCoffee418/european_smart_meter/pkg/telegram"
	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

const (
	telegramA = "/ISK5\n1-0:1.8.1(1.000*kWh)\n1-0:1.8.2(2.000*kWh)\n0-0:96.14.0(0001)\n!0000\n"
	telegramB = "/ISK5\n1-0:1.8.1(1.500*kWh)\n1-0:1.8.2(2.000*kWh)\n0-0:96.14.0(0001)\n!0000\n"
)

// scriptedSource replays responses and then keeps returning the last one.
type scriptedSource struct {
	mu        sync.Mutex
	responses []response
}

type response struct {
	raw string
	err error
}

func (s *scriptedSource) Fetch(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.raw), nil
}

type recorder struct {
	mu       sync.Mutex
	readings []types.Reading
}

func (r *recorder) Notify(reading types.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.readings)
}

func newCollector(t *testing.T, src *scriptedSource, rec *recorder) (*Collector, *meterdb.MemoryStore) {
	t.Helper()
	store := meterdb.NewMemoryStore()
	p, err := ingest.NewPipeline(store)
	require.NoError(t, err)

	at := time.Unix(1_700_000_000, 0)
	return &Collector{
		Source:    src,
		Pipeline:  p,
		Notifiers: []Notifier{rec},
		Interval:  10 * time.Millisecond,
		Logger:    logging.Discard(),
		Metrics:   NewMetrics(prometheus.NewRegistry()),
		Clock: func() time.Time {
			at = at.Add(time.Second)
			return at
		},
	}, store
}

func TestTickNotifiesOnlyNewReadings(t *testing.T) {
	src := &scriptedSource{responses: []response{{raw: telegramA}, {raw: telegramA}, {raw: telegramB}}}
	rec := &recorder{}
	c, store := newCollector(t, src, rec)
	ctx := context.Background()

	fresh, err := c.Tick(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	fresh, err = c.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	fresh, err = c.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, types.Normal, fresh[0].Tariff)
	assert.Equal(t, types.Joule(5_400_000), fresh[0].Energy)

	assert.Equal(t, 3, rec.count())
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, float64(3), testutil.ToFloat64(c.Metrics.ticks))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.Metrics.readings.WithLabelValues(resultNew)))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.Metrics.readings.WithLabelValues(resultDuplicate)))
	assert.Equal(t, float64(5_400_000), testutil.ToFloat64(c.Metrics.lastEnergy.WithLabelValues("normal")))
}

func TestTickFailureStages(t *testing.T) {
	boom := errors.New("meter unplugged")
	src := &scriptedSource{responses: []response{
		{err: boom},
		{raw: "/ISK5\n1-0:1.8.1(1.000*kWh)\n!0000\n"},
	}}
	rec := &recorder{}
	c, _ := newCollector(t, src, rec)

	_, err := c.Tick(context.Background())
	var tickErr *TickError
	require.ErrorAs(t, err, &tickErr)
	assert.Equal(t, stageFetch, tickErr.Stage)
	assert.ErrorIs(t, err, boom)

	_, err = c.Tick(context.Background())
	require.ErrorAs(t, err, &tickErr)
	assert.Equal(t, stageParse, tickErr.Stage)
	assert.ErrorIs(t, err, telegram.ErrMissingTariffIndicator)

	assert.Zero(t, rec.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Metrics.tickFailures.WithLabelValues(stageFetch)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Metrics.tickFailures.WithLabelValues(stageParse)))
}

func TestRunSurvivesFailingTicks(t *testing.T) {
	src := &scriptedSource{responses: []response{
		{err: errors.New("timeout")},
		{raw: "garbage"},
		{raw: telegramA},
	}}
	rec := &recorder{}
	c, _ := newCollector(t, src, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestRunRejectsZeroInterval(t *testing.T) {
	c := &Collector{}
	assert.Error(t, c.Run(context.Background()))
}

func TestConcurrentTicksWithDefaults(t *testing.T) {
	p, err := ingest.NewPipeline(meterdb.NewMemoryStore())
	require.NoError(t, err)
	c := &Collector{
		Source:   &scriptedSource{responses: []response{{raw: telegramA}}},
		Pipeline: p,
		Interval: time.Second,
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := c.Tick(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			fresh += len(stored)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, fresh)
	require.NotNil(t, c.Metrics)
	assert.Equal(t, float64(8), testutil.ToFloat64(c.Metrics.ticks))
}
