package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

const metricPrefix = "esm_"

const (
	stageFetch = "fetch"
	stageParse = "parse"
	stageStore = "store"

	resultNew       = "new"
	resultDuplicate = "duplicate"
)

type Metrics struct {
	ticks        prometheus.Counter
	tickFailures *prometheus.CounterVec
	readings     *prometheus.CounterVec
	lastEnergy   *prometheus.GaugeVec
}

// NewMetrics registers the collector metrics on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "collector_ticks_total",
			Help: "Total poll ticks",
		}),
		tickFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "collector_tick_failures_total",
				Help: "Failed poll ticks by stage",
			},
			[]string{"stage"},
		),
		readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "collector_readings_total",
				Help: "Parsed readings by ingest result",
			},
			[]string{"result"},
		),
		lastEnergy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "meter_energy_joules",
				Help: "Net register value of the last stored reading",
			},
			[]string{"tariff"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.tickFailures, m.readings, m.lastEnergy)
	}
	return m
}

func (m *Metrics) observeTick() {
	m.ticks.Inc()
}

func (m *Metrics) observeFailure(stage string) {
	m.tickFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) observeReadings(parsed int, fresh []types.Reading) {
	m.readings.WithLabelValues(resultNew).Add(float64(len(fresh)))
	m.readings.WithLabelValues(resultDuplicate).Add(float64(parsed - len(fresh)))
	for _, r := range fresh {
		m.lastEnergy.WithLabelValues(r.Tariff.String()).Set(float64(r.Energy))
	}
}
