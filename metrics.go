package tda

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	pollResultSuccess = "success"
	pollResultFailure = "failure"
	pollResultSkipped = "skipped"
)

// metrics collects the polling health of the adapter, it is only exposed if registered by WithMetricsRegisterer.
type metrics struct {
	polls       *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	devices     prometheus.GaugeFunc
}

func newMetrics(g *Gateway) *metrics {
	return &metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tda_device_polls_total",
			Help: "Data point refreshes performed by the poller, by result",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tda_device_last_poll_success_timestamp_seconds",
			Help: "Last successful data point refresh of a device (epoch seconds)",
		}, []string{"device"}),
		devices: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tda_devices",
			Help: "Devices currently added to the adapter",
		}, func() float64 {
			return float64(len(g.getDevices()))
		}),
	}
}

func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	m.polls.Describe(ch)
	m.lastSuccess.Describe(ch)
	m.devices.Describe(ch)
}

func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	m.polls.Collect(ch)
	m.lastSuccess.Collect(ch)
	m.devices.Collect(ch)
}

// WithMetricsRegisterer exposes the adapter's polling metrics through a prometheus registerer.
func (g *Gateway) WithMetricsRegisterer(r prometheus.Registerer) error {
	return r.Register(g.metrics)
}
