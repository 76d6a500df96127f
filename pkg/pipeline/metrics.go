package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for a decode pipeline.
type Metrics struct {
	recordsTotal     prometheus.Counter
	parseErrorsTotal prometheus.Counter
	bytesReadTotal   prometheus.Counter
	channelDepth     prometheus.Gauge
}

// NewMetrics creates and registers pipeline metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		recordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marcstream_pipeline_records_total",
			Help: "Total number of records decoded successfully",
		}),
		parseErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marcstream_pipeline_parse_errors_total",
			Help: "Total number of records that failed to decode",
		}),
		bytesReadTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marcstream_pipeline_bytes_read_total",
			Help: "Total bytes consumed from the byte source",
		}),
		channelDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marcstream_pipeline_channel_depth",
			Help: "Decoded records currently buffered for the consumer",
		}),
	}
}

func (m *Metrics) recordResult(failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.parseErrorsTotal.Inc()
	} else {
		m.recordsTotal.Inc()
	}
}

func (m *Metrics) addBytes(n int) {
	if m == nil {
		return
	}
	m.bytesReadTotal.Add(float64(n))
}

func (m *Metrics) setDepth(n int) {
	if m == nil {
		return
	}
	m.channelDepth.Set(float64(n))
}
