package device

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsNamespace prefixes all device metrics.
const MetricsNamespace = "buspirate"

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves the metrics in reg.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics records what the Server does. A nil *Metrics records nothing.
type Metrics struct {
	FramesReceived   prometheus.Counter
	FramesSent       prometheus.Counter
	CodecErrors      *prometheus.CounterVec   // labels: kind
	Commands         *prometheus.CounterVec   // labels: command, result
	DispatchDuration *prometheus.HistogramVec // labels: command
}

// NewMetrics creates and registers Metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "frames_received_total",
			Help:      "Frames received from the host.",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "frames_sent_total",
			Help:      "Frames sent to the host.",
		}),
		CodecErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "codec_errors_total",
			Help:      "Frames rejected by the codec.",
		}, []string{"kind"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "commands_total",
			Help:      "Commands dispatched by command and result.",
		}, []string{"command", "result"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching a command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	reg.MustRegister(m.FramesReceived, m.FramesSent, m.CodecErrors, m.Commands, m.DispatchDuration)
	return m
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.FramesReceived.Inc()
	}
}

func (m *Metrics) frameSent() {
	if m != nil {
		m.FramesSent.Inc()
	}
}

func (m *Metrics) codecError(kind string) {
	if m != nil {
		m.CodecErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) command(command, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, result).Inc()
	m.DispatchDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}
