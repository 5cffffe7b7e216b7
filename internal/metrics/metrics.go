//nolint:gochecknoglobals // prometheus metrics and global state
package metrics

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const defaultService = "dobson"

var (
	ProbesTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "presence_probes_total",
			Help: "Router scans by outcome (Counter). outcome=success|error.",
		},
		[]string{"service", "driver", "outcome"},
	)
	ProbeDuration = promauto.NewHistogramVec(prom.HistogramOpts{
		Name:    "presence_probe_duration_seconds",
		Help:    "Router scan duration in seconds (Histogram).",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service"})
	ProbeCacheTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "presence_probe_cache_total",
			Help: "Scan cache lookups (Counter). result=hit|miss.",
		},
		[]string{"service", "result"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "chat_commands_total",
			Help: "Chat commands handled (Counter). command=help|who|list_unknown.",
		},
		[]string{"service", "command"},
	)
	RepliesTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "chat_replies_total",
			Help: "Replies posted by outcome (Counter). outcome=sent|error.",
		},
		[]string{"service", "outcome"},
	)
	TransportReconnectsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "chat_transport_reconnects_total",
			Help: "Chat transport reconnects after an error (Counter).",
		},
		[]string{"service"},
	)

	RegistryDevices = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "registry_devices",
			Help: "Number of known devices (Gauge).",
		},
		[]string{"service"},
	)
	RegistrationsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "registry_registrations_total",
			Help: "Registration attempts by outcome (Counter). outcome=added|exists|error.",
		},
		[]string{"service", "outcome"},
	)

	PresentDevices = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "presence_present_devices",
			Help: "Tracked devices seen by the last scan (Gauge).",
		},
		[]string{"service"},
	)
	UnknownDevices = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "presence_unknown_devices",
			Help: "Unregistered devices seen by the last scan (Gauge).",
		},
		[]string{"service"},
	)

	AdminRequestsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Admin HTTP requests handled (Counter). Labels: service, method, route, status.",
		},
		[]string{"service", "method", "route", "status"},
	)
	ReadyGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "service_ready",
			Help: "Service readiness: 1=ready, 0=not ready (Gauge).",
		},
		[]string{"service"},
	)
)

var readyFlag int32 //nolint:gochecknoglobals // service ready flag

var serviceName atomic.Value //nolint:gochecknoglobals // service name // string

// SetService sets the service label value (default: dobson).
func SetService(name string) { serviceName.Store(name) }

func Service() string {
	if v := serviceName.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	return defaultService
}

// RegisterCollectors registers default Go and process collectors.
// Should be called once during program startup (e.g., in cmd).
func RegisterCollectors() {
	registerDefault(collectors.NewGoCollector())
	registerDefault(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func registerDefault(c prom.Collector) {
	if err := prom.Register(c); err != nil {
		var are prom.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		// best-effort: ignore unexpected errors to avoid panics in init
	}
}

// ObserveProbe records one router scan.
func ObserveProbe(driver string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	s := Service()
	ProbesTotal.WithLabelValues(s, driver, outcome).Inc()
	ProbeDuration.WithLabelValues(s).Observe(d.Seconds())
}

// RecordProbeCache counts a scan cache hit or miss.
func RecordProbeCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	ProbeCacheTotal.WithLabelValues(Service(), result).Inc()
}

// RecordCommand counts a dispatched chat command.
func RecordCommand(command string) {
	CommandsTotal.WithLabelValues(Service(), command).Inc()
}

// RecordReply counts a posted reply.
func RecordReply(err error) {
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}

	RepliesTotal.WithLabelValues(Service(), outcome).Inc()
}

// RecordReconnect counts a transport reconnect.
func RecordReconnect() {
	TransportReconnectsTotal.WithLabelValues(Service()).Inc()
}

// SetRegistrySize publishes the number of known devices.
func SetRegistrySize(n int) {
	RegistryDevices.WithLabelValues(Service()).Set(float64(n))
}

// RecordRegistration counts a registration attempt. outcome=added|exists|error.
func RecordRegistration(outcome string) {
	RegistrationsTotal.WithLabelValues(Service(), outcome).Inc()
}

// SetPresence publishes the sizes of the last presence result.
func SetPresence(present, unknown int) {
	s := Service()
	PresentDevices.WithLabelValues(s).Set(float64(present))
	UnknownDevices.WithLabelValues(s).Set(float64(unknown))
}

// RecordHTTP increments admin HTTP requests with OTEL-style labels.
func RecordHTTP(method, route string, status int) {
	AdminRequestsTotal.WithLabelValues(Service(), method, route, strconv.Itoa(status)).Inc()
}

// SetReady sets readiness and updates the gauge.
func SetReady(v bool) {
	if v {
		atomic.StoreInt32(&readyFlag, 1)
		ReadyGauge.WithLabelValues(Service()).Set(1)
	} else {
		atomic.StoreInt32(&readyFlag, 0)
		ReadyGauge.WithLabelValues(Service()).Set(0)
	}
}

// IsReady returns current readiness flag.
func IsReady() bool { return atomic.LoadInt32(&readyFlag) == 1 }

// Stats represents a lightweight analytics snapshot for the admin API.
type Stats struct {
	ProbesTotal          float64 `json:"probes_total"`
	ProbeErrorsTotal     float64 `json:"probe_errors_total"`
	ProbeAvgSeconds      float64 `json:"probe_avg_seconds"`
	ProbeCacheHitRate    float64 `json:"probe_cache_hit_rate"`
	CommandsTotal        float64 `json:"commands_total"`
	RepliesTotal         float64 `json:"replies_total"`
	ReconnectsTotal      float64 `json:"reconnects_total"`
	RegistryDevices      float64 `json:"registry_devices"`
	PresentDevices       float64 `json:"present_devices"`
	UnknownDevices       float64 `json:"unknown_devices"`
	ServiceReady         float64 `json:"service_ready"`
	RegistrationsTotal   float64 `json:"registrations_total"`
	RegistrationsAdded   float64 `json:"registrations_added"`
	RegistrationsRefused float64 `json:"registrations_refused"`
}

// GatherStats collects basic stats from the default registry for a given service label.
func GatherStats(service string) (Stats, error) { //nolint:gocognit,cyclop,funlen
	mfs, err := prom.DefaultGatherer.Gather()
	if err != nil {
		return Stats{}, err
	}

	var (
		s                      Stats
		probeSum, probeCount   float64
		cacheHits, cacheMisses float64
	)

	withService := func(m *dto.Metric) bool {
		return label(m, "service") == service
	}

	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if !withService(m) {
				continue
			}

			switch mf.GetName() {
			case "presence_probes_total":
				s.ProbesTotal += m.GetCounter().GetValue()
				if label(m, "outcome") == "error" {
					s.ProbeErrorsTotal += m.GetCounter().GetValue()
				}
			case "presence_probe_duration_seconds":
				h := m.GetHistogram()
				probeSum += h.GetSampleSum()
				probeCount += float64(h.GetSampleCount())
			case "presence_probe_cache_total":
				if label(m, "result") == "hit" {
					cacheHits += m.GetCounter().GetValue()
				} else {
					cacheMisses += m.GetCounter().GetValue()
				}
			case "chat_commands_total":
				s.CommandsTotal += m.GetCounter().GetValue()
			case "chat_replies_total":
				s.RepliesTotal += m.GetCounter().GetValue()
			case "chat_transport_reconnects_total":
				s.ReconnectsTotal += m.GetCounter().GetValue()
			case "registry_devices":
				s.RegistryDevices = m.GetGauge().GetValue()
			case "registry_registrations_total":
				s.RegistrationsTotal += m.GetCounter().GetValue()
				switch label(m, "outcome") {
				case "added":
					s.RegistrationsAdded += m.GetCounter().GetValue()
				case "exists":
					s.RegistrationsRefused += m.GetCounter().GetValue()
				}
			case "presence_present_devices":
				s.PresentDevices = m.GetGauge().GetValue()
			case "presence_unknown_devices":
				s.UnknownDevices = m.GetGauge().GetValue()
			case "service_ready":
				s.ServiceReady = m.GetGauge().GetValue()
			}
		}
	}

	if probeCount > 0 {
		s.ProbeAvgSeconds = probeSum / probeCount
	}

	if cacheHits+cacheMisses > 0 {
		s.ProbeCacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return s, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}

	return ""
}
