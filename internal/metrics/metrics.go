// Package metrics exposes engine dispatch activity as Prometheus metrics.
//
// An Observer plugs into engine.WithObserver. It registers on its own
// registry by default, so several analyses in one process share counters
// without touching the global default registry.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
)

// Observer counts dispatch activity. It is safe for concurrent use by many
// runs.
type Observer struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	eventsDispatched   *prometheus.CounterVec
	handlerInvocations *prometheus.CounterVec
	handlerFaults      *prometheus.CounterVec
	malformedEvents    *prometheus.CounterVec
	runs               prometheus.Counter
	runDuration        prometheus.Histogram
}

var _ engine.Observer = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(o *Observer) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(o *Observer) {
		if subsystem != "" {
			o.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the run duration buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(o *Observer) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// WithRegistry registers the metrics on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *Observer) {
		if r != nil {
			o.registry = r
		}
	}
}

// NewObserver creates an observer and registers its metrics.
func NewObserver(opts ...Option) *Observer {
	o := &Observer{
		namespace: "combatlens",
		subsystem: "engine",
		buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(o.registry)
	o.eventsDispatched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Subsystem: o.subsystem,
		Name:      "events_dispatched_total",
		Help:      "Events dispatched to modules, including the terminal event",
	}, []string{"type"})
	o.handlerInvocations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Subsystem: o.subsystem,
		Name:      "handler_invocations_total",
		Help:      "Handler invocations per module",
	}, []string{"module"})
	o.handlerFaults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Subsystem: o.subsystem,
		Name:      "handler_faults_total",
		Help:      "Module faults by phase",
	}, []string{"module", "phase"})
	o.malformedEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Subsystem: o.subsystem,
		Name:      "malformed_events_total",
		Help:      "Subscription invocations skipped for missing event fields",
	}, []string{"module"})
	o.runs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: o.namespace,
		Subsystem: o.subsystem,
		Name:      "runs_total",
		Help:      "Completed runs",
	})
	o.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: o.namespace,
		Subsystem: o.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Wall time of one run's dispatch loop",
		Buckets:   o.buckets,
	})
	return o
}

// Registry returns the registry holding the observer's metrics.
func (o *Observer) Registry() *prometheus.Registry { return o.registry }

func (o *Observer) EventDispatched(ev event.Event) {
	o.eventsDispatched.WithLabelValues(string(ev.Type)).Inc()
}

func (o *Observer) HandlerInvoked(module engine.Handle, _ event.Event) {
	o.handlerInvocations.WithLabelValues(string(module)).Inc()
}

func (o *Observer) HandlerFaulted(fault *engine.HandlerFault) {
	o.handlerFaults.WithLabelValues(string(fault.Module), fault.Phase).Inc()
}

func (o *Observer) EventMalformed(err *engine.MalformedEventError) {
	o.malformedEvents.WithLabelValues(string(err.Module)).Inc()
}

func (o *Observer) RunCompleted(_ int, elapsed time.Duration) {
	o.runs.Inc()
	o.runDuration.Observe(elapsed.Seconds())
}

// Sample is one flattened counter value, or a histogram's observation count.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Samples gathers every metric into flat samples, sorted by name and then
// label values.
func (o *Observer) Samples() ([]Sample, error) {
	families, err := o.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			s := Sample{Name: fam.GetName(), Labels: labels(m)}
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return labelKey(out[i].Labels) < labelKey(out[j].Labels)
	})
	return out, nil
}

// Value returns the sample matching name and labels, or 0.
func (o *Observer) Value(name string, labels map[string]string) float64 {
	samples, err := o.Samples()
	if err != nil {
		return 0
	}
	for _, s := range samples {
		if s.Name == name && labelKey(s.Labels) == labelKey(labels) {
			return s.Value
		}
	}
	return 0
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func labelKey(l map[string]string) string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var key string
	for _, k := range keys {
		key += k + "=" + l[k] + ","
	}
	return key
}
