package stdout

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"trailingest/internal/domain/observability"
)

// Metrics prints metric updates to stdout and keeps them in memory so tests
// can assert on recorded values without scraping anything.
type Metrics struct {
	mu         sync.Mutex
	tags       map[string]string
	counters   map[string]float64
	histograms map[string][]float64
	gauges     map[string]float64
	quiet      bool
}

// NewMetrics creates a stdout metrics recorder. When quiet is true nothing
// is printed, which keeps test output clean while values stay inspectable.
func NewMetrics(quiet bool) *Metrics {
	return &Metrics{
		tags:       map[string]string{},
		counters:   map[string]float64{},
		histograms: map[string][]float64{},
		gauges:     map[string]float64{},
		quiet:      quiet,
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	key := m.metricKey(name, tags)
	m.mu.Lock()
	m.counters[key]++
	v := m.counters[key]
	m.mu.Unlock()
	m.emit("counter", key, v)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	key := m.metricKey(name, tags)
	m.mu.Lock()
	m.histograms[key] = append(m.histograms[key], value)
	m.mu.Unlock()
	m.emit("histogram", key, value)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	key := m.metricKey(name, tags)
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
	m.emit("gauge", key, value)
}

// WithTags returns a recorder that adds the given tags to every metric.
// Recordings are routed through the parent so all scoped recorders feed the
// same store under the same lock.
func (m *Metrics) WithTags(tags map[string]string) observability.Metrics {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return &sharedMetrics{parent: m, tags: merged}
}
type sharedMetrics struct {
	parent *Metrics
	tags   map[string]string
}

func (s *sharedMetrics) IncrementCounter(name string, tags map[string]string) {
	s.parent.IncrementCounter(name, s.merge(tags))
}

func (s *sharedMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	s.parent.RecordHistogram(name, value, s.merge(tags))
}

func (s *sharedMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	s.parent.RecordGauge(name, value, s.merge(tags))
}

func (s *sharedMetrics) WithTags(tags map[string]string) observability.Metrics {
	return &sharedMetrics{parent: s.parent, tags: s.merge(tags)}
}

func (s *sharedMetrics) merge(tags map[string]string) map[string]string {
	merged := make(map[string]string, len(s.tags)+len(tags))
	for k, v := range s.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return merged
}

// CounterValue returns the current value of a counter, keyed the same way
// recordings are. Intended for tests.
func (m *Metrics) CounterValue(name string, tags map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[m.metricKey(name, tags)]
}

// HistogramValues returns all recorded observations for a histogram.
func (m *Metrics) HistogramValues(name string, tags map[string]string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals := m.histograms[m.metricKey(name, tags)]
	out := make([]float64, len(vals))
	copy(out, vals)
	return out
}

// GaugeValue returns the last recorded value of a gauge.
func (m *Metrics) GaugeValue(name string, tags map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[m.metricKey(name, tags)]
}

// Reset clears all recorded values.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = map[string]float64{}
	m.histograms = map[string][]float64{}
	m.gauges = map[string]float64{}
}

func (m *Metrics) metricKey(name string, tags map[string]string) string {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	if len(merged) == 0 {
		return name
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&sb, ",%s=%s", k, merged[k])
	}
	return sb.String()
}

func (m *Metrics) emit(kind, key string, value float64) {
	if m.quiet {
		return
	}
	fmt.Fprintf(os.Stdout, "METRIC %s %s value=%g\n", kind, key, value)
}
