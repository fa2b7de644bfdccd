// Package perf measures operation durations and browser-reported quality
// signals, aggregates them, and classifies values against the threshold
// table. Every method is total: misuse (unmatched marks, unknown metric
// names, a substrate without a capability) degrades to zero values instead
// of failing.
package perf

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"telemetry-app/internal/domain"
	"telemetry-app/internal/util"
	"telemetry-app/internal/vitals"
)

// Monitor owns named timing marks, per-name duration histories and the
// aggregated web-vitals snapshot. Vitals entries may arrive on substrate
// goroutines, so all state is guarded by one mutex.
type Monitor struct {
	mu      sync.Mutex
	now     func() time.Time
	logger  *util.TelemetryLogger
	marks   map[string]time.Time
	history map[string][]float64
	vitals  map[string]float64
	cancels []vitals.CancelFunc
}

// NewMonitor builds a Monitor and subscribes to the source's observation
// categories. Each subscription is independently optional: an unsupported
// category is logged at debug level and skipped while the rest proceed.
func NewMonitor(source vitals.Source, logger *util.TelemetryLogger) *Monitor {
	m := &Monitor{
		now:     time.Now,
		logger:  logger,
		marks:   make(map[string]time.Time),
		history: make(map[string][]float64),
		vitals:  make(map[string]float64),
	}
	if source != nil {
		m.observe(source)
	}
	return m
}

// SetClock replaces the monitor's time source. Intended for tests.
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Monitor) observe(source vitals.Source) {
	subscriptions := []struct {
		category vitals.Category
		handler  func(vitals.Entry)
	}{
		{vitals.CategoryPaint, m.onPaint},
		{vitals.CategoryLCP, m.onLCP},
		{vitals.CategoryFirstInput, m.onFirstInput},
		{vitals.CategoryLayoutShift, m.onLayoutShift},
	}

	for _, sub := range subscriptions {
		cancel, err := source.Subscribe(sub.category, sub.handler)
		if err != nil {
			m.logDebug(fmt.Sprintf("vitals category %q unavailable: %v", sub.category, err))
			continue
		}
		m.cancels = append(m.cancels, cancel)
	}
}

func (m *Monitor) onPaint(entry vitals.Entry) {
	if entry.Name != vitals.EntryFirstContentfulPaint {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vitals[vitals.VitalFCP] = entry.StartTime
}

// onLCP keeps the latest candidate; the substrate revises LCP as larger
// elements render.
func (m *Monitor) onLCP(entry vitals.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vitals[vitals.VitalLCP] = entry.StartTime
}

func (m *Monitor) onFirstInput(entry vitals.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vitals[vitals.VitalFID] = entry.ProcessingStart - entry.StartTime
}

// onLayoutShift accumulates a running sum; shifts right after user input do
// not count against layout stability.
func (m *Monitor) onLayoutShift(entry vitals.Entry) {
	if entry.HadRecentInput {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vitals[vitals.VitalCLS] += entry.Value
}

// StartMark records the current timestamp under name. A second StartMark
// for the same name before EndMark overwrites the pending start
// (last-start-wins).
func (m *Monitor) StartMark(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[name] = m.now()
}

// EndMark computes the elapsed milliseconds since the matching StartMark,
// appends the sample to the name's history and clears the pending mark.
// Without a matching start it returns 0 and appends nothing.
func (m *Monitor) EndMark(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	start, ok := m.marks[name]
	if !ok {
		return 0
	}
	delete(m.marks, name)

	elapsed := float64(m.now().Sub(start)) / float64(time.Millisecond)
	m.history[name] = append(m.history[name], elapsed)
	return elapsed
}

// Record appends a duration sample observed outside a mark pair, e.g. by
// request middleware that times concurrent operations itself.
func (m *Monitor) Record(name string, durationMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[name] = append(m.history[name], durationMs)
}

// Measure runs fn bracketed by StartMark/EndMark. The closing mark lands on
// every exit path and fn's outcome is passed through unchanged.
func (m *Monitor) Measure(name string, fn func() error) error {
	m.StartMark(name)
	defer m.EndMark(name)
	return fn()
}

// MeasureCtx is Measure for context-aware operations.
func (m *Monitor) MeasureCtx(ctx context.Context, name string, fn func(context.Context) error) error {
	m.StartMark(name)
	defer m.EndMark(name)
	return fn(ctx)
}

// AverageTime returns the mean duration for name, or 0 when no samples
// exist.
func (m *Monitor) AverageTime(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := m.history[name]
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

func (m *Monitor) MinTime(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := m.history[name]
	if len(samples) == 0 {
		return 0
	}
	min := samples[0]
	for _, s := range samples[1:] {
		if s < min {
			min = s
		}
	}
	return min
}

func (m *Monitor) MaxTime(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := m.history[name]
	if len(samples) == 0 {
		return 0
	}
	max := samples[0]
	for _, s := range samples[1:] {
		if s > max {
			max = s
		}
	}
	return max
}

func (m *Monitor) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[name])
}

func (m *Monitor) P95Time(name string) float64 {
	return m.percentile(name, 0.95)
}

func (m *Monitor) P99Time(name string) float64 {
	return m.percentile(name, 0.99)
}

// percentile sorts a copy of the history ascending and indexes at
// floor(count*q), clamped to the last valid index. Not interpolated.
func (m *Monitor) percentile(name string, q float64) float64 {
	m.mu.Lock()
	samples := m.history[name]
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	m.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Rating classifies a value against the threshold table. With no explicit
// value the metric's current average is used. Metrics without a threshold
// entry rate "good": unknown metrics are assumed acceptable, not flagged.
func (m *Monitor) Rating(name string, value ...float64) domain.Rating {
	var v float64
	if len(value) > 0 {
		v = value[0]
	} else {
		v = m.AverageTime(name)
	}

	threshold, ok := domain.Thresholds[name]
	if !ok {
		return domain.RatingGood
	}

	switch {
	case v <= threshold.Good:
		return domain.RatingGood
	case v <= threshold.NeedsImprovement:
		return domain.RatingNeedsImprovement
	default:
		return domain.RatingPoor
	}
}

// Export produces a serializable snapshot of every tracked metric's
// statistics plus the current web-vitals snapshot.
func (m *Monitor) Export() domain.PerformanceReport {
	m.mu.Lock()
	names := make([]string, 0, len(m.history))
	for name := range m.history {
		names = append(names, name)
	}
	webVitals := make(map[string]float64, len(m.vitals))
	for k, v := range m.vitals {
		webVitals[k] = v
	}
	generatedAt := m.now().UnixMilli()
	m.mu.Unlock()

	metrics := make(map[string]domain.MetricStats, len(names))
	for _, name := range names {
		metrics[name] = domain.MetricStats{
			Count:   m.Count(name),
			Average: m.AverageTime(name),
			Min:     m.MinTime(name),
			Max:     m.MaxTime(name),
			P95:     m.P95Time(name),
			P99:     m.P99Time(name),
			Rating:  m.Rating(name),
		}
	}

	return domain.PerformanceReport{
		Metrics:     metrics,
		WebVitals:   webVitals,
		GeneratedAt: generatedAt,
	}
}

// WebVitals returns a copy of the current vitals snapshot. A value read
// shortly after page load may predate the substrate's next notification;
// that staleness is accepted.
func (m *Monitor) WebVitals() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.vitals))
	for k, v := range m.vitals {
		out[k] = v
	}
	return out
}

// ClearHistory drops the duration history for one name. The pending mark,
// if any, is kept.
func (m *Monitor) ClearHistory(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, name)
}

// ClearAll drops every duration history and pending mark.
func (m *Monitor) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks = make(map[string]time.Time)
	m.history = make(map[string][]float64)
}

// Destroy cancels all active subscriptions and clears all stored state.
// The instance stays usable afterwards, behaving as freshly constructed
// except the subscriptions are not re-created.
func (m *Monitor) Destroy() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.marks = make(map[string]time.Time)
	m.history = make(map[string][]float64)
	m.vitals = make(map[string]float64)
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (m *Monitor) logDebug(msg string) {
	if m.logger == nil {
		return
	}
	m.logger.LogEvent(util.LOG_LEVEL_DEBUG, msg)
}
