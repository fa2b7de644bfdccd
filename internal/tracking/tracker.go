// Package tracking converts domain-specific user actions into structured
// events, maintains session-scoped counters and delegates fine-grained
// timing to the perf monitor. Tracking methods never return errors to
// callers; telemetry must not break the product it instruments.
package tracking

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"telemetry-app/internal/domain"
	"telemetry-app/internal/perf"
	"telemetry-app/internal/util"
)

// Tracker owns the session counters and the feature-usage log. It forwards
// every structured event to the configured sink and starts/ends monitor
// marks around user-triggered operations.
type Tracker struct {
	mu      sync.Mutex
	monitor *perf.Monitor
	sink    domain.Sink
	logger  *util.TelemetryLogger
	enabled func() bool
	debug   bool
	now     func() time.Time

	sessionID      string
	sessionStart   time.Time
	pageViews      int
	interactions   int
	alertsViewed   int
	tradesViewed   int
	filtersApplied int
	modalsOpened   int
	features       []domain.FeatureUsage
}

func NewTracker(monitor *perf.Monitor, sink domain.Sink, logger *util.TelemetryLogger) *Tracker {
	now := time.Now
	return &Tracker{
		monitor:      monitor,
		sink:         sink,
		logger:       logger,
		enabled:      func() bool { return true },
		now:          now,
		sessionID:    uuid.NewString(),
		sessionStart: now(),
	}
}

// SetEnabledProbe replaces the environment check consulted at the top of
// every tracking method. When the probe reports false (server-side
// rendering, headless runs) the entire tracking surface is a no-op.
func (t *Tracker) SetEnabledProbe(probe func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if probe != nil {
		t.enabled = probe
	}
}

// isEnabled copies the probe under the lock before calling it, so a
// concurrent SetEnabledProbe never races with tracking methods.
func (t *Tracker) isEnabled() bool {
	t.mu.Lock()
	probe := t.enabled
	t.mu.Unlock()
	return probe()
}

// SetDebug toggles local diagnostic logging of every interaction. Sink
// payloads are unaffected.
func (t *Tracker) SetDebug(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.debug = on
}

// SetClock replaces the tracker's time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	t.sessionStart = now()
}

// TrackInteraction is the canonical tracking path: it increments the
// interaction counter, enriches the payload with session context and
// forwards the event to the sink.
func (t *Tracker) TrackInteraction(in domain.Interaction) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.interactions++
	count := t.interactions
	sessionID := t.sessionID
	elapsed := t.sessionDurationLocked()
	debug := t.debug
	t.mu.Unlock()

	payload := map[string]interface{}{
		"category":            in.Category,
		"action":              in.Action,
		"session_id":          sessionID,
		"interaction_count":   count,
		"session_duration_ms": elapsed,
	}
	if in.Label != "" {
		payload["label"] = in.Label
	}
	if in.Value != 0 {
		payload["value"] = in.Value
	}
	for k, v := range in.Metadata {
		payload[k] = v
	}

	t.sink.Track(in.Action, payload)

	if debug {
		t.logDebug(fmt.Sprintf("interaction %s/%s label=%q count=%d", in.Category, in.Action, in.Label, count))
	}
}

// TrackEvent is a convenience wrapper over TrackInteraction.
func (t *Tracker) TrackEvent(category, action, label string, value float64, metadata map[string]interface{}) {
	t.TrackInteraction(domain.Interaction{
		Category: category,
		Action:   action,
		Label:    label,
		Value:    value,
		Metadata: metadata,
	})
}

// TrackFeature appends to the feature-usage log and emits a feature event.
// It does not count as a user interaction.
func (t *Tracker) TrackFeature(feature, action string, metadata map[string]interface{}) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.features = append(t.features, domain.FeatureUsage{
		Feature:   feature,
		Action:    action,
		Timestamp: t.now(),
	})
	sessionID := t.sessionID
	elapsed := t.sessionDurationLocked()
	t.mu.Unlock()

	payload := map[string]interface{}{
		"feature":             feature,
		"session_id":          sessionID,
		"session_duration_ms": elapsed,
	}
	for k, v := range metadata {
		payload[k] = v
	}

	t.sink.Track(domain.FeatureEventPrefix+action, payload)
}

// TrackPageView opens the page-load mark; TrackPageLeave closes it.
func (t *Tracker) TrackPageView(page string) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.pageViews++
	t.mu.Unlock()

	t.monitor.StartMark(domain.MarkPageLoad)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryNavigation,
		Action:   domain.EventPageView,
		Label:    page,
	})
}

// TrackPageLeave closes the page-load mark and embeds the session snapshot
// so downstream analytics can attribute the whole visit.
func (t *Tracker) TrackPageLeave(page string) {
	if !t.isEnabled() {
		return
	}

	elapsed := t.monitor.EndMark(domain.MarkPageLoad)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryNavigation,
		Action:   domain.EventPageExit,
		Label:    page,
		Value:    elapsed,
		Metadata: map[string]interface{}{
			"time_on_page_ms": elapsed,
			"session_metrics": t.SessionMetrics(),
		},
	})
}

func (t *Tracker) TrackAlertViewed(alertID, ticker string) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.alertsViewed++
	t.mu.Unlock()

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryAlerts,
		Action:   domain.EventAlertViewed,
		Label:    ticker,
		Metadata: map[string]interface{}{"alert_id": alertID},
	})
}

func (t *Tracker) TrackAlertClicked(alertID, ticker string) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryAlerts,
		Action:   domain.EventAlertClicked,
		Label:    ticker,
		Metadata: map[string]interface{}{"alert_id": alertID},
	})
}

func (t *Tracker) TrackAlertCopied(alertID string) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryAlerts,
		Action:   domain.EventAlertCopied,
		Metadata: map[string]interface{}{"alert_id": alertID},
	})
}

func (t *Tracker) TrackNotesToggled(open bool) {
	label := "closed"
	if open {
		label = "open"
	}
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryEngagement,
		Action:   domain.EventNotesToggled,
		Label:    label,
	})
}

// TrackFilterApplied opens the filter-change mark; the collaborator is
// expected to call TrackFilterCompleted once the filtered view rendered.
// A forgotten closing call leaves one stale mark, nothing more.
func (t *Tracker) TrackFilterApplied(filter, value string) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.filtersApplied++
	t.mu.Unlock()

	t.monitor.StartMark(domain.MarkFilterChange)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryFilters,
		Action:   domain.EventFilterApplied,
		Label:    filter,
		Metadata: map[string]interface{}{"filter_value": value},
	})
}

func (t *Tracker) TrackFilterCompleted() {
	if !t.isEnabled() {
		return
	}

	elapsed := t.monitor.EndMark(domain.MarkFilterChange)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryFilters,
		Action:   domain.EventFilterComplete,
		Value:    elapsed,
	})
}

func (t *Tracker) TrackPageChange(fromPage, toPage int) {
	if !t.isEnabled() {
		return
	}

	t.monitor.StartMark(domain.MarkPagination)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryNavigation,
		Action:   domain.EventPageChange,
		Metadata: map[string]interface{}{
			"from_page": fromPage,
			"to_page":   toPage,
		},
	})
}

func (t *Tracker) TrackPageChangeCompleted() {
	if !t.isEnabled() {
		return
	}

	elapsed := t.monitor.EndMark(domain.MarkPagination)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryNavigation,
		Action:   domain.EventPageChangeDone,
		Value:    elapsed,
	})
}

func (t *Tracker) TrackTradeViewed(tradeID, ticker string) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.tradesViewed++
	t.mu.Unlock()

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryTrades,
		Action:   domain.EventTradeViewed,
		Label:    ticker,
		Metadata: map[string]interface{}{"trade_id": tradeID},
	})
}

func (t *Tracker) TrackPositionAction(action, ticker string) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryTrades,
		Action:   domain.EventPositionAction,
		Label:    ticker,
		Metadata: map[string]interface{}{"position_action": action},
	})
}

func (t *Tracker) TrackModalOpen(name string) {
	if !t.isEnabled() {
		return
	}

	t.mu.Lock()
	t.modalsOpened++
	t.mu.Unlock()

	t.monitor.StartMark(domain.MarkModalOpen)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryUI,
		Action:   domain.EventModalOpen,
		Label:    name,
	})
}

func (t *Tracker) TrackModalClose(name string) {
	if !t.isEnabled() {
		return
	}

	elapsed := t.monitor.EndMark(domain.MarkModalOpen)

	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryUI,
		Action:   domain.EventModalClose,
		Label:    name,
		Value:    elapsed,
		Metadata: map[string]interface{}{"open_duration_ms": elapsed},
	})
}

func (t *Tracker) TrackVideoStarted(videoID string) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryEngagement,
		Action:   domain.EventVideoStarted,
		Label:    videoID,
	})
}

func (t *Tracker) TrackVideoCompleted(videoID string, watchedSeconds float64) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryEngagement,
		Action:   domain.EventVideoCompleted,
		Label:    videoID,
		Value:    watchedSeconds,
	})
}

func (t *Tracker) TrackSlowLoad(resource string, durationMs float64) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryPerformance,
		Action:   domain.EventSlowLoad,
		Label:    resource,
		Value:    durationMs,
	})
}

func (t *Tracker) TrackClientError(kind, message string) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryErrors,
		Action:   domain.EventClientError,
		Label:    kind,
		Metadata: map[string]interface{}{"message": message},
	})
}

func (t *Tracker) TrackAdminAction(action, target string) {
	t.TrackInteraction(domain.Interaction{
		Category: domain.CategoryAdmin,
		Action:   domain.EventAdminAction,
		Label:    action,
		Metadata: map[string]interface{}{"target": target},
	})
}

// SessionMetrics derives a point-in-time snapshot from the live counters.
func (t *Tracker) SessionMetrics() domain.SessionMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	return domain.SessionMetrics{
		SessionID:         t.sessionID,
		PageViews:         t.pageViews,
		Interactions:      t.interactions,
		AlertsViewed:      t.alertsViewed,
		TradesViewed:      t.tradesViewed,
		FiltersApplied:    t.filtersApplied,
		ModalsOpened:      t.modalsOpened,
		SessionDurationMs: t.sessionDurationLocked(),
	}
}

// FeatureLog returns a copy of the feature-usage records for this session.
func (t *Tracker) FeatureLog() []domain.FeatureUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.FeatureUsage, len(t.features))
	copy(out, t.features)
	return out
}

// ResetSession starts a new logical session: fresh id, zeroed counters,
// cleared feature log, restarted timer. The monitor is untouched.
func (t *Tracker) ResetSession() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessionID = uuid.NewString()
	t.sessionStart = t.now()
	t.pageViews = 0
	t.interactions = 0
	t.alertsViewed = 0
	t.tradesViewed = 0
	t.filtersApplied = 0
	t.modalsOpened = 0
	t.features = nil
}

func (t *Tracker) sessionDurationLocked() float64 {
	return float64(t.now().Sub(t.sessionStart)) / float64(time.Millisecond)
}

func (t *Tracker) logDebug(msg string) {
	if t.logger == nil {
		return
	}
	t.logger.LogEvent(util.LOG_LEVEL_DEBUG, msg)
}
