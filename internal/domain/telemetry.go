package domain

import (
	"context"
	"time"
)

// Rating classifies a measured value against the threshold table.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// Threshold holds the inclusive ceilings for a metric. Values at or below
// Good rate "good", at or below NeedsImprovement rate "needs-improvement",
// anything above rates "poor".
type Threshold struct {
	Good             float64
	NeedsImprovement float64
}

// Thresholds maps metric names to their quality ceilings. Read-only; metrics
// without an entry default to a "good" rating.
var Thresholds = map[string]Threshold{
	// Web vitals (milliseconds, except cls which is a unitless score).
	"fcp": {Good: 1800, NeedsImprovement: 3000},
	"lcp": {Good: 2500, NeedsImprovement: 4000},
	"fid": {Good: 100, NeedsImprovement: 300},
	"cls": {Good: 0.1, NeedsImprovement: 0.25},

	// User-triggered operations (milliseconds).
	MarkPageLoad:     {Good: 1000, NeedsImprovement: 3000},
	MarkFilterChange: {Good: 100, NeedsImprovement: 300},
	MarkPagination:   {Good: 200, NeedsImprovement: 500},
	MarkModalOpen:    {Good: 100, NeedsImprovement: 300},

	// Data fetches measured by page collaborators.
	"alertsFetchTime": {Good: 200, NeedsImprovement: 500},
	"tradesFetchTime": {Good: 200, NeedsImprovement: 500},
}

// Mark names used to bracket user-triggered operations.
const (
	MarkPageLoad     = "page-load"
	MarkFilterChange = "filter-change"
	MarkPagination   = "pagination"
	MarkModalOpen    = "modal-open"
)

// Canonical event names. Collaborators and downstream analytics consumers
// agree on these identifiers; specialized tracking methods never emit
// anything outside this catalogue (except feature events, which use the
// "feature_" prefix plus the action kind).
const (
	EventPageView       = "page_view"
	EventPageExit       = "page_exit"
	EventAlertViewed    = "alert_viewed"
	EventAlertClicked   = "alert_clicked"
	EventAlertCopied    = "alert_copied"
	EventNotesToggled   = "notes_toggled"
	EventFilterApplied  = "filter_applied"
	EventFilterComplete = "filter_completed"
	EventPageChange     = "page_change"
	EventPageChangeDone = "page_change_completed"
	EventTradeViewed    = "trade_viewed"
	EventPositionAction = "position_action"
	EventModalOpen      = "modal_open"
	EventModalClose     = "modal_close"
	EventVideoStarted   = "video_started"
	EventVideoCompleted = "video_completed"
	EventSlowLoad       = "slow_load"
	EventClientError    = "client_error"
	EventAdminAction    = "admin_action"
	EventWebVital       = "web_vital"

	FeatureEventPrefix = "feature_"
)

// Interaction categories.
const (
	CategoryNavigation  = "navigation"
	CategoryAlerts      = "alerts"
	CategoryTrades      = "trades"
	CategoryFilters     = "filters"
	CategoryUI          = "ui"
	CategoryEngagement  = "engagement"
	CategoryPerformance = "performance"
	CategoryErrors      = "errors"
	CategoryAdmin       = "admin"
)

// Interaction is a structured user action handed to the tracker. Label,
// Value and Metadata are optional and only forwarded when set.
type Interaction struct {
	Category string
	Action   string
	Label    string
	Value    float64
	Metadata map[string]interface{}
}

// SessionMetrics is a point-in-time view of the live session counters. It is
// recomputed on demand and never cached.
type SessionMetrics struct {
	SessionID         string  `json:"session_id"`
	PageViews         int     `json:"page_views"`
	Interactions      int     `json:"interactions"`
	AlertsViewed      int     `json:"alerts_viewed"`
	TradesViewed      int     `json:"trades_viewed"`
	FiltersApplied    int     `json:"filters_applied"`
	ModalsOpened      int     `json:"modals_opened"`
	SessionDurationMs float64 `json:"session_duration_ms"`
}

// FeatureUsage is one append-only record of a product feature being
// exercised. Retained in memory for the session only.
type FeatureUsage struct {
	Feature    string    `json:"feature"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs float64   `json:"duration_ms,omitempty"`
	Success    *bool     `json:"success,omitempty"`
}

// MetricStats summarizes one metric's duration history.
type MetricStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
	Rating  Rating  `json:"rating"`
}

// PerformanceReport is the serializable export of every tracked metric plus
// the current web-vitals snapshot.
type PerformanceReport struct {
	Metrics     map[string]MetricStats `json:"metrics"`
	WebVitals   map[string]float64     `json:"web_vitals"`
	GeneratedAt int64                  `json:"generated_at"`
}

// Event is a fully-formed telemetry event as delivered to a sink.
type Event struct {
	ID        int64                  `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Timestamp int64                  `json:"timestamp"`
	SessionID string                 `json:"session_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Sink receives fully-formed event payloads. Calls are fire-and-forget: a
// sink must be non-blocking from the tracker's perspective and must swallow
// its own delivery failures.
type Sink interface {
	Track(name string, payload map[string]interface{})
}

// EventStore persists and queries telemetry events.
type EventStore interface {
	Init() error
	StoreEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, startTime, endTime int64, limit, offset int) ([]Event, error)
	Close() error
}
