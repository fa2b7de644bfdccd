package tracking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telemetry-app/internal/domain"
	"telemetry-app/internal/perf"
)

type sinkCall struct {
	name    string
	payload map[string]interface{}
}

type mockSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *mockSink) Track(name string, payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{name: name, payload: payload})
}

func (s *mockSink) Calls() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sinkCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *mockSink) Last() sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTracker() (*Tracker, *mockSink, *perf.Monitor, *fakeClock) {
	clock := newFakeClock()
	monitor := perf.NewMonitor(nil, nil)
	monitor.SetClock(clock.Now)
	sink := &mockSink{}
	tracker := NewTracker(monitor, sink, nil)
	tracker.SetClock(clock.Now)
	return tracker, sink, monitor, clock
}

func TestTrackInteraction_Enrichment(t *testing.T) {
	tracker, sink, _, clock := newTestTracker()

	clock.Advance(2 * time.Second)
	tracker.TrackInteraction(domain.Interaction{
		Category: domain.CategoryAlerts,
		Action:   domain.EventAlertViewed,
		Label:    "AAPL",
	})

	calls := sink.Calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, domain.EventAlertViewed, calls[0].name)

	payload := calls[0].payload
	assert.Equal(t, domain.CategoryAlerts, payload["category"])
	assert.Equal(t, "AAPL", payload["label"])
	assert.Equal(t, 1, payload["interaction_count"])
	assert.Equal(t, 2000.0, payload["session_duration_ms"])
	assert.NotEmpty(t, payload["session_id"])

	tracker.TrackInteraction(domain.Interaction{Category: domain.CategoryUI, Action: domain.EventModalOpen})
	assert.Equal(t, 2, sink.Last().payload["interaction_count"], "Interaction count is monotonic within a session")
}

func TestTrackEvent_Wrapper(t *testing.T) {
	tracker, sink, _, _ := newTestTracker()

	tracker.TrackEvent(domain.CategoryEngagement, domain.EventVideoStarted, "intro", 0, map[string]interface{}{"source": "hero"})

	call := sink.Last()
	assert.Equal(t, domain.EventVideoStarted, call.name)
	assert.Equal(t, "intro", call.payload["label"])
	assert.Equal(t, "hero", call.payload["source"])
	assert.Equal(t, 1, tracker.SessionMetrics().Interactions)
}

func TestPageViewAndLeave(t *testing.T) {
	tracker, sink, monitor, clock := newTestTracker()

	tracker.TrackPageView("/dashboard")
	clock.Advance(150 * time.Millisecond)
	tracker.TrackPageLeave("/dashboard")

	assert.Equal(t, 1, monitor.Count(domain.MarkPageLoad), "Page view/leave records one page-load sample")
	sample := monitor.AverageTime(domain.MarkPageLoad)
	assert.GreaterOrEqual(t, sample, 140.0)
	assert.LessOrEqual(t, sample, 200.0)

	leave := sink.Last()
	assert.Equal(t, domain.EventPageExit, leave.name)
	assert.Equal(t, 150.0, leave.payload["time_on_page_ms"])

	session, ok := leave.payload["session_metrics"].(domain.SessionMetrics)
	assert.True(t, ok, "Page exit embeds the session snapshot")
	assert.Equal(t, 1, session.PageViews)
}

func TestFilterPair(t *testing.T) {
	tracker, sink, monitor, clock := newTestTracker()

	tracker.TrackFilterApplied("status", "open")
	clock.Advance(40 * time.Millisecond)
	tracker.TrackFilterCompleted()

	assert.Equal(t, 1, monitor.Count(domain.MarkFilterChange), "Exactly one filter-change sample")
	assert.GreaterOrEqual(t, monitor.AverageTime(domain.MarkFilterChange), 0.0)

	call := sink.Last()
	assert.Equal(t, domain.EventFilterComplete, call.name)
	assert.Equal(t, 40.0, call.payload["value"])
	assert.Equal(t, 1, tracker.SessionMetrics().FiltersApplied)
}

func TestFilterCompletedWithoutApplied(t *testing.T) {
	tracker, _, monitor, _ := newTestTracker()

	tracker.TrackFilterCompleted()

	assert.Equal(t, 0, monitor.Count(domain.MarkFilterChange), "Unmatched completion appends nothing")
	assert.Equal(t, 1, tracker.SessionMetrics().Interactions, "The event itself still fires")
}

func TestPaginationPair(t *testing.T) {
	tracker, sink, monitor, clock := newTestTracker()

	tracker.TrackPageChange(1, 2)
	clock.Advance(25 * time.Millisecond)
	tracker.TrackPageChangeCompleted()

	assert.Equal(t, 1, monitor.Count(domain.MarkPagination))
	assert.Equal(t, domain.EventPageChangeDone, sink.Last().name)
	assert.Equal(t, 25.0, sink.Last().payload["value"])
}

func TestModalPair(t *testing.T) {
	tracker, sink, monitor, clock := newTestTracker()

	tracker.TrackModalOpen("trade-details")
	clock.Advance(60 * time.Millisecond)
	tracker.TrackModalClose("trade-details")

	assert.Equal(t, 1, monitor.Count(domain.MarkModalOpen))
	assert.Equal(t, 60.0, sink.Last().payload["open_duration_ms"])
	assert.Equal(t, 1, tracker.SessionMetrics().ModalsOpened)
}

func TestDomainCounters(t *testing.T) {
	tracker, _, _, _ := newTestTracker()

	tracker.TrackAlertViewed("a1", "AAPL")
	tracker.TrackAlertViewed("a2", "TSLA")
	tracker.TrackTradeViewed("t1", "NVDA")

	session := tracker.SessionMetrics()
	assert.Equal(t, 2, session.AlertsViewed)
	assert.Equal(t, 1, session.TradesViewed)
	assert.Equal(t, 3, session.Interactions)
}

func TestTrackFeature(t *testing.T) {
	tracker, sink, _, _ := newTestTracker()

	tracker.TrackFeature("watchlist", "toggle", map[string]interface{}{"ticker": "SPY"})

	log := tracker.FeatureLog()
	assert.Len(t, log, 1)
	assert.Equal(t, "watchlist", log[0].Feature)
	assert.Equal(t, "toggle", log[0].Action)

	call := sink.Last()
	assert.Equal(t, "feature_toggle", call.name)
	assert.Equal(t, "SPY", call.payload["ticker"])

	assert.Equal(t, 0, tracker.SessionMetrics().Interactions, "Feature usage does not count as an interaction")
}

func TestResetSession(t *testing.T) {
	tracker, _, _, clock := newTestTracker()

	tracker.TrackPageView("/dashboard")
	tracker.TrackAlertViewed("a1", "AAPL")
	tracker.TrackFeature("notes", "open", nil)
	clock.Advance(5 * time.Second)

	before := tracker.SessionMetrics()
	assert.NotZero(t, before.Interactions)

	tracker.ResetSession()

	after := tracker.SessionMetrics()
	assert.Equal(t, 0, after.Interactions)
	assert.Equal(t, 0, after.PageViews)
	assert.Equal(t, 0, after.AlertsViewed)
	assert.Equal(t, 0.0, after.SessionDurationMs, "Session timer restarts on reset")
	assert.NotEqual(t, before.SessionID, after.SessionID, "Reset starts a new logical session")
	assert.Empty(t, tracker.FeatureLog())
}

func TestDisabledProbe(t *testing.T) {
	tracker, sink, monitor, _ := newTestTracker()
	tracker.SetEnabledProbe(func() bool { return false })

	tracker.TrackPageView("/dashboard")
	tracker.TrackAlertViewed("a1", "AAPL")
	tracker.TrackFilterApplied("status", "open")
	tracker.TrackFilterCompleted()
	tracker.TrackFeature("notes", "open", nil)
	tracker.TrackInteraction(domain.Interaction{Category: domain.CategoryUI, Action: domain.EventModalOpen})

	assert.Empty(t, sink.Calls(), "Disabled tracker must not reach the sink")
	assert.Equal(t, 0, monitor.Count(domain.MarkPageLoad), "Disabled tracker must not start marks")

	session := tracker.SessionMetrics()
	assert.Equal(t, 0, session.Interactions)
	assert.Equal(t, 0, session.PageViews)
	assert.Equal(t, 0, session.FiltersApplied)
}

func TestSlowLoadAndError(t *testing.T) {
	tracker, sink, _, _ := newTestTracker()

	tracker.TrackSlowLoad("alerts-table", 3200)
	assert.Equal(t, domain.EventSlowLoad, sink.Last().name)
	assert.Equal(t, 3200.0, sink.Last().payload["value"])

	tracker.TrackClientError("network", "fetch aborted")
	assert.Equal(t, domain.EventClientError, sink.Last().name)
	assert.Equal(t, "fetch aborted", sink.Last().payload["message"])
}

func TestEnabledProbeConcurrentSwap(t *testing.T) {
	tracker, sink, _, _ := newTestTracker()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tracker.TrackInteraction(domain.Interaction{Category: domain.CategoryUI, Action: "click"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			enabled := j%2 == 0
			tracker.SetEnabledProbe(func() bool { return enabled })
		}
	}()
	wg.Wait()

	tracker.SetEnabledProbe(func() bool { return true })
	tracker.TrackInteraction(domain.Interaction{Category: domain.CategoryUI, Action: "final"})
	assert.Equal(t, "final", sink.Last().name, "Tracker stays usable after concurrent probe swaps")
}
