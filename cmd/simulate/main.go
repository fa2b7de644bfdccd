package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"telemetry-app/internal/perf"
	"telemetry-app/internal/repository"
	"telemetry-app/internal/tracking"
	"telemetry-app/internal/util"
	"telemetry-app/internal/vitals"
)

const dbPath = "../db/telemetry.db"

var tickers = []string{"AAPL", "TSLA", "NVDA", "SPY", "AMD"}

func main() {

	util.CheckAndCreateLogFolder("../db")

	eventStore := repository.NewSQLiteEventStore(dbPath)
	if err := eventStore.Init(); err != nil {
		log.Fatalf("Failed to initialize SQLite store for simulation: %v", err)
	}
	defer eventStore.Close()

	source := vitals.NewManualSource()
	monitor := perf.NewMonitor(source, nil)
	defer monitor.Destroy()

	tracker := tracking.NewTracker(monitor, eventStore, nil)

	emitPageVitals(source)
	simulateSession(tracker, monitor)
	report(tracker, monitor)
}

// emitPageVitals replays the notifications a browser would push during a
// typical page load.
func emitPageVitals(source *vitals.ManualSource) {
	source.Emit(vitals.Entry{Category: vitals.CategoryPaint, Name: vitals.EntryFirstContentfulPaint, StartTime: 900 + rand.Float64()*600})
	source.Emit(vitals.Entry{Category: vitals.CategoryLCP, StartTime: 1400 + rand.Float64()*900})
	source.Emit(vitals.Entry{Category: vitals.CategoryLCP, StartTime: 1800 + rand.Float64()*900})
	source.Emit(vitals.Entry{Category: vitals.CategoryFirstInput, StartTime: 2000, ProcessingStart: 2000 + rand.Float64()*80})
	source.Emit(vitals.Entry{Category: vitals.CategoryLayoutShift, Value: rand.Float64() * 0.08})
	source.Emit(vitals.Entry{Category: vitals.CategoryLayoutShift, Value: 0.5, HadRecentInput: true})
}

func simulateSession(tracker *tracking.Tracker, monitor *perf.Monitor) {
	log.Println("Simulating a dashboard session...")

	tracker.TrackPageView("/dashboard")

	for i := 0; i < 5; i++ {
		ticker := tickers[rand.Intn(len(tickers))]

		tracker.TrackFilterApplied("status", "open")
		time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)
		tracker.TrackFilterCompleted()

		tracker.TrackAlertViewed(fmt.Sprintf("alert-%d", i), ticker)
		if rand.Intn(2) == 0 {
			tracker.TrackAlertClicked(fmt.Sprintf("alert-%d", i), ticker)
		}

		monitor.Measure("alertsFetchTime", func() error {
			time.Sleep(time.Duration(20+rand.Intn(100)) * time.Millisecond)
			return nil
		})
	}

	tracker.TrackPageChange(1, 2)
	time.Sleep(30 * time.Millisecond)
	tracker.TrackPageChangeCompleted()

	tracker.TrackModalOpen("trade-details")
	tracker.TrackTradeViewed("trade-42", "NVDA")
	time.Sleep(50 * time.Millisecond)
	tracker.TrackModalClose("trade-details")

	tracker.TrackFeature("watchlist", "toggle", map[string]interface{}{"ticker": "SPY"})

	time.Sleep(100 * time.Millisecond)
	tracker.TrackPageLeave("/dashboard")
}

func report(tracker *tracking.Tracker, monitor *perf.Monitor) {
	session := tracker.SessionMetrics()
	log.Printf("Session %s: %d page views, %d interactions, %d alerts viewed",
		session.SessionID, session.PageViews, session.Interactions, session.AlertsViewed)

	export := monitor.Export()
	for name, stats := range export.Metrics {
		log.Printf("%-20s count=%d avg=%.1fms p95=%.1fms rating=%s",
			name, stats.Count, stats.Average, stats.P95, stats.Rating)
	}
	for name, value := range export.WebVitals {
		log.Printf("web vital %-4s = %.2f (%s)", name, value, monitor.Rating(name, value))
	}

	log.Println("Simulation complete.")
}
