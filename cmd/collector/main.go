package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"telemetry-app/internal/perf"
	"telemetry-app/internal/repository"
	"telemetry-app/internal/router"
	"telemetry-app/internal/util"
	"telemetry-app/internal/vitals"
)

const dbPath = "../db/telemetry.db"

func LoggerInitialize() (util.TelemetryLogger, error) {

	var telemetryLogger util.TelemetryLogger

	ConstructAndCreateLogFolder()

	if err := telemetryLogger.Init("collector.log", false); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		return util.TelemetryLogger{}, err
	}

	telemetryLogger.LogEvent(util.LOG_LEVEL_INFO, "Collector started")

	currentTime := time.Now().Format(time.RFC3339)

	fmt.Fprintf(os.Stderr, "\n%s: Telemetry collector started \n", currentTime)

	return telemetryLogger, nil
}

func main() {

	logger, err := LoggerInitialize()
	if err != nil {
		fmt.Println("Error while initializing the logger..", err)
		return
	}

	eventStore := repository.NewSQLiteEventStore(dbPath)
	if err := eventStore.Init(); err != nil {
		log.Fatalf("Failed to initialize event store: %v", err)
	}
	defer eventStore.Close()

	// The collector has no browser substrate of its own; vitals arrive via
	// POST /analytics/vitals instead.
	monitor := perf.NewMonitor(vitals.UnsupportedSource{}, &logger)
	defer monitor.Destroy()

	router.Run(eventStore, monitor, &logger)
}

func ConstructAndCreateLogFolder() {
	logPath := ".." + string(os.PathSeparator) + "log"
	util.SetLoggerPath(logPath)
	util.CheckAndCreateLogFolder(logPath)
	util.SetCommonLoggerAttributes(3)
}
