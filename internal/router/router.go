package router

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"telemetry-app/internal/domain"
	"telemetry-app/internal/endpoints"
	"telemetry-app/internal/perf"
	"telemetry-app/internal/util"
)

func NewRouter(store domain.EventStore, monitor *perf.Monitor, webSlogger *util.TelemetryLogger) *mux.Router {
	r := mux.NewRouter()

	addRoutes(r, store, monitor, webSlogger)

	r.Use(loggingMiddleware(webSlogger))
	r.Use(instrumentMiddleware(monitor))

	return r
}

func addRoutes(r *mux.Router, store domain.EventStore, monitor *perf.Monitor, webSlogger *util.TelemetryLogger) {

	analyticsHandler := &endpoints.Analytics{}
	analyticsHandler.Init(store, monitor, webSlogger)

	r.HandleFunc("/analytics/track", analyticsHandler.TrackEventHandler).Methods("POST")
	r.HandleFunc("/analytics/batch", analyticsHandler.TrackBatchHandler).Methods("POST")
	r.HandleFunc("/analytics/vitals", analyticsHandler.VitalsHandler).Methods("POST")
	r.HandleFunc("/analytics/events/{limit}/{offset}", analyticsHandler.GetEventsHandler).Methods("GET")
	r.HandleFunc("/analytics/performance", analyticsHandler.PerformanceHandler).Methods("GET")
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func Run(store domain.EventStore, monitor *perf.Monitor, webSlogger *util.TelemetryLogger) {
	appRouter := NewRouter(store, monitor, webSlogger)

	server := NewServer(":8080", appRouter)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		println()
		log.Println("Shutting down server...")

		err := gracefulShutdown(server, 25*time.Second)

		if err != nil {
			log.Printf("Server stopped with error: %s", err.Error())
		} else {
			log.Println("Server stopped gracefully.")
		}

		os.Exit(0)
	}()

	log.Printf("Listening on %s", server.Addr)
	log.Fatal(server.ListenAndServe())
}

func gracefulShutdown(server *http.Server, maximumTime time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maximumTime)
	defer cancel()

	return server.Shutdown(ctx)
}

func loggingMiddleware(logger *util.TelemetryLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Request: %s %s", r.Method, r.RequestURI))
			next.ServeHTTP(w, r)
		})
	}
}

// instrumentMiddleware folds each request's latency into the monitor,
// keyed by method and route template. Durations are measured locally so
// that concurrent requests to the same route never share a mark.
func instrumentMiddleware(monitor *perf.Monitor) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			name := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					name = tmpl
				}
			}
			monitor.Record(r.Method+" "+name, float64(time.Since(start))/float64(time.Millisecond))
		})
	}
}
