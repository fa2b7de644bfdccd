package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"telemetry-app/internal/domain"
	"telemetry-app/internal/perf"
	"telemetry-app/internal/util"

	"github.com/gorilla/mux"
)

// TrackRequest is the payload sent by the dashboard's sendBeacon calls.
type TrackRequest struct {
	Event      string                 `json:"event"`
	SessionID  string                 `json:"session_id,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  int64                  `json:"timestamp,omitempty"`
}

// VitalRequest carries one web-vital report from the client.
type VitalRequest struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Rating string  `json:"rating,omitempty"`
	Delta  float64 `json:"delta,omitempty"`
	ID     string  `json:"id,omitempty"`
}

// BatchEvent is one entry inside a BatchRequest.
type BatchEvent struct {
	EventName  string                 `json:"event_name"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  int64                  `json:"timestamp,omitempty"`
}

// BatchRequest carries several buffered client events in one request, the
// shape the dashboard flushes on an interval or before unload.
type BatchRequest struct {
	SessionID string       `json:"session_id,omitempty"`
	Events    []BatchEvent `json:"events"`
}

type EventsRequest struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type Analytics struct {
	Response APIResponse
	logger   *util.TelemetryLogger
	store    domain.EventStore
	monitor  *perf.Monitor
}

func (a *Analytics) Init(store domain.EventStore, monitor *perf.Monitor, webSlogger *util.TelemetryLogger) {
	a.store = store
	a.monitor = monitor
	a.logger = webSlogger
}

// TrackEventHandler ingests a client event. It always answers 204 No
// Content: sendBeacon is fire-and-forget and a JSON body would trigger
// cross-origin read blocking in the browser. Malformed payloads are logged
// rather than rejected so that a client bug never turns into retry storms.
func (a *Analytics) TrackEventHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_WARN, "Failed to read analytics body. Err - ", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req TrackRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Event == "" {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		a.logger.LogEvent(util.LOG_LEVEL_WARN, "Failed to parse analytics event. Body - ", preview)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	event := domain.Event{
		Name:      req.Event,
		Timestamp: timestamp,
		SessionID: req.SessionID,
		Payload:   req.Properties,
	}

	if err := a.store.StoreEvent(r.Context(), event); err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while StoreEvent(). Err - ", err)
	} else {
		a.logger.LogEvent(util.LOG_LEVEL_INFO, "Analytics event tracked - ", req.Event)
	}

	w.WriteHeader(http.StatusNoContent)
}

// TrackBatchHandler ingests several buffered client events at once. Same
// contract as TrackEventHandler: always 204, malformed payloads logged
// rather than rejected. Entries without an event name are skipped
// individually so one bad entry never drops the rest of the batch.
func (a *Analytics) TrackBatchHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_WARN, "Failed to read analytics batch body. Err - ", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req BatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		a.logger.LogEvent(util.LOG_LEVEL_WARN, "Failed to parse analytics batch. Body - ", preview)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Batch analytics received: session=%s events=%d", req.SessionID, len(req.Events)))

	for i, entry := range req.Events {
		if entry.EventName == "" {
			a.logger.LogEvent(util.LOG_LEVEL_WARN, "Skipping batch entry without event name. Index - ", i)
			continue
		}

		timestamp := entry.Timestamp
		if timestamp == 0 {
			timestamp = time.Now().UnixMilli()
		}

		event := domain.Event{
			Name:      entry.EventName,
			Timestamp: timestamp,
			SessionID: req.SessionID,
			Payload:   entry.Properties,
		}

		if err := a.store.StoreEvent(r.Context(), event); err != nil {
			a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while StoreEvent() for batch entry. Err - ", err)
			continue
		}
		a.logger.LogEvent(util.LOG_LEVEL_DEBUG, fmt.Sprintf("Batch event %d: %s", i, entry.EventName))
	}

	w.WriteHeader(http.StatusNoContent)
}

// VitalsHandler ingests one web-vital report, folds the value into the
// monitor's history and classifies it against the threshold table.
func (a *Analytics) VitalsHandler(w http.ResponseWriter, r *http.Request) {
	var req VitalRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		a.logger.LogEvent(util.LOG_LEVEL_WARN, "Failed to parse web vital report. Err - ", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.monitor.Record(req.Name, req.Value)

	rating := req.Rating
	if rating == "" {
		rating = string(a.monitor.Rating(req.Name, req.Value))
	}

	event := domain.Event{
		Name:      domain.EventWebVital,
		Timestamp: time.Now().UnixMilli(),
		Payload: map[string]interface{}{
			"name":   req.Name,
			"value":  req.Value,
			"rating": rating,
			"delta":  req.Delta,
			"id":     req.ID,
		},
	}

	if err := a.store.StoreEvent(r.Context(), event); err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while StoreEvent(). Err - ", err)
	} else {
		a.logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Web vital %s=%.2f rated %s", req.Name, req.Value, rating))
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetEventsHandler queries persisted events by time range with pagination.
func (a *Analytics) GetEventsHandler(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Method Not Allowed. Only GET requests are supported", http.StatusMethodNotAllowed)
		a.Response.WriteErrorResponseWithStatusCode(w, fmt.Errorf("method Not Allowed. Only GET requests are supported"), http.StatusMethodNotAllowed)
		return
	}

	routeParamValue := mux.Vars(r)

	limitStr := routeParamValue["limit"]
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "While getting limit from URL. Err - ", err)
		a.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	offsetStr := routeParamValue["offset"]
	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "While getting offset from URL. Err - ", err)
		a.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	var reqBody EventsRequest

	err = json.NewDecoder(r.Body).Decode(&reqBody)
	if err != nil {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while unmarshalling JSON Body. Err -", err)
		a.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
		return
	}

	startTime := reqBody.Start
	endTime := reqBody.End

	if startTime == 0 {
		startTime = time.Now().Add(-24 * time.Hour).UnixMilli()
	}
	if endTime == 0 {
		endTime = time.Now().UnixMilli()
	}

	if startTime > endTime {
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Given startTime is greater than endTime. startTime - ", startTime, " endTime - ", endTime)
		a.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidTimeRange, http.StatusBadRequest)
		return
	}

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	fetchedEvents, err := a.store.GetEvents(r.Context(), startTime, endTime, limit, offset)
	if err != nil {
		if err == context.Canceled {
			a.logger.LogEvent(util.LOG_LEVEL_WARN, "Context cancelled")
			a.Response.WriteErrorResponseWithStatusCode(w, ErrRequestCancelled, http.StatusRequestTimeout)
			return
		}
		a.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while GetEvents(). Err - ", err)
		a.Response.WriteErrorResponse(w, err)
		return
	}

	if len(fetchedEvents) == 0 {
		a.logger.LogEvent(util.LOG_LEVEL_WARN, "No telemetry events in range")
		a.Response.WriteErrorResponseWithStatusCode(w, ErrNoEventsAvailable, http.StatusNotFound)
		return
	}

	a.Response.WriteResultResponse(w, fetchedEvents)
}

// PerformanceHandler exports the monitor's aggregated statistics and
// web-vitals snapshot.
func (a *Analytics) PerformanceHandler(w http.ResponseWriter, r *http.Request) {
	a.Response.WriteResultResponse(w, a.monitor.Export())
}
