package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telemetry-app/internal/domain"
)

func TestSQLiteEventStore_Init(t *testing.T) {

	testDBPath := "./test_events_init.db"

	os.Remove(testDBPath)
	defer os.Remove(testDBPath)

	store := NewSQLiteEventStore(testDBPath)
	err := store.Init()
	assert.NoError(t, err, "Init should not return an error")

	store.Close()
}

func TestSQLiteEventStore_StoreEvent(t *testing.T) {
	testDBPath := "./test_events_store.db"
	os.Remove(testDBPath)
	defer os.Remove(testDBPath)

	store := NewSQLiteEventStore(testDBPath)
	store.Init()
	defer store.Close()

	event := domain.Event{
		Name:      domain.EventAlertViewed,
		Timestamp: time.Now().UnixMilli(),
		SessionID: "session-1",
		Payload:   map[string]interface{}{"alert_id": "a1", "label": "AAPL"},
	}

	ctx := context.Background()
	err := store.StoreEvent(ctx, event)
	assert.NoError(t, err, "StoreEvent should not return an error")

	retrieved, err := store.GetEvents(ctx, event.Timestamp, event.Timestamp, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 1, "Should find the stored event")
	assert.Equal(t, event.Name, retrieved[0].Name)
	assert.Equal(t, event.SessionID, retrieved[0].SessionID)
	assert.Equal(t, "a1", retrieved[0].Payload["alert_id"], "Payload should round-trip through JSON")
}

func TestSQLiteEventStore_Track(t *testing.T) {
	testDBPath := "./test_events_track.db"
	os.Remove(testDBPath)
	defer os.Remove(testDBPath)

	store := NewSQLiteEventStore(testDBPath)
	store.Init()
	defer store.Close()

	before := time.Now().UnixMilli()
	store.Track(domain.EventPageView, map[string]interface{}{"session_id": "session-2", "label": "/dashboard"})
	after := time.Now().UnixMilli()

	retrieved, err := store.GetEvents(context.Background(), before, after, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 1, "Track should persist the event")
	assert.Equal(t, domain.EventPageView, retrieved[0].Name)
	assert.Equal(t, "session-2", retrieved[0].SessionID, "Track lifts session_id out of the payload")
}

func TestSQLiteEventStore_GetEvents(t *testing.T) {
	testDBPath := "./test_events_get.db"
	os.Remove(testDBPath)
	defer os.Remove(testDBPath)

	store := NewSQLiteEventStore(testDBPath)
	store.Init()
	defer store.Close()

	now := time.Now().UnixMilli()

	eventsToStore := []domain.Event{
		{Name: domain.EventPageView, Timestamp: now - 5000, SessionID: "s"},
		{Name: domain.EventFilterApplied, Timestamp: now - 4000, SessionID: "s"},
		{Name: domain.EventFilterComplete, Timestamp: now - 3000, SessionID: "s"},
		{Name: domain.EventAlertViewed, Timestamp: now - 2000, SessionID: "s"},
		{Name: domain.EventPageExit, Timestamp: now - 1000, SessionID: "s"},
	}

	ctx := context.Background()
	for _, e := range eventsToStore {
		err := store.StoreEvent(ctx, e)
		assert.NoError(t, err)
	}

	// case 1: Full range
	retrieved, err := store.GetEvents(ctx, now-10000, now, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 5, "Should retrieve all 5 events")
	assert.Equal(t, domain.EventPageView, retrieved[0].Name, "Events ordered by timestamp")

	// case 2: Partial range
	retrieved, err = store.GetEvents(ctx, now-4500, now-1500, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 3)

	// case 3: Empty range
	retrieved, err = store.GetEvents(ctx, now+1000, now+2000, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 0)

	// case 4: Context cancellation during query
	ctxWithCancel, cancel := context.WithCancel(context.Background())
	cancel()
	retrieved, err = store.GetEvents(ctxWithCancel, now-10000, now, 0, 0)
	assert.Error(t, err, "GetEvents should return an error when context is cancelled")
	assert.Len(t, retrieved, 0)

	// case 5: Limit and offset
	retrieved, err = store.GetEvents(ctx, now-10000, now, 2, 0)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 2)
	assert.Equal(t, domain.EventPageView, retrieved[0].Name)

	retrieved, err = store.GetEvents(ctx, now-10000, now, 2, 2)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 2)
	assert.Equal(t, domain.EventFilterComplete, retrieved[0].Name)

	// case 6: Offset beyond available data
	retrieved, err = store.GetEvents(ctx, now-10000, now, 2, 10)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 0)

	// case 7: Negative offset treated as 0
	retrieved, err = store.GetEvents(ctx, now-10000, now, 2, -5)
	assert.NoError(t, err)
	assert.Len(t, retrieved, 2)
	assert.Equal(t, domain.EventPageView, retrieved[0].Name)
}
