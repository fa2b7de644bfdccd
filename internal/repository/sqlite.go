package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"telemetry-app/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteEventStore persists telemetry events. It doubles as a domain.Sink:
// Track swallows storage failures after logging them, keeping the sink
// contract fire-and-forget.
type SQLiteEventStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteEventStore(path string) *SQLiteEventStore {
	return &SQLiteEventStore{dbPath: path}
}

func (s *SQLiteEventStore) Init() error {
	var err error

	s.db, err = sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	if err = s.db.Ping(); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		session_id TEXT,
		payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);`

	_, err = s.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}

	log.Println("SQLiteEventStore initialized.")
	return nil
}

// Track implements domain.Sink.
func (s *SQLiteEventStore) Track(name string, payload map[string]interface{}) {
	sessionID, _ := payload["session_id"].(string)

	event := domain.Event{
		Name:      name,
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
		Payload:   payload,
	}

	if err := s.StoreEvent(context.Background(), event); err != nil {
		log.Printf("Error storing event %q: %v", name, err)
	}
}

func (s *SQLiteEventStore) StoreEvent(ctx context.Context, event domain.Event) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("error encoding payload: %w", err)
	}

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO events(name, timestamp, session_id, payload) VALUES(?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, event.Name, event.Timestamp, event.SessionID, string(payloadJSON))
	if err != nil {
		return fmt.Errorf("error inserting event: %w", err)
	}
	return nil
}

func (s *SQLiteEventStore) GetEvents(ctx context.Context, startTime, endTime int64, limit, offset int) ([]domain.Event, error) {
	query := "SELECT id, name, timestamp, session_id, payload FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC"
	args := []interface{}{startTime, endTime}

	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ?"
	args = append(args, limit)

	if offset < 0 {
		offset = 0
	}
	query += " OFFSET ?"
	args = append(args, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	var fetchedEvents []domain.Event

	for rows.Next() {
		var (
			e           domain.Event
			sessionID   sql.NullString
			payloadJSON sql.NullString
		)

		if err := rows.Scan(&e.ID, &e.Name, &e.Timestamp, &sessionID, &payloadJSON); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}
		e.SessionID = sessionID.String
		if payloadJSON.Valid && payloadJSON.String != "" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &e.Payload); err != nil {
				log.Printf("Error decoding payload for event %d: %v", e.ID, err)
			}
		}
		fetchedEvents = append(fetchedEvents, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return fetchedEvents, nil
}

func (s *SQLiteEventStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
