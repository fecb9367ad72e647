package timeline

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Service wraps the sqlite-backed pipeline event log.
type Service struct {
	db *sql.DB
}

// New opens (or creates) the event database and applies the schema.
func New(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open timeline db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply timeline schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// Record inserts one event, generating an event id and timestamp when
// absent. A nil *Service is safe: recording becomes a no-op, so callers can
// run without a timeline configured.
func (s *Service) Record(ev *Event) error {
	if s == nil {
		return nil
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO pipeline_events (event_id, trace_id, kind, channel, deal_name, delivery_id, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.TraceID, ev.Kind, ev.Channel, ev.DealName, ev.DeliveryID, ev.Detail, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("record pipeline event: %w", err)
	}
	return nil
}

// Recent returns the newest events, newest first.
func (s *Service) Recent(limit int) ([]Event, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, event_id, trace_id, kind, channel, deal_name, delivery_id, detail, timestamp
		FROM pipeline_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pipeline events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.TraceID, &ev.Kind, &ev.Channel,
			&ev.DealName, &ev.DeliveryID, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Counts returns event counts grouped by kind.
func (s *Service) Counts() (map[string]int, error) {
	if s == nil {
		return map[string]int{}, nil
	}
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM pipeline_events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count pipeline events: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}
