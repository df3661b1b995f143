package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"pongogo/internal/logging"
)

// Event is one persisted routing decision. Events are append-only; there is
// no update path.
type Event struct {
	ID                 int64
	Timestamp          string
	UserMessage        string
	MessageHash        string
	RoutedInstructions []string
	InstructionCount   int
	RoutingScores      map[string]int
	EngineVersion      string
	SessionID          string
	Context            map[string]interface{}
	RoutingLatencyMs   float64
}

// MessageHash returns the 16-character message hash used in event records.
func MessageHash(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])[:16]
}

// InsertEvent appends a routing event. The timestamp is generated at write
// time, not request entry.
func (d *Database) InsertEvent(e *Event) (int64, error) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().Format(time.RFC3339Nano)
	}
	if e.MessageHash == "" {
		e.MessageHash = MessageHash(e.UserMessage)
	}
	e.InstructionCount = len(e.RoutedInstructions)

	instructionsJSON := nullableJSON(e.RoutedInstructions)
	scoresJSON := nullableJSON(e.RoutingScores)
	contextJSON := nullableJSON(e.Context)

	var id int64
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO routing_events
			(timestamp, user_message, message_hash, routed_instructions,
			 instruction_count, routing_scores, engine_version,
			 session_id, context, routing_latency_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Timestamp,
			e.UserMessage,
			e.MessageHash,
			instructionsJSON,
			e.InstructionCount,
			scoresJSON,
			e.EngineVersion,
			nullableString(e.SessionID),
			contextJSON,
			nullableFloat(e.RoutingLatencyMs),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// PreviousRouted implements engine.EventLookback: the routed id list of the
// most recent event with a non-zero count, offset by one so the current
// request's own event is excluded.
func (d *Database) PreviousRouted() ([]string, error) {
	var instructionsJSON sql.NullString
	err := d.db.QueryRow(`
		SELECT routed_instructions
		FROM routing_events
		WHERE instruction_count > 0
		ORDER BY id DESC
		LIMIT 1 OFFSET 1`).Scan(&instructionsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !instructionsJSON.Valid || instructionsJSON.String == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(instructionsJSON.String), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// RecentEvents returns the newest events, optionally filtered by session.
func (d *Database) RecentEvents(limit int, sessionID string) ([]*Event, error) {
	query := `SELECT id, timestamp, user_message, message_hash,
		routed_instructions, instruction_count, routing_scores,
		engine_version, session_id, context, routing_latency_ms
		FROM routing_events`
	args := []interface{}{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LastEvent returns the most recent event, or nil when the log is empty.
func (d *Database) LastEvent() (*Event, error) {
	events, err := d.RecentEvents(1, "")
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// EventCount returns the total number of events.
func (d *Database) EventCount() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM routing_events").Scan(&count)
	return count, err
}

// EventStats summarizes the event log for diagnostics.
func (d *Database) EventStats() map[string]interface{} {
	stats := map[string]interface{}{
		"status":        "empty",
		"total_count":   0,
		"database_path": d.path,
	}

	total, err := d.EventCount()
	if err != nil {
		logging.Get(logging.CategoryDB).Warn("Database error getting event stats: %v", err)
		stats["status"] = "error"
		stats["error"] = err.Error()
		return stats
	}
	stats["total_count"] = total
	if total == 0 {
		return stats
	}
	stats["status"] = "active"

	var first, last string
	if err := d.db.QueryRow("SELECT timestamp FROM routing_events ORDER BY id ASC LIMIT 1").Scan(&first); err == nil {
		stats["first_event"] = first
	}
	if err := d.db.QueryRow("SELECT timestamp FROM routing_events ORDER BY id DESC LIMIT 1").Scan(&last); err == nil {
		stats["last_event"] = last
	}

	rows, err := d.db.Query(`
		SELECT engine_version, COUNT(*) FROM routing_events
		GROUP BY engine_version ORDER BY COUNT(*) DESC`)
	if err == nil {
		defer rows.Close()
		distribution := map[string]int{}
		for rows.Next() {
			var version string
			var count int
			if rows.Scan(&version, &count) == nil {
				distribution[version] = count
			}
		}
		stats["engine_distribution"] = distribution
	}
	return stats
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var e Event
	var messageHash, instructionsJSON, scoresJSON, sessionID, contextJSON sql.NullString
	var latency sql.NullFloat64
	err := rows.Scan(
		&e.ID, &e.Timestamp, &e.UserMessage, &messageHash,
		&instructionsJSON, &e.InstructionCount, &scoresJSON,
		&e.EngineVersion, &sessionID, &contextJSON, &latency,
	)
	if err != nil {
		return nil, err
	}
	e.MessageHash = messageHash.String
	e.SessionID = sessionID.String
	e.RoutingLatencyMs = latency.Float64
	if instructionsJSON.Valid && instructionsJSON.String != "" {
		json.Unmarshal([]byte(instructionsJSON.String), &e.RoutedInstructions)
	}
	if scoresJSON.Valid && scoresJSON.String != "" {
		json.Unmarshal([]byte(scoresJSON.String), &e.RoutingScores)
	}
	if contextJSON.Valid && contextJSON.String != "" {
		json.Unmarshal([]byte(contextJSON.String), &e.Context)
	}
	return &e, nil
}

func nullableJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil
		}
	case map[string]int:
		if len(t) == 0 {
			return nil
		}
	case map[string]interface{}:
		if len(t) == 0 {
			return nil
		}
	case nil:
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
