package db

import (
	"database/sql"
	"time"

	"pongogo/internal/logging"
)

// TriggerType classifies a routing trigger dictionary entry.
type TriggerType string

const (
	TriggerFriction         TriggerType = "FRICTION"
	TriggerGuidanceExplicit TriggerType = "GUIDANCE_EXPLICIT"
	TriggerGuidanceImplicit TriggerType = "GUIDANCE_IMPLICIT"
	TriggerViolation        TriggerType = "VIOLATION"
)

// Trigger sources.
const (
	TriggerSourceBuiltIn = "built_in"
	TriggerSourceLearned = "learned"
	TriggerSourceUser    = "user_defined"
)

// Trigger is one dictionary entry. (trigger_type, trigger_key) is unique.
type Trigger struct {
	ID          int64
	Type        TriggerType
	Key         string
	Value       string
	Category    string
	Description string
	Source      string
	Confidence  string
	Enabled     bool
}

// UpsertTrigger inserts or updates a trigger, keyed on (type, key).
func (d *Database) UpsertTrigger(t *Trigger) (int64, error) {
	if t.Source == "" {
		t.Source = TriggerSourceBuiltIn
	}
	if t.Confidence == "" {
		t.Confidence = "HIGH"
	}
	now := time.Now().Format(time.RFC3339Nano)

	var id int64
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO routing_triggers
			(trigger_type, trigger_key, trigger_value, category, description,
			 source, confidence, enabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(trigger_type, trigger_key) DO UPDATE SET
				trigger_value = excluded.trigger_value,
				category = excluded.category,
				description = excluded.description,
				source = excluded.source,
				confidence = excluded.confidence,
				enabled = excluded.enabled,
				updated_at = excluded.updated_at`,
			string(t.Type), t.Key, nullableString(t.Value),
			nullableString(t.Category), nullableString(t.Description),
			t.Source, t.Confidence, t.Enabled, now, now,
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

// TriggersByType returns trigger key/value pairs of one type.
func (d *Database) TriggersByType(triggerType TriggerType, enabledOnly bool) (map[string]string, error) {
	query := `SELECT trigger_key, trigger_value FROM routing_triggers WHERE trigger_type = ?`
	if enabledOnly {
		query += " AND enabled = 1"
	}
	rows, err := d.db.Query(query, string(triggerType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value.String
	}
	return out, rows.Err()
}

// BulkLoadTriggers upserts a dictionary of triggers of one type. Used to
// seed built-in pattern dictionaries into the store.
func (d *Database) BulkLoadTriggers(triggerType TriggerType, triggers map[string]string, source string) int {
	count := 0
	for key, value := range triggers {
		_, err := d.UpsertTrigger(&Trigger{
			Type:    triggerType,
			Key:     key,
			Value:   value,
			Source:  source,
			Enabled: true,
		})
		if err != nil {
			logging.Get(logging.CategoryDB).Warn("Failed to upsert trigger %s/%s: %v", triggerType, key, err)
			continue
		}
		count++
	}
	return count
}

// TriggerStats reports trigger counts by type and source.
func (d *Database) TriggerStats() map[string]interface{} {
	byType := map[string]map[string]int{}
	rows, err := d.db.Query(`
		SELECT trigger_type, COUNT(*),
		       SUM(CASE WHEN enabled = 1 THEN 1 ELSE 0 END)
		FROM routing_triggers GROUP BY trigger_type`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var t string
			var total, enabled int
			if rows.Scan(&t, &total, &enabled) == nil {
				byType[t] = map[string]int{"total": total, "enabled": enabled}
			}
		}
	}

	bySource := map[string]int{}
	rows2, err := d.db.Query(`
		SELECT source, COUNT(*) FROM routing_triggers
		WHERE enabled = 1 GROUP BY source`)
	if err == nil {
		defer rows2.Close()
		for rows2.Next() {
			var source string
			var count int
			if rows2.Scan(&source, &count) == nil {
				bySource[source] = count
			}
		}
	}

	return map[string]interface{}{"by_type": byType, "by_source": bySource}
}
