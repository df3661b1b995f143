package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ObservationType classifies a runtime observation.
type ObservationType string

const (
	ObservationGuidanceExplicit ObservationType = "GUIDANCE_EXPLICIT"
	ObservationGuidanceImplicit ObservationType = "GUIDANCE_IMPLICIT"
	ObservationCorrection       ObservationType = "CORRECTION"
	ObservationPattern          ObservationType = "PATTERN"
)

// GuidanceType is the closed guidance taxonomy.
type GuidanceType string

const (
	GuidanceNone               GuidanceType = "none"
	GuidanceTypeExplicit       GuidanceType = "explicit"
	GuidanceImplicitWish       GuidanceType = "implicit_wish"
	GuidanceImplicitPreference GuidanceType = "implicit_preference"
	GuidanceImplicitRule       GuidanceType = "implicit_rule"
	GuidanceCorrectionSignal   GuidanceType = "correction_signal"
	GuidanceStyleSignal        GuidanceType = "style_signal"
)

// ObservationStatus tracks the observation lifecycle:
// DISCOVERED -> REVIEWING -> PROMOTED/REJECTED -> (optionally) ARCHIVED.
type ObservationStatus string

const (
	ObservationDiscovered ObservationStatus = "DISCOVERED"
	ObservationReviewing  ObservationStatus = "REVIEWING"
	ObservationPromoted   ObservationStatus = "PROMOTED"
	ObservationRejected   ObservationStatus = "REJECTED"
	ObservationArchived   ObservationStatus = "ARCHIVED"
)

// ImplementationType records how an observation was operationalized.
type ImplementationType string

const (
	ImplementTrigger     ImplementationType = "TRIGGER"
	ImplementInstruction ImplementationType = "INSTRUCTION"
	ImplementProjectRule ImplementationType = "PROJECT_RULE"
)

// Observation is a runtime-sourced knowledge candidate.
type Observation struct {
	ID               int64
	EventID          int64
	Type             ObservationType
	Content          string
	Target           string
	GuidanceType     GuidanceType
	ShouldPersist    bool
	PersistenceScope string
	Status           ObservationStatus
	PromotedTo       int64
	SessionID        string
	Context          map[string]interface{}
	DiscoveredAt     string
}

// StoreObservation stores a newly discovered observation and returns its id.
func (d *Database) StoreObservation(o *Observation) (int64, error) {
	if o.PersistenceScope == "" {
		o.PersistenceScope = "project"
	}
	contextJSON := nullableJSON(o.Context)

	var id int64
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO observation_discovered
			(event_id, observation_type, observation_content, observation_target,
			 guidance_type, should_persist, persistence_scope, status,
			 session_id, context, discovered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableInt(o.EventID), string(o.Type), o.Content,
			nullableString(o.Target), nullableString(string(o.GuidanceType)),
			o.ShouldPersist, o.PersistenceScope,
			string(ObservationDiscovered),
			nullableString(o.SessionID), contextJSON,
			time.Now().Format(time.RFC3339Nano),
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

// ObservationImplementation describes how an observation is operationalized.
// Exactly one of TriggerID, InstructionID, or RuleContent applies, matching
// the implementation type.
type ObservationImplementation struct {
	Type          ImplementationType
	TriggerID     int64
	InstructionID int64
	RuleContent   string
	RuleScope     string
	Title         string
	Description   string
}

// PromoteObservation creates the linked implementation row and flips the
// observation's status to PROMOTED.
func (d *Database) PromoteObservation(discoveredID int64, impl *ObservationImplementation) (int64, error) {
	var exists int64
	err := d.db.QueryRow(
		"SELECT id FROM observation_discovered WHERE id = ?", discoveredID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	now := time.Now().Format(time.RFC3339Nano)
	var implID int64
	err = d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO observation_implemented
			(discovered_id, implementation_type, trigger_id, instruction_id,
			 rule_content, rule_scope, title, description, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'ACTIVE', ?)`,
			discoveredID, string(impl.Type),
			nullableInt(impl.TriggerID), nullableInt(impl.InstructionID),
			nullableString(impl.RuleContent), nullableString(impl.RuleScope),
			nullableString(impl.Title), nullableString(impl.Description), now,
		)
		if err != nil {
			return err
		}
		implID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			UPDATE observation_discovered
			SET status = ?, promoted_to = ?, promoted_at = ?
			WHERE id = ?`,
			string(ObservationPromoted), implID, now, discoveredID,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return implID, nil
}

// RejectObservation marks an observation rejected with a reason.
func (d *Database) RejectObservation(id int64, reason string) (bool, error) {
	var affected int64
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE observation_discovered
			SET status = ?, rejected_at = ?, rejection_reason = ?
			WHERE id = ?`,
			string(ObservationRejected), time.Now().Format(time.RFC3339Nano), reason, id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

// ObservationsByStatus lists observations by status, newest first.
func (d *Database) ObservationsByStatus(status ObservationStatus, limit int) ([]*Observation, error) {
	rows, err := d.db.Query(`
		SELECT id, event_id, observation_type, observation_content,
		       observation_target, guidance_type, should_persist,
		       persistence_scope, status, promoted_to, session_id, context,
		       discovered_at
		FROM observation_discovered
		WHERE status = ?
		ORDER BY discovered_at DESC LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*Observation
	for rows.Next() {
		var o Observation
		var eventID, promotedTo sql.NullInt64
		var target, guidanceType, sessionID, contextJSON sql.NullString
		err := rows.Scan(
			&o.ID, &eventID, &o.Type, &o.Content, &target, &guidanceType,
			&o.ShouldPersist, &o.PersistenceScope, &o.Status, &promotedTo,
			&sessionID, &contextJSON, &o.DiscoveredAt,
		)
		if err != nil {
			return nil, err
		}
		o.EventID = eventID.Int64
		o.PromotedTo = promotedTo.Int64
		o.Target = target.String
		o.GuidanceType = GuidanceType(guidanceType.String)
		o.SessionID = sessionID.String
		if contextJSON.Valid && contextJSON.String != "" {
			json.Unmarshal([]byte(contextJSON.String), &o.Context)
		}
		observations = append(observations, &o)
	}
	return observations, rows.Err()
}

// ObservationStats reports observation counts by status and type.
func (d *Database) ObservationStats() map[string]interface{} {
	byStatus := map[string]int{}
	rows, err := d.db.Query("SELECT status, COUNT(*) FROM observation_discovered GROUP BY status")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if rows.Scan(&status, &count) == nil {
				byStatus[status] = count
			}
		}
	}

	byType := map[string]int{}
	rows2, err := d.db.Query("SELECT observation_type, COUNT(*) FROM observation_discovered GROUP BY observation_type")
	if err == nil {
		defer rows2.Close()
		for rows2.Next() {
			var t string
			var count int
			if rows2.Scan(&t, &count) == nil {
				byType[t] = count
			}
		}
	}

	return map[string]interface{}{"by_status": byStatus, "by_type": byType}
}

func nullableInt(i int64) interface{} {
	if i == 0 {
		return nil
	}
	return i
}
