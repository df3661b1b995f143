package db

import (
	"database/sql"
	"time"
)

// ScanRecord is one row of scan history, written after each repository
// knowledge scan.
type ScanRecord struct {
	ScanType           string
	SourceType         string
	FilesScanned       int
	SectionsFound      int
	NewDiscoveries     int
	UpdatedDiscoveries int
	DurationMs         int64
	EngineVersion      string
	PongogoVersion     string
}

// RecordScan appends a scan history row.
func (d *Database) RecordScan(r *ScanRecord) error {
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO scan_history
			(scan_date, scan_type, source_type, files_scanned, sections_found,
			 new_discoveries, updated_discoveries, duration_ms,
			 engine_version, pongogo_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			time.Now().Format(time.RFC3339Nano),
			r.ScanType, r.SourceType, r.FilesScanned, r.SectionsFound,
			r.NewDiscoveries, r.UpdatedDiscoveries,
			nullableInt(r.DurationMs),
			nullableString(r.EngineVersion), nullableString(r.PongogoVersion),
		)
		return err
	})
}

// GuidanceFulfillment tracks whether guidance from one message was
// operationalized later in the session.
type GuidanceFulfillment struct {
	ID              int64
	GuidanceEventID int64
	GuidanceType    string
	GuidanceContent string
	ActionType      string
	Status          string
	SessionID       string
}

// Fulfillment statuses.
const (
	FulfillmentPending    = "pending"
	FulfillmentInProgress = "in_progress"
	FulfillmentFulfilled  = "fulfilled"
	FulfillmentAbandoned  = "abandoned"
	FulfillmentSuperseded = "superseded"
)

// InsertGuidanceFulfillment records a pending guidance obligation.
func (d *Database) InsertGuidanceFulfillment(g *GuidanceFulfillment) (int64, error) {
	if g.Status == "" {
		g.Status = FulfillmentPending
	}
	var id int64
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO guidance_fulfillment
			(guidance_event_id, guidance_type, guidance_content, action_type,
			 fulfillment_status, session_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			nullableInt(g.GuidanceEventID), g.GuidanceType, g.GuidanceContent,
			g.ActionType, g.Status, nullableString(g.SessionID),
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

// UpdateFulfillment transitions a guidance obligation to a new status,
// optionally linking the fulfilling event and evidence.
func (d *Database) UpdateFulfillment(id int64, status string, fulfillmentEventID int64, evidence string) (bool, error) {
	var affected int64
	err := d.withTx(func(tx *sql.Tx) error {
		fulfilledAt := interface{}(nil)
		if status == FulfillmentFulfilled {
			fulfilledAt = time.Now().Format(time.RFC3339Nano)
		}
		res, err := tx.Exec(`
			UPDATE guidance_fulfillment
			SET fulfillment_status = ?, fulfillment_event_id = ?,
			    fulfillment_evidence = ?, fulfilled_at = ?
			WHERE id = ?`,
			status, nullableInt(fulfillmentEventID), nullableString(evidence),
			fulfilledAt, id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}
