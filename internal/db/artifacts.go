package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// ArtifactStatus tracks the artifact lifecycle:
// DISCOVERED -> REVIEWING -> PROMOTED -> (optionally) ARCHIVED.
type ArtifactStatus string

const (
	ArtifactDiscovered ArtifactStatus = "DISCOVERED"
	ArtifactReviewing  ArtifactStatus = "REVIEWING"
	ArtifactPromoted   ArtifactStatus = "PROMOTED"
	ArtifactArchived   ArtifactStatus = "ARCHIVED"
)

// SourceType classifies where an artifact came from.
type SourceType string

const (
	SourceClaudeMD SourceType = "CLAUDE_MD"
	SourceWiki     SourceType = "WIKI"
	SourceDocs     SourceType = "DOCS"
	SourceOther    SourceType = "OTHER"
)

// Artifact is a file-sourced knowledge candidate.
type Artifact struct {
	ID             int64
	SourceFile     string
	SourceType     SourceType
	SectionTitle   string
	SectionContent string
	ContentHash    string
	Keywords       []string
	Status         ArtifactStatus
	PromotedTo     int64 // FK to artifact_implemented.id; 0 when unset
	DiscoveredAt   string
	PromotedAt     string
	ArchivedAt     string
	ArchiveReason  string
}

// ContentHash returns the deduplication hash for a section body.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// StoreArtifact stores a newly discovered artifact. Returns (0, nil) when
// the same content hash already exists: duplicate inserts add no row.
func (d *Database) StoreArtifact(a *Artifact) (int64, error) {
	if a.ContentHash == "" {
		a.ContentHash = ContentHash(a.SectionContent)
	}

	var existing int64
	err := d.db.QueryRow(
		"SELECT id FROM artifact_discovered WHERE content_hash = ?", a.ContentHash,
	).Scan(&existing)
	if err == nil {
		return 0, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	keywordsJSON := nullableJSON(a.Keywords)
	var id int64
	err = d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO artifact_discovered
			(source_file, source_type, section_title, section_content,
			 content_hash, keywords, status, discovered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.SourceFile, string(a.SourceType), nullableString(a.SectionTitle),
			a.SectionContent, a.ContentHash, keywordsJSON,
			string(ArtifactDiscovered), time.Now().Format(time.RFC3339Nano),
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

// Implementation describes the instruction file created by a promotion.
type Implementation struct {
	InstructionFile     string
	InstructionID       string
	InstructionCategory string
	Title               string
	Description         string
}

// PromoteArtifact creates the linked implementation row and flips the
// discovered artifact's status to PROMOTED with a FK to it.
func (d *Database) PromoteArtifact(discoveredID int64, impl *Implementation) (int64, error) {
	artifact, err := d.GetArtifact(discoveredID)
	if err != nil {
		return 0, err
	}
	if artifact == nil {
		return 0, nil
	}

	now := time.Now().Format(time.RFC3339Nano)
	wordCount := len(strings.Fields(artifact.SectionContent))
	title := impl.Title
	if title == "" {
		title = artifact.SectionTitle
	}

	var implID int64
	err = d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO artifact_implemented
			(discovered_id, instruction_file, instruction_id, instruction_category,
			 content_hash, word_count, title, description, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'ACTIVE', ?)`,
			discoveredID, impl.InstructionFile,
			nullableString(impl.InstructionID), nullableString(impl.InstructionCategory),
			artifact.ContentHash, wordCount,
			nullableString(title), nullableString(impl.Description), now,
		)
		if err != nil {
			return err
		}
		implID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			UPDATE artifact_discovered
			SET status = ?, promoted_to = ?, promoted_at = ?
			WHERE id = ?`,
			string(ArtifactPromoted), implID, now, discoveredID,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return implID, nil
}

// GetArtifact returns one artifact by id, or nil.
func (d *Database) GetArtifact(id int64) (*Artifact, error) {
	rows, err := d.db.Query(artifactSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanArtifact(rows)
}

// ArtifactsByStatus lists artifacts, optionally filtered by source type.
func (d *Database) ArtifactsByStatus(status ArtifactStatus, sourceType SourceType, limit int) ([]*Artifact, error) {
	query := artifactSelect + " WHERE status = ?"
	args := []interface{}{string(status)}
	if sourceType != "" {
		query += " AND source_type = ?"
		args = append(args, string(sourceType))
	}
	query += " ORDER BY discovered_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DiscoveredArtifacts lists all artifacts still in DISCOVERED state, newest
// first. Used by the routing-time promotion check.
func (d *Database) DiscoveredArtifacts() ([]*Artifact, error) {
	rows, err := d.db.Query(artifactSelect + " WHERE status = 'DISCOVERED' ORDER BY discovered_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// ArchiveArtifact marks an artifact archived with a reason.
func (d *Database) ArchiveArtifact(id int64, reason string) (bool, error) {
	var affected int64
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE artifact_discovered
			SET status = ?, archived_at = ?, archive_reason = ?
			WHERE id = ?`,
			string(ArtifactArchived), time.Now().Format(time.RFC3339Nano), reason, id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

// ArtifactStats reports artifact counts by status and source type.
func (d *Database) ArtifactStats() map[string]interface{} {
	byStatus := map[string]int{}
	rows, err := d.db.Query("SELECT status, COUNT(*) FROM artifact_discovered GROUP BY status")
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

	bySource := map[string]int{}
	rows2, err := d.db.Query(
		"SELECT source_type, COUNT(*) FROM artifact_discovered WHERE status != 'ARCHIVED' GROUP BY source_type")
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

	implemented := 0
	d.db.QueryRow("SELECT COUNT(*) FROM artifact_implemented WHERE status = 'ACTIVE'").Scan(&implemented)

	return map[string]interface{}{
		"by_status":         byStatus,
		"by_source":         bySource,
		"implemented_count": implemented,
	}
}

// ImplementationCount returns the number of implementation rows linked to a
// discovered artifact.
func (d *Database) ImplementationCount(discoveredID int64) (int, error) {
	var count int
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM artifact_implemented WHERE discovered_id = ?", discoveredID,
	).Scan(&count)
	return count, err
}

const artifactSelect = `SELECT id, source_file, source_type, section_title,
	section_content, content_hash, keywords, status, promoted_to,
	discovered_at, promoted_at, archived_at, archive_reason
	FROM artifact_discovered`

func scanArtifact(rows *sql.Rows) (*Artifact, error) {
	var a Artifact
	var sectionTitle, keywordsJSON, promotedAt, archivedAt, archiveReason sql.NullString
	var promotedTo sql.NullInt64
	err := rows.Scan(
		&a.ID, &a.SourceFile, &a.SourceType, &sectionTitle,
		&a.SectionContent, &a.ContentHash, &keywordsJSON, &a.Status,
		&promotedTo, &a.DiscoveredAt, &promotedAt, &archivedAt, &archiveReason,
	)
	if err != nil {
		return nil, err
	}
	a.SectionTitle = sectionTitle.String
	a.PromotedTo = promotedTo.Int64
	a.PromotedAt = promotedAt.String
	a.ArchivedAt = archivedAt.String
	a.ArchiveReason = archiveReason.String
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		json.Unmarshal([]byte(keywordsJSON.String), &a.Keywords)
	}
	return &a, nil
}
