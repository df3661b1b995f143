package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "pongogo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenCreatesSchema(t *testing.T) {
	d := openTestDB(t)

	version, err := d.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	stats := d.Stats()
	assert.Equal(t, 0, stats["routing_events_count"])
	assert.Equal(t, 0, stats["artifact_discovered_count"])
}

func TestReopenPreservesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pongogo.db")

	d, err := Open(path)
	require.NoError(t, err)
	_, err = d.InsertEvent(&Event{
		UserMessage:        "first message",
		RoutedInstructions: []string{"a", "b"},
		EngineVersion:      "durian-0.6.2",
	})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	// Re-applying the full DDL on an existing DB is a no-op.
	d2, err := Open(path)
	require.NoError(t, err)
	defer d2.Close()

	count, err := d2.EventCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventInsertAndLookback(t *testing.T) {
	d := openTestDB(t)

	messages := []struct {
		text   string
		routed []string
	}{
		{"first", []string{"a/one"}},
		{"second", []string{"b/two", "b/three"}},
		{"third", []string{"c/four"}},
	}
	for _, m := range messages {
		_, err := d.InsertEvent(&Event{
			UserMessage:        m.text,
			RoutedInstructions: m.routed,
			RoutingScores:      map[string]int{m.routed[0]: 42},
			EngineVersion:      "durian-0.6.2",
			SessionID:          "session-1",
		})
		require.NoError(t, err)
	}

	count, err := d.EventCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	last, err := d.LastEvent()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "third", last.UserMessage)
	assert.Equal(t, "durian-0.6.2", last.EngineVersion)
	// instruction_count always equals len(routed_instructions).
	assert.Equal(t, len(last.RoutedInstructions), last.InstructionCount)
	assert.Len(t, last.MessageHash, 16)

	// Lookback returns the event before the most recent one.
	previous, err := d.PreviousRouted()
	require.NoError(t, err)
	assert.Equal(t, []string{"b/two", "b/three"}, previous)

	recent, err := d.RecentEvents(2, "session-1")
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestTriggerUpsertUnique(t *testing.T) {
	d := openTestDB(t)

	_, err := d.UpsertTrigger(&Trigger{
		Type:    TriggerFriction,
		Key:     "cutting corners",
		Value:   "boost:trust_execution",
		Enabled: true,
	})
	require.NoError(t, err)

	// Same (type, key) updates in place instead of adding a row.
	_, err = d.UpsertTrigger(&Trigger{
		Type:    TriggerFriction,
		Key:     "cutting corners",
		Value:   "boost:safety_prevention",
		Enabled: true,
	})
	require.NoError(t, err)

	triggers, err := d.TriggersByType(TriggerFriction, true)
	require.NoError(t, err)
	assert.Len(t, triggers, 1)
	assert.Equal(t, "boost:safety_prevention", triggers["cutting corners"])
}

func TestBulkLoadTriggers(t *testing.T) {
	d := openTestDB(t)

	n := d.BulkLoadTriggers(TriggerViolation, map[string]string{
		"unacceptable": "",
		"sloppy":       "",
	}, TriggerSourceBuiltIn)
	assert.Equal(t, 2, n)

	stats := d.TriggerStats()
	byType := stats["by_type"].(map[string]map[string]int)
	assert.Equal(t, 2, byType["VIOLATION"]["total"])
	assert.Equal(t, 2, byType["VIOLATION"]["enabled"])
}

func TestArtifactDeduplication(t *testing.T) {
	d := openTestDB(t)

	id1, err := d.StoreArtifact(&Artifact{
		SourceFile:     "CLAUDE.md",
		SourceType:     SourceClaudeMD,
		SectionTitle:   "Build Commands",
		SectionContent: "Run make build before committing.",
		Keywords:       []string{"build", "make"},
	})
	require.NoError(t, err)
	assert.NotZero(t, id1)

	// Same section body: no new row.
	id2, err := d.StoreArtifact(&Artifact{
		SourceFile:     "docs/build.md",
		SourceType:     SourceDocs,
		SectionTitle:   "Building",
		SectionContent: "Run make build before committing.",
	})
	require.NoError(t, err)
	assert.Zero(t, id2)

	artifacts, err := d.ArtifactsByStatus(ArtifactDiscovered, "", 10)
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
}

func TestArtifactPromotionLinksImplementation(t *testing.T) {
	d := openTestDB(t)

	id, err := d.StoreArtifact(&Artifact{
		SourceFile:     "wiki/arch.md",
		SourceType:     SourceWiki,
		SectionTitle:   "Service Topology",
		SectionContent: "Services talk over the internal bus only.",
		Keywords:       []string{"services", "bus"},
	})
	require.NoError(t, err)

	implID, err := d.PromoteArtifact(id, &Implementation{
		InstructionFile:     ".pongogo/instructions/_discovered/wiki_service_topology.instructions.md",
		InstructionID:       "discovered:service_topology",
		InstructionCategory: "architecture",
	})
	require.NoError(t, err)
	require.NotZero(t, implID)

	promoted, err := d.GetArtifact(id)
	require.NoError(t, err)
	assert.Equal(t, ArtifactPromoted, ArtifactStatus(promoted.Status))
	// promoted_to refers to exactly one implementation row.
	assert.Equal(t, implID, promoted.PromotedTo)
	implCount, err := d.ImplementationCount(id)
	require.NoError(t, err)
	assert.Equal(t, 1, implCount)

	archived, err := d.ArchiveArtifact(id, "superseded")
	require.NoError(t, err)
	assert.True(t, archived)
}

func TestObservationLifecycle(t *testing.T) {
	d := openTestDB(t)

	id, err := d.StoreObservation(&Observation{
		Type:          ObservationGuidanceExplicit,
		Content:       "always run tests before committing",
		GuidanceType:  GuidanceTypeExplicit,
		ShouldPersist: true,
		SessionID:     "session-1",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	implID, err := d.PromoteObservation(id, &ObservationImplementation{
		Type:        ImplementProjectRule,
		RuleContent: "run tests before every commit",
		RuleScope:   "project",
		Title:       "Test before commit",
	})
	require.NoError(t, err)
	require.NotZero(t, implID)

	promoted, err := d.ObservationsByStatus(ObservationPromoted, 10)
	require.NoError(t, err)
	require.Len(t, promoted, 1)
	assert.Equal(t, implID, promoted[0].PromotedTo)

	// Rejection path.
	id2, err := d.StoreObservation(&Observation{
		Type:    ObservationCorrection,
		Content: "not like that",
	})
	require.NoError(t, err)
	rejected, err := d.RejectObservation(id2, "too vague")
	require.NoError(t, err)
	assert.True(t, rejected)
}

func TestGuidanceFulfillment(t *testing.T) {
	d := openTestDB(t)

	id, err := d.InsertGuidanceFulfillment(&GuidanceFulfillment{
		GuidanceType:    "explicit",
		GuidanceContent: "always use the staging environment first",
		ActionType:      "log_user_guidance",
		SessionID:       "session-1",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	updated, err := d.UpdateFulfillment(id, FulfillmentFulfilled, 0, "staging deploy observed")
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestScanHistory(t *testing.T) {
	d := openTestDB(t)
	err := d.RecordScan(&ScanRecord{
		ScanType:       "repository_scan",
		SourceType:     "CLAUDE_MD",
		FilesScanned:   1,
		SectionsFound:  4,
		NewDiscoveries: 4,
	})
	require.NoError(t, err)
}
