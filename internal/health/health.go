// Package health aggregates a structured health snapshot over the core
// accessors: store counts, engine version, persistence stats, and event log
// activity. Presentation (formatting, color) lives in the CLI layer.
package health

import (
	"pongogo/internal/config"
	"pongogo/internal/db"
	"pongogo/internal/engine"
	"pongogo/internal/knowledge"
)

// Snapshot is one point-in-time health report.
type Snapshot struct {
	Version          string                 `json:"version"`
	EngineVersion    string                 `json:"engine_version"`
	InstructionCount int                    `json:"instruction_count"`
	CoreCount        int                    `json:"core_count"`
	UserCount        int                    `json:"user_count"`
	KnowledgePath    string                 `json:"knowledge_path"`
	CorePath         string                 `json:"core_path,omitempty"`
	AvailableEngines []string               `json:"available_engines"`
	Database         map[string]interface{} `json:"database,omitempty"`
	Events           map[string]interface{} `json:"events,omitempty"`
	Triggers         map[string]interface{} `json:"triggers,omitempty"`
	Artifacts        map[string]interface{} `json:"artifacts,omitempty"`
	Observations     map[string]interface{} `json:"observations,omitempty"`
}

// Collect builds a health snapshot. database may be nil.
func Collect(store *knowledge.Store, router engine.Router, database *db.Database) *Snapshot {
	snap := &Snapshot{
		Version:          config.Version(),
		EngineVersion:    router.Version(),
		InstructionCount: store.Count(),
		KnowledgePath:    store.UserPath(),
		CorePath:         store.CorePath(),
		AvailableEngines: engine.Available(),
	}

	for _, inst := range store.All() {
		if inst.Protected {
			snap.CoreCount++
		} else {
			snap.UserCount++
		}
	}

	if database != nil {
		snap.Database = database.Stats()
		snap.Events = database.EventStats()
		snap.Triggers = database.TriggerStats()
		snap.Artifacts = database.ArtifactStats()
		snap.Observations = database.ObservationStats()
	}

	return snap
}
