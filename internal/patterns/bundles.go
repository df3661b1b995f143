package patterns

// BundlePartner is one co-occurring instruction paired with a bundle key.
type BundlePartner struct {
	ID               string
	Boost            int
	CoOccurrenceRate float64
}

// InstructionBundles maps instruction ids to their co-occurring partners.
// When one half of a bundle is in the results, the partner gets the boost.
// Evidence base: co-occurrence analysis of 497 ground-truth events.
var InstructionBundles = map[string][]BundlePartner{
	// Trust execution bundle (55% co-occurrence)
	"trust_execution/development_workflow_essentials": {
		{ID: "trust_execution/trust_based_task_execution", Boost: 12, CoOccurrenceRate: 0.55},
	},
	"trust_execution/trust_based_task_execution": {
		{ID: "trust_execution/development_workflow_essentials", Boost: 12, CoOccurrenceRate: 0.55},
	},
	// Batch processing bundle (61% co-occurrence)
	"batch_processing_patterns": {
		{ID: "safety_prevention/systematic_prevention_framework", Boost: 10, CoOccurrenceRate: 0.61},
		{ID: "safety_prevention/validation_first_execution", Boost: 8, CoOccurrenceRate: 0.56},
	},
	// Docker/container bundle (89% co-occurrence)
	"docker_compose_patterns": {
		{ID: "infrastructure/container_management", Boost: 15, CoOccurrenceRate: 0.89},
	},
	"infrastructure/container_management": {
		{ID: "docker_compose_patterns", Boost: 15, CoOccurrenceRate: 0.89},
		{ID: "mcp_deployment_architecture", Boost: 12, CoOccurrenceRate: 1.00},
	},
	"mcp_deployment_architecture": {
		{ID: "infrastructure/container_management", Boost: 12, CoOccurrenceRate: 1.00},
	},
	// Issue closure bundle (62% co-occurrence)
	"github/issue_status_done": {
		{ID: "project_management/issue_closure", Boost: 10, CoOccurrenceRate: 0.62},
	},
}
