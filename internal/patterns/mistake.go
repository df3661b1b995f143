package patterns

import "regexp"

// Mistake types map user messages to preventive instructions.
var MistakePatterns = map[string]*regexp.Regexp{
	"incomplete_implementation":     regexp.MustCompile(`(?i)not\s+good\s+enough|thoroughly\s+analyze\s+all|guessing\s+is\s+against|cutting\s+corners|goal\s+of\s+completeness|circumvent.*directive|abbreviated\s+manner|lost\s+confidence|gotten\s+off\s+task|isn'?t\s+an?\s+accurate\s+reflection|ongoing\s+problem|not\s+following\s+the\s+process|revert.*start\s+again|(6th|fifth|fourth|third)\s+time.*stop\s+you`),
	"premature_action":              regexp.MustCompile(`(?i)no,?\s+you\s+may\s+not|please\s+first\s+show|let'?s\s+determine|shouldn'?t\s+consider\s+it\s+correct|did\s+you\s+verify.*first|before\s+you\s+(do|proceed|continue)`),
	"github_api_misuse":             regexp.MustCompile(`(?i)don'?t\s+see\s+any\s+changes\s+to\s+the\s+project\s*board|not\s+in\s+the\s+right\s+place|serious\s+mistakes.*project\s*board|should\s+never\s+have\s+been\s+created|project\s*board.*wrong`),
	"closure_checklist_skip":        regexp.MustCompile(`(?i)complete\s+this\s+entire\s+checklist|confirm\s+the\s+status\s+of\s+every|missing\s+a\s+major\s+procedural\s+gate|checklist.*not\s+(being\s+)?used`),
	"commencement_checklist_skip":   regexp.MustCompile(`(?i)did\s+you\s+verify\s+the\s+status\s+of\s+issues?|check\s+prerequisites?\s+first|before\s+starting\s+work`),
	"over_engineering":              regexp.MustCompile(`(?i)overcomplicat(ing|e)|don'?t\s+overcomplicate|already\s+(did|done|broke\s+out)|too\s+complex`),
	"wrong_file_location":           regexp.MustCompile(`(?i)not\s+the\s+right\s+(place|location|directory)|should\s+be\s+stored\s+outside|wrong\s+(place|location|directory)|moved\s+(them|it)\s+to\s+the\s+correct`),
	"misunderstanding_architecture": regexp.MustCompile(`(?i)why\s+are\s+they\s+competing|became\s+confused|misunderstand.*architecture|that'?s\s+not\s+how.*works`),
}

// MistakeOrder fixes first-match-wins priority deterministically.
var MistakeOrder = []string{
	"incomplete_implementation",
	"premature_action",
	"github_api_misuse",
	"closure_checklist_skip",
	"commencement_checklist_skip",
	"over_engineering",
	"wrong_file_location",
	"misunderstanding_architecture",
}

// MistakeInstructionMap maps mistake types to preventive instruction file
// names, from outcome ground truth.
var MistakeInstructionMap = map[string][]string{
	"incomplete_implementation": {
		"architecture_principles.instructions.md",
		"development_workflow.instructions.md",
	},
	"premature_action": {
		"issue_closure.instructions.md",
		"issue_status_in_progress.instructions.md",
	},
	"github_api_misuse": {
		"github_project_status_workflow.instructions.md",
		"github_essentials.instructions.md",
	},
	"closure_checklist_skip": {"issue_closure.instructions.md"},
	"commencement_checklist_skip": {
		"issue_status_in_progress.instructions.md",
		"issue_commencement.instructions.md",
	},
	"over_engineering": {"architecture_principles.instructions.md"},
	"wrong_file_location": {
		"documentation_placement.instructions.md",
		"repository_organization.instructions.md",
	},
	"misunderstanding_architecture": {
		"mcp_deployment_architecture.instructions.md",
		"architecture_principles.instructions.md",
	},
}

// OutcomeBoostAmount tuned at 5 (3-20 tested, low values best).
const OutcomeBoostAmount = 5
