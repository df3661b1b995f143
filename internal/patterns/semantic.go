package patterns

import "regexp"

// SemanticFlag is a named message-level signal that boosts categories.
type SemanticFlag struct {
	Regex           *regexp.Regexp
	BoostCategories []string
	BoostAmount     int
}

// SemanticFlags maps flag name to its compiled pattern group.
// Evidence base: 497 ground-truth routing events.
var SemanticFlags = map[string]SemanticFlag{
	"corrective": {
		Regex:           regexp.MustCompile(`(?i)\bno\b|\bstop\b|\bwrong\b|\bincorrect\b|\bunacceptable\b|\bmistake\b|\berror\b|\bdon't\b|\bfail\b|\bbug\b`),
		BoostCategories: []string{"trust_execution", "learning", "safety_prevention"},
		BoostAmount:     8,
	},
	"directive": {
		Regex:           regexp.MustCompile(`(?i)\bplease\s+\w+|\bshould\b|\bmust\b|\bneed\s+to\b|\bensure\b|\balways\b|\bnever\b|\brequire\b`),
		BoostCategories: []string{"agentic_workflows", "safety_prevention", "project_management"},
		BoostAmount:     5,
	},
	"compliance": {
		Regex:           regexp.MustCompile(`(?i)\bfollow\b|\badhere\b|\bcomplian|\bstandard\b|\bpolicy\b|\bprocess\b|\bworkflow\b|\bguideline\b`),
		BoostCategories: []string{"safety_prevention", "agentic_workflows", "trust_execution"},
		BoostAmount:     8,
	},
	"technical": {
		Regex:           regexp.MustCompile(`(?i)\bgit\b|\bgithub\b|\bdocker\b|\bcontainer\b|\bmcp\b|\bserver\b|\bapi\b|\bdatabase\b|\bdb\b`),
		BoostCategories: []string{"infrastructure", "github_integration", "devops"},
		BoostAmount:     6,
	},
	"meta": {
		Regex:           regexp.MustCompile(`(?i)\bissue\b|\btask\b|\bepic\b|\bsprint\b|\bmilestone\b|\bproject\b|\bstatus\b|\bclose\b|\bboard\b`),
		BoostCategories: []string{"github_integration", "project_management"},
		BoostAmount:     6,
	},
}

// SemanticFlagOrder fixes the iteration order over SemanticFlags so that
// analysis output is deterministic.
var SemanticFlagOrder = []string{"corrective", "directive", "compliance", "technical", "meta"}
