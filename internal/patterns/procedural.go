package patterns

import "regexp"

// ProceduralContentPatterns detect procedural instruction bodies: compliance
// gates, numbered steps, checklists. Routed procedural instructions must be
// read from disk, not executed from memory.
var ProceduralContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)compliance\s*gate`),
	regexp.MustCompile(`(?i)step\s*\d+[:\s]`),
	regexp.MustCompile(`(?i)phase\s*\d+[:\s]`),
	regexp.MustCompile(`(?i)\[\s*\]\s+`),
	regexp.MustCompile(`(?i)mandatory.*steps?`),
	regexp.MustCompile(`(?i)must.*read.*before`),
	regexp.MustCompile(`(?i)12-step|13-step|6-step`),
}

// ProceduralKeywords flag procedural content when found in the description.
var ProceduralKeywords = []string{
	"checklist", "step-by-step", "workflow", "process", "procedure",
	"systematic", "mandatory", "compliance", "12-step", "13-step",
	"verification", "validation checklist", "approval gate",
}

// ProceduralWarningThreshold is the minimum relevance score that triggers a
// procedural warning for a non-foundational instruction.
const ProceduralWarningThreshold = 50

// ReferencedDocPattern extracts the document an instruction tells the agent
// to read, e.g. "Read `docs/templates/issue_closure_checklist.md`".
var ReferencedDocPattern = regexp.MustCompile("[Rr]ead\\s+[`\"']?([^`\"']+\\.md)[`\"']?")
