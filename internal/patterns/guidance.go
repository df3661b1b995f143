package patterns

import "regexp"

// Guidance detection triggers. Users expressing behavioral rules or
// preferences should have them captured before other work proceeds.
//
// Taxonomy mapping:
//   - explicit -> ExplicitGuidance (direct rules)
//   - implicit_rule, implicit_wish, implicit_preference,
//     correction_signal, style_signal -> ImplicitGuidance

// ExplicitGuidance matches direct rule declarations.
var ExplicitGuidance = regexp.MustCompile(`(?i)(always\s+(?:use|include|add|do|run|check))|(never\s+(?:use|include|add|do|run|commit|push))|(don'?t\s+(?:ever|use|include|add|do|run|commit))|(from\s+now\s+on\s+(?:always|never|please|I\s+want))|(going\s+forward\s+(?:always|never|please))|((?:as\s+a\s+)?rule,?\s+(?:always|never|I\s+want|we\s+should))|(make\s+sure\s+(?:to\s+)?always)|(remember\s+to\s+always)`)

// ImplicitGuidance matches preference expressions, style signals, and
// correction feedback.
var ImplicitGuidance = regexp.MustCompile(`(?i)(I\s+(?:prefer|like|want|need)\s+(?:to\s+)?(?:use|have|see))|(I'?d\s+(?:prefer|like|rather)\s+(?:if\s+)?(?:you|we|it))|((?:can|could)\s+you\s+(?:always|please\s+always))|((?:use|format|write|style)\s+(?:it\s+)?(?:like|as|this\s+way))|((?:the|my)\s+preferred\s+(?:way|style|format|approach))|((?:I|we)\s+usually\s+(?:do|use|write|format))|((?:no|not)\s+like\s+that)|(that'?s\s+not\s+(?:what|how)\s+I\s+(?:meant|wanted))|((?:actually|instead),?\s+(?:I\s+)?(?:prefer|want|need))|((?:please\s+)?(?:don'?t|do\s+not)\s+do\s+(?:it\s+)?that\s+(?:way|again))`)

// Guidance types reported with a detection.
const (
	GuidanceExplicit = "explicit"
	GuidanceImplicit = "implicit"
)
