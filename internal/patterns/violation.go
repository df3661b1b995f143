package patterns

// ViolationWords always signal a compliance concern when present.
var ViolationWords = map[string]bool{
	"unacceptable": true, "wrong": true, "incorrect": true, "mistake": true,
	"frustrated": true, "frustrating": true, "annoying": true,
	"annoyed": true, "disappointed": true,
	"violation": true, "violate": true, "breach": true,
	"sloppy": true, "careless": true, "shortcuts": true,
}

// EmphasisViolationWords only signal a violation when emphasized: all-caps,
// trailing exclamation, or sentence-start position.
var EmphasisViolationWords = []string{"no", "stop", "bad"}

// ViolationBoostCategories receive the violation boost.
var ViolationBoostCategories = map[string]bool{
	"trust_execution":   true,
	"safety_prevention": true,
}

// ViolationCategoryBoost is applied once per detected signal.
const ViolationCategoryBoost = 20
