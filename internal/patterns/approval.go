// Package patterns holds the compiled pattern libraries used by the routing
// engines: approval suppression, commencement override, violation and
// emphasis rules, semantic flags, friction, mistake types, procedural
// detection, guidance triggers, and instruction bundles.
//
// Every collection is built once at package initialization and is immutable
// afterwards, so engines can share them without synchronization.
package patterns

// ApprovalPhrases are exact-match messages (case-folded, trailing
// punctuation stripped) that suppress routing. These are conversational
// continuations, not queries.
var ApprovalPhrases = map[string]bool{
	"yes": true, "ok": true, "okay": true, "sure": true, "go ahead": true,
	"please continue": true, "continue": true, "sounds good": true,
	"perfect": true, "great": true, "excellent": true, "good": true,
	"fine": true, "nice": true, "thanks": true, "thank you": true,
	"ty": true, "approved": true, "confirmed": true, "correct": true,
	"yes please": true, "yes, please": true, "please do": true,
	"yes, please do": true, "go for it": true, "do it": true,
	"proceed": true, "that works": true, "that's fine": true,
	"that's good": true, "looks good": true, "lgtm": true, "ship it": true,
	"merge it": true, "all good": true, "no problem": true,
	"no worries": true, "np": true, "yep": true, "yup": true, "yeah": true,
	"uh huh": true, "mm hmm": true, "absolutely": true, "definitely": true,
	"certainly": true, "of course": true, "right": true, "exactly": true,
	"precisely": true, "agreed": true, "understood": true, "got it": true,
	"will do": true,
}

// ApprovalWords suggest approval when the message is short.
var ApprovalWords = map[string]bool{
	"yes": true, "ok": true, "okay": true, "sure": true, "good": true,
	"great": true, "fine": true, "nice": true, "perfect": true,
	"excellent": true, "thanks": true, "approved": true, "continue": true,
	"proceed": true, "agreed": true, "correct": true, "right": true,
	"yep": true, "yeah": true,
}

// CommencementPhrases indicate continuation intent and override approval
// suppression. Conservative phrase table, not regex: broad patterns matched
// too many false positives like "please don't".
var CommencementPhrases = []string{
	"let's continue",
	"let's proceed",
	"let's resume",
	"let's go ahead",
	"let's get started",
	"let's begin",
	"let's start",
	"please continue",
	"please proceed",
	"please resume",
	"please go ahead",
	"yes, let's continue",
	"yes, let's proceed",
	"yes, let's resume",
	"yes, let's begin",
	"yes, let's start",
	"yes, please continue",
	"yes, please proceed",
	"go ahead",
	"go ahead and continue",
	"go ahead and proceed",
	"continue with",
	"proceed with",
}
