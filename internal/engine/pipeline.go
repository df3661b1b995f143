package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"pongogo/internal/knowledge"
	"pongogo/internal/patterns"
)

// Scoring weights shared by all durian engines.
const (
	scoreKeywordInID          = 10
	scoreKeywordInDescription = 8
	scoreKeywordInTag         = 5
	scoreKeywordInMeta        = 10
	scoreCategoryMatch        = 5
	scoreNLPOverlap           = 8
	scoreGlobMatch            = 7
	scoreContextualMatch      = 5
	scoreTagMatch             = 3

	foundationalScore         = 1000
	commencementLookbackBoost = 15
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true,
	"was": true, "are": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true, "should": true,
	"could": true, "may": true, "might": true, "must": true, "can": true,
	"this": true, "that": true, "these": true, "those": true, "i": true,
	"you": true, "he": true, "she": true, "it": true, "we": true,
	"they": true,
}

var (
	nonWordRe       = regexp.MustCompile(`[^\w\s]`)
	wordRe          = regexp.MustCompile(`\b\w+\b`)
	trailingPunctRe = regexp.MustCompile(`[.!?,]+$`)
)

// extractKeywords lowercases, strips punctuation, splits, and drops stop
// words and words of 2 characters or fewer.
func extractKeywords(message string) []string {
	clean := nonWordRe.ReplaceAllString(strings.ToLower(message), " ")
	var keywords []string
	for _, w := range strings.Fields(clean) {
		if len(w) > 2 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// extractIntent buckets the message into one of seven intents by phrase
// presence.
func extractIntent(message string) string {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, "how do i", "how to", "how can"):
		return "how-to"
	case containsAny(m, "what is", "what are", "explain"):
		return "explanation"
	case containsAny(m, "create", "add", "make", "build"):
		return "creation"
	case containsAny(m, "fix", "debug", "error", "issue", "problem"):
		return "troubleshooting"
	case containsAny(m, "test", "validate", "check"):
		return "validation"
	case containsAny(m, "document", "write docs", "readme"):
		return "documentation"
	default:
		return "general"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// approvalCheck classifies the message for approval suppression.
// Returns (suppress, reason, commencementDetected).
func approvalCheck(message string) (bool, string, bool) {
	clean := strings.ToLower(strings.TrimSpace(message))
	normalized := trailingPunctRe.ReplaceAllString(clean, "")

	// Commencement phrases override suppression: work intent detected.
	for _, phrase := range patterns.CommencementPhrases {
		if strings.HasPrefix(clean, phrase) || strings.Contains(clean, " "+phrase) {
			return false, "commencement_phrase_detected", true
		}
	}

	if patterns.ApprovalPhrases[normalized] {
		return true, "exact_approval_match", false
	}

	words := strings.Fields(clean)
	if len(words) <= 3 {
		for _, w := range words {
			if patterns.ApprovalWords[strings.TrimRight(w, ".,!?")] {
				return true, "short_approval_message", false
			}
		}
	}

	if len(words) <= 5 {
		approvalCount := 0
		for _, w := range words {
			if patterns.ApprovalWords[strings.TrimRight(w, ".,!?")] {
				approvalCount++
			}
		}
		if approvalCount*2 >= len(words) && len(words) > 0 {
			return true, "approval_dominated_message", false
		}
	}

	return false, "not_approval", false
}

// violationInfo holds the result of violation detection.
type violationInfo struct {
	Detected    bool
	Signals     []string
	BoostAmount int
}

// detectViolations finds compliance signals: violation words, emphasized
// words (caps/exclamation/sentence-start), exclamation density, all-caps
// emphasis. Boost is 20 per signal.
func detectViolations(message string) violationInfo {
	var signals []string
	lower := strings.ToLower(message)

	var violationMatches []string
	seen := map[string]bool{}
	for _, w := range wordRe.FindAllString(lower, -1) {
		if patterns.ViolationWords[w] && !seen[w] {
			violationMatches = append(violationMatches, w)
			seen[w] = true
		}
	}
	if len(violationMatches) > 0 {
		sort.Strings(violationMatches)
		signals = append(signals, "violation_words:"+strings.Join(violationMatches, ","))
	}

	for _, word := range patterns.EmphasisViolationWords {
		upper := strings.ToUpper(word)
		capsRe := regexp.MustCompile(`\b` + upper + `\b`)
		exclaimRe := regexp.MustCompile(`\b` + word + `\s*!`)
		startRe := regexp.MustCompile(`(?:^|[.!?]\s*)` + word + `[,\s]`)
		switch {
		case capsRe.MatchString(message):
			signals = append(signals, "emphasized_"+upper)
		case exclaimRe.MatchString(lower):
			signals = append(signals, "exclaimed_"+word)
		case startRe.MatchString(lower):
			signals = append(signals, "sentence_start_"+word)
		}
	}

	if n := strings.Count(message, "!"); n >= 3 {
		signals = append(signals, fmt.Sprintf("exclamation_density:%d", n))
	}

	var capsWords []string
	for _, w := range strings.Fields(message) {
		if len(w) > 2 && w == strings.ToUpper(w) && isAlpha(w) {
			capsWords = append(capsWords, w)
		}
	}
	if len(capsWords) >= 2 {
		if len(capsWords) > 3 {
			capsWords = capsWords[:3]
		}
		signals = append(signals, "caps_emphasis:"+strings.Join(capsWords, ","))
	}

	info := violationInfo{Detected: len(signals) > 0, Signals: signals}
	if info.Detected {
		info.BoostAmount = patterns.ViolationCategoryBoost * len(signals)
	}
	return info
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return len(s) > 0
}

// semanticFlagsInfo holds detected semantic flags and accumulated boosts.
type semanticFlagsInfo struct {
	Detected       bool
	Flags          []string
	CategoryBoosts map[string]int
}

func detectSemanticFlags(message string) semanticFlagsInfo {
	info := semanticFlagsInfo{CategoryBoosts: map[string]int{}}
	for _, name := range patterns.SemanticFlagOrder {
		flag := patterns.SemanticFlags[name]
		if flag.Regex.MatchString(message) {
			info.Flags = append(info.Flags, name)
			for _, category := range flag.BoostCategories {
				info.CategoryBoosts[category] += flag.BoostAmount
			}
		}
	}
	info.Detected = len(info.Flags) > 0
	return info
}

// frictionInfo holds the result of friction detection.
type frictionInfo struct {
	Detected     bool
	FrictionType string
	Signals      []string
}

// detectFriction checks friction types in priority order
// (rejection > retry > correction); the first match sets the type.
func detectFriction(message string) frictionInfo {
	var info frictionInfo
	for _, ftype := range patterns.FrictionOrder {
		if m := patterns.FrictionPatterns[ftype].FindString(message); m != "" {
			if len(m) > 20 {
				m = m[:20]
			}
			info.Signals = append(info.Signals, ftype+":"+m)
			if info.FrictionType == "" {
				info.FrictionType = ftype
			}
		}
	}
	info.Detected = len(info.Signals) > 0
	return info
}

// mistakeInfo holds the result of mistake-type detection.
type mistakeInfo struct {
	Detected          bool
	MistakeType       string
	Signals           []string
	InstructionBoosts []string
}

func detectMistakeType(message string) mistakeInfo {
	var info mistakeInfo
	for _, mtype := range patterns.MistakeOrder {
		if m := patterns.MistakePatterns[mtype].FindString(message); m != "" {
			if len(m) > 30 {
				m = m[:30]
			}
			info.Signals = append(info.Signals, mtype+":"+m)
			if info.MistakeType == "" {
				info.MistakeType = mtype
				info.InstructionBoosts = patterns.MistakeInstructionMap[mtype]
			}
		}
	}
	info.Detected = len(info.Signals) > 0
	return info
}

// detectGuidance classifies guidance in the message: explicit beats implicit.
// Returns "" when no guidance is present.
func detectGuidance(message string) string {
	if patterns.ExplicitGuidance.MatchString(message) {
		return patterns.GuidanceExplicit
	}
	if patterns.ImplicitGuidance.MatchString(message) {
		return patterns.GuidanceImplicit
	}
	return ""
}

// scoreInstruction computes the additive relevance score for one
// instruction. violation and semantic parameters may be zero values when
// their detection passes are disabled.
func scoreInstruction(
	inst *knowledge.Instruction,
	keywords []string,
	ctx *Context,
	violation violationInfo,
	semantic semanticFlagsInfo,
) (int, map[string]interface{}) {
	score := 0
	breakdown := map[string]interface{}{}

	if violation.Detected {
		for _, category := range inst.Categories {
			if patterns.ViolationBoostCategories[category] {
				score += violation.BoostAmount
				breakdown["violation_boost"] = map[string]interface{}{
					"category": category,
					"boost":    violation.BoostAmount,
					"signals":  violation.Signals,
				}
				break
			}
		}
	}

	if semantic.Detected {
		var flagBoosts []map[string]interface{}
		for _, category := range inst.Categories {
			if boost, ok := semantic.CategoryBoosts[category]; ok {
				score += boost
				flagBoosts = append(flagBoosts, map[string]interface{}{
					"category": category,
					"boost":    boost,
					"flags":    semantic.Flags,
				})
			}
		}
		if len(flagBoosts) > 0 {
			breakdown["semantic_flag_boost"] = flagBoosts
		}
	}

	idLower := strings.ToLower(inst.ID)
	descLower := strings.ToLower(inst.Description)

	var keywordMatches []string
	for _, keyword := range keywords {
		if strings.Contains(idLower, keyword) {
			score += scoreKeywordInID
			keywordMatches = append(keywordMatches, "id:"+keyword)
		}
		if descLower != "" && strings.Contains(descLower, keyword) {
			score += scoreKeywordInDescription
			keywordMatches = append(keywordMatches, "description:"+keyword)
		}
		for _, tag := range inst.Tags {
			if strings.Contains(strings.ToLower(tag), keyword) {
				score += scoreKeywordInTag
				keywordMatches = append(keywordMatches, "tag:"+tag)
			}
		}
		for _, metaKeyword := range inst.Routing.Triggers.Keywords {
			if strings.Contains(strings.ToLower(metaKeyword), keyword) {
				score += scoreKeywordInMeta
				keywordMatches = append(keywordMatches, "metadata_keyword:"+metaKeyword)
			}
		}
	}
	if len(keywordMatches) > 0 {
		breakdown["keyword_matches"] = keywordMatches
	}

	var categoryMatches []string
	for _, category := range inst.Categories {
		catLower := strings.ToLower(category)
		for _, keyword := range keywords {
			if strings.Contains(catLower, keyword) {
				score += scoreCategoryMatch
				categoryMatches = append(categoryMatches, category)
				break
			}
		}
	}
	if len(categoryMatches) > 0 {
		breakdown["category_matches"] = categoryMatches
	}

	if nlp := inst.Routing.Triggers.NLP; nlp != "" {
		nlpKeywords := extractKeywords(nlp)
		var overlap []string
		kwSet := map[string]bool{}
		for _, k := range keywords {
			kwSet[k] = true
		}
		seen := map[string]bool{}
		for _, nk := range nlpKeywords {
			if kwSet[nk] && !seen[nk] {
				overlap = append(overlap, nk)
				seen[nk] = true
			}
		}
		if len(overlap) > 0 {
			score += scoreNLPOverlap * len(overlap)
			breakdown["nlp_trigger_match"] = overlap
		}
	}

	var files []string
	var branch string
	if ctx != nil {
		files = ctx.Files
		branch = ctx.Branch
	}

	var globMatches []string
	for _, file := range files {
		for _, glob := range inst.Routing.ApplyTo.Globs {
			if ok, err := doublestar.Match(glob, file); err == nil && ok {
				score += scoreGlobMatch
				globMatches = append(globMatches, fmt.Sprintf("%s matches %s", file, glob))
			}
		}
	}
	if len(globMatches) > 0 {
		breakdown["glob_matches"] = globMatches
	}

	var contextualMatches []string
	for _, file := range files {
		for _, pattern := range inst.Routing.Contextual.Files {
			if ok, err := doublestar.Match(pattern, file); err == nil && ok {
				score += scoreContextualMatch
				contextualMatches = append(contextualMatches, "file_context:"+file)
			}
		}
	}
	if branch != "" {
		for _, pattern := range inst.Routing.Contextual.Branches {
			if ok, err := doublestar.Match(pattern, branch); err == nil && ok {
				score += scoreContextualMatch
				contextualMatches = append(contextualMatches, "branch_context:"+branch)
			}
		}
	}
	if len(contextualMatches) > 0 {
		breakdown["contextual_matches"] = contextualMatches
	}

	var tagMatches []string
	for _, tag := range inst.Tags {
		tagLower := strings.ToLower(tag)
		for _, keyword := range keywords {
			if strings.Contains(tagLower, keyword) {
				score += scoreTagMatch
				tagMatches = append(tagMatches, tag)
				break
			}
		}
	}
	if len(tagMatches) > 0 {
		breakdown["tag_matches"] = tagMatches
	}

	breakdown["total_score"] = score
	return score, breakdown
}

// bundleIDForms returns every normalized id form used for bundle matching.
func bundleIDForms(inst *knowledge.Instruction) []string {
	forms := []string{inst.ID}
	trimmed := strings.TrimSuffix(inst.ID, ".instructions")
	if len(inst.Categories) > 0 && !strings.Contains(inst.ID, "/") {
		forms = append(forms, inst.Categories[0]+"/"+inst.ID)
	}
	if trimmed != inst.ID {
		forms = append(forms, trimmed)
		if len(inst.Categories) > 0 && !strings.Contains(trimmed, "/") {
			forms = append(forms, inst.Categories[0]+"/"+trimmed)
		}
	}
	return forms
}

// applyBundleBoost boosts co-occurring pairs present in the scored set.
// Returns the analysis record, or nil when nothing applied.
func applyBundleBoost(scored []*ScoredInstruction) map[string]interface{} {
	present := map[string]*ScoredInstruction{}
	for _, si := range scored {
		for _, form := range bundleIDForms(si.Instruction) {
			present[form] = si
		}
	}

	var boosts []map[string]interface{}
	for _, si := range scored {
		for _, form := range bundleIDForms(si.Instruction) {
			partners, ok := patterns.InstructionBundles[form]
			if !ok {
				continue
			}
			for _, partner := range partners {
				target, found := present[partner.ID]
				if !found || target == si {
					continue
				}
				target.Score += partner.Boost
				target.Breakdown["bundle_boost"] = map[string]interface{}{
					"from":               form,
					"boost":              partner.Boost,
					"co_occurrence_rate": partner.CoOccurrenceRate,
				}
				boosts = append(boosts, map[string]interface{}{
					"trigger": form,
					"boosted": partner.ID,
					"amount":  partner.Boost,
				})
			}
			break
		}
	}

	if len(boosts) == 0 {
		return nil
	}
	return map[string]interface{}{
		"applied":      true,
		"boosts":       boosts,
		"total_boosts": len(boosts),
	}
}

// proceduralCheck classifies one instruction as procedural and extracts the
// referenced document when a compliance gate names one.
func proceduralCheck(inst *knowledge.Instruction) (bool, string, string) {
	if inst.Procedural() {
		return true, "metadata_flag", ""
	}

	contentLower := strings.ToLower(inst.Content)
	if strings.Contains(contentLower, "compliance gate") || strings.Contains(contentLower, "compliance_gate") {
		doc := ""
		if m := patterns.ReferencedDocPattern.FindStringSubmatch(inst.Content); m != nil {
			doc = m[1]
		}
		return true, "compliance_gate", doc
	}

	for _, pattern := range patterns.ProceduralContentPatterns {
		if pattern.MatchString(inst.Content) {
			return true, "content_pattern", ""
		}
	}

	descLower := strings.ToLower(inst.Description)
	for _, keyword := range patterns.ProceduralKeywords {
		if strings.Contains(descLower, keyword) {
			return true, "keyword:" + keyword, ""
		}
	}

	return false, "", ""
}

// rankScored sorts by score descending with a stable tie order (insertion
// order of the store walk), keeping results deterministic across calls.
func rankScored(scored []*ScoredInstruction) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

func previewOf(message string) string {
	if len(message) > 50 {
		return message[:50]
	}
	return message
}
