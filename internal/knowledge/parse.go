package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"pongogo/internal/logging"
)

// InstructionSuffix is the file name suffix identifying instruction files.
const InstructionSuffix = ".instructions.md"

// frontmatterRe splits YAML frontmatter from the Markdown body.
var frontmatterRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n(.*)$`)

// parseInstructionFile parses one instruction file. rootNamespace is the base
// name of the load root; files directly under the root do not receive a
// directory-derived category. Returns nil (with a log) on YAML errors.
func parseInstructionFile(path, rootNamespace string) (*Instruction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var meta map[string]interface{}
	body := string(raw)

	if m := frontmatterRe.FindStringSubmatch(string(raw)); m != nil {
		if err := yaml.Unmarshal([]byte(m[1]), &meta); err != nil {
			logging.Get(logging.CategoryStore).Error("YAML parsing error in %s: %v", path, err)
			return nil, nil
		}
		body = m[2]
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}

	inst := &Instruction{
		FilePath: path,
		Metadata: meta,
		Content:  strings.TrimSpace(body),
	}

	inst.ID = metaString(meta, "id")
	if inst.ID == "" {
		inst.ID = stemOf(path)
	}
	inst.Version = metaString(meta, "version")
	if inst.Version == "" {
		inst.Version = "1.0.0"
	}
	inst.Schema = metaString(meta, "schema")
	if inst.Schema == "" {
		inst.Schema = DefaultSchema
	}
	inst.Description = metaString(meta, "description")

	inst.Tags = metaStrings(meta, "tags")
	if len(inst.Tags) == 0 {
		// Legacy field: patterns serve as tags when tags are absent.
		inst.Tags = metaStrings(meta, "patterns")
	}

	// Merge categories: directory-derived first, then explicit, then the
	// legacy domains field. The directory category must stay at index 0 so
	// category/name id matching keeps working downstream.
	seen := map[string]bool{}
	var categories []string
	dirCategory := filepath.Base(filepath.Dir(path))
	if dirCategory != rootNamespace && dirCategory != "." {
		categories = append(categories, dirCategory)
		seen[dirCategory] = true
	}
	for _, c := range metaStrings(meta, "categories") {
		if !seen[c] {
			categories = append(categories, c)
			seen[c] = true
		}
	}
	for _, c := range metaStrings(meta, "domains") {
		if !seen[c] {
			categories = append(categories, c)
			seen[c] = true
		}
	}
	inst.Categories = categories

	inst.Routing = parseRouting(meta)

	// Top-level applies_to merges (set union) into routing.applyTo.globs.
	if extra := metaStrings(meta, "applies_to"); len(extra) > 0 {
		globSet := map[string]bool{}
		for _, g := range inst.Routing.ApplyTo.Globs {
			globSet[g] = true
		}
		for _, g := range extra {
			if !globSet[g] {
				inst.Routing.ApplyTo.Globs = append(inst.Routing.ApplyTo.Globs, g)
				globSet[g] = true
			}
		}
	}

	return inst, nil
}

func parseRouting(meta map[string]interface{}) Routing {
	var r Routing
	raw, ok := meta["routing"].(map[string]interface{})
	if !ok {
		return r
	}
	if applyTo, ok := raw["applyTo"].(map[string]interface{}); ok {
		r.ApplyTo.Globs = anyStrings(applyTo["globs"])
	}
	if triggers, ok := raw["triggers"].(map[string]interface{}); ok {
		r.Triggers.Keywords = anyStrings(triggers["keywords"])
		if s, ok := triggers["nlp"].(string); ok {
			r.Triggers.NLP = s
		}
	}
	if contextual, ok := raw["contextual"].(map[string]interface{}); ok {
		r.Contextual.Files = anyStrings(contextual["files"])
		r.Contextual.Branches = anyStrings(contextual["branches"])
	}
	return r
}

func stemOf(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".md")
	name = strings.TrimSuffix(name, ".instructions")
	return name
}

func metaString(meta map[string]interface{}, key string) string {
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func metaStrings(meta map[string]interface{}, key string) []string {
	return anyStrings(meta[key])
}

// anyStrings converts a YAML-decoded value (string or sequence) to a string
// slice, tolerating scalar shorthand like `tags: testing`.
func anyStrings(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}
