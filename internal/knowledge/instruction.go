// Package knowledge loads, parses, and indexes instruction files in
// Enhanced MDC format (Markdown with YAML frontmatter).
//
// Instructions are loaded in two phases: bundled core instructions first
// (flagged protected), then user instructions, which may not shadow a
// protected id.
package knowledge

import (
	"strings"
)

// DefaultSchema is the instruction schema identifier assigned when an
// instruction's frontmatter declares none.
const DefaultSchema = "pongogo-instruction-v1"

// Routing holds the routing hints declared in instruction frontmatter.
type Routing struct {
	ApplyTo    ApplyTo    `yaml:"applyTo"`
	Triggers   Triggers   `yaml:"triggers"`
	Contextual Contextual `yaml:"contextual"`
}

// ApplyTo lists glob patterns the instruction applies to.
type ApplyTo struct {
	Globs []string `yaml:"globs"`
}

// Triggers holds keyword and NLP phrase triggers.
type Triggers struct {
	Keywords []string `yaml:"keywords"`
	NLP      string   `yaml:"nlp"`
}

// Contextual holds file and branch context patterns.
type Contextual struct {
	Files    []string `yaml:"files"`
	Branches []string `yaml:"branches"`
}

// Instruction is a single parsed instruction file.
type Instruction struct {
	FilePath    string
	ID          string
	Version     string
	Schema      string
	Description string
	Tags        []string
	Categories  []string
	Routing     Routing
	Content     string

	// Metadata preserves every frontmatter key as parsed, including ones
	// the router does not interpret.
	Metadata map[string]interface{}

	Protected bool
}

// Foundational reports whether the instruction is always included in
// routing results.
func (i *Instruction) Foundational() bool {
	return metaBool(i.Metadata, "foundational")
}

// Procedural reports whether the instruction carries an explicit
// procedural flag in its frontmatter.
func (i *Instruction) Procedural() bool {
	return metaBool(i.Metadata, "procedural")
}

// FileName returns the base name of the source file.
func (i *Instruction) FileName() string {
	idx := strings.LastIndexByte(i.FilePath, '/')
	if idx < 0 {
		return i.FilePath
	}
	return i.FilePath[idx+1:]
}

// Stem returns the file name without the .instructions.md suffix.
func (i *Instruction) Stem() string {
	name := i.FileName()
	name = strings.TrimSuffix(name, ".md")
	name = strings.TrimSuffix(name, ".instructions")
	return name
}

// NormalizedID returns the instruction id in category/name form, stripping
// any ".instructions" suffix. Used for lookback and bundle matching.
func (i *Instruction) NormalizedID() string {
	id := strings.TrimSuffix(i.ID, ".instructions")
	if len(i.Categories) > 0 && !strings.Contains(id, "/") {
		return i.Categories[0] + "/" + id
	}
	return id
}

// Map converts the instruction to a transport-friendly map, mirroring the
// wire shape consumed by routing clients.
func (i *Instruction) Map() map[string]interface{} {
	return map[string]interface{}{
		"file_path":   i.FilePath,
		"id":          i.ID,
		"version":     i.Version,
		"schema":      i.Schema,
		"description": i.Description,
		"tags":        i.Tags,
		"categories":  i.Categories,
		"content":     i.Content,
		"metadata":    i.Metadata,
	}
}

func metaBool(meta map[string]interface{}, key string) bool {
	if meta == nil {
		return false
	}
	v, ok := meta[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
