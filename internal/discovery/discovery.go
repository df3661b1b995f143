// Package discovery tracks file-sourced knowledge candidates through the
// discovered -> promoted -> archived lifecycle and auto-promotes matching
// discoveries during routing.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"pongogo/internal/db"
	"pongogo/internal/logging"
)

// System coordinates scanning, matching, and promotion of discoveries for
// one project.
type System struct {
	root string
	db   *db.Database
}

// NewSystem creates a discovery system over a project root and its database.
func NewSystem(root string, database *db.Database) *System {
	return &System{root: root, db: database}
}

// Match pairs a discovery with its keyword-overlap score.
type Match struct {
	Artifact *db.Artifact
	Overlap  int
}

// FindMatches scores DISCOVERED artifacts by keyword overlap with the query
// keywords and returns the top matches.
func (s *System) FindMatches(keywords []string, limit int) ([]*Match, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	artifacts, err := s.db.DiscoveredArtifacts()
	if err != nil {
		return nil, err
	}

	keywordSet := map[string]bool{}
	for _, k := range keywords {
		keywordSet[strings.ToLower(k)] = true
	}

	var matches []*Match
	for _, artifact := range artifacts {
		overlap := 0
		for _, k := range artifact.Keywords {
			if keywordSet[strings.ToLower(k)] {
				overlap++
			}
		}
		if overlap > 0 {
			matches = append(matches, &Match{Artifact: artifact, Overlap: overlap})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Overlap > matches[j].Overlap
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Promote synthesizes an instruction file from a discovery, records the
// implementation row, and flips the discovery to PROMOTED. Returns the
// instruction file path relative to the project root.
//
// The instruction tree is watched, so a promotion naturally triggers a
// reload within one debounce window; the promoted instruction becomes
// visible on the first request after that reload completes.
func (s *System) Promote(discoveryID int64) (string, error) {
	artifact, err := s.db.GetArtifact(discoveryID)
	if err != nil {
		return "", err
	}
	if artifact == nil {
		return "", fmt.Errorf("discovery not found: %d", discoveryID)
	}

	slug := slugify(artifact.SectionTitle)
	if slug == "" {
		slug = slugify(strings.TrimSuffix(filepath.Base(artifact.SourceFile), filepath.Ext(artifact.SourceFile)))
	}
	filename := fmt.Sprintf("%s_%s%s", strings.ToLower(string(artifact.SourceType)), slug, ".instructions.md")

	instructionDir := filepath.Join(s.root, ".pongogo", "instructions", "_discovered")
	if err := os.MkdirAll(instructionDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", instructionDir, err)
	}
	instructionPath := filepath.Join(instructionDir, filename)

	content := s.instructionContent(artifact, slug)
	if err := os.WriteFile(instructionPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write instruction file: %w", err)
	}

	relPath, err := filepath.Rel(s.root, instructionPath)
	if err != nil {
		relPath = instructionPath
	}

	_, err = s.db.PromoteArtifact(discoveryID, &db.Implementation{
		InstructionFile:     relPath,
		InstructionID:       "discovered:" + slug,
		InstructionCategory: categoryForSource(artifact.SourceType),
		Title:               artifact.SectionTitle,
		Description:         "Auto-discovered from " + artifact.SourceFile,
	})
	if err != nil {
		return "", err
	}

	logging.Discovery("Discovery #%d promoted to %s", discoveryID, relPath)
	return relPath, nil
}

// Promotion summarizes one routing-time auto-promotion for the result.
type Promotion struct {
	DiscoveryID     int64  `json:"discovery_id"`
	SourceFile      string `json:"source_file"`
	SectionTitle    string `json:"section_title,omitempty"`
	InstructionFile string `json:"instruction_file"`
	Message         string `json:"message"`
}

// CheckAndPromote auto-promotes discoveries whose keywords intersect the
// query keywords. Promotion happens on the first observation; at most three
// candidates are considered per route. The routing path does not wait for
// the reload the new file triggers.
func (s *System) CheckAndPromote(keywords []string) []*Promotion {
	matches, err := s.FindMatches(keywords, 3)
	if err != nil {
		logging.Get(logging.CategoryDiscovery).Warn("Discovery match check failed: %v", err)
		return nil
	}

	var promoted []*Promotion
	for _, match := range matches {
		if match.Artifact.Status != db.ArtifactDiscovered {
			continue
		}
		path, err := s.Promote(match.Artifact.ID)
		if err != nil {
			logging.Get(logging.CategoryDiscovery).Warn(
				"Failed to promote discovery %d: %v", match.Artifact.ID, err)
			continue
		}
		promoted = append(promoted, &Promotion{
			DiscoveryID:     match.Artifact.ID,
			SourceFile:      match.Artifact.SourceFile,
			SectionTitle:    match.Artifact.SectionTitle,
			InstructionFile: path,
			Message:         fmt.Sprintf("Auto-created instruction from %s discovery", match.Artifact.SourceType),
		})
	}
	return promoted
}

// List returns discoveries filtered by status ("" for all).
func (s *System) List(status db.ArtifactStatus, limit int) ([]*db.Artifact, error) {
	if status != "" {
		return s.db.ArtifactsByStatus(status, "", limit)
	}
	var all []*db.Artifact
	for _, st := range []db.ArtifactStatus{db.ArtifactDiscovered, db.ArtifactReviewing, db.ArtifactPromoted, db.ArtifactArchived} {
		artifacts, err := s.db.ArtifactsByStatus(st, "", limit)
		if err != nil {
			return nil, err
		}
		all = append(all, artifacts...)
	}
	return all, nil
}

// Archive marks a discovery as not useful.
func (s *System) Archive(id int64, reason string) (bool, error) {
	if reason == "" {
		reason = "Marked as not useful"
	}
	return s.db.ArchiveArtifact(id, reason)
}

func (s *System) instructionContent(artifact *db.Artifact, slug string) string {
	title := artifact.SectionTitle
	if title == "" {
		title = "Discovered Knowledge"
	}
	keywords := artifact.Keywords
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: discovered:%s\n", slug)
	fmt.Fprintf(&b, "description: %s\n", title)
	fmt.Fprintf(&b, "categories: [%s]\n", categoryForSource(artifact.SourceType))
	fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(keywords, ", "))
	fmt.Fprintf(&b, "metadata:\n  source_file: %s\n  source_type: %s\n  discovered_at: %s\n  promoted_at: %s\n  auto_generated: true\n",
		artifact.SourceFile, artifact.SourceType, artifact.DiscoveredAt,
		time.Now().UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "> Source: automatically discovered from `%s` during repository knowledge scan.\n\n", artifact.SourceFile)
	b.WriteString(artifact.SectionContent)
	b.WriteString("\n")
	return b.String()
}

func categoryForSource(sourceType db.SourceType) string {
	switch sourceType {
	case db.SourceClaudeMD:
		return "project_guidance"
	case db.SourceWiki:
		return "architecture"
	case db.SourceDocs:
		return "documentation"
	default:
		return "discovered"
	}
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapseRe = regexp.MustCompile(`[\s-]+`)
)

func slugify(text string) string {
	slug := strings.ToLower(text)
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugCollapseRe.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return slug
}
