package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"pongogo/internal/db"
	"pongogo/internal/logging"
)

// Scanner sources and their artifact types. CLAUDE.md is scanned at the
// project root; wiki/ and docs/ trees are walked for markdown files.
var scanSources = []struct {
	path       string
	sourceType db.SourceType
	recursive  bool
}{
	{"CLAUDE.md", db.SourceClaudeMD, false},
	{"wiki", db.SourceWiki, true},
	{"docs", db.SourceDocs, true},
}

// minSectionLength filters out trivially short sections.
const minSectionLength = 120

var headingRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)

// ScanResult summarizes a repository scan.
type ScanResult struct {
	TotalSections  int
	NewDiscoveries int
	BySource       map[string]int
}

// Scan walks the repository knowledge sources, splits markdown files into
// sections, and stores each section as a discovered artifact. Duplicate
// sections (same content hash) add no rows. A scan_history row is recorded
// for each source type that yielded at least one section.
func (s *System) Scan() (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{BySource: map[string]int{}}

	for _, source := range scanSources {
		root := filepath.Join(s.root, source.path)
		info, err := os.Stat(root)
		if err != nil {
			continue
		}

		var files []string
		if !source.recursive {
			files = []string{root}
		} else if info.IsDir() {
			filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
				if err == nil && !fi.IsDir() && strings.HasSuffix(path, ".md") {
					files = append(files, path)
				}
				return nil
			})
		}

		sections := 0
		newCount := 0
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				logging.Get(logging.CategoryDiscovery).Warn("Scan read failed for %s: %v", file, err)
				continue
			}
			rel, err := filepath.Rel(s.root, file)
			if err != nil {
				rel = file
			}

			for title, body := range splitSections(string(data)) {
				if len(body) < minSectionLength {
					continue
				}
				sections++
				id, err := s.db.StoreArtifact(&db.Artifact{
					SourceFile:     rel,
					SourceType:     source.sourceType,
					SectionTitle:   title,
					SectionContent: body,
					Keywords:       extractSectionKeywords(title, body),
				})
				if err != nil {
					logging.Get(logging.CategoryDiscovery).Warn("Scan store failed: %v", err)
					continue
				}
				if id != 0 {
					newCount++
				}
			}
		}

		if sections > 0 {
			result.TotalSections += sections
			result.NewDiscoveries += newCount
			result.BySource[string(source.sourceType)] = sections
			s.db.RecordScan(&db.ScanRecord{
				ScanType:       "repository_scan",
				SourceType:     string(source.sourceType),
				FilesScanned:   len(files),
				SectionsFound:  sections,
				NewDiscoveries: newCount,
				DurationMs:     time.Since(start).Milliseconds(),
			})
		}
	}

	logging.Discovery("Repository scan: %d sections, %d new discoveries", result.TotalSections, result.NewDiscoveries)
	return result, nil
}

// splitSections splits a markdown document on level-2 headings, mapping
// heading text to section body.
func splitSections(content string) map[string]string {
	sections := map[string]string{}
	locs := headingRe.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		title := strings.TrimSpace(content[loc[2]:loc[3]])
		bodyStart := loc[1]
		bodyEnd := len(content)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(content[bodyStart:bodyEnd])
		if body != "" {
			sections[title] = body
		}
	}
	return sections
}

var sectionWordRe = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9_]{2,}\b`)

// extractSectionKeywords pulls distinct lowercase words from the title and
// body, capped at 20.
func extractSectionKeywords(title, body string) []string {
	seen := map[string]bool{}
	var keywords []string
	for _, text := range []string{title, body} {
		for _, word := range sectionWordRe.FindAllString(strings.ToLower(text), -1) {
			if !seen[word] {
				seen[word] = true
				keywords = append(keywords, word)
				if len(keywords) >= 20 {
					return keywords
				}
			}
		}
	}
	return keywords
}
