package knowledge

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pongogo/internal/logging"
)

// Store indexes instruction files by id and by category.
//
// A Store is immutable once loaded; the reload controller builds a fresh
// Store and swaps it in atomically, so no locking is required on the read
// paths.
type Store struct {
	userPath string
	corePath string

	instructions map[string]*Instruction
	order        []string // insertion order of ids
	byCategory   map[string][]string
	protectedIDs map[string]bool
}

// NewStore creates an empty store over the given roots. corePath may be
// empty when no bundled core is available.
func NewStore(userPath, corePath string) *Store {
	return &Store{
		userPath:     userPath,
		corePath:     corePath,
		instructions: make(map[string]*Instruction),
		byCategory:   make(map[string][]string),
		protectedIDs: make(map[string]bool),
	}
}

// Load walks both roots and indexes every instruction file.
//
// Core instructions load first and are flagged protected; user instructions
// whose id collides with a protected id are skipped with a warning. Loading
// user files first would silently break the protection guarantee, so the
// phase order is fixed.
//
// Missing roots are not errors: a project may run core-only or user-only.
// Per-file parse errors are logged and skipped.
func (s *Store) Load() (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store.Load")
	defer timer.Stop()

	count := 0

	if s.corePath != "" {
		if _, err := os.Stat(s.corePath); err == nil {
			n := s.loadTree(s.corePath, true)
			count += n
			logging.Store("Loaded %d core instruction files", n)
		}
	}

	if _, err := os.Stat(s.userPath); err != nil {
		logging.Get(logging.CategoryStore).Debug("No user instructions at %s (using core only)", s.userPath)
		return count, nil
	}

	n := s.loadTree(s.userPath, false)
	count += n
	logging.Store("Loaded %d instruction files total", count)
	return count, nil
}

func (s *Store) loadTree(root string, protected bool) int {
	rootNamespace := filepath.Base(root)
	loaded := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Walk error at %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), InstructionSuffix) {
			return nil
		}

		inst, err := parseInstructionFile(path, rootNamespace)
		if err != nil {
			logging.Get(logging.CategoryStore).Error("Error loading instruction file %s: %v", path, err)
			return nil
		}
		if inst == nil {
			// YAML error, already logged.
			return nil
		}

		if protected {
			inst.Protected = true
			inst.Metadata["protected"] = true
			s.protectedIDs[inst.ID] = true
			s.protectedIDs[strings.TrimPrefix(inst.ID, "core:")] = true
		} else if s.protectedIDs[inst.ID] {
			logging.Get(logging.CategoryStore).Warn(
				"Skipping '%s' from %s - shadows protected core instruction", inst.ID, path)
			return nil
		}

		s.index(inst)
		loaded++
		return nil
	})
	if walkErr != nil {
		logging.Get(logging.CategoryStore).Warn("Walk failed for %s: %v", root, walkErr)
	}
	return loaded
}

func (s *Store) index(inst *Instruction) {
	if _, exists := s.instructions[inst.ID]; !exists {
		s.order = append(s.order, inst.ID)
	}
	s.instructions[inst.ID] = inst
	for _, category := range inst.Categories {
		s.byCategory[category] = append(s.byCategory[category], inst.ID)
	}
}

// Count returns the number of loaded instructions.
func (s *Store) Count() int { return len(s.order) }

// All returns every instruction in insertion order.
func (s *Store) All() []*Instruction {
	out := make([]*Instruction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.instructions[id])
	}
	return out
}

// ByID returns the instruction with the exact id, or nil.
func (s *Store) ByID(id string) *Instruction {
	return s.instructions[id]
}

// IsProtected reports whether the id belongs to the bundled core.
func (s *Store) IsProtected(id string) bool {
	return s.protectedIDs[id]
}

// Get returns the instruction matching category/name, name, or a file stem
// within the category. Returns nil when nothing matches.
func (s *Store) Get(category, name string) *Instruction {
	if inst, ok := s.instructions[category+"/"+name]; ok {
		return inst
	}
	if inst, ok := s.instructions[name]; ok {
		return inst
	}
	for _, id := range s.order {
		inst := s.instructions[id]
		if inst.Stem() != name {
			continue
		}
		if filepath.Base(filepath.Dir(inst.FilePath)) == category {
			return inst
		}
		for _, c := range inst.Categories {
			if c == category {
				return inst
			}
		}
	}
	logging.Get(logging.CategoryStore).Warn("Instruction not found: %s/%s", category, name)
	return nil
}

// ByCategory returns all instructions in a category, in insertion order.
func (s *Store) ByCategory(category string) []*Instruction {
	ids := s.byCategory[category]
	out := make([]*Instruction, 0, len(ids))
	for _, id := range ids {
		if inst, ok := s.instructions[id]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// Foundational returns instructions marked foundational, in insertion order.
func (s *Store) Foundational() []*Instruction {
	var out []*Instruction
	for _, id := range s.order {
		if inst := s.instructions[id]; inst.Foundational() {
			out = append(out, inst)
		}
	}
	return out
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	Instruction *Instruction
	Score       int
	Matches     []string
}

// Search performs case-insensitive full-text search.
// Weights: id +10, description +8, category +7, tag +5, body +3.
// Body matches include a snippet around the first hit.
func (s *Store) Search(query string, limit int) []SearchResult {
	q := strings.ToLower(query)
	var results []SearchResult

	for _, id := range s.order {
		inst := s.instructions[id]
		score := 0
		var matches []string

		if strings.Contains(strings.ToLower(inst.ID), q) {
			score += 10
			matches = append(matches, fmt.Sprintf("ID: %s", inst.ID))
		}
		if strings.Contains(strings.ToLower(inst.Description), q) {
			score += 8
			matches = append(matches, fmt.Sprintf("Description: %s", inst.Description))
		}
		for _, tag := range inst.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				score += 5
				matches = append(matches, fmt.Sprintf("Tag: %s", tag))
			}
		}
		for _, category := range inst.Categories {
			if strings.Contains(strings.ToLower(category), q) {
				score += 7
				matches = append(matches, fmt.Sprintf("Category: %s", category))
			}
		}
		if idx := strings.Index(strings.ToLower(inst.Content), q); idx >= 0 {
			score += 3
			start := idx - 100
			if start < 0 {
				start = 0
			}
			end := idx + 100
			if end > len(inst.Content) {
				end = len(inst.Content)
			}
			matches = append(matches, fmt.Sprintf("Content: ...%s...", inst.Content[start:end]))
		}

		if score > 0 {
			results = append(results, SearchResult{Instruction: inst, Score: score, Matches: matches})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// UserPath returns the user instruction root.
func (s *Store) UserPath() string { return s.userPath }

// CorePath returns the bundled core root ("" when absent).
func (s *Store) CorePath() string { return s.corePath }
