// Package curriculum loads the subject catalog from YAML files.
package curriculum

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog holds the subjects offered to learners.
type Catalog struct {
	rootDir  string
	subjects map[string]Subject
	mu       sync.RWMutex
}

// NewCatalog loads every subject under rootDir. A missing directory yields
// an empty catalog.
func NewCatalog(rootDir string) (*Catalog, error) {
	c := &Catalog{
		rootDir:  rootDir,
		subjects: make(map[string]Subject),
	}

	if err := c.loadAll(); err != nil {
		return nil, fmt.Errorf("loading subject catalog: %w", err)
	}

	slog.Info("subject catalog loaded", "subjects", len(c.subjects), "path", rootDir)
	return c, nil
}

// Subject returns a subject by ID.
func (c *Catalog) Subject(id string) (Subject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.subjects[id]
	return s, ok
}

// Subjects returns all subjects ordered by ID.
func (c *Catalog) Subjects() []Subject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Subject, 0, len(c.subjects))
	for _, s := range c.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TopicCount returns the subject's topic count, or fallback when the
// subject is unknown or sets none.
func (c *Catalog) TopicCount(id string, fallback int) int {
	if s, ok := c.Subject(id); ok && s.TopicCount > 0 {
		return s.TopicCount
	}
	return fallback
}

// Difficulty returns the subject's default difficulty, or "" when unset.
func (c *Catalog) Difficulty(id string) string {
	s, _ := c.Subject(id)
	return s.Difficulty
}

func (c *Catalog) loadAll() error {
	if _, err := os.Stat(c.rootDir); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("subject catalog directory missing", "path", c.rootDir)
		return nil
	}

	return filepath.WalkDir(c.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return c.loadFile(path)
		}
		return nil
	})
}

func (c *Catalog) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Warn("skipping invalid catalog YAML", "path", path, "error", err)
		return nil
	}

	subjects := file.Subjects
	if file.Subject.ID != "" {
		subjects = append(subjects, file.Subject)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range subjects {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			continue
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		if s.TopicCount < 0 {
			s.TopicCount = 0
		}
		c.subjects[s.ID] = s
	}
	return nil
}
