// Package planfile reads and writes an experience's plan as YAML.
package planfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/plan/internal/domain"
	"gopkg.in/yaml.v3"
)

const schemaVersion = 1

// File is the on-disk shape of an exported plan
type File struct {
	Version    int               `yaml:"version"`
	Experience domain.Experience `yaml:"experience"`
	Items      []domain.PlanItem `yaml:"items"`
}

// Write saves f to path through a temp file and rename
func Write(path string, f File) error {
	f.Version = schemaVersion
	content, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".plan-tmp-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// Read loads and validates a plan file
func Read(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read plan file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse plan file: %w", err)
	}
	if f.Version != schemaVersion {
		return File{}, fmt.Errorf("unsupported plan file version %d", f.Version)
	}
	if err := Validate(f.Items); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks that items form a two-level tree with unique ids, text,
// and no dangling parents
func Validate(items []domain.PlanItem) error {
	byID := make(map[string]domain.PlanItem, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("item %d: missing id", i)
		}
		if strings.TrimSpace(it.Text) == "" {
			return fmt.Errorf("item %s: missing text", it.ID)
		}
		if _, dup := byID[it.ID]; dup {
			return fmt.Errorf("item %s: duplicate id", it.ID)
		}
		byID[it.ID] = it
	}
	for _, it := range items {
		if it.IsRoot() {
			continue
		}
		parent, ok := byID[it.ParentID()]
		if !ok {
			return fmt.Errorf("item %s: parent %s not found", it.ID, it.ParentID())
		}
		if !parent.IsRoot() {
			return fmt.Errorf("item %s: parent %s is itself a child", it.ID, parent.ID)
		}
	}
	return nil
}
