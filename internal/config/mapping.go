package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BartekS5/archimport/pkg/models"
)

// FileMappings serves mapping profiles from a JSON/YAML file or a directory of them.
type FileMappings struct {
	Path string
}

// NewFileMappings returns a store rooted at path.
func NewFileMappings(path string) *FileMappings {
	return &FileMappings{Path: path}
}

// List reads every profile under the store's path.
func (f *FileMappings) List(_ context.Context) ([]models.MappingProfile, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping path '%s': %w", f.Path, err)
	}
	if !info.IsDir() {
		return LoadMapping(f.Path)
	}

	entries, err := os.ReadDir(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapping directory '%s': %w", f.Path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isMappingFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var all []models.MappingProfile
	for _, name := range names {
		profiles, err := LoadMapping(filepath.Join(f.Path, name))
		if err != nil {
			return nil, err
		}
		all = append(all, profiles...)
	}
	return all, nil
}

// Find returns the profile whose id or name matches ref.
func (f *FileMappings) Find(ctx context.Context, ref string) (*models.MappingProfile, error) {
	profiles, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.FindProfile(profiles, ref)
}

func isMappingFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadMapping reads and parses one mapping file; the format follows the extension.
func LoadMapping(filePath string) ([]models.MappingProfile, error) {
	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", filePath, err)
	}

	var profiles []models.MappingProfile
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		profiles, err = models.LoadMappingYAML(bytes)
	default:
		profiles, err = models.LoadMapping(bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file '%s': %w", filePath, err)
	}
	return profiles, nil
}

// Save writes each profile to <name>.json under the store directory, numbering
// profiles without an id after the highest id already present.
func (f *FileMappings) Save(ctx context.Context, profiles ...models.MappingProfile) error {
	if err := os.MkdirAll(f.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create mapping directory '%s': %w", f.Path, err)
	}
	existing, err := f.List(ctx)
	if err != nil {
		return err
	}
	var maxID int64
	for _, list := range [][]models.MappingProfile{existing, profiles} {
		for _, p := range list {
			if p.ID > maxID {
				maxID = p.ID
			}
		}
	}

	for _, p := range profiles {
		if p.ID == 0 {
			maxID++
			p.ID = maxID
		}
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode mapping '%s': %w", p.Name, err)
		}
		target := filepath.Join(f.Path, fileSlug(p)+".json")
		if err := os.WriteFile(target, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write mapping file '%s': %w", target, err)
		}
	}
	return nil
}

func fileSlug(p models.MappingProfile) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(p.Name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = fmt.Sprintf("mapping-%d", p.ID)
	}
	return slug
}
