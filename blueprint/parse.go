package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/pflow-xyz/go-forge/atom"
)

// Manifest is the on-disk form of a crafting world: atom definitions,
// item types, and mutator scripts, loadable from JSON or YAML.
type Manifest struct {
	Atoms   []*atom.Def `json:"atoms,omitempty"`
	Items   []*ItemType `json:"items,omitempty"`
	Scripts []Script    `json:"scripts,omitempty"`
}

// Script references a mutator module by id, with source either inline
// or in a file next to the manifest.
type Script struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
	File   string `json:"file,omitempty"`
}

// Validate checks every definition in the manifest.
func (m *Manifest) Validate() error {
	for _, a := range m.Atoms {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	for _, it := range m.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %q: %w", it.Name, err)
		}
	}
	seen := make(map[string]bool, len(m.Scripts))
	for _, s := range m.Scripts {
		if s.ID == "" {
			return ErrScriptID
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: %q", ErrScriptDup, s.ID)
		}
		seen[s.ID] = true
		if (s.Source == "") == (s.File == "") {
			return fmt.Errorf("%w: script %q", ErrScriptSource, s.ID)
		}
	}
	return nil
}

// ParseManifest reads a manifest from JSON bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("blueprint: parse manifest: %w", err)
	}
	return &m, nil
}

// ParseManifestYAML reads a manifest from YAML bytes. The document is
// converted to its JSON shape first so both formats share one set of
// field names.
func ParseManifestYAML(data []byte) (*Manifest, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("blueprint: parse manifest: %w", err)
	}
	jsonable, err := json.Marshal(yamlToJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("blueprint: parse manifest: %w", err)
	}
	return ParseManifest(jsonable)
}

// LoadManifest reads a manifest file, dispatching on extension, and
// resolves script files relative to the manifest directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("blueprint: %w", err)
	}

	var m *Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err = ParseManifestYAML(data)
	default:
		m, err = ParseManifest(data)
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range m.Scripts {
		s := &m.Scripts[i]
		if s.File == "" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, s.File))
		if err != nil {
			return nil, fmt.Errorf("blueprint: script %q: %w", s.ID, err)
		}
		s.Source = string(src)
		s.File = ""
	}
	return m, nil
}

// yamlToJSON rewrites yaml.v2 map types into JSON-compatible ones.
func yamlToJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = yamlToJSON(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = yamlToJSON(item)
		}
		return out
	default:
		return v
	}
}
