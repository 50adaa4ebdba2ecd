package data

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed worlds.yaml
var worldsYAML []byte

// WorldEntry is one game world and its 16-bit wire id.
type WorldEntry struct {
	ID   uint16 `yaml:"id"`
	Name string `yaml:"name"`
}

type worldListFile struct {
	Worlds []WorldEntry `yaml:"worlds"`
}

// WorldTable is the fixed bijection between world names and wire ids.
// Both directions must agree; ids outside the table are invalid.
type WorldTable struct {
	byID   map[uint16]string
	byName map[string]uint16
}

// LoadWorlds parses the embedded world list.
func LoadWorlds() (*WorldTable, error) {
	var file worldListFile
	if err := yaml.Unmarshal(worldsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse worlds.yaml: %w", err)
	}

	t := &WorldTable{
		byID:   make(map[uint16]string, len(file.Worlds)),
		byName: make(map[string]uint16, len(file.Worlds)),
	}
	for _, w := range file.Worlds {
		if w.Name == "" {
			return nil, fmt.Errorf("world %d has empty name", w.ID)
		}
		if _, dup := t.byID[w.ID]; dup {
			return nil, fmt.Errorf("duplicate world id %d", w.ID)
		}
		if _, dup := t.byName[w.Name]; dup {
			return nil, fmt.Errorf("duplicate world name %s", w.Name)
		}
		t.byID[w.ID] = w.Name
		t.byName[w.Name] = w.ID
	}
	return t, nil
}

// NameForID resolves a wire id to the canonical world name.
func (t *WorldTable) NameForID(id uint16) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// IDForName resolves a canonical world name to its wire id.
func (t *WorldTable) IDForName(name string) (uint16, bool) {
	id, ok := t.byName[name]
	return id, ok
}

func (t *WorldTable) Count() int {
	return len(t.byID)
}
