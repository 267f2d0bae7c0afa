package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NpcEntry places one scripted NPC on a level.
type NpcEntry struct {
	Key        string  `yaml:"key"` // stable name, used as the persistence key
	Level      string  `yaml:"level"`
	Image      string  `yaml:"image"`
	X          float64 `yaml:"x"` // tiles
	Y          float64 `yaml:"y"`
	Script     string  `yaml:"script,omitempty"`      // inline source, lines separated by "\n"
	ScriptFile string  `yaml:"script_file,omitempty"` // asset name, used when Script is empty
	Persist    bool    `yaml:"persist"`               // save props to the database
}

type npcListFile struct {
	Npcs []NpcEntry `yaml:"npcs"`
}

// NpcTable holds the NPC placements in file order.
type NpcTable struct {
	entries []NpcEntry
	byKey   map[string]*NpcEntry
}

// LoadNpcTable loads NPC placements from a YAML file.
func LoadNpcTable(path string) (*NpcTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc_list: %w", err)
	}
	return ParseNpcTable(data)
}

// ParseNpcTable parses the npc_list document.
func ParseNpcTable(data []byte) (*NpcTable, error) {
	var f npcListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse npc_list: %w", err)
	}
	t := &NpcTable{entries: f.Npcs, byKey: make(map[string]*NpcEntry, len(f.Npcs))}
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key == "" || e.Level == "" {
			return nil, fmt.Errorf("npc_list entry %d: key and level are required", i)
		}
		if _, dup := t.byKey[e.Key]; dup {
			return nil, fmt.Errorf("npc_list: duplicate key %q", e.Key)
		}
		t.byKey[e.Key] = e
	}
	return t, nil
}

// Get returns an entry by key, or nil if not found.
func (t *NpcTable) Get(key string) *NpcEntry {
	return t.byKey[key]
}

// All returns the entries in file order.
func (t *NpcTable) All() []NpcEntry {
	return t.entries
}

// Count returns the number of loaded entries.
func (t *NpcTable) Count() int {
	return len(t.entries)
}
