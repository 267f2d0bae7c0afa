package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GmapInfo describes a grid of levels stitched into one big map.
// Levels are listed row by row; Width is the number of columns.
type GmapInfo struct {
	Name   string   `yaml:"name"`
	Width  int      `yaml:"width"`
	Levels []string `yaml:"levels"`
}

// Height returns the number of rows.
func (g *GmapInfo) Height() int {
	if g.Width == 0 {
		return 0
	}
	return (len(g.Levels) + g.Width - 1) / g.Width
}

type mapListFile struct {
	Gmaps []GmapInfo `yaml:"gmaps"`
}

// cell locates a level inside its gmap.
type cell struct {
	gmap *GmapInfo
	x, y byte
}

// MapDataTable answers which gmap cell a level occupies.
type MapDataTable struct {
	gmaps  []GmapInfo
	levels map[string]cell
}

// LoadMapDataTable loads gmap layouts from a YAML file.
func LoadMapDataTable(path string) (*MapDataTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map_list: %w", err)
	}
	return ParseMapDataTable(data)
}

// ParseMapDataTable parses the map_list document.
func ParseMapDataTable(data []byte) (*MapDataTable, error) {
	var f mapListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse map_list: %w", err)
	}
	t := &MapDataTable{gmaps: f.Gmaps, levels: make(map[string]cell)}
	for i := range t.gmaps {
		g := &t.gmaps[i]
		if g.Width <= 0 || g.Width > 256 || g.Height() > 256 {
			return nil, fmt.Errorf("gmap %q: bad width %d", g.Name, g.Width)
		}
		for idx, level := range g.Levels {
			if level == "" {
				continue // hole in the grid
			}
			if prev, dup := t.levels[level]; dup {
				return nil, fmt.Errorf("level %q is on gmaps %q and %q", level, prev.gmap.Name, g.Name)
			}
			t.levels[level] = cell{gmap: g, x: byte(idx % g.Width), y: byte(idx / g.Width)}
		}
	}
	return t, nil
}

// Position returns the gmap and cell of level.
func (t *MapDataTable) Position(level string) (gmap string, x, y byte, ok bool) {
	c, ok := t.levels[level]
	if !ok {
		return "", 0, 0, false
	}
	return c.gmap.Name, c.x, c.y, true
}

// Gmap returns a gmap by name, or nil if not found.
func (t *MapDataTable) Gmap(name string) *GmapInfo {
	for i := range t.gmaps {
		if t.gmaps[i].Name == name {
			return &t.gmaps[i]
		}
	}
	return nil
}

// Count returns the number of gmaps.
func (t *MapDataTable) Count() int {
	return len(t.gmaps)
}
