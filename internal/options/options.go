// Package options holds the tracking option models and their YAML
// serialization. Defaults mirror the values the tracking toolkit ships for
// cell, anvil, and mesoscale convective system objects.
package options

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaskOptions controls persistence of object masks alongside track records.
type MaskOptions struct {
	Save bool `yaml:"save"`
	Load bool `yaml:"load"`
}

// ObjectOptions configures tracking for a single object type.
type ObjectOptions struct {
	Name string `yaml:"name"`
	// HierarchyLevel orders object types; higher levels may depend on lower
	// ones (an mcs groups cells and anvils).
	HierarchyLevel int    `yaml:"hierarchy_level"`
	Method         string `yaml:"method"` // "detect" or "group"
	Dataset        string `yaml:"dataset"`
	// DequeLength is the number of recent grids kept in memory upstream.
	DequeLength int         `yaml:"deque_length"`
	Mask        MaskOptions `yaml:"mask_options"`
	// WriteInterval is the interval in hours between persistence events.
	WriteInterval int `yaml:"write_interval"`
	// AllowedGap is the allowed gap in minutes between consecutive times.
	AllowedGap int `yaml:"allowed_gap"`
}

// WriteIntervalHours implements the structured access path of the write
// gate (domain.IntervalOptions).
func (o ObjectOptions) WriteIntervalHours() int { return o.WriteInterval }

// Validate enforces the field ranges declared by the option schema. The
// write gate itself tolerates zero intervals; rejecting them here keeps bad
// configuration from reaching a long tracking run.
func (o ObjectOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("object options: name is required")
	}
	if o.Method != "detect" && o.Method != "group" {
		return fmt.Errorf("object %q: method must be \"detect\" or \"group\", got %q", o.Name, o.Method)
	}
	if o.Dataset == "" {
		return fmt.Errorf("object %q: dataset is required", o.Name)
	}
	if o.HierarchyLevel < 0 {
		return fmt.Errorf("object %q: hierarchy_level must be >= 0", o.Name)
	}
	if o.DequeLength <= 0 || o.DequeLength >= 10 {
		return fmt.Errorf("object %q: deque_length must be in (0, 10)", o.Name)
	}
	if o.WriteInterval <= 0 || o.WriteInterval >= 24*60 {
		return fmt.Errorf("object %q: write_interval must be in (0, %d) hours", o.Name, 24*60)
	}
	if o.AllowedGap <= 0 || o.AllowedGap >= 6*60 {
		return fmt.Errorf("object %q: allowed_gap must be in (0, %d) minutes", o.Name, 6*60)
	}
	return nil
}

// LevelOptions groups the object types at one hierarchy level.
type LevelOptions struct {
	Objects []ObjectOptions `yaml:"objects"`
}

// TrackOptions is the root option document for a tracking run.
type TrackOptions struct {
	Levels []LevelOptions `yaml:"levels"`
}

// Validate checks every object and that declared hierarchy levels match the
// level each object sits at.
func (t TrackOptions) Validate() error {
	if len(t.Levels) == 0 {
		return fmt.Errorf("track options: at least one level is required")
	}
	for i, level := range t.Levels {
		if len(level.Objects) == 0 {
			return fmt.Errorf("track options: level %d has no objects", i)
		}
		for _, obj := range level.Objects {
			if err := obj.Validate(); err != nil {
				return err
			}
			if obj.HierarchyLevel != i {
				return fmt.Errorf("object %q: hierarchy_level %d placed at level %d",
					obj.Name, obj.HierarchyLevel, i)
			}
		}
	}
	return nil
}

// ObjectByName returns the options for the named object type.
func (t TrackOptions) ObjectByName(name string) (ObjectOptions, bool) {
	for _, level := range t.Levels {
		for _, obj := range level.Objects {
			if obj.Name == name {
				return obj, true
			}
		}
	}
	return ObjectOptions{}, false
}

// DefaultCell returns the default options for convective cell tracking.
func DefaultCell(dataset string) ObjectOptions {
	return ObjectOptions{
		Name:           "cell",
		HierarchyLevel: 0,
		Method:         "detect",
		Dataset:        dataset,
		DequeLength:    2,
		Mask:           MaskOptions{Save: true},
		WriteInterval:  1,
		AllowedGap:     30,
	}
}

// DefaultAnvil returns the default options for anvil tracking.
func DefaultAnvil(dataset string) ObjectOptions {
	opts := DefaultCell(dataset)
	opts.Name = "anvil"
	return opts
}

// DefaultMCS returns the default options for grouped mesoscale convective
// system tracking.
func DefaultMCS(dataset string) ObjectOptions {
	return ObjectOptions{
		Name:           "mcs",
		HierarchyLevel: 1,
		Method:         "group",
		Dataset:        dataset,
		DequeLength:    2,
		Mask:           MaskOptions{Save: true},
		WriteInterval:  1,
		AllowedGap:     30,
	}
}

// DefaultTrack returns the default two-level hierarchy: cells and anvils,
// grouped into mesoscale convective systems.
func DefaultTrack(dataset string) TrackOptions {
	return TrackOptions{
		Levels: []LevelOptions{
			{Objects: []ObjectOptions{DefaultCell(dataset), DefaultAnvil(dataset)}},
			{Objects: []ObjectOptions{DefaultMCS(dataset)}},
		},
	}
}

// Save writes the options as YAML.
func (t TrackOptions) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal track options: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write track options: %w", err)
	}
	return nil
}

// Load reads and validates YAML options from path.
func Load(path string) (TrackOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrackOptions{}, fmt.Errorf("read track options: %w", err)
	}
	var opts TrackOptions
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return TrackOptions{}, fmt.Errorf("parse track options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return TrackOptions{}, err
	}
	return opts, nil
}
