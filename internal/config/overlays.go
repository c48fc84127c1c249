package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stoneoverlay/internal/model"
)

// Material describes how an overlay mesh is shaded.
type Material struct {
	Color     string  `yaml:"color"` // hex, "#rrggbb"
	Shininess float64 `yaml:"shininess"` // 0 (matte) to 1 (glossy)
}

// OverlayDefinition describes one overlay type: which landmarks drive it and
// how its position and scale are derived from them.
type OverlayDefinition struct {
	Name string `yaml:"name"`
	// Landmarks must all score above the confidence threshold.
	Landmarks []int `yaml:"landmarks"`
	// Anchor landmarks are averaged for the overlay position.
	Anchor []int `yaml:"anchor"`
	// From and To are averaged separately; the distance between the two
	// centroids is the reference distance for scale.
	From        []int      `yaml:"from"`
	To          []int      `yaml:"to"`
	ScaleFactor float64    `yaml:"scale_factor"`
	Offset      [3]float64 `yaml:"offset"`
	// Mesh is an STL file under the asset directory or "stone:<seed>".
	Mesh     string   `yaml:"mesh"`
	Material Material `yaml:"material"`
}

type overlaysFile struct {
	Overlays []OverlayDefinition `yaml:"overlays"`
}

// DefaultOverlays returns the head and torso stones.
func DefaultOverlays() []OverlayDefinition {
	torso := []int{model.LeftShoulder, model.RightShoulder, model.LeftHip, model.RightHip}
	return []OverlayDefinition{
		{
			Name:        "head",
			Landmarks:   []int{model.Nose, model.LeftShoulder},
			Anchor:      []int{model.Nose},
			From:        []int{model.Nose},
			To:          []int{model.LeftShoulder},
			ScaleFactor: 0.4,
			Mesh:        "stone:1",
			Material:    Material{Color: "#8a8178", Shininess: 0.3},
		},
		{
			Name:        "torso",
			Landmarks:   torso,
			Anchor:      torso,
			From:        torso,
			To:          []int{model.LeftShoulder},
			ScaleFactor: 0.6,
			Mesh:        "stone:2",
			Material:    Material{Color: "#6f6a62", Shininess: 0.2},
		},
	}
}

// LoadOverlays reads overlay definitions from a YAML file. An empty path
// yields DefaultOverlays.
func LoadOverlays(path string) ([]OverlayDefinition, error) {
	if path == "" {
		return DefaultOverlays(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlays file: %w", err)
	}

	return ParseOverlays(data)
}

// ParseOverlays decodes and validates a YAML overlay document.
func ParseOverlays(data []byte) ([]OverlayDefinition, error) {
	var file overlaysFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse overlays: %w", err)
	}

	if len(file.Overlays) == 0 {
		return nil, fmt.Errorf("no overlays defined")
	}

	seen := make(map[string]bool)
	for i := range file.Overlays {
		def := &file.Overlays[i]
		if len(def.Anchor) == 0 {
			def.Anchor = def.Landmarks
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("overlay %q defined twice", def.Name)
		}
		seen[def.Name] = true
	}

	return file.Overlays, nil
}

// Validate checks that the definition can produce a placement.
func (d OverlayDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("overlay without name")
	}
	if len(d.Landmarks) == 0 {
		return fmt.Errorf("overlay %q: no landmarks", d.Name)
	}
	if len(d.Anchor) == 0 || len(d.From) == 0 || len(d.To) == 0 {
		return fmt.Errorf("overlay %q: anchor, from and to must not be empty", d.Name)
	}
	if d.ScaleFactor <= 0 {
		return fmt.Errorf("overlay %q: scale_factor must be positive, got %v", d.Name, d.ScaleFactor)
	}

	required := make(map[int]bool, len(d.Landmarks))
	for _, idx := range d.Landmarks {
		if idx < 0 || idx >= model.LandmarkCount {
			return fmt.Errorf("overlay %q: landmark index %d out of range", d.Name, idx)
		}
		required[idx] = true
	}
	for _, group := range [][]int{d.Anchor, d.From, d.To} {
		for _, idx := range group {
			if !required[idx] {
				return fmt.Errorf("overlay %q: landmark %d used but not listed in landmarks", d.Name, idx)
			}
		}
	}

	if d.Material.Shininess < 0 || d.Material.Shininess > 1 {
		return fmt.Errorf("overlay %q: shininess must be within [0, 1], got %v", d.Name, d.Material.Shininess)
	}
	if d.Material.Color != "" {
		if _, err := ParseHexColor(d.Material.Color); err != nil {
			return fmt.Errorf("overlay %q: %w", d.Name, err)
		}
	}
	return nil
}

// ParseHexColor parses "#rrggbb" into its components.
func ParseHexColor(s string) ([3]uint8, error) {
	var rgb [3]uint8
	if len(s) != 7 || s[0] != '#' {
		return rgb, fmt.Errorf("invalid color %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &rgb[0], &rgb[1], &rgb[2]); err != nil {
		return rgb, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return rgb, nil
}
