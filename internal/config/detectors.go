package config

import (
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// DetectorSpec is one entry under rules.detectors. Every key of the block
// other than "enabled" is passed to the detector constructor as a parameter.
type DetectorSpec struct {
	Name    string `validate:"required"`
	Enabled bool
	Params  map[string]any
}

// Detectors is the ordered set of detector blocks in declaration order.
type Detectors []DetectorSpec

// Get returns the spec registered under name.
func (d Detectors) Get(name string) (DetectorSpec, bool) {
	for _, s := range d {
		if s.Name == name {
			return s, true
		}
	}
	return DetectorSpec{}, false
}

// Clone returns a deep enough copy that callers may not affect d through it.
func (d Detectors) Clone() Detectors {
	if d == nil {
		return nil
	}
	out := make(Detectors, len(d))
	for i, s := range d {
		out[i] = DetectorSpec{Name: s.Name, Enabled: s.Enabled, Params: maps.Clone(s.Params)}
	}
	return out
}

func (d Detectors) index(name string) int {
	for i, s := range d {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// UnmarshalYAML decodes a detectors mapping while preserving declaration
// order. Blocks for names already present in d are merged into the existing
// entry so a user file only needs to mention what it overrides.
func (d *Detectors) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: detectors must be a mapping of name to settings", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		name := keyNode.Value

		var block map[string]any
		if err := valNode.Decode(&block); err != nil {
			return fmt.Errorf("line %d: detector %q: %w", valNode.Line, name, err)
		}

		spec := DetectorSpec{Name: name}
		idx := d.index(name)
		if idx >= 0 {
			spec = (*d)[idx]
			spec.Params = maps.Clone(spec.Params)
		}
		if spec.Params == nil {
			spec.Params = make(map[string]any, len(block))
		}

		if raw, ok := block["enabled"]; ok {
			enabled, ok := raw.(bool)
			if !ok {
				return fmt.Errorf("line %d: detector %q: enabled must be a boolean, got %T", valNode.Line, name, raw)
			}
			spec.Enabled = enabled
			delete(block, "enabled")
		}
		maps.Copy(spec.Params, block)

		if idx >= 0 {
			(*d)[idx] = spec
		} else {
			*d = append(*d, spec)
		}
	}

	return nil
}
