package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTopologyOptions reads a YAML document at path into the worker-wide
// option map that Normalize treats as its base. yaml.v3 decodes mapping
// keys directly into map[string]any, unlike yaml.v2, so no further key
// conversion is needed here.
func LoadTopologyOptions(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file %s: %w", path, err)
	}

	var opts map[string]any
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("parse topology file %s: %w", path, err)
	}
	if opts == nil {
		opts = make(map[string]any)
	}
	return opts, nil
}
