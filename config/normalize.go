package config

import (
	"encoding/json"
	"fmt"
)

// Normalize overlays componentJSON onto topology, keeping only the
// allow-listed keys from componentJSON and falling back to topology for
// everything else. It is the strip-then-overlay described in §4.10: a
// component never widens its own configuration beyond what the worker
// allows, and any key the allow list does not name is worker-global and
// untouchable from component JSON.
//
// topology is never mutated; Normalize returns a new map. Calling
// Normalize again on its own output with the same componentJSON and
// allowList is idempotent — every key it would overlay is already
// present with the same value.
func Normalize(topology map[string]any, componentJSON []byte, allowList []AllowedKey) (map[string]any, error) {
	effective := make(map[string]any, len(topology))
	for k, v := range topology {
		effective[k] = v
	}

	if len(componentJSON) == 0 {
		return effective, nil
	}

	if err := ValidateComponentJSON(componentJSON, allowList); err != nil {
		return nil, err
	}

	var overrides map[string]any
	if err := json.Unmarshal(componentJSON, &overrides); err != nil {
		return nil, fmt.Errorf("unmarshal component config: %w", err)
	}

	allowed := names(allowList)
	for k, v := range overrides {
		if _, ok := allowed[k]; !ok {
			continue
		}
		effective[k] = v
	}

	return effective, nil
}
