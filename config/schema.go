package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// BuildSchema generates a JSON Schema document describing the shape a
// component override document must satisfy: each allow-listed key, if
// present, must carry its declared type. Keys outside the allow list
// are left unconstrained here — Normalize strips them afterward, it
// does not reject them.
func BuildSchema(allowList []AllowedKey) map[string]any {
	properties := make(map[string]any, len(allowList))
	for _, k := range allowList {
		properties[k.Name] = map[string]any{"type": k.Type}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
}

// ValidateComponentJSON checks raw against the schema generated from
// allowList, returning a descriptive error naming every violated field.
func ValidateComponentJSON(raw []byte, allowList []AllowedKey) error {
	if len(raw) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(BuildSchema(allowList))
	if err != nil {
		return fmt.Errorf("marshal generated schema: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate component config: %w", err)
	}
	if !result.Valid() {
		msg := "component config failed schema validation:\n"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf("  - %s: %s\n", desc.Field(), desc.Description())
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}
