package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// configSchema pins the recognized keys and their types. Unknown keys are
// rejected so that a typoed option fails loudly instead of silently falling
// back to a heuristic.
const configSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"release":       {"type": "string"},
		"tools":         {"type": "array", "items": {"type": "string"}},
		"extra_tools":   {"type": "array", "items": {"type": "string"}},
		"append_suffix": {"type": "boolean"},
		"bindir":        {"type": "string"},
		"history":       {"type": "string"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("gmxwrap-config.json", configSchema)

// validateDocument checks a raw YAML config document against the schema.
func validateDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	// The validator expects json-decoded values, so round-trip through json.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalizing document: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("normalizing document: %w", err)
	}

	if err := compiledSchema.Validate(normalized); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			leaf := firstLeaf(ve)
			return fmt.Errorf("invalid config at %q: %s", leaf.InstanceLocation, leaf.Message)
		}
		return err
	}
	return nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

func firstLeaf(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return err
	}
	return firstLeaf(err.Causes[0])
}
