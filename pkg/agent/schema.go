package agent

import (
	"encoding/json"
	"fmt"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MustSchema reflects a compiled JSON schema from a Go type. Panics on
// reflection or compilation failure; schemas are built once at startup from
// known types. Container-typed properties also accept null, since Go
// marshals nil slices and maps as JSON null.
func MustSchema(v any) *jsonschema.Schema {
	reflector := invopop.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("schema reflection failed for %T: %v", v, err))
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("schema decode failed for %T: %v", v, err))
	}
	for _, prop := range properties(doc) {
		allowNullContainers(prop)
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("schema encode failed for %T: %v", v, err))
	}

	return jsonschema.MustCompileString(fmt.Sprintf("%T.schema.json", v), string(raw))
}

// allowNullContainers widens array- and object-typed schemas to ["<type>",
// "null"], recursively. The top-level input is always a map, so the root
// schema is left strict and only its properties are widened.
func allowNullContainers(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && (t == "array" || t == "object") {
		schema["type"] = []any{t, "null"}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		allowNullContainers(items)
	}
	if extra, ok := schema["additionalProperties"].(map[string]any); ok {
		allowNullContainers(extra)
	}
	for _, prop := range properties(schema) {
		allowNullContainers(prop)
	}
}

func properties(schema map[string]any) []map[string]any {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(props))
	for _, p := range props {
		if pm, ok := p.(map[string]any); ok {
			out = append(out, pm)
		}
	}
	return out
}

// ValidateValue checks v against schema after normalizing it through a JSON
// round-trip, so typed structs and wire maps validate identically.
func ValidateValue(schema *jsonschema.Schema, v any) error {
	if schema == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	return schema.Validate(generic)
}
