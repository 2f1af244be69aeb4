package llm

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"google.golang.org/genai"
)

// SchemaFor reflects T into an inline JSON schema with no $ref indirection.
func SchemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// schemaJSON renders the schema for providers that only take it through the prompt.
func schemaJSON(s *jsonschema.Schema) string {
	if s == nil {
		return ""
	}
	data, err := json.MarshalIndent(stripMeta(s), "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// stripMeta drops $schema and $id, which some providers reject.
func stripMeta(s *jsonschema.Schema) *jsonschema.Schema {
	cp := *s
	cp.Version = ""
	cp.ID = ""
	return &cp
}

// schemaMap turns the schema into a plain map for clients that take `any`.
func schemaMap(s *jsonschema.Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	data, err := json.Marshal(stripMeta(s))
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// genaiSchema converts a reflected schema into Gemini's OpenAPI subset,
// keeping property order so the model emits fields in declaration order.
func genaiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	for _, e := range s.Enum {
		if str, ok := e.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	if s.Items != nil {
		out.Items = genaiSchema(s.Items)
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = genaiSchema(pair.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "string":
		return genai.TypeString
	}
	return genai.TypeUnspecified
}

// propertiesOf returns the top-level properties and required list of an object schema.
func propertiesOf(s *jsonschema.Schema) (*orderedmap.OrderedMap[string, *jsonschema.Schema], []string) {
	if s == nil || s.Properties == nil {
		return orderedmap.New[string, *jsonschema.Schema](), nil
	}
	return s.Properties, s.Required
}
