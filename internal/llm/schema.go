package llm

import "github.com/invopop/jsonschema"

// SchemaFor reflects a strict JSON schema for T, suitable for structured outputs.
// The $schema and $id keywords are dropped; backends reject them.
func SchemaFor[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	s := reflector.Reflect(v)
	s.Version = ""
	s.ID = ""
	return s
}
