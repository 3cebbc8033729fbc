package llm

// Schema is the subset of JSON Schema shared by every provider: objects with
// typed scalar properties, arrays and enums. Providers convert it to their
// own representation.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Required    []string
	Enum        []string
	Items       *Schema
	// Nullable permits JSON null in addition to Type.
	Nullable bool
}

const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Object builds an object schema.
func Object(properties map[string]*Schema, required ...string) *Schema {
	if properties == nil {
		properties = map[string]*Schema{}
	}
	return &Schema{Type: TypeObject, Properties: properties, Required: required}
}

func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

// Enum builds a string schema limited to the given values.
func Enum(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: description, Enum: values}
}

// OrNull returns a copy of s that also accepts null.
func (s *Schema) OrNull() *Schema {
	c := *s
	c.Nullable = true
	return &c
}

// Map renders the schema as a JSON Schema document.
//
// Objects always carry additionalProperties=false so the document is valid
// for strict structured output modes.
func (s *Schema) Map() map[string]interface{} {
	if s == nil {
		return map[string]interface{}{"type": TypeObject, "properties": map[string]interface{}{}}
	}
	m := map[string]interface{}{}
	if s.Nullable {
		m["type"] = []string{s.Type, "null"}
	} else {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = append([]string(nil), s.Enum...)
	}
	if s.Items != nil {
		m["items"] = s.Items.Map()
	}
	if s.Type == TypeObject {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.Map()
		}
		m["properties"] = props
		m["additionalProperties"] = false
		if len(s.Required) > 0 {
			m["required"] = append([]string(nil), s.Required...)
		}
	}
	return m
}
