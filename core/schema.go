package core

// Schema helpers for describing agent payloads as JSON Schema.

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property.
func StringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// NumberProperty creates a number property.
func NumberProperty(description string) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
	}
}

// IntegerProperty creates an integer property.
func IntegerProperty(description string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": description,
	}
}

// ArrayProperty creates an array property with the given item type.
func ArrayProperty(description string, itemType map[string]any) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       itemType,
	}
}

// WithTaskOverride adds the optional "task" property every payload accepts.
// The schema is copied; the original is left untouched.
func WithTaskOverride(schema map[string]any) map[string]any {
	result := make(map[string]any, len(schema))
	for k, v := range schema {
		result[k] = v
	}

	props := make(map[string]any)
	if existing, ok := result["properties"].(map[string]any); ok {
		for k, v := range existing {
			props[k] = v
		}
	}
	props[KeyTask] = StringProperty(
		"Optional: name of the task to run. Skips content-based routing when set.",
	)
	result["properties"] = props

	return result
}

// BuildSchema creates an ObjectSchema that also accepts the task override.
func BuildSchema(properties map[string]any, required ...string) map[string]any {
	return WithTaskOverride(ObjectSchema(properties, required...))
}
