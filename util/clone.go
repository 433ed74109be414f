package catutil

// Returns a deep copy of a JSON-compatible map. Nested maps and lists
// are cloned recursively; scalar values are copied as-is.
func DeepCloneMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}
	clone := make(map[string]any, len(source))
	for key, value := range source {
		clone[key] = CloneValue(value)
	}
	return clone
}

// Returns a deep copy of a JSON-compatible value.
func CloneValue(value any) any {
	switch typedValue := value.(type) {
	case map[string]any:
		return DeepCloneMap(typedValue)
	case []any:
		clone := make([]any, len(typedValue))
		for i, element := range typedValue {
			clone[i] = CloneValue(element)
		}
		return clone
	default:
		return value
	}
}
