package datacache

// Caches the allowed-value domains of enumerated fields from the
// dataset schema document. The schema lists dataset-level and
// resource-level field descriptors, each optionally carrying a list of
// choices.
func (c *Cache) SetScheming(schema map[string]any) {
	for _, section := range []string{"dataset_fields", "resource_fields"} {
		fields, ok := schema[section].([]any)
		if !ok {
			continue
		}
		for _, field := range fields {
			descriptor, ok := field.(map[string]any)
			if !ok {
				continue
			}
			name, ok := descriptor["field_name"].(string)
			if !ok || name == "" {
				continue
			}
			choices, ok := descriptor["choices"].([]any)
			if !ok {
				continue
			}
			var values []string
			for _, choice := range choices {
				choiceMap, ok := choice.(map[string]any)
				if !ok {
					continue
				}
				if value, ok := choiceMap["value"].(string); ok {
					values = append(values, value)
				}
			}
			if len(values) > 0 {
				c.domains[name] = values
			}
		}
	}
}

// Returns the allowed-value list of an enumerated field, or nil when
// the schema does not constrain it.
func (c *Cache) GetDomain(fieldName string) []string {
	return c.domains[fieldName]
}

// Indicates whether the value belongs to the allowed-value domain of
// the field. A field without a cached domain accepts nothing, which
// makes the validation transformers fall back to their defaults.
func (c *Cache) InDomain(fieldName, value string) bool {
	for _, allowed := range c.domains[fieldName] {
		if allowed == value {
			return true
		}
	}
	return false
}
