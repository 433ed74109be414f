package datamodel

import (
	catutil "github.com/opencatalog/catsync/util"
)

// Filters a cloned raw payload against the user-populated-properties
// shape tree. Only leaves configured as true survive; fields named in
// the shape but missing from the payload are filled with null; a list
// shape applies its single template to every element.
func filterByShape(payload map[string]any, shape *Shape) map[string]any {
	if shape == nil || shape.Object() == nil {
		return payload
	}
	filtered := filterValue(payload, shape)
	if filteredMap, ok := filtered.(map[string]any); ok {
		return filteredMap
	}
	return map[string]any{}
}

// Filters a single value against its shape. The second returned value
// indicates whether the field is retained at all.
func filterValue(value any, shape *Shape) any {
	switch {
	case shape.IsLeaf():
		return value
	case shape.Object() != nil:
		valueMap, ok := value.(map[string]any)
		if !ok {
			// A field described as an object but absent or of another
			// type compares as null.
			return nil
		}
		filtered := make(map[string]any)
		for key, childShape := range shape.Object() {
			if childShape.IsLeaf() && !childShape.Keep() {
				continue
			}
			childValue, present := valueMap[key]
			if !present {
				filtered[key] = nil
				continue
			}
			filtered[key] = filterValue(childValue, childShape)
		}
		return filtered
	case shape.List() != nil:
		valueList, ok := value.([]any)
		if !ok {
			return nil
		}
		filtered := make([]any, 0, len(valueList))
		for _, element := range valueList {
			filtered = append(filtered, filterValue(element, shape.List()))
		}
		return filtered
	}
	return value
}

// Recognizes a single-element list of object defaults as a per-element
// template, mirroring the list convention of the user-populated
// properties tree.
func listTemplate(defaults []any) (map[string]any, bool) {
	if len(defaults) != 1 {
		return nil, false
	}
	elementDefaults, ok := defaults[0].(map[string]any)
	return elementDefaults, ok
}

// Inserts configured default values into a source record's view at
// paths that are missing or falsy. The defaults tree mirrors the
// entity shape; a single-element list of defaults is a template
// applied to the elements of the corresponding list in the view.
func applyRequiredDefaults(view map[string]any, defaults map[string]any) {
	for key, defaultValue := range defaults {
		current, present := view[key]
		switch typedDefault := defaultValue.(type) {
		case map[string]any:
			if currentMap, ok := current.(map[string]any); ok {
				applyRequiredDefaults(currentMap, typedDefault)
			} else if !present || catutil.IsFalsyValue(current) {
				view[key] = catutil.CloneValue(typedDefault)
			}
		case []any:
			elementDefaults, isTemplate := listTemplate(typedDefault)
			if !isTemplate {
				if !present || catutil.IsFalsyValue(current) {
					view[key] = catutil.CloneValue(typedDefault)
				}
				continue
			}
			// The template fills holes in existing elements but never
			// materializes elements on its own, so an absent or empty
			// list stays empty.
			currentList, _ := current.([]any)
			for _, element := range currentList {
				if elementMap, ok := element.(map[string]any); ok {
					applyRequiredDefaults(elementMap, elementDefaults)
				}
			}
		default:
			if !present || catutil.IsFalsyValue(current) {
				view[key] = defaultValue
			}
		}
	}
}
