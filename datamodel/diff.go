package datamodel

import (
	"reflect"

	catutil "github.com/opencatalog/catsync/util"
)

// Compares two comparable views of the given kind. For packages the
// resources list is diffed separately before the remaining top-level
// fields; the general recursive diff is weak on lists of dicts and the
// catalog treats resource changes as package changes.
func EqualViews(kind Kind, src, dest map[string]any) bool {
	if kind == KindPackages {
		if !RelaxedEqual(src["resources"], dest["resources"]) {
			return false
		}
		return relaxedEqualMaps(src, dest, "resources")
	}
	return relaxedEqualMaps(src, dest)
}

// Reports deep equality of two JSON-compatible values with one
// relaxation: a value that is null, an empty sequence, an empty mapping
// or an empty string is equal to any other such empty sentinel and to
// the absence of the key. The catalog API is inconsistent about how
// absent optional fields come back across versions.
func RelaxedEqual(a, b any) bool {
	if catutil.IsEmptyValue(a) && catutil.IsEmptyValue(b) {
		return true
	}
	switch typedA := a.(type) {
	case map[string]any:
		typedB, ok := b.(map[string]any)
		if !ok {
			return false
		}
		return relaxedEqualMaps(typedA, typedB)
	case []any:
		typedB, ok := b.([]any)
		if !ok {
			return false
		}
		if len(typedA) != len(typedB) {
			return false
		}
		for i := range typedA {
			if !RelaxedEqual(typedA[i], typedB[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// Compares two maps over the union of their keys, treating a missing
// key as null. Keys listed in skipKeys are excluded.
func relaxedEqualMaps(a, b map[string]any, skipKeys ...string) bool {
	skipped := make(map[string]struct{}, len(skipKeys))
	for _, key := range skipKeys {
		skipped[key] = struct{}{}
	}
	keys := make(map[string]struct{}, len(a)+len(b))
	for key := range a {
		keys[key] = struct{}{}
	}
	for key := range b {
		keys[key] = struct{}{}
	}
	for key := range keys {
		if _, skip := skipped[key]; skip {
			continue
		}
		if !RelaxedEqual(a[key], b[key]) {
			return false
		}
	}
	return true
}
