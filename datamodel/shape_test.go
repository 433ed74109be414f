package datamodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test parsing a boolean leaf shape.
func TestShapeUnmarshalLeaf(t *testing.T) {
	var shape Shape
	require.NoError(t, json.Unmarshal([]byte(`true`), &shape))
	require.True(t, shape.IsLeaf())
	require.True(t, shape.Keep())

	require.NoError(t, json.Unmarshal([]byte(`false`), &shape))
	require.True(t, shape.IsLeaf())
	require.False(t, shape.Keep())
}

// Test parsing an object shape with nested sub-shapes.
func TestShapeUnmarshalObject(t *testing.T) {
	var shape Shape
	data := []byte(`{"name": true, "id": false, "extras": {"key": true}}`)
	require.NoError(t, json.Unmarshal(data, &shape))
	require.False(t, shape.IsLeaf())
	require.Len(t, shape.Object(), 3)
	require.True(t, shape.Object()["name"].Keep())
	require.False(t, shape.Object()["id"].Keep())
	require.True(t, shape.Object()["extras"].Object()["key"].Keep())
}

// Test parsing a single-element list shape.
func TestShapeUnmarshalList(t *testing.T) {
	var shape Shape
	data := []byte(`[{"name": true}]`)
	require.NoError(t, json.Unmarshal(data, &shape))
	require.NotNil(t, shape.List())
	require.True(t, shape.List().Object()["name"].Keep())
}

// Test that a list shape with other than one template is rejected.
func TestShapeUnmarshalListBadLength(t *testing.T) {
	var shape Shape
	require.Error(t, json.Unmarshal([]byte(`[]`), &shape))
	require.Error(t, json.Unmarshal([]byte(`[true, false]`), &shape))
}

// Test that non-shape JSON is rejected.
func TestShapeUnmarshalInvalid(t *testing.T) {
	var shape Shape
	require.Error(t, json.Unmarshal([]byte(`42`), &shape))
	require.Error(t, json.Unmarshal([]byte(`"name"`), &shape))
}

// Test filtering a payload against a shape tree: dropped fields vanish,
// missing declared fields fill with null and the list template applies
// to every element.
func TestFilterByShape(t *testing.T) {
	var shape Shape
	data := []byte(`{
		"name": true,
		"id": false,
		"notes": true,
		"users": [{"name": true, "sysadmin": false}]
	}`)
	require.NoError(t, json.Unmarshal(data, &shape))

	payload := map[string]any{
		"name":     "grp",
		"id":       "auto-id",
		"internal": "dropped",
		"users": []any{
			map[string]any{"name": "alice", "sysadmin": true, "state": "active"},
		},
	}
	filtered := filterByShape(payload, &shape)
	require.Equal(t, map[string]any{
		"name":  "grp",
		"notes": nil,
		"users": []any{
			map[string]any{"name": "alice"},
		},
	}, filtered)
}

// Test that a nil or leaf-only shape leaves the payload untouched.
func TestFilterByShapeNoShape(t *testing.T) {
	payload := map[string]any{"name": "grp", "id": "auto-id"}
	require.Equal(t, payload, filterByShape(payload, nil))
}

// Test inserting required defaults at missing and falsy paths, leaving
// meaningful values alone.
func TestApplyRequiredDefaults(t *testing.T) {
	view := map[string]any{
		"title":  "",
		"state":  "active",
		"weight": float64(0),
		"resources": []any{
			map[string]any{"format": "", "name": "res"},
			map[string]any{"format": "CSV"},
		},
	}
	defaults := map[string]any{
		"title":  "Untitled",
		"state":  "deleted",
		"weight": float64(10),
		"notes":  "none",
		"resources": []any{
			map[string]any{"format": "UNKNOWN"},
		},
	}
	applyRequiredDefaults(view, defaults)
	require.Equal(t, "Untitled", view["title"])
	require.Equal(t, "active", view["state"])
	require.Equal(t, float64(10), view["weight"])
	require.Equal(t, "none", view["notes"])
	resources := view["resources"].([]any)
	require.Equal(t, "UNKNOWN", resources[0].(map[string]any)["format"])
	require.Equal(t, "res", resources[0].(map[string]any)["name"])
	require.Equal(t, "CSV", resources[1].(map[string]any)["format"])
}

// Test that a single-element list of defaults acts as a per-element
// template only. It must not be inserted as content when the list is
// absent, null or empty.
func TestApplyRequiredDefaultsListTemplateNotMaterialized(t *testing.T) {
	defaults := map[string]any{
		"resources": []any{
			map[string]any{"resource_update_cycle": "notApplicable"},
		},
	}

	absent := map[string]any{"name": "pkg"}
	applyRequiredDefaults(absent, defaults)
	require.NotContains(t, absent, "resources")

	null := map[string]any{"name": "pkg", "resources": nil}
	applyRequiredDefaults(null, defaults)
	require.Nil(t, null["resources"])

	empty := map[string]any{"name": "pkg", "resources": []any{}}
	applyRequiredDefaults(empty, defaults)
	require.Empty(t, empty["resources"])
}

// Test that a list default that is not a per-element template is still
// inserted verbatim when the field is missing.
func TestApplyRequiredDefaultsLiteralList(t *testing.T) {
	defaults := map[string]any{
		"tags": []any{"open-data", "synced"},
	}
	view := map[string]any{"name": "pkg"}
	applyRequiredDefaults(view, defaults)
	require.Equal(t, []any{"open-data", "synced"}, view["tags"])
}

// Test that nested default maps recurse into existing sub-maps instead
// of replacing them.
func TestApplyRequiredDefaultsNestedMap(t *testing.T) {
	view := map[string]any{
		"contact": map[string]any{"name": "alice", "email": ""},
	}
	defaults := map[string]any{
		"contact": map[string]any{"email": "unknown@example.org", "role": "editor"},
	}
	applyRequiredDefaults(view, defaults)
	contact := view["contact"].(map[string]any)
	require.Equal(t, "alice", contact["name"])
	require.Equal(t, "unknown@example.org", contact["email"])
	require.Equal(t, "editor", contact["role"])
}
