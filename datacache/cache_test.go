package datacache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencatalog/catsync/datamodel"
)

// Minimal configuration stub: every kind is keyed by name with the id
// auto-id field.
type stubConfig struct{}

func (stubConfig) UniqueIDField(kind datamodel.Kind) string            { return "name" }
func (stubConfig) UserPopulated(kind datamodel.Kind) *datamodel.Shape  { return nil }
func (stubConfig) IgnoreList(kind datamodel.Kind) []string             { return nil }
func (stubConfig) RequiredDefaults(kind datamodel.Kind) map[string]any { return nil }
func (stubConfig) FieldsToInclude(kind datamodel.Kind, phase datamodel.Phase) []string {
	return nil
}
func (stubConfig) IDFields(kind datamodel.Kind) []datamodel.IDField { return nil }
func (stubConfig) FieldMapping(kind datamodel.Kind) datamodel.FieldMapping {
	return datamodel.FieldMapping{UserKey: "name", AutoID: "id"}
}
func (stubConfig) TransformMethods(kind datamodel.Kind) []datamodel.TransformMethod {
	return nil
}

func newPopulatedCache(t *testing.T) *Cache {
	cache := NewCache(stubConfig{})
	err := cache.AddRawData([]map[string]any{
		{"name": "org-a", "id": "src-a"},
		{"name": "org-b", "id": "src-b"},
	}, datamodel.KindOrganizations, datamodel.OriginSource)
	require.NoError(t, err)
	err = cache.AddRawData([]map[string]any{
		{"name": "org-a", "id": "dest-a"},
	}, datamodel.KindOrganizations, datamodel.OriginDestination)
	require.NoError(t, err)
	return cache
}

// Test the cross-instance auto-id translation through the shared user
// key.
func TestSrcToDestRemap(t *testing.T) {
	cache := newPopulatedCache(t)

	// Known source id with a destination counterpart.
	require.Equal(t, "dest-a", cache.SrcToDestRemap("id", datamodel.KindOrganizations,
		"src-a", datamodel.OriginSource))
	// Known source id without a destination counterpart stays.
	require.Equal(t, "src-b", cache.SrcToDestRemap("id", datamodel.KindOrganizations,
		"src-b", datamodel.OriginSource))
	// A value that is already a user key resolves directly.
	require.Equal(t, "dest-a", cache.SrcToDestRemap("id", datamodel.KindOrganizations,
		"org-a", datamodel.OriginSource))
	// An unknown value passes through.
	require.Equal(t, "mystery", cache.SrcToDestRemap("id", datamodel.KindOrganizations,
		"mystery", datamodel.OriginSource))
}

// Test the destination auto-id presence check.
func TestIsAutoIDPresentInDest(t *testing.T) {
	cache := newPopulatedCache(t)
	require.True(t, cache.IsAutoIDPresentInDest("id", datamodel.KindOrganizations, "dest-a"))
	require.False(t, cache.IsAutoIDPresentInDest("id", datamodel.KindOrganizations, "src-a"))
}

// Test both directed field translations on one side.
func TestFieldTranslations(t *testing.T) {
	cache := newPopulatedCache(t)

	name, ok := cache.GetUserDefinedValue("id", "src-a", "name",
		datamodel.KindOrganizations, datamodel.OriginSource)
	require.True(t, ok)
	require.Equal(t, "org-a", name)

	id, ok := cache.GetAutoDefinedValue("name", "org-a", "id",
		datamodel.KindOrganizations, datamodel.OriginDestination)
	require.True(t, ok)
	require.Equal(t, "dest-a", id)

	// Field pairs outside the configured mapping are refused.
	_, ok = cache.GetUserDefinedValue("title", "src-a", "name",
		datamodel.KindOrganizations, datamodel.OriginSource)
	require.False(t, ok)
	_, ok = cache.GetAutoDefinedValue("name", "absent", "id",
		datamodel.KindOrganizations, datamodel.OriginSource)
	require.False(t, ok)
}

// Test that records without the user key field are skipped.
func TestAddRawDataMissingKey(t *testing.T) {
	cache := NewCache(stubConfig{})
	err := cache.AddRawData([]map[string]any{
		{"id": "no-name"},
		{"name": "kept", "id": "id-1"},
	}, datamodel.KindGroups, datamodel.OriginSource)
	require.NoError(t, err)

	id, ok := cache.GetAutoDefinedValue("name", "kept", "id",
		datamodel.KindGroups, datamodel.OriginSource)
	require.True(t, ok)
	require.Equal(t, "id-1", id)
	_, ok = cache.GetUserDefinedValue("id", "no-name", "name",
		datamodel.KindGroups, datamodel.OriginSource)
	require.False(t, ok)
}

// Test that users are indexed by email on both sides.
func TestUserEmailIndex(t *testing.T) {
	cache := NewCache(stubConfig{})
	err := cache.AddRawData([]map[string]any{
		{"name": "alice", "id": "u1", "email": "alice@example.org"},
	}, datamodel.KindUsers, datamodel.OriginSource)
	require.NoError(t, err)
	err = cache.AddRawData([]map[string]any{
		{"name": "alice-renamed", "id": "u9", "email": "alice@example.org"},
	}, datamodel.KindUsers, datamodel.OriginDestination)
	require.NoError(t, err)

	require.Equal(t, map[string]string{"alice@example.org": "alice"},
		cache.UserEmailToName(datamodel.OriginSource))

	name, ok := cache.UserEmailToNameLookup(datamodel.OriginDestination, "alice@example.org")
	require.True(t, ok)
	require.Equal(t, "alice-renamed", name)

	email, ok := cache.UserNameToEmail(datamodel.OriginSource, "alice")
	require.True(t, ok)
	require.Equal(t, "alice@example.org", email)

	_, ok = cache.UserNameToEmail(datamodel.OriginSource, "nobody")
	require.False(t, ok)
}

// Test that a source user without an email is flagged as ignored while
// a destination user without one is tolerated.
func TestNullEmailFlagging(t *testing.T) {
	cache := NewCache(stubConfig{})
	err := cache.AddRawData([]map[string]any{
		{"name": "ghost", "id": "u1"},
		{"name": "nil-email", "id": "u2", "email": nil},
	}, datamodel.KindUsers, datamodel.OriginSource)
	require.NoError(t, err)
	require.True(t, cache.IsIgnored(datamodel.KindUsers, "ghost"))
	require.True(t, cache.IsIgnored(datamodel.KindUsers, "nil-email"))

	err = cache.AddRawData([]map[string]any{
		{"name": "dest-ghost", "id": "u3"},
	}, datamodel.KindUsers, datamodel.OriginDestination)
	require.NoError(t, err)
	require.False(t, cache.IsIgnored(datamodel.KindUsers, "dest-ghost"))
}

// Test that all source users sharing an email are flagged, including
// the first one seen, and the email is dropped from the index.
func TestDuplicateEmailFlagging(t *testing.T) {
	cache := NewCache(stubConfig{})
	err := cache.AddRawData([]map[string]any{
		{"name": "first", "id": "u1", "email": "shared@example.org"},
		{"name": "second", "id": "u2", "email": "shared@example.org"},
		{"name": "third", "id": "u3", "email": "shared@example.org"},
		{"name": "clean", "id": "u4", "email": "clean@example.org"},
	}, datamodel.KindUsers, datamodel.OriginSource)
	require.NoError(t, err)

	require.True(t, cache.IsIgnored(datamodel.KindUsers, "first"))
	require.True(t, cache.IsIgnored(datamodel.KindUsers, "second"))
	require.True(t, cache.IsIgnored(datamodel.KindUsers, "third"))
	require.False(t, cache.IsIgnored(datamodel.KindUsers, "clean"))

	require.Equal(t, map[string]string{"clean@example.org": "clean"},
		cache.UserEmailToName(datamodel.OriginSource))
	require.ElementsMatch(t, []string{"first", "second", "third"},
		cache.IgnoredKeys(datamodel.KindUsers))
}

// Test caching the allowed-value domains from the dataset schema.
func TestScheming(t *testing.T) {
	cache := NewCache(stubConfig{})
	cache.SetScheming(map[string]any{
		"dataset_fields": []any{
			map[string]any{
				"field_name": "security_class",
				"choices": []any{
					map[string]any{"value": "LOW-PUBLIC"},
					map[string]any{"value": "HIGH-CLASSIFIED"},
				},
			},
			map[string]any{"field_name": "title"},
		},
		"resource_fields": []any{
			map[string]any{
				"field_name": "resource_storage_format",
				"choices": []any{
					map[string]any{"value": "CSV"},
				},
			},
		},
	})

	require.Equal(t, []string{"LOW-PUBLIC", "HIGH-CLASSIFIED"}, cache.GetDomain("security_class"))
	require.True(t, cache.InDomain("security_class", "LOW-PUBLIC"))
	require.False(t, cache.InDomain("security_class", "TOP-SECRET"))
	require.True(t, cache.InDomain("resource_storage_format", "CSV"))

	// A field without choices has no domain and accepts nothing.
	require.Nil(t, cache.GetDomain("title"))
	require.False(t, cache.InDomain("title", "anything"))
}
