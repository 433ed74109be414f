package syncer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencatalog/catsync/configstore"
	"github.com/opencatalog/catsync/datacache"
	"github.com/opencatalog/catsync/datamodel"
	"github.com/opencatalog/catsync/transform"
	"github.com/opencatalog/catsync/transformcfg"
)

func newRunnerFixture(t *testing.T, src, dest *fakeClient, fetchCache *configstore.FetchCache, useCache bool) *Runner {
	config, err := transformcfg.LoadDefault()
	require.NoError(t, err)
	cache := datacache.NewCache(config)
	registry := transform.NewRegistry(cache, "src.example.org", "dest.example.org")
	require.NoError(t, registry.Validate(config))
	env := &datamodel.Env{
		Config:   config,
		Cache:    cache,
		Registry: registry,
	}
	updater := NewUpdater(dest, config, "", nil, false)
	return NewRunner(src, dest, env, cache, updater, fetchCache, useCache)
}

// Test a full run over all four kinds: equal sides come through
// untouched, missing destination records are created and the package
// schema is fetched before the package pass.
func TestRunnerRun(t *testing.T) {
	src := newFakeClient()
	dest := newFakeClient()

	src.users = []map[string]any{
		{"name": "alice", "id": "su1", "email": "alice@example.org", "fullname": "Alice"},
	}
	dest.users = []map[string]any{
		{"name": "alice", "id": "du1", "email": "alice@example.org", "fullname": "Alice"},
	}
	src.groups = []map[string]any{
		{"name": "new-group", "id": "sg1", "title": "New Group"},
	}
	src.organizations = []map[string]any{
		{"name": "ministry", "id": "so1", "title": "Ministry"},
	}
	dest.organizations = []map[string]any{
		{"name": "ministry", "id": "do1", "title": "Ministry"},
	}
	src.packageNames = []string{"fresh-data"}
	src.packages["fresh-data"] = map[string]any{
		"name":      "fresh-data",
		"id":        "sp1",
		"owner_org": "so1",
	}

	runner := newRunnerFixture(t, src, dest, nil, false)
	require.NoError(t, runner.Run())

	require.Contains(t, dest.calls, "group_create:new-group")
	require.Contains(t, dest.calls, "package_create:fresh-data")
	require.NotContains(t, dest.calls, "user_create:alice")
	require.NotContains(t, dest.calls, "organization_create:ministry")
	// The schema precedes the package pass on the source side.
	require.Contains(t, src.calls, "scheming_dataset_schema_show:bcdc_dataset")
}

// Test that a new package has its owner_org reference translated to
// the destination-side auto-id of the same organization.
func TestRunnerRemapsOwnerOrg(t *testing.T) {
	src := newFakeClient()
	dest := newFakeClient()

	src.organizations = []map[string]any{
		{"name": "ministry", "id": "src-org-uuid", "title": "Ministry"},
	}
	dest.organizations = []map[string]any{
		{"name": "ministry", "id": "dest-org-uuid", "title": "Ministry"},
	}
	src.packageNames = []string{"pkg"}
	src.packages["pkg"] = map[string]any{
		"name":      "pkg",
		"owner_org": "src-org-uuid",
	}

	runner := newRunnerFixture(t, src, dest, nil, false)
	require.NoError(t, runner.Run())

	require.Contains(t, dest.calls, "package_create:pkg")
	var created map[string]any
	for _, payload := range dest.payloads {
		if payloadKey(payload) == "pkg" {
			created = payload
		}
	}
	require.NotNil(t, created)
	require.Equal(t, "dest-org-uuid", created["owner_org"])
}

// Test that a second run over the state the first one produced is a
// fixed point: nothing is written.
func TestRunnerIdempotent(t *testing.T) {
	src := newFakeClient()
	dest := newFakeClient()

	src.users = []map[string]any{
		{"name": "alice", "id": "su1", "email": "alice@example.org"},
	}
	dest.users = []map[string]any{
		// Same person under another username and auto-id.
		{"name": "alice-dest", "id": "du1", "email": "alice@example.org"},
	}
	src.groups = []map[string]any{
		{"name": "grp", "id": "sg1", "title": "Group"},
	}
	dest.groups = []map[string]any{
		{"name": "grp", "id": "dg1", "title": "Group"},
	}

	runner := newRunnerFixture(t, src, dest, nil, false)
	require.NoError(t, runner.Run())

	for _, call := range dest.calls {
		require.NotContains(t, call, "_create:")
		require.NotContains(t, call, "_delete:")
		require.NotContains(t, call, "_update:")
	}
}

// Test that enabled fetch caching shortcuts the round trip and a cache
// miss falls back to fetching.
func TestRunnerFetchCache(t *testing.T) {
	fetchCache := configstore.NewFetchCache(t.TempDir())
	cached := []map[string]any{
		{"name": "cached-user", "id": "u1", "email": "cached@example.org"},
	}
	require.NoError(t, fetchCache.Save(datamodel.KindUsers, datamodel.OriginSource, cached))

	src := newFakeClient()
	src.users = []map[string]any{{"name": "live-user"}}
	runner := newRunnerFixture(t, src, newFakeClient(), fetchCache, true)

	records, err := runner.fetch(datamodel.KindUsers, datamodel.OriginSource)
	require.NoError(t, err)
	require.Equal(t, cached, records)
	require.Empty(t, src.calls)

	// No cached groups exist, so the client is consulted.
	src.groups = []map[string]any{{"name": "grp"}}
	records, err = runner.fetch(datamodel.KindGroups, datamodel.OriginSource)
	require.NoError(t, err)
	require.Equal(t, src.groups, records)
	require.Equal(t, []string{"group_list:"}, src.calls)
}

// Test that fetch results are written to the cache when caching is on
// the save side.
func TestRunnerFetchCacheSave(t *testing.T) {
	fetchCache := configstore.NewFetchCache(t.TempDir())
	src := newFakeClient()
	src.organizations = []map[string]any{{"name": "org", "id": "o1"}}
	runner := newRunnerFixture(t, src, newFakeClient(), fetchCache, false)

	_, err := runner.fetch(datamodel.KindOrganizations, datamodel.OriginSource)
	require.NoError(t, err)

	saved, ok, err := fetchCache.Load(datamodel.KindOrganizations, datamodel.OriginSource)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, src.organizations, saved)
}
