package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencatalog/catsync/datamodel"
)

// Test that the embedded default document backs an empty path and a
// file backs a set one.
func TestLoadTransformConfig(t *testing.T) {
	config, err := LoadTransformConfig("")
	require.NoError(t, err)
	require.Equal(t, "name", config.UniqueIDField(datamodel.KindPackages))

	dir := t.TempDir()
	path := filepath.Join(dir, "transform.json")
	document := `{
		"users": {"unique_id_field": "email"},
		"groups": {"unique_id_field": "name"},
		"organizations": {"unique_id_field": "name"},
		"packages": {"unique_id_field": "name"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))
	config, err = LoadTransformConfig(path)
	require.NoError(t, err)
	require.Equal(t, "email", config.UniqueIDField(datamodel.KindUsers))

	_, err = LoadTransformConfig(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

// Test the fetch cache roundtrip per kind and origin.
func TestFetchCacheRoundtrip(t *testing.T) {
	cache := NewFetchCache(filepath.Join(t.TempDir(), "cache"))

	records := []map[string]any{
		{"name": "org-a", "id": "1"},
		{"name": "org-b", "id": "2"},
	}
	require.NoError(t, cache.Save(datamodel.KindOrganizations, datamodel.OriginSource, records))

	loaded, ok, err := cache.Load(datamodel.KindOrganizations, datamodel.OriginSource)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, records, loaded)

	// The same kind on the other side is a separate entry.
	_, ok, err = cache.Load(datamodel.KindOrganizations, datamodel.OriginDestination)
	require.NoError(t, err)
	require.False(t, ok)
}

// Test that a corrupt cache file fails instead of silently yielding an
// empty fetch result.
func TestFetchCacheCorruptFile(t *testing.T) {
	dir := t.TempDir()
	cache := NewFetchCache(dir)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "source-users.json"), []byte("not json"), 0o644))

	_, _, err := cache.Load(datamodel.KindUsers, datamodel.OriginSource)
	require.Error(t, err)
}

// Test that the dumper writes both compared views and the update
// payload into its per-run directory, with unsafe key characters
// replaced.
func TestDebugDumper(t *testing.T) {
	baseDir := t.TempDir()
	dumper, err := NewDebugDumper(baseDir)
	require.NoError(t, err)

	dumper.DumpDiff(datamodel.KindPackages, "pkg/one",
		map[string]any{"name": "pkg/one", "title": "src"},
		map[string]any{"name": "pkg/one", "title": "dest"})
	dumper.DumpPayload(datamodel.KindPackages, "pkg/one",
		map[string]any{"name": "pkg/one", "title": "src"})

	runDirs, err := os.ReadDir(baseDir)
	require.NoError(t, err)
	require.Len(t, runDirs, 1)

	files, err := os.ReadDir(filepath.Join(baseDir, runDirs[0].Name()))
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name())
	}
	require.ElementsMatch(t, []string{
		"packages-pkg_one-src.json",
		"packages-pkg_one-dest.json",
		"packages-pkg_one-payload.json",
	}, names)
}
