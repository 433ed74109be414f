// Package configstore covers the on-disk side of a run: resolving the
// transformation-configuration document, caching raw fetch results as
// JSON files to shortcut re-fetches during development, and writing
// the per-run debug dumps.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/opencatalog/catsync/datamodel"
	"github.com/opencatalog/catsync/transformcfg"
	catutil "github.com/opencatalog/catsync/util"
)

// Loads the transformation configuration from the given path, or the
// document embedded in the binary when no path is set.
func LoadTransformConfig(path string) (*transformcfg.Config, error) {
	if path == "" {
		return transformcfg.LoadDefault()
	}
	return transformcfg.Load(path)
}

// FetchCache persists raw fetch results between runs. It only
// accelerates development; correctness never depends on it.
type FetchCache struct {
	dir string
}

// Creates a fetch cache rooted at the directory.
func NewFetchCache(dir string) *FetchCache {
	return &FetchCache{dir: dir}
}

func (c *FetchCache) filePath(kind datamodel.Kind, origin datamodel.Origin) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s-%s.json", origin, kind))
}

// Persists the raw records of one kind from one side.
func (c *FetchCache) Save(kind datamodel.Kind, origin datamodel.Origin, records []map[string]any) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create the fetch cache directory %s", c.dir)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "cannot serialize the fetch result")
	}
	path := c.filePath(kind, origin)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "cannot write the fetch result to %s", path)
	}
	return nil
}

// Reloads the raw records of one kind from one side. The second
// returned value indicates whether a cached result exists.
func (c *FetchCache) Load(kind datamodel.Kind, origin datamodel.Origin) ([]map[string]any, bool, error) {
	path := c.filePath(kind, origin)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "cannot read the fetch result from %s", path)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, errors.Wrapf(err, "cannot parse the fetch result in %s", path)
	}
	return records, true, nil
}

// DebugDumper writes the structures compared by the diff and the
// proposed update payloads into a per-run dump directory. Enabled by
// the DUMP_DEBUG_DATA setting.
type DebugDumper struct {
	dir string
}

var _ datamodel.Dumper = (*DebugDumper)(nil)

// Creates the per-run dump directory under the base directory.
func NewDebugDumper(baseDir string) (*DebugDumper, error) {
	dir := filepath.Join(baseDir, catutil.UTCNow().Format("run-20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create the debug dump directory %s", dir)
	}
	return &DebugDumper{dir: dir}, nil
}

// Writes the two compared views of one entity.
func (d *DebugDumper) DumpDiff(kind datamodel.Kind, key string, src, dest map[string]any) {
	d.write(kind, key, "src", src)
	d.write(kind, key, "dest", dest)
}

// Writes the proposed update payload of one entity.
func (d *DebugDumper) DumpPayload(kind datamodel.Kind, key string, payload map[string]any) {
	d.write(kind, key, "payload", payload)
}

func (d *DebugDumper) write(kind datamodel.Kind, key, suffix string, value map[string]any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Warnf("Cannot serialize the %s debug dump of %s %s: %s", suffix, kind, key, err)
		return
	}
	name := fmt.Sprintf("%s-%s-%s.json", kind, sanitizeFileName(key), suffix)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		log.Warnf("Cannot write the debug dump %s: %s", name, err)
	}
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
