package datamodel

import (
	"github.com/pkg/errors"
)

// Configuration stub with per-kind settings filled in by the tests.
type testConfig struct {
	uniqueID map[Kind]string
	shapes   map[Kind]*Shape
	ignore   map[Kind][]string
	defaults map[Kind]map[string]any
	include  map[Kind]map[Phase][]string
	idFields map[Kind][]IDField
	mappings map[Kind]FieldMapping
	methods  map[Kind][]TransformMethod
}

func newTestConfig() *testConfig {
	return &testConfig{
		uniqueID: map[Kind]string{},
		shapes:   map[Kind]*Shape{},
		ignore:   map[Kind][]string{},
		defaults: map[Kind]map[string]any{},
		include:  map[Kind]map[Phase][]string{},
		idFields: map[Kind][]IDField{},
		mappings: map[Kind]FieldMapping{},
		methods:  map[Kind][]TransformMethod{},
	}
}

func (c *testConfig) UniqueIDField(kind Kind) string {
	if field, ok := c.uniqueID[kind]; ok {
		return field
	}
	return "name"
}

func (c *testConfig) UserPopulated(kind Kind) *Shape {
	return c.shapes[kind]
}

func (c *testConfig) IgnoreList(kind Kind) []string {
	return c.ignore[kind]
}

func (c *testConfig) RequiredDefaults(kind Kind) map[string]any {
	return c.defaults[kind]
}

func (c *testConfig) FieldsToInclude(kind Kind, phase Phase) []string {
	return c.include[kind][phase]
}

func (c *testConfig) IDFields(kind Kind) []IDField {
	return c.idFields[kind]
}

func (c *testConfig) FieldMapping(kind Kind) FieldMapping {
	if mapping, ok := c.mappings[kind]; ok {
		return mapping
	}
	return FieldMapping{UserKey: "name", AutoID: "id"}
}

func (c *testConfig) TransformMethods(kind Kind) []TransformMethod {
	return c.methods[kind]
}

// Cache stub recording the registered raw data and serving canned
// lookups.
type testCache struct {
	destIDs    map[Kind]map[string]struct{}
	remap      map[Kind]map[string]string
	ignored    map[Kind]map[string]struct{}
	srcEmails  map[string]string
	destEmails map[string]string
	addedKinds []Kind
}

func newTestCache() *testCache {
	return &testCache{
		destIDs:    map[Kind]map[string]struct{}{},
		remap:      map[Kind]map[string]string{},
		ignored:    map[Kind]map[string]struct{}{},
		srcEmails:  map[string]string{},
		destEmails: map[string]string{},
	}
}

func (c *testCache) AddRawData(records []map[string]any, kind Kind, origin Origin) error {
	c.addedKinds = append(c.addedKinds, kind)
	return nil
}

func (c *testCache) IsAutoIDPresentInDest(autoIDField string, kind Kind, value string) bool {
	_, ok := c.destIDs[kind][value]
	return ok
}

func (c *testCache) SrcToDestRemap(autoIDField string, kind Kind, srcValue string, origin Origin) string {
	if remapped, ok := c.remap[kind][srcValue]; ok {
		return remapped
	}
	return srcValue
}

func (c *testCache) IsIgnored(kind Kind, userKey string) bool {
	_, ok := c.ignored[kind][userKey]
	return ok
}

func (c *testCache) IgnoredKeys(kind Kind) []string {
	keys := make([]string, 0, len(c.ignored[kind]))
	for key := range c.ignored[kind] {
		keys = append(keys, key)
	}
	return keys
}

func (c *testCache) UserEmailToName(origin Origin) map[string]string {
	if origin == OriginSource {
		return c.srcEmails
	}
	return c.destEmails
}

func (c *testCache) flagIgnored(kind Kind, key string) {
	if c.ignored[kind] == nil {
		c.ignored[kind] = map[string]struct{}{}
	}
	c.ignored[kind][key] = struct{}{}
}

// Registry stub resolving transformers from a plain map.
type testRegistry struct {
	transformers map[string]Transformer
}

func newTestRegistry() *testRegistry {
	return &testRegistry{transformers: map[string]Transformer{}}
}

func (r *testRegistry) Lookup(kind Kind, name string) (Transformer, error) {
	transformer, ok := r.transformers[name]
	if !ok {
		return nil, errors.Errorf("unknown transformer %s", name)
	}
	return transformer, nil
}

// Dumper stub recording the dumped diffs and payloads.
type testDumper struct {
	diffKeys    []string
	payloadKeys []string
}

func (d *testDumper) DumpDiff(kind Kind, key string, src, dest map[string]any) {
	d.diffKeys = append(d.diffKeys, key)
}

func (d *testDumper) DumpPayload(kind Kind, key string, payload map[string]any) {
	d.payloadKeys = append(d.payloadKeys, key)
}

// Bundles the stubs into an environment for record and dataset tests.
type testEnv struct {
	config   *testConfig
	cache    *testCache
	registry *testRegistry
	dumper   *testDumper
	env      *Env
}

func newTestEnv() *testEnv {
	config := newTestConfig()
	cache := newTestCache()
	registry := newTestRegistry()
	return &testEnv{
		config:   config,
		cache:    cache,
		registry: registry,
		env: &Env{
			Config:   config,
			Cache:    cache,
			Registry: registry,
		},
	}
}

// Attaches a recording dumper to the environment.
func (e *testEnv) withDumper() *testEnv {
	e.dumper = &testDumper{}
	e.env.Dumper = e.dumper
	return e
}
