// Package transform implements the registry of custom per-entity
// fix-up transformers. A transformer is keyed by entity kind and
// method name, is scheduled by the transformation configuration for a
// phase, and mutates the record's derived view for that phase in
// place: COMPARE targets the comparable view, ADD and UPDATE target
// the updatable view.
package transform

import (
	"github.com/opencatalog/catsync/datacache"
	"github.com/opencatalog/catsync/datamodel"
	"github.com/opencatalog/catsync/transformcfg"
)

// Registry resolves transformers by kind and name. The table is built
// at construction, so an invalid schedule is rejected at startup
// rather than in the middle of a run.
type Registry struct {
	cache    *datacache.Cache
	srcHost  string
	destHost string
	tables   map[datamodel.Kind]map[string]datamodel.Transformer
}

var _ datamodel.Registry = (*Registry)(nil)

// Creates the registry. The source and destination hosts feed the
// resource URL rewrite.
func NewRegistry(cache *datacache.Cache, srcHost, destHost string) *Registry {
	registry := &Registry{
		cache:    cache,
		srcHost:  srcHost,
		destHost: destHost,
	}
	memberTransformers := map[string]datamodel.Transformer{
		"remapUserNames": registry.remapUserNames,
		"revertUserName": registry.revertUserName,
	}
	registry.tables = map[datamodel.Kind]map[string]datamodel.Transformer{
		datamodel.KindUsers: {
			"removeNameField": registry.removeNameField,
		},
		datamodel.KindGroups:        memberTransformers,
		datamodel.KindOrganizations: memberTransformers,
		datamodel.KindPackages: {
			"fixPackageType":              registry.fixPackageType,
			"fixResourceStatus":           registry.fixResourceStatus,
			"fixDownloadAudience":         registry.fixDownloadAudience,
			"fixMoreInfo":                 registry.fixMoreInfo,
			"fixSecurityClass":            registry.fixSecurityClass,
			"fixResourceBcdcType":         registry.fixResourceBcdcType,
			"fixResourceAccessMethod":     registry.fixResourceAccessMethod,
			"fixResourceStorageFormat":    registry.fixResourceStorageFormat,
			"fixResourceStorageLocation":  registry.fixResourceStorageLocation,
			"fixResourceType":             registry.fixResourceType,
			"checkJSONTableSchemaForNone": registry.checkJSONTableSchemaForNone,
			"checkSpatialDatatypeForNone": registry.checkSpatialDatatypeForNone,
			"checkTemporalExtentForNone":  registry.checkTemporalExtentForNone,
			"checkPreviewInfoForNone":     registry.checkPreviewInfoForNone,
			"adjustURLDomain":             registry.adjustURLDomain,
			"orgAndSubOrgToNames":         registry.orgAndSubOrgToNames,
		},
	}
	return registry
}

// Resolves a transformer. Unknown kinds and unknown method names are
// configuration errors.
func (r *Registry) Lookup(kind datamodel.Kind, name string) (datamodel.Transformer, error) {
	table, ok := r.tables[kind]
	if !ok {
		return nil, transformcfg.NewConfigError("no transformers exist for entity kind %s", kind)
	}
	transformer, ok := table[name]
	if !ok {
		return nil, transformcfg.NewConfigError("no transformer %s exists for entity kind %s", name, kind)
	}
	return transformer, nil
}

// Checks every transformer scheduled by the configuration against the
// compiled table. Called once at startup.
func (r *Registry) Validate(config datamodel.Config) error {
	for _, kind := range datamodel.AllKinds() {
		for _, method := range config.TransformMethods(kind) {
			if _, err := r.Lookup(kind, method.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
