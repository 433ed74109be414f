package transform

import (
	"github.com/opencatalog/catsync/datamodel"
	catutil "github.com/opencatalog/catsync/util"
)

// The resource status requiring a retention date and the sentinel
// injected when none is present.
const (
	resourceStatusHistorical = "historicalArchive"
	retentionDateSentinel    = "9999-12-31"
)

// Defaults assigned to enumerated resource fields whose value is
// absent or outside the allowed-value domain of the schema.
var resourceFieldDefaults = map[string]string{
	"bcdc_type":                 "document",
	"resource_access_method":    "direct access",
	"resource_storage_format":   "other",
	"resource_storage_location": "catalogue data store",
	"resource_type":             "data",
}

// Injects the far-future retention sentinel into resources archived as
// historical without a retention date. The destination server refuses
// historical resources without one.
func (r *Registry) fixResourceStatus(record *datamodel.Record, phase datamodel.Phase) error {
	forEachResource(record.View(phase), func(resource map[string]any) {
		status, _ := resource["resource_status"].(string)
		if status != resourceStatusHistorical {
			return
		}
		if catutil.IsEmptyValue(resource["retention_expiry_date"]) {
			resource["retention_expiry_date"] = retentionDateSentinel
		}
	})
	return nil
}

// Assigns the default for one enumerated resource field on every
// resource whose value is absent or out of the schema's domain.
func (r *Registry) fixResourceDomainField(record *datamodel.Record, phase datamodel.Phase, field string) error {
	forEachResource(record.View(phase), func(resource map[string]any) {
		value, _ := resource[field].(string)
		if value == "" || !r.cache.InDomain(field, value) {
			resource[field] = resourceFieldDefaults[field]
		}
	})
	return nil
}

func (r *Registry) fixResourceBcdcType(record *datamodel.Record, phase datamodel.Phase) error {
	return r.fixResourceDomainField(record, phase, "bcdc_type")
}

func (r *Registry) fixResourceAccessMethod(record *datamodel.Record, phase datamodel.Phase) error {
	return r.fixResourceDomainField(record, phase, "resource_access_method")
}

func (r *Registry) fixResourceStorageFormat(record *datamodel.Record, phase datamodel.Phase) error {
	return r.fixResourceDomainField(record, phase, "resource_storage_format")
}

func (r *Registry) fixResourceStorageLocation(record *datamodel.Record, phase datamodel.Phase) error {
	return r.fixResourceDomainField(record, phase, "resource_storage_location")
}

func (r *Registry) fixResourceType(record *datamodel.Record, phase datamodel.Phase) error {
	return r.fixResourceDomainField(record, phase, "resource_type")
}

// Replaces a null or empty-string resource field with the
// field-appropriate empty structure, so the inconsistent encodings the
// API returns for absent values compare equal.
func (r *Registry) checkResourceFieldForNone(record *datamodel.Record, phase datamodel.Phase, field string, empty func() any) error {
	forEachResource(record.View(phase), func(resource map[string]any) {
		value, present := resource[field]
		if !present {
			return
		}
		if value == nil || value == "" {
			resource[field] = empty()
		}
	})
	return nil
}

func (r *Registry) checkJSONTableSchemaForNone(record *datamodel.Record, phase datamodel.Phase) error {
	return r.checkResourceFieldForNone(record, phase, "json_table_schema", func() any { return map[string]any{} })
}

func (r *Registry) checkSpatialDatatypeForNone(record *datamodel.Record, phase datamodel.Phase) error {
	return r.checkResourceFieldForNone(record, phase, "spatial_datatype", func() any { return "" })
}

func (r *Registry) checkTemporalExtentForNone(record *datamodel.Record, phase datamodel.Phase) error {
	return r.checkResourceFieldForNone(record, phase, "temporal_extent", func() any { return map[string]any{} })
}

func (r *Registry) checkPreviewInfoForNone(record *datamodel.Record, phase datamodel.Phase) error {
	return r.checkResourceFieldForNone(record, phase, "preview_info", func() any { return map[string]any{} })
}
