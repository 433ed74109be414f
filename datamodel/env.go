package datamodel

// IDField describes a cross-instance reference held by a record: the
// property carrying the reference, the kind of the referenced entity
// and the auto-id field on that entity.
type IDField struct {
	Property string `json:"property"`
	ObjType  string `json:"obj_type"`
	ObjField string `json:"obj_field"`
}

// FieldMapping names the pair of fields the cache indexes for a kind:
// the user-visible unique key and the server-assigned auto-id.
type FieldMapping struct {
	UserKey string `json:"user_key"`
	AutoID  string `json:"auto_id"`
}

// TransformMethod schedules one custom transformer for one phase.
type TransformMethod struct {
	Phase Phase
	Name  string
}

// Config exposes the per-kind transformation rules loaded from the
// transformation-configuration document.
type Config interface {
	// Returns the field holding the unique key for records of the kind.
	UniqueIDField(kind Kind) string
	// Returns the user-populated-properties shape tree for the kind.
	UserPopulated(kind Kind) *Shape
	// Returns the unique keys excluded from all delta operations.
	IgnoreList(kind Kind) []string
	// Returns the defaults inserted into source records at missing or
	// falsy paths.
	RequiredDefaults(kind Kind) map[string]any
	// Returns the auto-generated fields copied from the peer before an
	// add or update.
	FieldsToInclude(kind Kind, phase Phase) []string
	// Returns the cross-instance reference definitions for the kind.
	IDFields(kind Kind) []IDField
	// Returns the (user key, auto-id) field pair for the kind.
	FieldMapping(kind Kind) FieldMapping
	// Returns the scheduled custom transformers for the kind, in
	// configuration order.
	TransformMethods(kind Kind) []TransformMethod
}

// Cache exposes the cross-instance identity index to records and
// datasets.
type Cache interface {
	// Populates the per-kind, per-origin key maps from raw records.
	AddRawData(records []map[string]any, kind Kind, origin Origin) error
	// Indicates whether the destination already has a record of the
	// kind whose auto-id field equals the value.
	IsAutoIDPresentInDest(autoIDField string, kind Kind, value string) bool
	// Translates a source-side auto-id into the destination-side
	// auto-id sharing the same user key. Returns the original value
	// when the key is unknown on the destination side.
	SrcToDestRemap(autoIDField string, kind Kind, srcValue string, origin Origin) string
	// Indicates whether the unique key was flagged as ignored, e.g. a
	// source user with a null or duplicate email.
	IsIgnored(kind Kind, userKey string) bool
	// Returns all flagged unique keys for the kind.
	IgnoredKeys(kind Kind) []string
	// Returns the email-to-username map for users on the given side.
	UserEmailToName(origin Origin) map[string]string
}

// Transformer mutates a record's derived view in place. The phase
// selects the view: COMPARE mutates the comparable view, ADD and UPDATE
// mutate the updatable view. Transformers must tolerate repeated
// invocation for the same phase.
type Transformer func(record *Record, phase Phase) error

// Registry resolves scheduled custom transformers by kind and name.
type Registry interface {
	Lookup(kind Kind, name string) (Transformer, error)
}

// Dumper receives the structures compared by the diff and the proposed
// update payloads for debugging. Implementations write them to a
// per-run dump directory.
type Dumper interface {
	DumpDiff(kind Kind, key string, src, dest map[string]any)
	DumpPayload(kind Kind, key string, payload map[string]any)
}

// Env bundles the run-wide collaborators handed to records and
// datasets. It is constructed once at startup and never modified
// afterwards.
type Env struct {
	Config   Config
	Cache    Cache
	Registry Registry
	// Dumper may be nil when debug dumping is disabled.
	Dumper Dumper
}
