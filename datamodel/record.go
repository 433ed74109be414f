package datamodel

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	catutil "github.com/opencatalog/catsync/util"
)

// Tags a transformation already executed on a record, so it is never
// re-run for the same phase.
type appliedTag struct {
	method string
	phase  Phase
}

// Record is a single entity from a specific catalog instance. It owns
// the raw payload as returned by the API and produces two derived
// views: the comparable view deciding equality and the updatable view
// feeding the write path. Both views are memoized; the raw payload is
// never mutated.
type Record struct {
	raw    map[string]any
	kind   Kind
	origin Origin
	env    *Env

	comparable     map[string]any
	updatable      map[string]any
	updatablePhase Phase
	applied        map[appliedTag]struct{}

	// The corresponding destination record when this record is a source
	// record participating in an update. Borrowed from the peer
	// dataset; valid for the lifetime of the delta computation.
	peer *Record
}

// Creates a record from a raw API payload.
func NewRecord(raw map[string]any, kind Kind, origin Origin, env *Env) *Record {
	return &Record{
		raw:     raw,
		kind:    kind,
		origin:  origin,
		env:     env,
		applied: make(map[appliedTag]struct{}),
	}
}

// Returns the kind of the record.
func (r *Record) Kind() Kind {
	return r.kind
}

// Returns the instance the record came from.
func (r *Record) Origin() Origin {
	return r.origin
}

// Returns the raw payload. Callers must treat it as read-only.
func (r *Record) Raw() map[string]any {
	return r.raw
}

// Returns the value of the configured unique key field, e.g. the name
// for most kinds.
func (r *Record) UniqueKey() string {
	field := r.env.Config.UniqueIDField(r.kind)
	return stringField(r.raw, field)
}

// Returns the associated destination record, or nil.
func (r *Record) Peer() *Record {
	return r.peer
}

// Associates the corresponding destination record with this source
// record for the duration of the delta computation.
func (r *Record) SetPeer(peer *Record) {
	r.peer = peer
}

// Returns the derived view a transformer at the given phase mutates.
// COMPARE targets the comparable view; ADD and UPDATE target the
// updatable view.
func (r *Record) View(phase Phase) map[string]any {
	if phase == PhaseCompare {
		return r.comparable
	}
	return r.updatable
}

// Replaces the derived view for the given phase. Used by transformers
// that rebuild the whole view rather than patching it in place.
func (r *Record) SetView(phase Phase, view map[string]any) {
	if phase == PhaseCompare {
		r.comparable = view
	} else {
		r.updatable = view
	}
}

// Builds, once, the comparable view of the record: a deep clone of the
// raw payload filtered down to the user-populated fields, scrubbed of
// ignored embedded entities, with required defaults applied to source
// records and the COMPARE-phase custom transformers run on top.
func (r *Record) ComparableView() (map[string]any, error) {
	if r.comparable != nil {
		return r.comparable, nil
	}
	view := filterByShape(catutil.DeepCloneMap(r.raw), r.env.Config.UserPopulated(r.kind))
	scrubber := newIgnoreScrubber(r.env.Config, r.env.Cache)
	view = scrubber.Scrub(view, r.kind)
	if r.origin == OriginSource {
		applyRequiredDefaults(view, r.env.Config.RequiredDefaults(r.kind))
	}
	r.comparable = view
	if err := r.runTransformers(PhaseCompare); err != nil {
		r.comparable = nil
		return nil, err
	}
	return r.comparable, nil
}

// Builds, once, the updatable view of the record for the given
// operation (ADD or UPDATE). Must be called on a source record. The
// view starts from the comparable view, receives the configured
// auto-generated fields copied from the peer, has its cross-instance
// references remapped to destination-side auto-ids and finally runs
// the phase's custom transformers.
func (r *Record) UpdatableView(operation Phase, peer *Record) (map[string]any, error) {
	if r.origin != OriginSource {
		return nil, errors.Errorf("updatable view requested on a %s record", r.origin)
	}
	if operation != PhaseAdd && operation != PhaseUpdate {
		return nil, errors.Errorf("invalid updatable view operation %s", operation)
	}
	if r.updatable != nil {
		if r.updatablePhase != operation {
			return nil, errors.Errorf("updatable view already built for %s, requested for %s",
				r.updatablePhase, operation)
		}
		return r.updatable, nil
	}
	comparable, err := r.ComparableView()
	if err != nil {
		return nil, err
	}
	if peer == nil && operation == PhaseAdd {
		// An add has no destination counterpart. The record acts as its
		// own peer so configured fields resolve against its raw payload.
		peer = r
	}
	if operation == PhaseUpdate && peer == nil {
		return nil, errors.Errorf("update view for %s %s requires the destination peer",
			r.kind, r.UniqueKey())
	}
	view := catutil.DeepCloneMap(comparable)
	for _, field := range r.env.Config.FieldsToInclude(r.kind, operation) {
		if value, ok := peer.raw[field]; ok {
			view[field] = catutil.CloneValue(value)
		}
	}
	r.updatable = view
	r.updatablePhase = operation
	r.remapIDFields()
	if err := r.runTransformers(operation); err != nil {
		r.updatable = nil
		return nil, err
	}
	return r.updatable, nil
}

// Rewrites the configured cross-instance reference fields from
// source-side auto-ids to the destination-side auto-ids sharing the
// same user key. A reference already valid on the destination is left
// untouched; an unknown reference is sent unchanged.
func (r *Record) remapIDFields() {
	for _, idField := range r.env.Config.IDFields(r.kind) {
		value := stringField(r.updatable, idField.Property)
		if value == "" {
			continue
		}
		refKind, ok := ParseKind(idField.ObjType)
		if !ok {
			log.WithFields(log.Fields{
				"kind":     r.kind,
				"property": idField.Property,
			}).Errorf("Unknown referenced entity type %s", idField.ObjType)
			continue
		}
		if r.env.Cache.IsAutoIDPresentInDest(idField.ObjField, refKind, value) {
			continue
		}
		r.updatable[idField.Property] = r.env.Cache.SrcToDestRemap(idField.ObjField, refKind, value, r.origin)
	}
}

// Runs the custom transformers scheduled for the phase, in
// configuration order. A transformer already tagged in the applied set
// for the phase is skipped, so each runs exactly once per phase even
// when the record participates in later derivations.
func (r *Record) runTransformers(phase Phase) error {
	for _, method := range r.env.Config.TransformMethods(r.kind) {
		if method.Phase != phase {
			continue
		}
		tag := appliedTag{method: method.Name, phase: phase}
		if _, done := r.applied[tag]; done {
			continue
		}
		transformer, err := r.env.Registry.Lookup(r.kind, method.Name)
		if err != nil {
			return err
		}
		if err := transformer(r, phase); err != nil {
			return errors.WithMessagef(err, "transformer %s failed for %s %s",
				method.Name, r.kind, r.UniqueKey())
		}
		r.applied[tag] = struct{}{}
	}
	return nil
}

// Compares the record with its counterpart from the other instance.
// Both comparable views are built on demand and run through the
// relaxed structural diff.
func (r *Record) Equals(other *Record) (bool, error) {
	srcView, err := r.ComparableView()
	if err != nil {
		return false, err
	}
	destView, err := other.ComparableView()
	if err != nil {
		return false, err
	}
	equal := EqualViews(r.kind, srcView, destView)
	if !equal && r.env.Dumper != nil {
		r.env.Dumper.DumpDiff(r.kind, r.UniqueKey(), srcView, destView)
	}
	return equal, nil
}

// Reads a field as a string. Non-string values are formatted; a missing
// or nil field yields an empty string.
func stringField(payload map[string]any, field string) string {
	value, ok := payload[field]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprintf("%v", value)
}
