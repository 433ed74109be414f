package datamodel

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	catutil "github.com/opencatalog/catsync/util"
)

// DataSet is the collection of all records of one kind from one
// catalog instance, with delta computation against the peer instance.
type DataSet struct {
	kind       Kind
	origin     Origin
	env        *Env
	collection *RecordCollection
	raws       []map[string]any
}

// Parses a list of raw API payloads into records of the given kind and
// origin.
func NewDataSet(kind Kind, origin Origin, raws []map[string]any, env *Env) *DataSet {
	dataset := &DataSet{
		kind:       kind,
		origin:     origin,
		env:        env,
		collection: NewRecordCollection(),
		raws:       raws,
	}
	for _, raw := range raws {
		dataset.collection.Add(NewRecord(raw, kind, origin, env))
	}
	return dataset
}

// Returns the kind of the dataset.
func (s *DataSet) Kind() Kind {
	return s.kind
}

// Returns the underlying record collection.
func (s *DataSet) Collection() *RecordCollection {
	return s.collection
}

// Computes the delta between this source dataset and the destination
// dataset of the same kind. Both sides are registered with the cache
// first, so key translations and ignore flags are available to the
// comparisons.
func (s *DataSet) GetDelta(dest *DataSet) (*Delta, error) {
	if s.origin != OriginSource {
		return nil, errors.Errorf("delta must be computed by the source dataset, not %s", s.origin)
	}
	if dest == nil || dest.kind != s.kind {
		return nil, errors.Errorf("delta for %s requires a destination dataset of the same kind", s.kind)
	}
	if err := s.env.Cache.AddRawData(s.raws, s.kind, OriginSource); err != nil {
		return nil, err
	}
	if err := s.env.Cache.AddRawData(dest.raws, s.kind, OriginDestination); err != nil {
		return nil, err
	}
	if s.kind == KindUsers {
		return s.getUsersDelta(dest)
	}
	return s.getKeyedDelta(dest)
}

// Computes the delta keyed by the configured unique key field. Used for
// every kind except users.
func (s *DataSet) getKeyedDelta(dest *DataSet) (*Delta, error) {
	delta := NewDelta(s.kind)
	ignored := s.ignoredKeySet()

	for _, record := range dest.collection.Records() {
		key := record.UniqueKey()
		if _, skip := ignored[key]; skip {
			continue
		}
		if !s.collection.Contains(key) {
			delta.Deletes.Add(record)
		}
	}
	for _, record := range s.collection.Records() {
		key := record.UniqueKey()
		if _, skip := ignored[key]; skip {
			continue
		}
		if !dest.collection.Contains(key) {
			delta.Adds.Add(record)
		}
	}
	for _, record := range s.collection.Records() {
		key := record.UniqueKey()
		if _, skip := ignored[key]; skip {
			continue
		}
		peer, present := dest.collection.ByKey(key)
		if !present {
			continue
		}
		record.SetPeer(peer)
		equal, err := record.Equals(peer)
		if err != nil {
			return nil, err
		}
		if equal {
			continue
		}
		// Deriving the update view here is what actually drives the
		// change: peer fields are merged and references remapped.
		if _, err := record.UpdatableView(PhaseUpdate, peer); err != nil {
			return nil, err
		}
		delta.Updates.Add(record)
	}
	log.WithFields(log.Fields{
		"kind":    s.kind,
		"adds":    delta.Adds.Len(),
		"deletes": delta.Deletes.Len(),
		"updates": delta.Updates.Len(),
	}).Info("Computed delta")
	return delta, nil
}

// Computes the user delta. The logical identity of a user across
// instances is the email, not the username, so the three delta sets
// operate on emails and translate back to usernames at the end. Users
// flagged in the cache (null or duplicate source emails) are excluded
// together with the configured ignore list.
func (s *DataSet) getUsersDelta(dest *DataSet) (*Delta, error) {
	delta := NewDelta(s.kind)
	ignored := s.ignoredKeySet()
	srcEmails := s.env.Cache.UserEmailToName(OriginSource)
	destEmails := s.env.Cache.UserEmailToName(OriginDestination)

	for _, email := range catutil.SortedKeys(destEmails) {
		if _, onSource := srcEmails[email]; onSource {
			continue
		}
		name := destEmails[email]
		if _, skip := ignored[name]; skip {
			continue
		}
		if record, present := dest.collection.ByKey(name); present {
			delta.Deletes.Add(record)
		}
	}
	for _, email := range catutil.SortedKeys(srcEmails) {
		if _, onDest := destEmails[email]; onDest {
			continue
		}
		name := srcEmails[email]
		if _, skip := ignored[name]; skip {
			continue
		}
		if record, present := s.collection.ByKey(name); present {
			delta.Adds.Add(record)
		}
	}
	for _, email := range catutil.SortedKeys(srcEmails) {
		destName, onDest := destEmails[email]
		if !onDest {
			continue
		}
		srcName := srcEmails[email]
		if _, skip := ignored[srcName]; skip {
			continue
		}
		if _, skip := ignored[destName]; skip {
			continue
		}
		record, present := s.collection.ByKey(srcName)
		if !present {
			continue
		}
		peer, present := dest.collection.ByKey(destName)
		if !present {
			continue
		}
		record.SetPeer(peer)
		equal, err := record.Equals(peer)
		if err != nil {
			return nil, err
		}
		if equal {
			continue
		}
		if _, err := record.UpdatableView(PhaseUpdate, peer); err != nil {
			return nil, err
		}
		delta.Updates.Add(record)
	}
	log.WithFields(log.Fields{
		"kind":    s.kind,
		"adds":    delta.Adds.Len(),
		"deletes": delta.Deletes.Len(),
		"updates": delta.Updates.Len(),
	}).Info("Computed delta")
	return delta, nil
}

// Returns the union of the configured ignore list and the unique keys
// flagged in the cache.
func (s *DataSet) ignoredKeySet() map[string]struct{} {
	ignored := make(map[string]struct{})
	for _, key := range s.env.Config.IgnoreList(s.kind) {
		ignored[key] = struct{}{}
	}
	for _, key := range s.env.Cache.IgnoredKeys(s.kind) {
		ignored[key] = struct{}{}
	}
	return ignored
}
