package syncer

import (
	"encoding/json"
	"fmt"
	"sort"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/opencatalog/catsync/catalog"
	"github.com/opencatalog/catsync/datamodel"
)

// Bounded retries of the name-suffix bump when a user create collides
// with an existing, possibly deleted, destination user.
const nameBumpRetries = 5

// Updater serializes a delta of one kind into ordered create, delete
// and update calls against the destination catalog.
type Updater struct {
	client          catalog.CatalogClient
	config          datamodel.Config
	newUserPassword string
	dumper          datamodel.Dumper
	dryRun          bool
}

// Creates an updater writing through the given client.
func NewUpdater(client catalog.CatalogClient, config datamodel.Config, newUserPassword string, dumper datamodel.Dumper, dryRun bool) *Updater {
	return &Updater{
		client:          client,
		config:          config,
		newUserPassword: newUserPassword,
		dumper:          dumper,
		dryRun:          dryRun,
	}
}

// Applies a delta: adds, then deletes, then updates, each ordered
// ascending by unique key for reproducibility. A rejected entity is
// logged and skipped; the remaining entities are still applied. Any
// other error aborts the run.
func (u *Updater) Apply(delta *datamodel.Delta) error {
	ignored := make(map[string]struct{})
	for _, key := range u.config.IgnoreList(delta.Kind) {
		ignored[key] = struct{}{}
	}
	if err := u.applyAdds(delta, ignored); err != nil {
		return err
	}
	if err := u.applyDeletes(delta, ignored); err != nil {
		return err
	}
	return u.applyUpdates(delta, ignored)
}

// Orders the records of a collection ascending by unique key, dropping
// the ignored ones. The ignore filter duplicates the dataset step by
// design of the pipeline; the updater must hold the invariant on its
// own.
func sortedRecords(collection *datamodel.RecordCollection, ignored map[string]struct{}) []*datamodel.Record {
	records := make([]*datamodel.Record, 0, collection.Len())
	for _, record := range collection.Records() {
		if _, skip := ignored[record.UniqueKey()]; skip {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UniqueKey() < records[j].UniqueKey()
	})
	return records
}

func (u *Updater) applyAdds(delta *datamodel.Delta, ignored map[string]struct{}) error {
	for _, record := range sortedRecords(delta.Adds, ignored) {
		payload, err := record.UpdatableView(datamodel.PhaseAdd, nil)
		if err != nil {
			return err
		}
		if delta.Kind == datamodel.KindUsers && u.newUserPassword != "" {
			payload["password"] = u.newUserPassword
		}
		log.WithFields(log.Fields{
			"kind": delta.Kind,
			"key":  record.UniqueKey(),
		}).Info("Adding")
		if u.dryRun {
			continue
		}
		if err := u.create(delta.Kind, payload); err != nil {
			if delta.Kind == datamodel.KindUsers {
				var unavailable *catalog.NameUnavailableError
				if pkgerrors.As(err, &unavailable) {
					err = u.addUserWithBumpedName(payload)
				}
			}
			if err != nil {
				if skippable(err, delta.Kind, record.UniqueKey(), "add") {
					continue
				}
				return err
			}
		}
	}
	return nil
}

// Retries a colliding user create with name, name1, name2, ... up to
// the retry cap.
func (u *Updater) addUserWithBumpedName(payload map[string]any) error {
	baseName, _ := payload["name"].(string)
	var err error
	for bump := 1; bump <= nameBumpRetries; bump++ {
		bumped := fmt.Sprintf("%s%d", baseName, bump)
		log.Warnf("User name %s is taken, retrying as %s", baseName, bumped)
		payload["name"] = bumped
		err = u.client.AddUser(payload)
		if err == nil {
			return nil
		}
		var unavailable *catalog.NameUnavailableError
		if !pkgerrors.As(err, &unavailable) {
			return err
		}
	}
	return err
}

func (u *Updater) applyDeletes(delta *datamodel.Delta, ignored map[string]struct{}) error {
	for _, record := range sortedRecords(delta.Deletes, ignored) {
		key := record.UniqueKey()
		log.WithFields(log.Fields{
			"kind": delta.Kind,
			"key":  key,
		}).Info("Deleting")
		if u.dryRun {
			continue
		}
		if err := u.delete(delta.Kind, key); err != nil {
			if skippable(err, delta.Kind, key, "delete") {
				continue
			}
			return err
		}
	}
	return nil
}

func (u *Updater) applyUpdates(delta *datamodel.Delta, ignored map[string]struct{}) error {
	for _, record := range sortedRecords(delta.Updates, ignored) {
		payload, err := record.UpdatableView(datamodel.PhaseUpdate, record.Peer())
		if err != nil {
			return err
		}
		if delta.Kind == datamodel.KindUsers && payload["email"] == nil {
			// The email identity drove the comparison; a payload
			// without it must not reach the destination.
			log.Warnf("Skipping the update of user %s without an email", record.UniqueKey())
			continue
		}
		log.WithFields(log.Fields{
			"kind": delta.Kind,
			"key":  record.UniqueKey(),
		}).Info("Updating")
		if u.dumper != nil {
			u.dumper.DumpPayload(delta.Kind, record.UniqueKey(), payload)
		}
		if u.dryRun {
			continue
		}
		err = u.update(delta.Kind, payload)
		if delta.Kind == datamodel.KindPackages {
			var shape *catalog.MoreInfoShapeError
			if pkgerrors.As(err, &shape) {
				// The destination expects the other encoding of
				// more_info. Toggle it and retry exactly once.
				toggleMoreInfoShape(payload)
				err = u.update(delta.Kind, payload)
			}
		}
		if err != nil {
			if skippable(err, delta.Kind, record.UniqueKey(), "update") {
				continue
			}
			return err
		}
	}
	return nil
}

// A rejected request is fatal for the entity, not for the run.
func skippable(err error, kind datamodel.Kind, key, operation string) bool {
	var invalid *catalog.InvalidRequestError
	if pkgerrors.As(err, &invalid) {
		log.WithFields(log.Fields{
			"kind": kind,
			"key":  key,
		}).Errorf("Cannot %s: %s", operation, invalid)
		return true
	}
	return false
}

// Switches more_info between its string and list-of-dicts encodings.
func toggleMoreInfoShape(payload map[string]any) {
	switch value := payload["more_info"].(type) {
	case string:
		var entries []any
		if err := json.Unmarshal([]byte(value), &entries); err == nil {
			payload["more_info"] = entries
		}
	case []any:
		if encoded, err := json.Marshal(value); err == nil {
			payload["more_info"] = string(encoded)
		}
	}
}

func (u *Updater) create(kind datamodel.Kind, payload map[string]any) error {
	switch kind {
	case datamodel.KindUsers:
		return u.client.AddUser(payload)
	case datamodel.KindGroups:
		return u.client.AddGroup(payload)
	case datamodel.KindOrganizations:
		return u.client.AddOrganization(payload)
	case datamodel.KindPackages:
		return u.client.AddPackage(payload)
	}
	return pkgerrors.Errorf("unknown entity kind %s", kind)
}

func (u *Updater) delete(kind datamodel.Kind, key string) error {
	switch kind {
	case datamodel.KindUsers:
		return u.client.DeleteUser(key)
	case datamodel.KindGroups:
		return u.client.DeleteGroup(key)
	case datamodel.KindOrganizations:
		return u.client.DeleteOrganization(key)
	case datamodel.KindPackages:
		return u.client.DeletePackage(key)
	}
	return pkgerrors.Errorf("unknown entity kind %s", kind)
}

func (u *Updater) update(kind datamodel.Kind, payload map[string]any) error {
	switch kind {
	case datamodel.KindUsers:
		return u.client.UpdateUser(payload)
	case datamodel.KindGroups:
		return u.client.UpdateGroup(payload)
	case datamodel.KindOrganizations:
		return u.client.UpdateOrganization(payload)
	case datamodel.KindPackages:
		return u.client.UpdatePackage(payload)
	}
	return pkgerrors.Errorf("unknown entity kind %s", kind)
}
