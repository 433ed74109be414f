package transform

import (
	log "github.com/sirupsen/logrus"

	"github.com/opencatalog/catsync/datamodel"
)

// Drops the name from the comparable view of a user. Usernames differ
// across instances for the same person; users are compared by their
// email-keyed content only.
func (r *Registry) removeNameField(record *datamodel.Record, phase datamodel.Phase) error {
	delete(record.View(phase), "name")
	return nil
}

// Rewrites the names in the embedded users list of a group or
// organization from source usernames to the destination usernames
// carrying the same email, so member lists compare equal across
// instances. Destination records already carry their own usernames and
// are left untouched.
func (r *Registry) remapUserNames(record *datamodel.Record, phase datamodel.Phase) error {
	if record.Origin() != datamodel.OriginSource {
		return nil
	}
	r.translateMemberNames(record, phase, datamodel.OriginSource, datamodel.OriginDestination)
	return nil
}

// The inverse of remapUserNames: rewrites destination usernames in the
// embedded users list back to the source usernames carrying the same
// email.
func (r *Registry) revertUserName(record *datamodel.Record, phase datamodel.Phase) error {
	r.translateMemberNames(record, phase, datamodel.OriginDestination, datamodel.OriginSource)
	return nil
}

// Translates every member name in the embedded users list from one
// side to the other through the email index. A member without a
// counterpart on the target side keeps its name and is reported.
func (r *Registry) translateMemberNames(record *datamodel.Record, phase datamodel.Phase, from, to datamodel.Origin) {
	view := record.View(phase)
	members, ok := view["users"].([]any)
	if !ok {
		return
	}
	for _, member := range members {
		memberMap, ok := member.(map[string]any)
		if !ok {
			continue
		}
		name, ok := memberMap["name"].(string)
		if !ok || name == "" {
			continue
		}
		email, ok := r.cache.UserNameToEmail(from, name)
		if !ok {
			continue
		}
		translated, ok := r.cache.UserEmailToNameLookup(to, email)
		if !ok {
			log.WithFields(log.Fields{
				"kind": record.Kind(),
				"key":  record.UniqueKey(),
			}).Errorf("No %s user carries the email of member %s", to, name)
			continue
		}
		memberMap["name"] = translated
	}
}
