// Package datacache keeps the in-memory bidirectional identity index
// across both catalog instances. For each entity kind and each origin
// it maps the user-visible unique key to the server-assigned auto-id
// and back, so cross-instance references can be remapped before a
// write. It also holds the domain schema with the allowed values of
// enumerated fields.
package datacache

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/opencatalog/catsync/datamodel"
)

// Key maps of one kind on one side.
type originMaps struct {
	keyToID     map[string]string
	idToKey     map[string]string
	emailToName map[string]string
	nameToEmail map[string]string
}

func newOriginMaps() *originMaps {
	return &originMaps{
		keyToID:     make(map[string]string),
		idToKey:     make(map[string]string),
		emailToName: make(map[string]string),
		nameToEmail: make(map[string]string),
	}
}

// Cache is the per-run identity index. It is populated by the
// orchestrator before the delta computation of a kind begins; lookups
// during that phase are read-only, so no locking is required.
type Cache struct {
	config  datamodel.Config
	kinds   map[datamodel.Kind]map[datamodel.Origin]*originMaps
	ignored map[datamodel.Kind]map[string]struct{}
	// Duplicate source emails seen so far; every later user carrying
	// one of them is flagged too.
	duplicateEmails map[string]struct{}
	domains         map[string][]string
}

var _ datamodel.Cache = (*Cache)(nil)

// Creates an empty cache bound to the transformation configuration.
func NewCache(config datamodel.Config) *Cache {
	cache := &Cache{
		config:          config,
		kinds:           make(map[datamodel.Kind]map[datamodel.Origin]*originMaps),
		ignored:         make(map[datamodel.Kind]map[string]struct{}),
		duplicateEmails: make(map[string]struct{}),
		domains:         make(map[string][]string),
	}
	for _, kind := range datamodel.AllKinds() {
		cache.kinds[kind] = map[datamodel.Origin]*originMaps{
			datamodel.OriginSource:      newOriginMaps(),
			datamodel.OriginDestination: newOriginMaps(),
		}
		cache.ignored[kind] = make(map[string]struct{})
	}
	return cache
}

// Populates the key maps of one kind on one side from raw records,
// using the configured field mapping. Source users with a null or
// duplicate email are flagged as ignored; they take no part in any
// delta set.
func (c *Cache) AddRawData(records []map[string]any, kind datamodel.Kind, origin datamodel.Origin) error {
	mapping := c.config.FieldMapping(kind)
	maps := c.kinds[kind][origin]
	for _, record := range records {
		userKey := stringValue(record[mapping.UserKey])
		autoID := stringValue(record[mapping.AutoID])
		if userKey == "" {
			log.WithFields(log.Fields{
				"kind":   kind,
				"origin": origin,
			}).Warnf("Skipping a record without the %s field", mapping.UserKey)
			continue
		}
		maps.keyToID[userKey] = autoID
		if autoID != "" {
			maps.idToKey[autoID] = userKey
		}
		if kind == datamodel.KindUsers {
			c.addUserEmail(record, userKey, origin, maps)
		}
	}
	return nil
}

// Indexes one user by email. The logical identity of a user across
// instances is the email, so source users that cannot be identified by
// it (null email) or that cannot be identified uniquely (duplicate
// email) are flagged as ignored.
func (c *Cache) addUserEmail(record map[string]any, name string, origin datamodel.Origin, maps *originMaps) {
	email := stringValue(record["email"])
	if email == "" {
		if origin == datamodel.OriginSource {
			log.Warnf("Ignoring source user %s without an email", name)
			c.FlagIgnored(datamodel.KindUsers, name)
		}
		return
	}
	if origin == datamodel.OriginSource {
		if _, duplicate := c.duplicateEmails[email]; duplicate {
			log.Warnf("Ignoring source user %s with the duplicate email %s", name, email)
			c.FlagIgnored(datamodel.KindUsers, name)
			return
		}
		if firstName, seen := maps.emailToName[email]; seen {
			log.Warnf("Ignoring source users %s and %s sharing the email %s", firstName, name, email)
			c.FlagIgnored(datamodel.KindUsers, firstName)
			c.FlagIgnored(datamodel.KindUsers, name)
			c.duplicateEmails[email] = struct{}{}
			delete(maps.emailToName, email)
			delete(maps.nameToEmail, firstName)
			return
		}
	}
	maps.emailToName[email] = name
	maps.nameToEmail[name] = email
}

// Indicates whether the destination already has a record of the kind
// whose auto-id equals the value. Used to decide whether a reference
// needs remapping at all.
func (c *Cache) IsAutoIDPresentInDest(autoIDField string, kind datamodel.Kind, value string) bool {
	_, present := c.kinds[kind][datamodel.OriginDestination].idToKey[value]
	return present
}

// Translates an auto-id known on the given side into the destination
// auto-id sharing the same user key. The value may already be a user
// key, in which case it is resolved directly. When the key is unknown
// on the destination side the original value is returned unchanged and
// the reference is sent as-is.
func (c *Cache) SrcToDestRemap(autoIDField string, kind datamodel.Kind, srcValue string, origin datamodel.Origin) string {
	userKey, known := c.kinds[kind][origin].idToKey[srcValue]
	if !known {
		userKey = srcValue
	}
	if destID, ok := c.kinds[kind][datamodel.OriginDestination].keyToID[userKey]; ok && destID != "" {
		return destID
	}
	return srcValue
}

// Translates an auto-id into another user-defined field of the same
// record, e.g. an owner-org id into the organization name. The second
// returned value indicates whether the translation succeeded.
func (c *Cache) GetUserDefinedValue(field, value, wantedField string, kind datamodel.Kind, origin datamodel.Origin) (string, bool) {
	mapping := c.config.FieldMapping(kind)
	if field != mapping.AutoID || wantedField != mapping.UserKey {
		return "", false
	}
	userKey, ok := c.kinds[kind][origin].idToKey[value]
	return userKey, ok
}

// Translates a user key into the auto-id of the same record on the
// given side.
func (c *Cache) GetAutoDefinedValue(field, value, wantedField string, kind datamodel.Kind, origin datamodel.Origin) (string, bool) {
	mapping := c.config.FieldMapping(kind)
	if field != mapping.UserKey || wantedField != mapping.AutoID {
		return "", false
	}
	autoID, ok := c.kinds[kind][origin].keyToID[value]
	return autoID, ok
}

// Flags a unique key as ignored for the kind.
func (c *Cache) FlagIgnored(kind datamodel.Kind, userKey string) {
	c.ignored[kind][userKey] = struct{}{}
}

// Indicates whether the unique key was flagged as ignored.
func (c *Cache) IsIgnored(kind datamodel.Kind, userKey string) bool {
	_, present := c.ignored[kind][userKey]
	return present
}

// Returns all flagged unique keys for the kind.
func (c *Cache) IgnoredKeys(kind datamodel.Kind) []string {
	keys := make([]string, 0, len(c.ignored[kind]))
	for key := range c.ignored[kind] {
		keys = append(keys, key)
	}
	return keys
}

// Returns the email-to-username map for users on the given side.
// Flagged users are absent from it.
func (c *Cache) UserEmailToName(origin datamodel.Origin) map[string]string {
	return c.kinds[datamodel.KindUsers][origin].emailToName
}

// Returns the email of a user by username on the given side.
func (c *Cache) UserNameToEmail(origin datamodel.Origin, name string) (string, bool) {
	email, ok := c.kinds[datamodel.KindUsers][origin].nameToEmail[name]
	return email, ok
}

// Returns the username carrying the email on the given side.
func (c *Cache) UserEmailToNameLookup(origin datamodel.Origin, email string) (string, bool) {
	name, ok := c.kinds[datamodel.KindUsers][origin].emailToName[email]
	return name, ok
}

func stringValue(value any) string {
	if value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprintf("%v", value)
}
