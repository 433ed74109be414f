package datamodel

// ignoreScrubber walks a derived view and removes embedded entities
// whose unique key is in their kind's ignore list or flagged in the
// cache. When the walk crosses a field named after an entity kind, e.g.
// a list of user objects inside an organization, the carried ignore
// field and ignore list switch to that kind's.
type ignoreScrubber struct {
	config Config
	cache  Cache
}

func newIgnoreScrubber(config Config, cache Cache) *ignoreScrubber {
	return &ignoreScrubber{config: config, cache: cache}
}

// Scrubs a view of the given kind in place and returns it.
func (s *ignoreScrubber) Scrub(view map[string]any, kind Kind) map[string]any {
	s.scrubMap(view, kind)
	return view
}

// Indicates whether the unique key is excluded for the kind, either by
// the configured ignore list or by a cache flag.
func (s *ignoreScrubber) isIgnored(kind Kind, key string) bool {
	if key == "" {
		return false
	}
	for _, ignoredKey := range s.config.IgnoreList(kind) {
		if ignoredKey == key {
			return true
		}
	}
	return s.cache != nil && s.cache.IsIgnored(kind, key)
}

// Indicates whether an embedded entity dict must be removed from its
// parent under the carried kind context.
func (s *ignoreScrubber) shouldDrop(entity map[string]any, kind Kind) bool {
	ignoreField := s.config.UniqueIDField(kind)
	return s.isIgnored(kind, stringField(entity, ignoreField))
}

// Walks a dict. A key naming an entity kind switches the kind context
// for the subtree; a nested entity dict flagged as ignored is removed
// from the parent by its key.
func (s *ignoreScrubber) scrubMap(node map[string]any, kind Kind) {
	for key, value := range node {
		childKind := kind
		if embeddedKind, ok := ParseKind(key); ok {
			childKind = embeddedKind
		}
		switch typedValue := value.(type) {
		case map[string]any:
			if childKind != kind && s.shouldDrop(typedValue, childKind) {
				delete(node, key)
				continue
			}
			s.scrubMap(typedValue, childKind)
		case []any:
			node[key] = s.scrubList(typedValue, childKind)
		}
	}
}

// Walks a list, collecting the surviving elements in one pass.
func (s *ignoreScrubber) scrubList(list []any, kind Kind) []any {
	filtered := make([]any, 0, len(list))
	for _, element := range list {
		switch typedElement := element.(type) {
		case map[string]any:
			if s.shouldDrop(typedElement, kind) {
				continue
			}
			s.scrubMap(typedElement, kind)
			filtered = append(filtered, typedElement)
		case []any:
			filtered = append(filtered, s.scrubList(typedElement, kind))
		default:
			filtered = append(filtered, element)
		}
	}
	return filtered
}
