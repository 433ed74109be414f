package datamodel

// A type defining one of the synchronized entity kinds.
type Kind string

const (
	// User accounts.
	KindUsers Kind = "users"
	// Groups of datasets.
	KindGroups Kind = "groups"
	// Organizations owning datasets.
	KindOrganizations Kind = "organizations"
	// Packages, i.e. datasets with embedded resources.
	KindPackages Kind = "packages"
)

// Converts the kind to string.
func (k Kind) String() string {
	return string(k)
}

// Returns all entity kinds in the fixed synchronization order. Later
// kinds reference earlier ones, so the order matters.
func AllKinds() []Kind {
	return []Kind{KindUsers, KindGroups, KindOrganizations, KindPackages}
}

// Parses an entity kind from its name. The second returned value
// indicates whether the name designates a valid kind.
func ParseKind(name string) (Kind, bool) {
	switch Kind(name) {
	case KindUsers, KindGroups, KindOrganizations, KindPackages:
		return Kind(name), true
	}
	return "", false
}

// A type defining the instance a record came from.
type Origin int

const (
	// The authoritative catalog instance being synchronized from.
	OriginSource Origin = iota
	// The catalog instance being synchronized into.
	OriginDestination
)

// Converts the origin to string.
func (o Origin) String() string {
	if o == OriginSource {
		return "source"
	}
	return "destination"
}

// A type defining the phase a derived view is built for. The phase also
// selects which custom transformers run.
type Phase string

const (
	// Building the comparable view.
	PhaseCompare Phase = "COMPARE"
	// Building the updatable view for a create call.
	PhaseAdd Phase = "ADD"
	// Building the updatable view for an update call.
	PhaseUpdate Phase = "UPDATE"
)

// Converts the phase to string.
func (p Phase) String() string {
	return string(p)
}

// Parses a phase from its name. The second returned value indicates
// whether the name designates a valid phase.
func ParsePhase(name string) (Phase, bool) {
	switch Phase(name) {
	case PhaseCompare, PhaseAdd, PhaseUpdate:
		return Phase(name), true
	}
	return "", false
}
