package datamodel

// Delta holds the outcome of comparing the source and destination
// datasets of one kind. Adds and updates carry source records (they
// hold the data to write); deletes carry destination records, of which
// only the unique key is used.
type Delta struct {
	Kind    Kind
	Adds    *RecordCollection
	Deletes *RecordCollection
	Updates *RecordCollection
}

// Creates an empty delta for the kind.
func NewDelta(kind Kind) *Delta {
	return &Delta{
		Kind:    kind,
		Adds:    NewRecordCollection(),
		Deletes: NewRecordCollection(),
		Updates: NewRecordCollection(),
	}
}

// Indicates whether the delta carries no operations.
func (d *Delta) IsEmpty() bool {
	return d.Adds.Len() == 0 && d.Deletes.Len() == 0 && d.Updates.Len() == 0
}
