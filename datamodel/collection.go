package datamodel

// RecordCollection is an ordered set of records of one kind, indexed by
// unique key. Iteration follows insertion order; the by-key lookup
// table is built lazily on first query.
type RecordCollection struct {
	records []*Record
	byKey   map[string]*Record
}

// Creates an empty collection.
func NewRecordCollection() *RecordCollection {
	return &RecordCollection{}
}

// Appends a record. A record whose unique key is already present is
// kept in the iteration order but does not replace the indexed one.
func (c *RecordCollection) Add(record *Record) {
	c.records = append(c.records, record)
	c.byKey = nil
}

// Returns the records in insertion order.
func (c *RecordCollection) Records() []*Record {
	return c.records
}

// Returns the number of records.
func (c *RecordCollection) Len() int {
	return len(c.records)
}

// Returns the record with the given unique key.
func (c *RecordCollection) ByKey(key string) (*Record, bool) {
	c.ensureIndex()
	record, ok := c.byKey[key]
	return record, ok
}

// Indicates whether a record with the given unique key is present.
func (c *RecordCollection) Contains(key string) bool {
	c.ensureIndex()
	_, ok := c.byKey[key]
	return ok
}

// Returns the unique keys in insertion order.
func (c *RecordCollection) Keys() []string {
	keys := make([]string, 0, len(c.records))
	for _, record := range c.records {
		keys = append(keys, record.UniqueKey())
	}
	return keys
}

func (c *RecordCollection) ensureIndex() {
	if c.byKey != nil {
		return
	}
	c.byKey = make(map[string]*Record, len(c.records))
	for _, record := range c.records {
		key := record.UniqueKey()
		if _, exists := c.byKey[key]; !exists {
			c.byKey[key] = record
		}
	}
}
