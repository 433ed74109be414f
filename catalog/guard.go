package catalog

import (
	catutil "github.com/opencatalog/catsync/util"
)

// WriteGuard refuses mutations of the configured read-only host. It is
// consulted before every mutating call, ahead of any HTTP request.
type WriteGuard struct {
	forbiddenHost string
}

// Creates a guard from the DO_NOT_WRITE_URL value.
func NewWriteGuard(doNotWriteURL string) (*WriteGuard, error) {
	host, err := catutil.ParseHost(doNotWriteURL)
	if err != nil {
		return nil, err
	}
	return &WriteGuard{forbiddenHost: host}, nil
}

// Fails with ForbiddenHostError when the host matches the read-only
// one. Hosts are compared case-insensitively; ParseHost normalizes
// them to lower case.
func (g *WriteGuard) Check(host string) error {
	if host == g.forbiddenHost {
		return &ForbiddenHostError{Host: host}
	}
	return nil
}
