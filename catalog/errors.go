package catalog

import (
	"fmt"
	"strings"
)

// ForbiddenHostError is an error that is returned when a mutating call
// targets the read-only host.
type ForbiddenHostError struct {
	Host string
}

// Returns the error message.
func (e *ForbiddenHostError) Error() string {
	return fmt.Sprintf("host %s is read-only and must not be written to", e.Host)
}

// FetchError is an error that is returned when a list or show call
// keeps failing after all transient retries.
type FetchError struct {
	Operation  string
	StatusCode int
	Message    string
}

// Returns the error message.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// FetchIncompleteError is an error that is returned when the
// concurrent fetcher cannot obtain every requested record within its
// retry budget.
type FetchIncompleteError struct {
	Missing []string
}

// Returns the error message.
func (e *FetchIncompleteError) Error() string {
	return fmt.Sprintf("fetch incomplete, %d records missing: %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}

// NameUnavailableError is an error that is returned when a user create
// is rejected because the name is taken, possibly by a deleted user.
type NameUnavailableError struct {
	Name string
}

// Returns the error message.
func (e *NameUnavailableError) Error() string {
	return fmt.Sprintf("user name %s is not available", e.Name)
}

// MoreInfoShapeError is an error that is returned when a package
// update is rejected because more_info has the wrong shape for the
// destination API version. The caller may toggle the string/list
// encoding and retry exactly once.
type MoreInfoShapeError struct {
	Name string
}

// Returns the error message.
func (e *MoreInfoShapeError) Error() string {
	return fmt.Sprintf("package %s rejected: more_info has the wrong shape", e.Name)
}

// InvalidRequestError is an error that is returned on any other 4xx
// API response. It is fatal for the affected entity; the engine
// continues with the remaining ones.
type InvalidRequestError struct {
	Operation  string
	StatusCode int
	Body       string
}

// Returns the error message.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s rejected with status %d: %s", e.Operation, e.StatusCode, e.Body)
}
