// Package catalog implements the client of the catalog HTTP/JSON
// action API consumed by the synchronization engine, together with the
// read-only-host guard and the concurrent detail fetcher.
package catalog

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	catutil "github.com/opencatalog/catsync/util"
)

const (
	// Path prefix of the action API, e.g. /api/3/action/package_list.
	apiPathPrefix = "/api/3/action/"
	// Per-request timeout.
	requestTimeout = 2 * time.Minute
	// Transient failures (5xx, connection reset, read timeout) are
	// retried this many times with a small delay in between.
	transientRetries = 5
	// Page sizes of the paged list endpoints.
	packagePageSize      = 500
	organizationPageSize = 70
)

// Delay between transient retries. It is a variable so the tests can
// zero it.
var transientRetryDelay = 2 * time.Second

// CatalogClient is the capability the synchronization engine consumes.
// All payloads are JSON-compatible maps as returned by the API.
type CatalogClient interface {
	ListPackageNames() ([]string, error)
	ShowPackage(id string) (map[string]any, error)
	AddPackage(payload map[string]any) error
	UpdatePackage(payload map[string]any) error
	DeletePackage(id string) error

	ListUsers(includeData bool) ([]map[string]any, error)
	ShowUser(id string) (map[string]any, error)
	AddUser(payload map[string]any) error
	UpdateUser(payload map[string]any) error
	DeleteUser(id string) error
	RotateUserAPIKey(id string) error

	ListGroups(includeData bool) ([]map[string]any, error)
	AddGroup(payload map[string]any) error
	UpdateGroup(payload map[string]any) error
	DeleteGroup(id string) error

	ListOrganizations(includeData bool) ([]map[string]any, error)
	AddOrganization(payload map[string]any) error
	UpdateOrganization(payload map[string]any) error
	DeleteOrganization(id string) error

	GetSchema(schemaType string) (map[string]any, error)
}

// The envelope wrapping every action API response.
type actionResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// RestClient talks to one catalog instance over its action API. The
// underlying resty client is safe for concurrent use, so a single
// RestClient serves the concurrent detail fetcher.
type RestClient struct {
	inner   *resty.Client
	baseURL string
	host    string
	guard   *WriteGuard
}

var _ CatalogClient = (*RestClient)(nil)

// Creates a client of the catalog instance at the base URL. Every
// mutating call is checked against the guard before any HTTP request
// is issued.
func NewRestClient(baseURL, apiKey string, guard *WriteGuard) (*RestClient, error) {
	host, err := catutil.ParseHost(baseURL)
	if err != nil {
		return nil, err
	}
	inner := resty.New().
		SetTimeout(requestTimeout).
		SetHeader("Authorization", apiKey).
		SetHeader("Accept", "application/json")
	return &RestClient{
		inner:   inner,
		baseURL: strings.TrimRight(baseURL, "/"),
		host:    host,
		guard:   guard,
	}, nil
}

// Builds the URL of one action endpoint.
func (c *RestClient) actionURL(action string) string {
	return c.baseURL + apiPathPrefix + action
}

// Calls one action endpoint, retrying transient failures. Transport
// errors (connection reset, read timeout) and 5xx responses are
// retried up to the budget and surface as FetchError when it is
// exhausted. A 4xx response is returned as InvalidRequestError for the
// caller to classify; it is never retried.
func (c *RestClient) callAction(action string, payload any) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < transientRetries; attempt++ {
		if attempt > 0 {
			log.WithFields(log.Fields{
				"action":  action,
				"attempt": attempt,
			}).Warnf("Retrying after transient failure: %s", lastErr)
			time.Sleep(transientRetryDelay)
		}
		var envelope actionResponse
		request := c.inner.R().SetHeader("Content-Type", "application/json").SetResult(&envelope)
		if payload != nil {
			request.SetBody(payload)
		}
		response, err := request.Post(c.actionURL(action))
		if err != nil {
			lastErr = pkgerrors.WithStack(err)
			continue
		}
		status := response.StatusCode()
		if status >= http.StatusInternalServerError {
			lastErr = &FetchError{Operation: action, StatusCode: status, Message: response.String()}
			continue
		}
		if response.IsError() {
			return nil, &InvalidRequestError{Operation: action, StatusCode: status, Body: response.String()}
		}
		if !envelope.Success {
			return nil, &InvalidRequestError{Operation: action, StatusCode: status, Body: response.String()}
		}
		return envelope.Result, nil
	}
	return nil, &FetchError{Operation: action, Message: lastErr.Error()}
}

// Calls a mutating action endpoint after consulting the read-only
// guard.
func (c *RestClient) mutateAction(action string, payload any) (json.RawMessage, error) {
	if err := c.guard.Check(c.host); err != nil {
		return nil, err
	}
	return c.callAction(action, payload)
}

// Returns all package unique keys. The list is paged; a server
// affected by the repeated-final-page quirk returns the last page
// again instead of an empty page past the end, which is detected by
// equality with the previous page and answered with a GET-based
// unpaged fallback.
func (c *RestClient) ListPackageNames() ([]string, error) {
	var names, previousPage []string
	offset := 0
	for {
		raw, err := c.callAction("package_list", map[string]any{
			"limit":  packagePageSize,
			"offset": offset,
		})
		if err != nil {
			return nil, err
		}
		var page []string
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, pkgerrors.Wrap(err, "cannot parse the package name list")
		}
		if len(page) == 0 {
			break
		}
		if equalStringSlices(page, previousPage) {
			log.Warn("Package list returned a repeated final page, switching to the unpaged fallback")
			return c.listPackageNamesUnpaged()
		}
		names = append(names, page...)
		if len(page) < packagePageSize {
			break
		}
		previousPage = page
		offset += len(page)
	}
	return names, nil
}

// The unpaged GET fallback for servers with the repeated-final-page
// quirk.
func (c *RestClient) listPackageNamesUnpaged() ([]string, error) {
	var envelope actionResponse
	response, err := c.inner.R().SetResult(&envelope).Get(c.actionURL("package_list"))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() || !envelope.Success {
		return nil, &FetchError{
			Operation:  "package_list",
			StatusCode: response.StatusCode(),
			Message:    response.String(),
		}
	}
	var names []string
	if err := json.Unmarshal(envelope.Result, &names); err != nil {
		return nil, pkgerrors.Wrap(err, "cannot parse the package name list")
	}
	return names, nil
}

// Returns the full package payload.
func (c *RestClient) ShowPackage(id string) (map[string]any, error) {
	return c.callActionObject("package_show", map[string]any{"id": id})
}

// Creates a package on the destination.
func (c *RestClient) AddPackage(payload map[string]any) error {
	_, err := c.mutateAction("package_create", payload)
	return err
}

// Updates a package on the destination. A 409 complaining about
// more_info indicates the destination expects the other encoding of
// the field and is surfaced as MoreInfoShapeError, which the updater
// answers with a single shape-toggled retry.
func (c *RestClient) UpdatePackage(payload map[string]any) error {
	_, err := c.mutateAction("package_update", payload)
	var invalid *InvalidRequestError
	if pkgerrors.As(err, &invalid) &&
		invalid.StatusCode == http.StatusConflict &&
		strings.Contains(invalid.Body, "more_info") {
		return &MoreInfoShapeError{Name: payloadName(payload)}
	}
	return err
}

// Deletes a package on the destination.
func (c *RestClient) DeletePackage(id string) error {
	_, err := c.mutateAction("package_delete", map[string]any{"id": id})
	return err
}

// Returns all users, with full payloads when includeData is set.
func (c *RestClient) ListUsers(includeData bool) ([]map[string]any, error) {
	return c.listEntities("user_list", map[string]any{"all_fields": includeData})
}

// Returns the full user payload.
func (c *RestClient) ShowUser(id string) (map[string]any, error) {
	return c.callActionObject("user_show", map[string]any{"id": id})
}

// Creates a user on the destination. A rejection of the login name is
// surfaced as NameUnavailableError, which the updater answers with a
// bounded name-suffix bump.
func (c *RestClient) AddUser(payload map[string]any) error {
	_, err := c.mutateAction("user_create", payload)
	var invalid *InvalidRequestError
	if pkgerrors.As(err, &invalid) &&
		(invalid.StatusCode == http.StatusConflict || strings.Contains(invalid.Body, "name is not available")) {
		return &NameUnavailableError{Name: payloadName(payload)}
	}
	return err
}

// Updates a user on the destination.
func (c *RestClient) UpdateUser(payload map[string]any) error {
	_, err := c.mutateAction("user_update", payload)
	return err
}

// Deletes a user on the destination.
func (c *RestClient) DeleteUser(id string) error {
	_, err := c.mutateAction("user_delete", map[string]any{"id": id})
	return err
}

// Rotates the API key of a user. Guarded like any other mutation.
func (c *RestClient) RotateUserAPIKey(id string) error {
	_, err := c.mutateAction("user_generate_apikey", map[string]any{"id": id})
	return err
}

// Returns all groups, with full payloads when includeData is set.
func (c *RestClient) ListGroups(includeData bool) ([]map[string]any, error) {
	return c.listEntities("group_list", map[string]any{"all_fields": includeData})
}

// Creates a group on the destination. A group lingering in deleted
// state makes the create conflict; the call falls back to an update
// which undeletes it.
func (c *RestClient) AddGroup(payload map[string]any) error {
	_, err := c.mutateAction("group_create", payload)
	var invalid *InvalidRequestError
	if pkgerrors.As(err, &invalid) && invalid.StatusCode == http.StatusConflict {
		log.Warnf("Group %s already exists, possibly deleted, updating instead", payloadName(payload))
		return c.UpdateGroup(payload)
	}
	return err
}

// Updates a group on the destination.
func (c *RestClient) UpdateGroup(payload map[string]any) error {
	_, err := c.mutateAction("group_update", payload)
	return err
}

// Deletes a group on the destination.
func (c *RestClient) DeleteGroup(id string) error {
	_, err := c.mutateAction("group_delete", map[string]any{"id": id})
	return err
}

// Returns all organizations, with full payloads when includeData is
// set. The endpoint caps its page size, so the list is assembled page
// by page; 504s from the slow full-payload pages are retried like any
// other transient failure.
func (c *RestClient) ListOrganizations(includeData bool) ([]map[string]any, error) {
	var organizations []map[string]any
	offset := 0
	for {
		page, err := c.listEntities("organization_list", map[string]any{
			"all_fields": includeData,
			"limit":      organizationPageSize,
			"offset":     offset,
		})
		if err != nil {
			return nil, err
		}
		organizations = append(organizations, page...)
		if len(page) < organizationPageSize {
			break
		}
		offset += len(page)
	}
	return organizations, nil
}

// Creates an organization on the destination.
func (c *RestClient) AddOrganization(payload map[string]any) error {
	_, err := c.mutateAction("organization_create", payload)
	return err
}

// Updates an organization on the destination.
func (c *RestClient) UpdateOrganization(payload map[string]any) error {
	_, err := c.mutateAction("organization_update", payload)
	return err
}

// Deletes an organization on the destination.
func (c *RestClient) DeleteOrganization(id string) error {
	_, err := c.mutateAction("organization_delete", map[string]any{"id": id})
	return err
}

// Returns the dataset schema document listing the allowed values of
// the enumerated fields.
func (c *RestClient) GetSchema(schemaType string) (map[string]any, error) {
	return c.callActionObject("scheming_dataset_schema_show", map[string]any{"type": schemaType})
}

// Calls an action returning a single JSON object.
func (c *RestClient) callActionObject(action string, payload any) (map[string]any, error) {
	raw, err := c.callAction(action, payload)
	if err != nil {
		return nil, err
	}
	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, pkgerrors.Wrapf(err, "cannot parse the %s response", action)
	}
	return object, nil
}

// Calls a list action. Without full payloads the endpoint returns bare
// names, which are lifted into single-field objects for a uniform
// return type.
func (c *RestClient) listEntities(action string, payload any) ([]map[string]any, error) {
	raw, err := c.callAction(action, payload)
	if err != nil {
		return nil, err
	}
	var entities []map[string]any
	if err := json.Unmarshal(raw, &entities); err == nil {
		return entities, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, pkgerrors.Wrapf(err, "cannot parse the %s response", action)
	}
	entities = make([]map[string]any, 0, len(names))
	for _, name := range names {
		entities = append(entities, map[string]any{"name": name})
	}
	return entities, nil
}

func payloadName(payload map[string]any) string {
	name, _ := payload["name"].(string)
	return name
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
