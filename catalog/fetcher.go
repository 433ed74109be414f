package catalog

import (
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	catutil "github.com/opencatalog/catsync/util"
)

const (
	// Parallel fetch workers.
	fetchWorkers = 10
	// At most this many tasks are queued at a time, bounding in-flight
	// memory; submissions refill the backlog as tasks complete.
	fetchBacklog = 20
	// Per-task retries on transient failures.
	fetchTaskRetries = 5
	// Bounded overall re-spools of the missing subset.
	fetchRespoolRetries = 5
)

// Delay between per-task retries. It is a variable so the tests can
// zero it.
var fetchRetryDelay = time.Second

// ShowFunc fetches the full record of one entity by its unique key.
type ShowFunc func(key string) (map[string]any, error)

// FetchAll bulk-fetches the full records of all keys with bounded
// concurrency. After every pass the returned record names are compared
// against the requested list and only the missing subset is
// re-spooled, up to the retry budget. The result carries exactly one
// record per requested key, in completion order; callers needing a
// deterministic order sort by unique key afterwards.
func FetchAll(keys []string, show ShowFunc) ([]map[string]any, error) {
	records := make([]map[string]any, 0, len(keys))
	fetched := make(map[string]struct{}, len(keys))
	remaining := keys
	for attempt := 0; attempt <= fetchRespoolRetries; attempt++ {
		if len(remaining) == 0 {
			return records, nil
		}
		if attempt > 0 {
			log.Warnf("Re-spooling %d records missing from the fetch result", len(remaining))
		}
		for _, record := range fetchBatch(remaining, show) {
			name, _ := record["name"].(string)
			if _, duplicate := fetched[name]; duplicate || name == "" {
				continue
			}
			fetched[name] = struct{}{}
			records = append(records, record)
		}
		var missing []string
		for _, key := range remaining {
			if _, done := fetched[key]; !done {
				missing = append(missing, key)
			}
		}
		remaining = missing
	}
	return nil, &FetchIncompleteError{Missing: remaining}
}

// Fetches one batch of keys through the worker pool. Failed fetches
// are logged and left for the completeness check to re-spool.
func fetchBatch(keys []string, show ShowFunc) []map[string]any {
	pool := catutil.NewTaskPool(fetchWorkers, fetchBacklog)
	var mutex sync.Mutex
	var records []map[string]any
	for _, key := range keys {
		key := key
		err := pool.Submit(func() {
			record, err := fetchWithRetry(key, show)
			if err != nil {
				log.WithFields(log.Fields{
					"key": key,
				}).Errorf("Fetch failed: %s", err)
				return
			}
			mutex.Lock()
			records = append(records, record)
			mutex.Unlock()
		})
		if err != nil {
			break
		}
	}
	pool.Stop()
	return records
}

// Fetches one record, retrying transient failures with a small sleep.
// A rejected request is not retried; the server will keep rejecting
// it.
func fetchWithRetry(key string, show ShowFunc) (map[string]any, error) {
	var lastErr error
	for attempt := 0; attempt < fetchTaskRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(fetchRetryDelay)
		}
		record, err := show(key)
		if err == nil {
			return record, nil
		}
		var invalid *InvalidRequestError
		if pkgerrors.As(err, &invalid) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
