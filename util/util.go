package catutil

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Returns the current time in the UTC zone.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// Parses the host part out of a catalog URL and normalizes it to lower
// case. Hosts are compared case-insensitively by the read-only guard.
func ParseHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "cannot parse URL %s", rawURL)
	}
	host := parsed.Hostname()
	if host == "" {
		return "", errors.Errorf("URL %s has no host part", rawURL)
	}
	return strings.ToLower(host), nil
}

// Sets up the logging using standard filters and formatting. The log
// level is read from the CATSYNC_LOG_LEVEL environment variable and
// defaults to INFO.
func SetupLogging() {
	log.SetLevel(log.InfoLevel)
	if levelName, ok := os.LookupEnv("CATSYNC_LOG_LEVEL"); ok {
		if level, err := log.ParseLevel(levelName); err == nil {
			log.SetLevel(level)
		}
	}
	log.SetOutput(os.Stdout)
	log.SetReportCaller(true)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			// Grab filename and line of current frame and add it to log entry
			_, filename := path.Split(f.File)
			return "", fmt.Sprintf("%20v:%-5d", filename, f.Line)
		},
	})
}

// Indicates whether the value is one of the empty sentinels the catalog
// API uses interchangeably for absent optional fields: nil, an empty
// string, an empty list or an empty map. Zero numbers and false are not
// empty in this sense.
func IsEmptyValue(value any) bool {
	switch typedValue := value.(type) {
	case nil:
		return true
	case string:
		return typedValue == ""
	case []any:
		return len(typedValue) == 0
	case map[string]any:
		return len(typedValue) == 0
	default:
		return false
	}
}

// Indicates whether the value is falsy in the wider sense used when
// applying required default values: any empty sentinel, false, or a
// zero number.
func IsFalsyValue(value any) bool {
	switch typedValue := value.(type) {
	case bool:
		return !typedValue
	case float64:
		return typedValue == 0
	case int:
		return typedValue == 0
	default:
		return IsEmptyValue(value)
	}
}

// Returns the keys of the map sorted alphabetically.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
