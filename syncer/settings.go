// Package syncer drives a synchronization run: it wires the engine
// together from the environment settings, fetches both sides of every
// entity kind, computes the deltas and applies them to the
// destination.
package syncer

import (
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/opencatalog/catsync/transformcfg"
)

// Settings is the configuration surface of a run. Every member can be
// set through the environment; the url and credential keys are the
// contract shared with the deployment scripts.
type Settings struct {
	SrcURL     string `long:"src-url" env:"SRC_URL" description:"Source catalog endpoint"`
	SrcAPIKey  string `long:"src-api-key" env:"SRC_API_KEY" description:"Source catalog credential"`
	DestURL    string `long:"dest-url" env:"DEST_URL" description:"Destination catalog endpoint"`
	DestAPIKey string `long:"dest-api-key" env:"DEST_API_KEY" description:"Destination catalog credential"`
	// The read-only-host guard. Mandatory: a run without it refuses to
	// start rather than risk writing into a protected instance.
	DoNotWriteURL       string `long:"do-not-write-url" env:"DO_NOT_WRITE_URL" description:"Host that must never be written to"`
	NewUserPassword     string `long:"new-user-password" env:"NEW_USER_PASSWORD" description:"One-time password for newly created users"`
	TransformConfigPath string `long:"transform-config" env:"TRANSFORM_CONFIG_PATH" description:"Override for the transformation configuration document"`
	DumpDebugData       bool   `long:"dump-debug-data" env:"DUMP_DEBUG_DATA" description:"Write compared structures and update payloads to a per-run dump directory"`
	DumpDir             string `long:"dump-dir" env:"CATSYNC_DUMP_DIR" default:"catsync-dumps" description:"Base directory for debug dumps"`
	CacheDir            string `long:"cache-dir" env:"CATSYNC_CACHE_DIR" default:".catsync-cache" description:"Directory for cached fetch results"`
	UseFetchCache       bool   `long:"use-cache" env:"CATSYNC_USE_CACHE" description:"Reload cached fetch results instead of fetching"`
	DryRun              bool   `long:"dry-run" description:"Compute and log the deltas without mutating the destination"`
}

// Reads the settings from the environment and the given command line
// arguments.
func ParseSettings(args []string) (*Settings, error) {
	settings := &Settings{}
	parser := flags.NewParser(settings, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.Wrap(err, "cannot parse the settings")
	}
	return settings, nil
}

// Rejects settings the engine cannot run with.
func (s *Settings) Validate() error {
	if s.SrcURL == "" {
		return transformcfg.NewConfigError("SRC_URL is not set")
	}
	if s.DestURL == "" {
		return transformcfg.NewConfigError("DEST_URL is not set")
	}
	if s.DoNotWriteURL == "" {
		return transformcfg.NewConfigError("DO_NOT_WRITE_URL is not set; refusing to run without the read-only-host guard")
	}
	return nil
}
