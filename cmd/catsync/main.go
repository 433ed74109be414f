// The catsync binary synchronizes the contents of one open-data
// catalog instance into another over the catalog HTTP/JSON API.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/opencatalog/catsync"
	"github.com/opencatalog/catsync/profiler"
	"github.com/opencatalog/catsync/syncer"
	catutil "github.com/opencatalog/catsync/util"
)

// Execute the run command.
func runSync(context *cli.Context) error {
	settings, err := syncer.ParseSettings(context.Args().Slice())
	if err != nil {
		return err
	}
	settings.DryRun = settings.DryRun || context.Bool("dry-run")
	settings.UseFetchCache = settings.UseFetchCache || context.Bool("use-cache")
	if port := context.Int("profiler-port"); port != 0 {
		teardown := profiler.Start(port)
		defer teardown()
	}
	if err := syncer.Run(settings); err != nil {
		// A single-line reason; the details were already logged.
		return cli.Exit(fmt.Sprintf("catsync: %s", err), 1)
	}
	return nil
}

// Prepare the urfave/cli application.
func setupApp() *cli.App {
	cli.VersionPrinter = func(context *cli.Context) {
		fmt.Fprintf(context.App.Writer, "%s, build date %s\n", context.App.Version, catsync.BuildDate)
	}
	app := &cli.App{
		Name:     "catsync",
		Usage:    "A tool for synchronizing open-data catalog instances",
		Version:  catsync.Version,
		HelpName: "catsync",
		Description: `The tool mirrors users, groups, organizations and packages from a
source catalog instance into a destination instance. The endpoints
and credentials come from the environment: SRC_URL, SRC_API_KEY,
DEST_URL, DEST_API_KEY and the mandatory DO_NOT_WRITE_URL guard.

catsync logs on INFO level by default. Other levels can be configured
using the CATSYNC_LOG_LEVEL variable. Allowed values are: DEBUG,
INFO, WARN, ERROR.`,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Synchronize the destination catalog with the source",
				Action: runSync,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Compute and log the deltas without mutating the destination",
					},
					&cli.BoolFlag{
						Name:  "use-cache",
						Usage: "Reload cached fetch results instead of fetching",
					},
					&cli.IntFlag{
						Name:  "profiler-port",
						Usage: "Serve the pprof endpoint on this port (profiler builds only)",
					},
				},
			},
			{
				Name:  "version",
				Usage: "Show the version",
				Action: func(context *cli.Context) error {
					cli.ShowVersion(context)
					return nil
				},
			},
		},
	}
	return app
}

func main() {
	catutil.SetupLogging()
	app := setupApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
