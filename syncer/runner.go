package syncer

import (
	log "github.com/sirupsen/logrus"

	"github.com/opencatalog/catsync/catalog"
	"github.com/opencatalog/catsync/configstore"
	"github.com/opencatalog/catsync/datacache"
	"github.com/opencatalog/catsync/datamodel"
	"github.com/opencatalog/catsync/transform"
	catutil "github.com/opencatalog/catsync/util"
)

// The schema type whose domains feed the validation transformers.
const datasetSchemaType = "bcdc_dataset"

// Runner drives a full synchronization run: for each entity kind, in
// the fixed order users, groups, organizations, packages, it fetches
// both sides, computes the delta and applies it to the destination.
// The order matters because later kinds reference earlier ones through
// the identity cache.
type Runner struct {
	src        catalog.CatalogClient
	dest       catalog.CatalogClient
	env        *datamodel.Env
	cache      *datacache.Cache
	updater    *Updater
	fetchCache *configstore.FetchCache
	useCache   bool
}

// Creates a runner over already wired collaborators.
func NewRunner(src, dest catalog.CatalogClient, env *datamodel.Env, cache *datacache.Cache, updater *Updater, fetchCache *configstore.FetchCache, useCache bool) *Runner {
	return &Runner{
		src:        src,
		dest:       dest,
		env:        env,
		cache:      cache,
		updater:    updater,
		fetchCache: fetchCache,
		useCache:   useCache,
	}
}

// Executes the run.
func (r *Runner) Run() error {
	for _, kind := range datamodel.AllKinds() {
		if kind == datamodel.KindPackages {
			// The package transformers validate enumerated fields
			// against the schema domains.
			schema, err := r.src.GetSchema(datasetSchemaType)
			if err != nil {
				return err
			}
			r.cache.SetScheming(schema)
		}
		log.Infof("Synchronizing %s", kind)
		srcRaws, err := r.fetch(kind, datamodel.OriginSource)
		if err != nil {
			return err
		}
		destRaws, err := r.fetch(kind, datamodel.OriginDestination)
		if err != nil {
			return err
		}
		srcSet := datamodel.NewDataSet(kind, datamodel.OriginSource, srcRaws, r.env)
		destSet := datamodel.NewDataSet(kind, datamodel.OriginDestination, destRaws, r.env)
		delta, err := srcSet.GetDelta(destSet)
		if err != nil {
			return err
		}
		if delta.IsEmpty() {
			log.Infof("No changes for %s", kind)
			continue
		}
		if err := r.updater.Apply(delta); err != nil {
			return err
		}
	}
	return nil
}

// Fetches the full records of one kind from one side. Packages are
// listed by name and fetched in detail through the concurrent
// fetcher; the other kinds come back complete from their paged list
// endpoints. When enabled, the fetch cache shortcuts the whole round
// trip.
func (r *Runner) fetch(kind datamodel.Kind, origin datamodel.Origin) ([]map[string]any, error) {
	if r.useCache && r.fetchCache != nil {
		records, cached, err := r.fetchCache.Load(kind, origin)
		if err != nil {
			return nil, err
		}
		if cached {
			log.Infof("Loaded %d cached %s %s records", len(records), origin, kind)
			return records, nil
		}
	}
	client := r.src
	if origin == datamodel.OriginDestination {
		client = r.dest
	}
	var records []map[string]any
	var err error
	switch kind {
	case datamodel.KindUsers:
		records, err = client.ListUsers(true)
	case datamodel.KindGroups:
		records, err = client.ListGroups(true)
	case datamodel.KindOrganizations:
		records, err = client.ListOrganizations(true)
	case datamodel.KindPackages:
		var names []string
		names, err = client.ListPackageNames()
		if err == nil {
			records, err = catalog.FetchAll(names, client.ShowPackage)
		}
	}
	if err != nil {
		return nil, err
	}
	log.Infof("Fetched %d %s %s records", len(records), origin, kind)
	if r.fetchCache != nil && !r.useCache {
		if err := r.fetchCache.Save(kind, origin, records); err != nil {
			log.Warnf("Cannot cache the fetch result: %s", err)
		}
	}
	return records, nil
}

// Wires a complete engine from the settings and runs it.
func Run(settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	guard, err := catalog.NewWriteGuard(settings.DoNotWriteURL)
	if err != nil {
		return err
	}
	src, err := catalog.NewRestClient(settings.SrcURL, settings.SrcAPIKey, guard)
	if err != nil {
		return err
	}
	dest, err := catalog.NewRestClient(settings.DestURL, settings.DestAPIKey, guard)
	if err != nil {
		return err
	}
	config, err := configstore.LoadTransformConfig(settings.TransformConfigPath)
	if err != nil {
		return err
	}
	srcHost, err := catutil.ParseHost(settings.SrcURL)
	if err != nil {
		return err
	}
	destHost, err := catutil.ParseHost(settings.DestURL)
	if err != nil {
		return err
	}
	cache := datacache.NewCache(config)
	registry := transform.NewRegistry(cache, srcHost, destHost)
	if err := registry.Validate(config); err != nil {
		return err
	}
	var dumper datamodel.Dumper
	if settings.DumpDebugData {
		debugDumper, err := configstore.NewDebugDumper(settings.DumpDir)
		if err != nil {
			return err
		}
		dumper = debugDumper
	}
	env := &datamodel.Env{
		Config:   config,
		Cache:    cache,
		Registry: registry,
		Dumper:   dumper,
	}
	updater := NewUpdater(dest, config, settings.NewUserPassword, dumper, settings.DryRun)
	fetchCache := configstore.NewFetchCache(settings.CacheDir)
	runner := NewRunner(src, dest, env, cache, updater, fetchCache, settings.UseFetchCache)
	return runner.Run()
}
