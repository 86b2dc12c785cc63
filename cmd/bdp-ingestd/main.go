// Command bdp-ingestd is bdp's ingestion daemon: it wires the config,
// logging, database, FTP, object-store, and orchestrator packages together
// behind a small cobra command tree, following the same root-command /
// init()-wires-flags / minimal-main() shape as the teacher's cmd/srake.
//
// Unlike the teacher's CLI, bdp-ingestd has no search/query/formatting
// surface — that front end is explicitly out of scope (spec.md §1). Its
// commands are operational: apply migrations are a separate binary
// (bdp-migrate), `ingest` drives one pipeline run, and `serve` runs the
// daemon loop (metrics endpoint, stale work-unit reclaim, cache sweep).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nishad/bdp/internal/config"
	"github.com/nishad/bdp/internal/db"
	"github.com/nishad/bdp/internal/ftpclient"
	"github.com/nishad/bdp/internal/ingest/coordinator"
	"github.com/nishad/bdp/internal/logging"
	"github.com/nishad/bdp/internal/metrics"
	"github.com/nishad/bdp/internal/orchestrator"
	"github.com/nishad/bdp/internal/paths"
	"github.com/nishad/bdp/internal/registry"
	"github.com/nishad/bdp/internal/store"
)

var (
	configPath string

	servePort int

	ingestOrgSlug    string
	ingestOrgName    string
	ingestMode       string // latest|historical
	ingestStart      string
	ingestEnd        string
	ingestSkipExist  bool
	ingestNoCache    bool
	ingestMaxWorkers int

	ingestTaxonomyOrgSlug string
	ingestTaxonomyOrgName string

	ingestGenBankOrgSlug string
	ingestGenBankOrgName string

	ingestRefSeqOrgSlug string
	ingestRefSeqOrgName string

	ingestInterProOrgSlug string
	ingestInterProOrgName string
)

var rootCmd = &cobra.Command{
	Use:   "bdp-ingestd",
	Short: "bdp ingestion daemon",
	Long: `bdp-ingestd pulls flat-file releases from upstream FTP archives, parses
them into the registry schema, and stores content-addressed artifacts.

It has two modes of operation: "serve" runs indefinitely as a background
daemon (metrics endpoint, stale work-unit reclaim, cache sweep); "ingest"
runs exactly one pipeline invocation and exits, the way a cron-triggered
job would.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion daemon: metrics endpoint plus background sweeps",
	RunE:  runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pipeline and exit",
}

var ingestUniProtCmd = &cobra.Command{
	Use:   "uniprot",
	Short: "Ingest UniProt Swiss-Prot releases",
	RunE:  runIngestUniProt,
}

var ingestTaxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Ingest NCBI Taxonomy (taxdump) releases",
	RunE:  runIngestTaxonomy,
}

var ingestGenBankCmd = &cobra.Command{
	Use:   "genbank",
	Short: "Ingest the current GenBank release",
	RunE:  runIngestGenBank,
}

var ingestRefSeqCmd = &cobra.Command{
	Use:   "refseq",
	Short: "Ingest the current RefSeq release",
	RunE:  runIngestRefSeq,
}

var ingestInterProCmd = &cobra.Command{
	Use:   "interpro",
	Short: "Ingest InterPro releases",
	RunE:  runIngestInterPro,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (defaults to BDP_CONFIG / ./bdp.yaml)")

	serveCmd.Flags().IntVar(&servePort, "port", 9090, "Port the /metrics endpoint listens on")

	ingestUniProtCmd.Flags().StringVar(&ingestOrgSlug, "org", "uniprot", "Organization slug to ingest into (created if absent)")
	ingestUniProtCmd.Flags().StringVar(&ingestOrgName, "org-name", "UniProt", "Organization display name, used only on first creation")
	ingestUniProtCmd.Flags().StringVar(&ingestMode, "mode", "latest", "latest|historical")
	ingestUniProtCmd.Flags().StringVar(&ingestStart, "start", "", "Historical mode: oldest external version to ingest (inclusive)")
	ingestUniProtCmd.Flags().StringVar(&ingestEnd, "end", "", "Historical mode: newest external version to ingest (inclusive)")
	ingestUniProtCmd.Flags().BoolVar(&ingestSkipExist, "skip-existing", true, "Historical mode: skip versions already recorded in the registry")
	ingestUniProtCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "Disable the on-disk decompressed-release cache")
	ingestUniProtCmd.Flags().IntVar(&ingestMaxWorkers, "max-workers", 0, "Override concurrency.max_workers_per_job from config")

	ingestTaxonomyCmd.Flags().StringVar(&ingestTaxonomyOrgSlug, "org", "ncbi-taxonomy", "Organization slug to ingest into (created if absent)")
	ingestTaxonomyCmd.Flags().StringVar(&ingestTaxonomyOrgName, "org-name", "NCBI Taxonomy", "Organization display name, used only on first creation")
	ingestTaxonomyCmd.Flags().StringVar(&ingestMode, "mode", "latest", "latest|historical")
	ingestTaxonomyCmd.Flags().StringVar(&ingestStart, "start", "", "Historical mode: oldest external version to ingest (inclusive)")
	ingestTaxonomyCmd.Flags().StringVar(&ingestEnd, "end", "", "Historical mode: newest external version to ingest (inclusive)")
	ingestTaxonomyCmd.Flags().BoolVar(&ingestSkipExist, "skip-existing", true, "Historical mode: skip versions already recorded in the registry")
	ingestTaxonomyCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "Disable the on-disk decompressed-release cache")
	ingestTaxonomyCmd.Flags().IntVar(&ingestMaxWorkers, "max-workers", 0, "Override concurrency.max_workers_per_job from config")

	ingestGenBankCmd.Flags().StringVar(&ingestGenBankOrgSlug, "org", "genbank", "Organization slug to ingest into (created if absent)")
	ingestGenBankCmd.Flags().StringVar(&ingestGenBankOrgName, "org-name", "GenBank", "Organization display name, used only on first creation")
	ingestGenBankCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "Disable the on-disk decompressed-release cache")
	ingestGenBankCmd.Flags().IntVar(&ingestMaxWorkers, "max-workers", 0, "Override concurrency.max_workers_per_job from config")

	ingestRefSeqCmd.Flags().StringVar(&ingestRefSeqOrgSlug, "org", "refseq", "Organization slug to ingest into (created if absent)")
	ingestRefSeqCmd.Flags().StringVar(&ingestRefSeqOrgName, "org-name", "RefSeq", "Organization display name, used only on first creation")
	ingestRefSeqCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "Disable the on-disk decompressed-release cache")
	ingestRefSeqCmd.Flags().IntVar(&ingestMaxWorkers, "max-workers", 0, "Override concurrency.max_workers_per_job from config")

	ingestInterProCmd.Flags().StringVar(&ingestInterProOrgSlug, "org", "interpro", "Organization slug to ingest into (created if absent)")
	ingestInterProCmd.Flags().StringVar(&ingestInterProOrgName, "org-name", "InterPro", "Organization display name, used only on first creation")
	ingestInterProCmd.Flags().StringVar(&ingestMode, "mode", "latest", "latest|historical")
	ingestInterProCmd.Flags().StringVar(&ingestStart, "start", "", "Historical mode: oldest external version to ingest (inclusive)")
	ingestInterProCmd.Flags().StringVar(&ingestEnd, "end", "", "Historical mode: newest external version to ingest (inclusive)")
	ingestInterProCmd.Flags().BoolVar(&ingestSkipExist, "skip-existing", true, "Historical mode: skip versions already recorded in the registry")
	ingestInterProCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "Disable the on-disk decompressed-release cache")
	ingestInterProCmd.Flags().IntVar(&ingestMaxWorkers, "max-workers", 0, "Override concurrency.max_workers_per_job from config")

	ingestCmd.AddCommand(ingestUniProtCmd)
	ingestCmd.AddCommand(ingestTaxonomyCmd)
	ingestCmd.AddCommand(ingestGenBankCmd)
	ingestCmd.AddCommand(ingestRefSeqCmd)
	ingestCmd.AddCommand(ingestInterProCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to create directories: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadedConfig is the ambient stack every subcommand needs: config, a
// logger, and open database/object-store handles.
type loadedConfig struct {
	cfg *config.Config
	log zerolog.Logger
	dbh *db.DB
	gw  *store.Gateway
}

func bootstrap(ctx context.Context) (*loadedConfig, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.Config{
		Level:            cfg.Logging.Level,
		Output:           cfg.Logging.Output,
		Format:           cfg.Logging.Format,
		Dir:              cfg.Logging.Dir,
		FilePrefix:       cfg.Logging.FilePrefix,
		IncludeLocation:  cfg.Logging.IncludeLocation,
		IncludeThreadIDs: cfg.Logging.IncludeThreadIDs,
		IncludeTargets:   cfg.Logging.IncludeTargets,
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if err := db.Migrate(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	dbh, err := db.Open(ctx, db.Config{
		URL:              cfg.Database.URL,
		PoolSize:         cfg.Database.PoolSize,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	gw, err := store.New(ctx, store.Config{
		Endpoint:        cfg.Store.Endpoint,
		Bucket:          cfg.Store.Bucket,
		Region:          cfg.Store.Region,
		AccessKeyID:     cfg.Store.AccessKeyID,
		SecretAccessKey: cfg.Store.SecretAccessKey,
		UsePathStyle:    cfg.Store.UsePathStyle,
	})
	if err != nil {
		dbh.Close()
		return nil, fmt.Errorf("open object store: %w", err)
	}

	return &loadedConfig{cfg: cfg, log: log, dbh: dbh, gw: gw}, nil
}

// runServe starts the background daemon: a /metrics listener plus periodic
// stale-work-unit reclaim and cache-sweep loops, until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	lc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer lc.dbh.Close()

	coord := coordinator.New(lc.dbh.Pool)
	cache := orchestrator.NewCache(lc.cfg.Cache.Dir, lc.cfg.Cache.MaxAgeDays)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", servePort), Handler: mux}

	go func() {
		lc.log.Info().Int("port", servePort).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lc.log.Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	reclaimTicker := time.NewTicker(time.Minute)
	defer reclaimTicker.Stop()
	sweepTicker := time.NewTicker(time.Hour)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
			return nil
		case <-reclaimTicker.C:
			n, err := coord.ReclaimStale(ctx)
			if err != nil {
				lc.log.Error().Err(err).Msg("reclaim stale work units failed")
				continue
			}
			if n > 0 {
				lc.log.Info().Int("reclaimed", n).Msg("reclaimed stale work units")
			}
		case <-sweepTicker.C:
			n, err := cache.Sweep(ctx)
			if err != nil {
				lc.log.Error().Err(err).Msg("cache sweep failed")
				continue
			}
			if n > 0 {
				lc.log.Info().Int("removed", n).Msg("swept expired cache entries")
			}
		}
	}
}

// runIngestUniProt runs exactly one UniProt pipeline invocation (latest or
// historical) and exits, the way a cron-triggered job would.
func runIngestUniProt(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	lc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer lc.dbh.Close()

	reg := registry.New(lc.dbh.SQL)
	org, err := reg.EnsureOrganization(ctx, ingestOrgSlug, ingestOrgName)
	if err != nil {
		return fmt.Errorf("ensure organization: %w", err)
	}

	host := lc.cfg.FTP.Hosts["uniprot"]
	ftp := ftpclient.New(ftpclient.HostConfig{Host: host.Host, Port: host.Port, BasePath: host.BasePath})

	maxWorkers := ingestMaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = lc.cfg.Concurrent.MaxWorkersPerJob
	}

	var cache *orchestrator.Cache
	if !ingestNoCache {
		cache = orchestrator.NewCache(lc.cfg.Cache.Dir, lc.cfg.Cache.MaxAgeDays)
	}

	pipeline := orchestrator.NewUniProtPipeline(ftp, lc.dbh.Pool, lc.gw, lc.cfg.Concurrent.UploadFanout, cache, orchestrator.UniProtConfig{
		OrganizationID: org.ID,
		MaxWorkers:     maxWorkers,
		UseCache:       !ingestNoCache,
	})
	coord := coordinator.New(lc.dbh.Pool)

	switch ingestMode {
	case "latest":
		return runIngestLatest(ctx, lc.log, coord, pipeline, org.ID)
	case "historical":
		return runIngestHistorical(ctx, lc.log, coord, pipeline, org.ID, "uniprot_sprot")
	default:
		return fmt.Errorf("unknown --mode %q (want latest|historical)", ingestMode)
	}
}

// ingestPipeline is the shape every per-family pipeline in
// internal/orchestrator shares: a Latest mode and a Historical mode, each
// returning the family-agnostic orchestrator.RunStats.
type ingestPipeline interface {
	IngestLatest(ctx context.Context, lastExternalVersion string) (*orchestrator.RunStats, error)
	IngestHistorical(ctx context.Context, startVersion, endVersion string, alreadyIngested map[string]bool, skipExisting bool) ([]orchestrator.RunStats, error)
}

func runIngestLatest(ctx context.Context, log zerolog.Logger, coord *coordinator.Coordinator, pipeline ingestPipeline, orgID uuid.UUID) error {
	last, err := coord.LastExternalVersion(ctx, orgID)
	if err != nil {
		return fmt.Errorf("read last synced version: %w", err)
	}

	stats, err := pipeline.IngestLatest(ctx, last)
	if err != nil {
		_ = coord.RecordSyncFailure(ctx, orgID, err)
		return fmt.Errorf("ingest latest: %w", err)
	}
	if stats.ExternalVersion == "" {
		log.Info().Str("last_version", last).Msg("already at the latest release")
		return nil
	}

	log.Info().
		Str("version", stats.ExternalVersion).
		Int("records_stored", stats.RecordsStored).
		Int("records_skipped", stats.RecordsSkipped).
		Msg("ingested latest release")
	return coord.RecordSync(ctx, orgID, stats.ExternalVersion, stats.ExternalVersion, int64(stats.RecordsStored))
}

func runIngestHistorical(ctx context.Context, log zerolog.Logger, coord *coordinator.Coordinator, pipeline ingestPipeline, orgID uuid.UUID, jobType string) error {
	if ingestStart == "" || ingestEnd == "" {
		return fmt.Errorf("historical mode requires --start and --end")
	}

	alreadyIngested := map[string]bool{}
	if ingestSkipExist {
		var err error
		alreadyIngested, err = coord.IngestedVersions(ctx, orgID, jobType)
		if err != nil {
			return fmt.Errorf("read ingested versions: %w", err)
		}
	}

	results, err := pipeline.IngestHistorical(ctx, ingestStart, ingestEnd, alreadyIngested, ingestSkipExist)
	if err != nil {
		_ = coord.RecordSyncFailure(ctx, orgID, err)
		return fmt.Errorf("ingest historical: %w", err)
	}

	var total int64
	var lastVersion string
	for _, r := range results {
		log.Info().
			Str("version", r.ExternalVersion).
			Int("records_stored", r.RecordsStored).
			Int("records_skipped", r.RecordsSkipped).
			Msg("ingested historical release")
		total += int64(r.RecordsStored)
		lastVersion = r.ExternalVersion
	}
	if lastVersion == "" {
		log.Info().Msg("no historical releases in range required ingestion")
		return nil
	}
	return coord.RecordSync(ctx, orgID, lastVersion, lastVersion, total)
}

// runIngestTaxonomy runs exactly one NCBI Taxonomy pipeline invocation
// (latest or historical) and exits.
func runIngestTaxonomy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	lc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer lc.dbh.Close()

	reg := registry.New(lc.dbh.SQL)
	org, err := reg.EnsureOrganization(ctx, ingestTaxonomyOrgSlug, ingestTaxonomyOrgName)
	if err != nil {
		return fmt.Errorf("ensure organization: %w", err)
	}

	host := lc.cfg.FTP.Hosts["ncbi_taxonomy"]
	ftp := ftpclient.New(ftpclient.HostConfig{Host: host.Host, Port: host.Port, BasePath: host.BasePath})

	maxWorkers := ingestMaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = lc.cfg.Concurrent.MaxWorkersPerJob
	}

	var cache *orchestrator.Cache
	if !ingestNoCache {
		cache = orchestrator.NewCache(lc.cfg.Cache.Dir, lc.cfg.Cache.MaxAgeDays)
	}

	pipeline := orchestrator.NewTaxonomyPipeline(ftp, lc.dbh.Pool, lc.gw, lc.cfg.Concurrent.UploadFanout, cache, orchestrator.TaxonomyConfig{
		OrganizationID: org.ID,
		MaxWorkers:     maxWorkers,
		UseCache:       !ingestNoCache,
	})
	coord := coordinator.New(lc.dbh.Pool)

	switch ingestMode {
	case "latest":
		return runIngestLatest(ctx, lc.log, coord, pipeline, org.ID)
	case "historical":
		return runIngestHistorical(ctx, lc.log, coord, pipeline, org.ID, "ncbi_taxonomy")
	default:
		return fmt.Errorf("unknown --mode %q (want latest|historical)", ingestMode)
	}
}

func runIngestInterPro(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	lc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer lc.dbh.Close()

	reg := registry.New(lc.dbh.SQL)
	org, err := reg.EnsureOrganization(ctx, ingestInterProOrgSlug, ingestInterProOrgName)
	if err != nil {
		return fmt.Errorf("ensure organization: %w", err)
	}

	host := lc.cfg.FTP.Hosts["interpro"]
	ftp := ftpclient.New(ftpclient.HostConfig{Host: host.Host, Port: host.Port, BasePath: host.BasePath})

	maxWorkers := ingestMaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = lc.cfg.Concurrent.MaxWorkersPerJob
	}

	var cache *orchestrator.Cache
	if !ingestNoCache {
		cache = orchestrator.NewCache(lc.cfg.Cache.Dir, lc.cfg.Cache.MaxAgeDays)
	}

	pipeline := orchestrator.NewInterProPipeline(ftp, lc.dbh.Pool, lc.gw, lc.cfg.Concurrent.UploadFanout, cache, orchestrator.InterProConfig{
		OrganizationID: org.ID,
		MaxWorkers:     maxWorkers,
		UseCache:       !ingestNoCache,
	})
	coord := coordinator.New(lc.dbh.Pool)

	switch ingestMode {
	case "latest":
		return runIngestLatest(ctx, lc.log, coord, pipeline, org.ID)
	case "historical":
		return runIngestHistorical(ctx, lc.log, coord, pipeline, org.ID, "interpro")
	default:
		return fmt.Errorf("unknown --mode %q (want latest|historical)", ingestMode)
	}
}

// runIngestGenBank runs exactly one GenBank pipeline invocation. Historical
// mode is not offered on this subcommand: only the current release is ever
// reachable for this family (spec.md §9).
func runIngestGenBank(cmd *cobra.Command, args []string) error {
	return runIngestFlatFileRelease("genbank", ingestGenBankOrgSlug, ingestGenBankOrgName, orchestrator.NewGenBankPipeline)
}

// runIngestRefSeq runs exactly one RefSeq pipeline invocation, same
// limitation as GenBank.
func runIngestRefSeq(cmd *cobra.Command, args []string) error {
	return runIngestFlatFileRelease("refseq", ingestRefSeqOrgSlug, ingestRefSeqOrgName, orchestrator.NewRefSeqPipeline)
}

// runIngestFlatFileRelease runs the current-release-only flow shared by
// GenBank and RefSeq: both pipelines only ever have one version to ingest,
// so there is no latest/historical mode switch to offer.
func runIngestFlatFileRelease(
	hostKey, orgSlug, orgName string,
	newPipeline func(ftp *ftpclient.Client, pool *pgxpool.Pool, gw *store.Gateway, uploadFanout int, cache *orchestrator.Cache, cfg orchestrator.GenBankConfig) *orchestrator.GenBankPipeline,
) error {
	ctx, cancel := signalContext()
	defer cancel()

	lc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer lc.dbh.Close()

	reg := registry.New(lc.dbh.SQL)
	org, err := reg.EnsureOrganization(ctx, orgSlug, orgName)
	if err != nil {
		return fmt.Errorf("ensure organization: %w", err)
	}

	host := lc.cfg.FTP.Hosts[hostKey]
	ftp := ftpclient.New(ftpclient.HostConfig{Host: host.Host, Port: host.Port, BasePath: host.BasePath})

	maxWorkers := ingestMaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = lc.cfg.Concurrent.MaxWorkersPerJob
	}

	var cache *orchestrator.Cache
	if !ingestNoCache {
		cache = orchestrator.NewCache(lc.cfg.Cache.Dir, lc.cfg.Cache.MaxAgeDays)
	}

	pipeline := newPipeline(ftp, lc.dbh.Pool, lc.gw, lc.cfg.Concurrent.UploadFanout, cache, orchestrator.GenBankConfig{
		OrganizationID: org.ID,
		MaxWorkers:     maxWorkers,
		UseCache:       !ingestNoCache,
	})
	coord := coordinator.New(lc.dbh.Pool)
	return runIngestLatest(ctx, lc.log, coord, pipeline, org.ID)
}

// signalContext cancels on SIGINT/SIGTERM, the same interrupt-to-cancel
// wiring the teacher's runIngest uses.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
