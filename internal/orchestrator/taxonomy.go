package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/discovery"
	"github.com/nishad/bdp/internal/ftpclient"
	"github.com/nishad/bdp/internal/ingest/coordinator"
	"github.com/nishad/bdp/internal/ingest/writer"
	"github.com/nishad/bdp/internal/metrics"
	"github.com/nishad/bdp/internal/models"
	"github.com/nishad/bdp/internal/parser/taxdump"
	"github.com/nishad/bdp/internal/store"
	"github.com/nishad/bdp/internal/versioning"
)

// TaxonomyConfig configures the NCBI Taxonomy pipeline.
type TaxonomyConfig struct {
	OrganizationID uuid.UUID
	MaxWorkers     int
	BatchSize      int
	UseCache       bool
	Strategy       versioning.Strategy
}

// TaxonomyPipeline wires C2/C3/C4/C5/C6 together for the NCBI Taxonomy
// family (spec.md §4.7). Unlike UniProt, taxdump versions the whole release
// as one unit (the taxonomy entries that compose a release share one
// internal_version) but still uploads one JSON artifact per taxon.
type TaxonomyPipeline struct {
	ftp         *ftpclient.Client
	coordinator *coordinator.Coordinator
	writer      *writer.TaxonomyWriter
	cache       *Cache
	cfg         TaxonomyConfig
}

// NewTaxonomyPipeline assembles a pipeline from its components.
func NewTaxonomyPipeline(ftp *ftpclient.Client, pool *pgxpool.Pool, gw *store.Gateway, uploadFanout int, cache *Cache, cfg TaxonomyConfig) *TaxonomyPipeline {
	uploader := writer.NewUploader(gw, uploadFanout)
	return &TaxonomyPipeline{
		ftp:         ftp,
		coordinator: coordinator.New(pool),
		writer:      writer.NewTaxonomyWriter(pool, uploader),
		cache:       cache,
		cfg:         cfg,
	}
}

// IngestLatest implements spec.md §4.7's Latest mode for taxdump.
func (p *TaxonomyPipeline) IngestLatest(ctx context.Context, lastExternalVersion string) (*RunStats, error) {
	const op = apperrors.Op("orchestrator.taxonomy.ingest_latest")

	src := discovery.TaxonomySource{Client: p.ftp}
	newer, err := discovery.CheckForNewerVersion(ctx, src, lastExternalVersion)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if newer == nil {
		return &RunStats{}, nil
	}
	return p.ingestVersion(ctx, *newer)
}

// IngestHistorical implements spec.md §4.7's Historical mode for taxdump:
// every archived release in [startVersion, endVersion], oldest first.
func (p *TaxonomyPipeline) IngestHistorical(ctx context.Context, startVersion, endVersion string, alreadyIngested map[string]bool, skipExisting bool) ([]RunStats, error) {
	const op = apperrors.Op("orchestrator.taxonomy.ingest_historical")

	src := discovery.TaxonomySource{Client: p.ftp}
	all, err := src.DiscoverAllVersions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	var windowed []discovery.DiscoveredVersion
	for _, v := range all {
		if v.OrderingKey < startVersion || v.OrderingKey > endVersion {
			continue
		}
		windowed = append(windowed, v)
	}

	ingested := alreadyIngested
	if !skipExisting {
		ingested = map[string]bool{}
	}
	toIngest := discovery.FilterNewVersions(windowed, ingested)

	var results []RunStats
	for _, v := range toIngest {
		stats, err := p.ingestVersion(ctx, v)
		if err != nil {
			return results, apperrors.WrapMsg(op, fmt.Sprintf("version %s", v.ExternalVersion), err)
		}
		results = append(results, *stats)
	}
	return results, nil
}

func (p *TaxonomyPipeline) ingestVersion(ctx context.Context, v discovery.DiscoveredVersion) (*RunStats, error) {
	const op = apperrors.Op("orchestrator.taxonomy.ingest_version")
	const family = "ncbi_taxonomy"

	jobTimer := metrics.NewTimer()
	defer func() { jobTimer.ObserveDurationVec(metrics.JobDuration, family) }()

	merges, deletions, err := p.fetchMergesAndDeletions(ctx, v)
	if err != nil {
		return nil, apperrors.WrapMsg(op, "fetch merges/deletions", err)
	}
	breaking := len(merges) > 0 || len(deletions) > 0

	internalVersion, major, minor, patch, summary, err := p.nextReleaseVersion(ctx, breaking)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	sourceMeta := []byte(fmt.Sprintf(`{"current":%q,"changelog":%q}`, v.Extras["current"], summary))
	jobID, alreadyCompleted, err := p.coordinator.CreateJob(ctx, coordinator.CreateJobParams{
		OrganizationID:  p.cfg.OrganizationID,
		JobType:         "ncbi_taxonomy",
		ExternalVersion: v.ExternalVersion,
		InternalVersion: internalVersion,
		SourceURL:       discovery.TaxonomyReleasePath(v),
		SourceMetadata:  sourceMeta,
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if alreadyCompleted {
		processed, stored, err := p.coordinator.JobRecordCounts(ctx, jobID)
		if err != nil {
			return nil, apperrors.Wrap(op, err)
		}
		return &RunStats{ExternalVersion: v.ExternalVersion, RecordsTotal: int(processed), RecordsStored: int(stored)}, nil
	}

	data, err := p.fetch(ctx, v)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(family, "failed").Inc()
		_ = p.coordinator.FailJob(ctx, jobID, err)
		return nil, apperrors.Wrap(op, err)
	}
	if err := p.coordinator.StartDownload(ctx, jobID); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	var parser taxdump.RankedLineageParser
	total, err := parser.Count(data)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(family, "failed").Inc()
		_ = p.coordinator.FailJob(ctx, jobID, err)
		return nil, apperrors.Wrap(op, err)
	}
	if err := p.coordinator.StartParse(ctx, jobID); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	n, err := p.coordinator.CreateWorkUnits(ctx, jobID, models.PhaseParseRange, int64(total))
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	metrics.QueueDepth.WithLabelValues(family).Set(float64(n))
	if err := p.coordinator.StartStore(ctx, jobID); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	workerCount := WorkerCount(p.cfg.MaxWorkers, total, batchSize)

	chunkParams := writer.ChunkParams{
		OrganizationID:  p.cfg.OrganizationID,
		ExternalVersion: v.ExternalVersion,
		InternalVersion: internalVersion,
		VersionMajor:    major,
		VersionMinor:    minor,
		VersionPatch:    patch,
		Bucket:          "ncbi_taxonomy",
		Strategy:        p.cfg.Strategy,
	}

	var recordsStored, recordsSkipped atomic.Int64
	err = RunWorkers(ctx, p.coordinator, jobID, workerCount, "ncbi_taxonomy", func(ctx context.Context, unit *models.WorkUnit) error {
		taxa, _, err := parser.ParseRange(data, int(unit.StartOffset), int(unit.EndOffset))
		if err != nil {
			return err
		}
		chunkStats, err := p.writer.WriteChunk(ctx, chunkParams, taxa)
		if err != nil {
			return err
		}
		recordsStored.Add(int64(chunkStats.EntriesWritten))
		recordsSkipped.Add(int64(chunkStats.Skipped))
		return nil
	})
	if err != nil {
		metrics.JobsTotal.WithLabelValues(family, "failed").Inc()
		_ = p.coordinator.FailJob(ctx, jobID, err)
		return nil, apperrors.Wrap(op, err)
	}

	if len(merges) > 0 {
		if err := p.writer.ApplyMerges(ctx, merges); err != nil {
			return nil, apperrors.WrapMsg(op, "apply merges", err)
		}
	}
	if len(deletions) > 0 {
		if err := p.writer.ApplyDeletions(ctx, deletions); err != nil {
			return nil, apperrors.WrapMsg(op, "apply deletions", err)
		}
	}

	stats := &RunStats{
		ExternalVersion: v.ExternalVersion,
		RecordsTotal:    total,
		RecordsStored:   int(recordsStored.Load()),
		RecordsSkipped:  int(recordsSkipped.Load()),
	}
	metrics.RecordsStoredTotal.WithLabelValues(family).Add(float64(stats.RecordsStored))
	metrics.RecordsSkippedTotal.WithLabelValues(family).Add(float64(stats.RecordsSkipped))

	if err := p.coordinator.CompleteJob(ctx, jobID, int64(total), int64(stats.RecordsStored)); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	metrics.JobsTotal.WithLabelValues(family, "completed").Inc()
	return stats, nil
}

// nextReleaseVersion computes the release-wide semver for this run: MINOR
// over the organization's last recorded internal version, or MAJOR when
// this release's merge/delnodes files name any taxon removed or redirected
// (spec.md §4.8's taxonomy breaking-change rule, applied once per release
// rather than per entry since a release has no other natural identity to
// bump against). The very first release for an organization is 0.1.0.
func (p *TaxonomyPipeline) nextReleaseVersion(ctx context.Context, breaking bool) (version string, major, minor, patch int, summary string, err error) {
	status, err := p.coordinator.SyncStatus(ctx, p.cfg.OrganizationID)
	if err != nil {
		return "", 0, 0, 0, "", err
	}
	if status == nil || status.LastVersion == nil || *status.LastVersion == "" {
		changelog := versioning.FirstVersion("ncbi_taxonomy", "initial taxdump release")
		return "0.1.0", 0, 1, 0, changelog.SummaryText, nil
	}
	prevMajor, prevMinor, prevPatch, ok := parseSemver(*status.LastVersion)
	if !ok {
		changelog := versioning.FirstVersion("ncbi_taxonomy", "initial taxdump release")
		return "0.1.0", 0, 1, 0, changelog.SummaryText, nil
	}
	changelog := versioning.Detect("ncbi_taxonomy", p.cfg.Strategy, []versioning.ChangelogEntry{{
		Category:    versioning.CategoryModified,
		Count:       1,
		Description: "taxdump release",
		IsBreaking:  breaking,
	}})
	major, minor, patch = versioning.NextVersion(prevMajor, prevMinor, prevPatch, changelog.Bump)
	return fmt.Sprintf("%d.%d.%d", major, minor, patch), major, minor, patch, changelog.SummaryText, nil
}

func parseSemver(s string) (int, int, int, bool) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	patch, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return major, minor, patch, true
}

// fetchMergesAndDeletions fetches and parses merged.dmp/delnodes.dmp for
// the release, used both to decide the release-wide version bump and,
// later in ingestVersion, to deprecate the taxa they name. A fetch failure
// is treated as "no merges/deletions this release" rather than a fatal
// error: not every archived release retains both files.
func (p *TaxonomyPipeline) fetchMergesAndDeletions(ctx context.Context, v discovery.DiscoveredVersion) ([]taxdump.Merge, []taxdump.Deletion, error) {
	codec := taxonomyCodec(discovery.TaxonomyReleasePath(v))

	var merges []taxdump.Merge
	mergedData, err := p.ftp.FetchAndDecompress(ctx, discovery.TaxonomyReleasePath(v), codec, "merged.dmp")
	if err != nil {
		apperrors.LogAndContinue("orchestrator.taxonomy.fetch_merged", err)
	} else {
		merges, err = taxdump.ParseMerged(mergedData)
		if err != nil {
			return nil, nil, err
		}
	}

	var deletions []taxdump.Deletion
	delData, err := p.ftp.FetchAndDecompress(ctx, discovery.TaxonomyReleasePath(v), codec, "delnodes.dmp")
	if err != nil {
		apperrors.LogAndContinue("orchestrator.taxonomy.fetch_delnodes", err)
	} else {
		deletions, err = taxdump.ParseDelnodes(delData)
		if err != nil {
			return nil, nil, err
		}
	}
	return merges, deletions, nil
}

func taxonomyCodec(sourcePath string) ftpclient.Codec {
	if strings.HasSuffix(sourcePath, ".zip") {
		return ftpclient.CodecZip
	}
	return ftpclient.CodecTarGz
}

func (p *TaxonomyPipeline) fetch(ctx context.Context, v discovery.DiscoveredVersion) ([]byte, error) {
	sourcePath := discovery.TaxonomyReleasePath(v)
	codec := taxonomyCodec(sourcePath)

	if p.cfg.UseCache && p.cache != nil {
		if data, ok := p.cache.Get(string(discovery.FamilyTaxonomy), v.ExternalVersion); ok {
			metrics.CacheHitsTotal.WithLabelValues(string(discovery.FamilyTaxonomy), "hit").Inc()
			return data, nil
		}
		metrics.CacheHitsTotal.WithLabelValues(string(discovery.FamilyTaxonomy), "miss").Inc()
	}

	data, err := p.ftp.FetchAndDecompress(ctx, sourcePath, codec, "rankedlineage.dmp")
	if err != nil {
		return nil, err
	}

	if p.cfg.UseCache && p.cache != nil {
		if err := p.cache.Put(string(discovery.FamilyTaxonomy), v.ExternalVersion, data); err != nil {
			apperrors.LogAndContinue("orchestrator.taxonomy.cache_put", err)
		}
	}
	return data, nil
}
