package orchestrator

import (
	"context"
	"fmt"
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
	"github.com/nishad/bdp/internal/parser/uniprot"
	"github.com/nishad/bdp/internal/store"
)

// UniProtConfig configures the UniProt pipeline.
type UniProtConfig struct {
	OrganizationID uuid.UUID
	MaxWorkers     int
	BatchSize      int // matches coordinator.defaultWorkUnitSize when unset
	UseCache       bool
}

// UniProtPipeline wires C2/C3/C4/C5/C6 together for the UniProt family
// (spec.md §4.7).
type UniProtPipeline struct {
	ftp         *ftpclient.Client
	coordinator *coordinator.Coordinator
	writer      *writer.UniProtWriter
	bundles     *writer.BundleWriter
	cache       *Cache
	cfg         UniProtConfig
}

// NewUniProtPipeline assembles a pipeline from its components.
func NewUniProtPipeline(ftp *ftpclient.Client, pool *pgxpool.Pool, gw *store.Gateway, uploadFanout int, cache *Cache, cfg UniProtConfig) *UniProtPipeline {
	uploader := writer.NewUploader(gw, uploadFanout)
	return &UniProtPipeline{
		ftp:         ftp,
		coordinator: coordinator.New(pool),
		writer:      writer.NewUniProtWriter(pool, uploader),
		bundles:     writer.NewBundleWriter(pool),
		cache:       cache,
		cfg:         cfg,
	}
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	ExternalVersion string
	RecordsTotal    int
	RecordsStored   int
	RecordsSkipped  int
}

// IngestLatest implements spec.md §4.7's Latest mode: ingest only if a
// newer release than lastExternalVersion exists.
func (p *UniProtPipeline) IngestLatest(ctx context.Context, lastExternalVersion string) (*RunStats, error) {
	const op = apperrors.Op("orchestrator.uniprot.ingest_latest")

	src := discovery.UniProtSource{Client: p.ftp}
	newer, err := discovery.CheckForNewerVersion(ctx, src, lastExternalVersion)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if newer == nil {
		return &RunStats{}, nil
	}
	return p.ingestVersion(ctx, *newer, true)
}

// IngestHistorical implements spec.md §4.7's Historical mode: ingest every
// release in [startVersion, endVersion], oldest first, skipping ones
// already ingested when skipExisting is set.
func (p *UniProtPipeline) IngestHistorical(ctx context.Context, startVersion, endVersion string, alreadyIngested map[string]bool, skipExisting bool) ([]RunStats, error) {
	const op = apperrors.Op("orchestrator.uniprot.ingest_historical")

	src := discovery.UniProtSource{Client: p.ftp}
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
		stats, err := p.ingestVersion(ctx, v, false)
		if err != nil {
			return results, apperrors.WrapMsg(op, fmt.Sprintf("version %s", v.ExternalVersion), err)
		}
		results = append(results, *stats)
	}
	return results, nil
}

func (p *UniProtPipeline) ingestVersion(ctx context.Context, v discovery.DiscoveredVersion, isCurrent bool) (*RunStats, error) {
	const op = apperrors.Op("orchestrator.uniprot.ingest_version")
	const family = "uniprot"

	jobTimer := metrics.NewTimer()
	defer func() { jobTimer.ObserveDurationVec(metrics.JobDuration, family) }()

	// The job's internal_version records the release this run covers; each
	// protein entry gets its own per-entry semver from internal/versioning
	// when UniProtWriter stores it (spec.md §4.8 operates per data source,
	// not per release).
	sourceMeta := []byte(fmt.Sprintf(`{"is_current":%t}`, isCurrent))

	jobID, alreadyCompleted, err := p.coordinator.CreateJob(ctx, coordinator.CreateJobParams{
		OrganizationID:  p.cfg.OrganizationID,
		JobType:         "uniprot_sprot",
		ExternalVersion: v.ExternalVersion,
		InternalVersion: v.ExternalVersion,
		SourceURL:       discovery.UniProtReleasePath(v.ExternalVersion),
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

	data, err := p.fetch(ctx, v.ExternalVersion)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(family, "failed").Inc()
		_ = p.coordinator.FailJob(ctx, jobID, err)
		return nil, apperrors.Wrap(op, err)
	}
	if err := p.coordinator.StartDownload(ctx, jobID); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	var parser uniprot.Parser
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
		Bucket:          "uniprot",
	}

	var recordsStored, recordsSkipped atomic.Int64
	err = RunWorkers(ctx, p.coordinator, jobID, workerCount, "uniprot", func(ctx context.Context, unit *models.WorkUnit) error {
		entries, _, err := parser.ParseRange(data, int(unit.StartOffset), int(unit.EndOffset))
		if err != nil {
			return err
		}
		chunkStats, err := p.writer.WriteChunk(ctx, chunkParams, entries)
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

	stats := &RunStats{
		ExternalVersion: v.ExternalVersion,
		RecordsTotal:    total,
		RecordsStored:   int(recordsStored.Load()),
		RecordsSkipped:  int(recordsSkipped.Load()),
	}
	metrics.RecordsStoredTotal.WithLabelValues(family).Add(float64(stats.RecordsStored))
	metrics.RecordsSkippedTotal.WithLabelValues(family).Add(float64(stats.RecordsSkipped))

	// Bundles are release-wide aggregates, not per-entry, so the bundle's
	// own version string is just the external release label: each release
	// gets its own distinct bundle version row.
	if err := p.bundles.BuildUniProtBundles(ctx, p.cfg.OrganizationID, v.ExternalVersion, v.ExternalVersion); err != nil {
		return nil, apperrors.WrapMsg(op, "build bundles", err)
	}

	if err := p.coordinator.CompleteJob(ctx, jobID, int64(total), int64(stats.RecordsStored)); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	metrics.JobsTotal.WithLabelValues(family, "completed").Inc()
	return stats, nil
}

func (p *UniProtPipeline) fetch(ctx context.Context, externalVersion string) ([]byte, error) {
	if p.cfg.UseCache && p.cache != nil {
		if data, ok := p.cache.Get(string(discovery.FamilyUniProt), externalVersion); ok {
			metrics.CacheHitsTotal.WithLabelValues(string(discovery.FamilyUniProt), "hit").Inc()
			return data, nil
		}
		metrics.CacheHitsTotal.WithLabelValues(string(discovery.FamilyUniProt), "miss").Inc()
	}

	data, err := p.ftp.FetchAndDecompress(ctx, discovery.UniProtReleasePath(externalVersion), ftpclient.CodecGzip)
	if err != nil {
		return nil, err
	}

	if p.cfg.UseCache && p.cache != nil {
		if err := p.cache.Put(string(discovery.FamilyUniProt), externalVersion, data); err != nil {
			apperrors.LogAndContinue("orchestrator.uniprot.cache_put", err)
		}
	}
	return data, nil
}
