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
	"github.com/nishad/bdp/internal/parser/interpro"
	"github.com/nishad/bdp/internal/store"
	"github.com/nishad/bdp/internal/versioning"
)

// InterProConfig configures the InterPro pipeline.
type InterProConfig struct {
	OrganizationID uuid.UUID
	MaxWorkers     int
	BatchSize      int
	UseCache       bool
	Strategy       versioning.Strategy
}

// InterProPipeline wires C2/C3/C4/C5/C6 together for InterPro (spec.md
// §4.7). Unlike GenBank/RefSeq, the EBI release archive retains every past
// release directory, so both Latest and Historical modes are supported;
// unlike taxdump there is no merge/delete changelog to drive a
// breaking-change signal (spec.md §4.8 names no InterPro rule), so every
// release bumps MINOR over the organization's last recorded version.
type InterProPipeline struct {
	ftp         *ftpclient.Client
	coordinator *coordinator.Coordinator
	writer      *writer.InterProWriter
	cache       *Cache
	cfg         InterProConfig
}

// NewInterProPipeline assembles a pipeline from its components.
func NewInterProPipeline(ftp *ftpclient.Client, pool *pgxpool.Pool, gw *store.Gateway, uploadFanout int, cache *Cache, cfg InterProConfig) *InterProPipeline {
	return &InterProPipeline{
		ftp:         ftp,
		coordinator: coordinator.New(pool),
		writer:      writer.NewInterProWriter(pool, writer.NewUploader(gw, uploadFanout)),
		cache:       cache,
		cfg:         cfg,
	}
}

// IngestLatest implements spec.md §4.7's Latest mode for InterPro.
func (p *InterProPipeline) IngestLatest(ctx context.Context, lastExternalVersion string) (*RunStats, error) {
	const op = apperrors.Op("orchestrator.interpro.ingest_latest")

	src := discovery.InterProSource{Client: p.ftp}
	newer, err := discovery.CheckForNewerVersion(ctx, src, lastExternalVersion)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if newer == nil {
		return &RunStats{}, nil
	}
	return p.ingestVersion(ctx, *newer)
}

// IngestHistorical implements spec.md §4.7's Historical mode for InterPro:
// every release directory in [startVersion, endVersion], oldest first.
func (p *InterProPipeline) IngestHistorical(ctx context.Context, startVersion, endVersion string, alreadyIngested map[string]bool, skipExisting bool) ([]RunStats, error) {
	const op = apperrors.Op("orchestrator.interpro.ingest_historical")

	src := discovery.InterProSource{Client: p.ftp}
	all, err := src.DiscoverAllVersions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	// startVersion/endVersion are release labels ("95.0"); compare them in
	// ordering-key space through the discovered releases carrying them.
	startKey, endKey := startVersion, endVersion
	for _, v := range all {
		if v.ExternalVersion == startVersion {
			startKey = v.OrderingKey
		}
		if v.ExternalVersion == endVersion {
			endKey = v.OrderingKey
		}
	}

	var windowed []discovery.DiscoveredVersion
	for _, v := range all {
		if v.OrderingKey < startKey || v.OrderingKey > endKey {
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

func (p *InterProPipeline) ingestVersion(ctx context.Context, v discovery.DiscoveredVersion) (*RunStats, error) {
	const op = apperrors.Op("orchestrator.interpro.ingest_version")
	const family = "interpro"

	jobTimer := metrics.NewTimer()
	defer func() { jobTimer.ObserveDurationVec(metrics.JobDuration, family) }()

	internalVersion, major, minor, patch, summary, err := p.nextReleaseVersion(ctx)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	sourceMeta := []byte(fmt.Sprintf(`{"major":%q,"minor":%q,"changelog":%q}`, v.Extras["major"], v.Extras["minor"], summary))
	jobID, alreadyCompleted, err := p.coordinator.CreateJob(ctx, coordinator.CreateJobParams{
		OrganizationID:  p.cfg.OrganizationID,
		JobType:         "interpro",
		ExternalVersion: v.ExternalVersion,
		InternalVersion: internalVersion,
		SourceURL:       discovery.InterProReleasePath(v.ExternalVersion),
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

	var parser interpro.Parser
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
		Bucket:          "interpro",
		Strategy:        p.cfg.Strategy,
	}

	var recordsStored, recordsSkipped atomic.Int64
	err = RunWorkers(ctx, p.coordinator, jobID, workerCount, "interpro", func(ctx context.Context, unit *models.WorkUnit) error {
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

	if err := p.coordinator.CompleteJob(ctx, jobID, int64(total), int64(stats.RecordsStored)); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	metrics.JobsTotal.WithLabelValues(family, "completed").Inc()
	return stats, nil
}

// nextReleaseVersion always bumps MINOR: spec.md §4.8 names no InterPro
// breaking-change rule, so there is no signal to drive a MAJOR bump from.
func (p *InterProPipeline) nextReleaseVersion(ctx context.Context) (version string, major, minor, patch int, summary string, err error) {
	status, err := p.coordinator.SyncStatus(ctx, p.cfg.OrganizationID)
	if err != nil {
		return "", 0, 0, 0, "", err
	}
	if status == nil || status.LastVersion == nil || *status.LastVersion == "" {
		changelog := versioning.FirstVersion("interpro", "initial interpro release")
		return "0.1.0", 0, 1, 0, changelog.SummaryText, nil
	}
	prevMajor, prevMinor, prevPatch, ok := parseSemver(*status.LastVersion)
	if !ok {
		changelog := versioning.FirstVersion("interpro", "initial interpro release")
		return "0.1.0", 0, 1, 0, changelog.SummaryText, nil
	}
	changelog := versioning.Detect("interpro", p.cfg.Strategy, []versioning.ChangelogEntry{{
		Category:    versioning.CategoryModified,
		Count:       1,
		Description: "interpro release",
		IsBreaking:  false,
	}})
	major, minor, patch = versioning.NextVersion(prevMajor, prevMinor, prevPatch, changelog.Bump)
	return fmt.Sprintf("%d.%d.%d", major, minor, patch), major, minor, patch, changelog.SummaryText, nil
}

func (p *InterProPipeline) fetch(ctx context.Context, v discovery.DiscoveredVersion) ([]byte, error) {
	sourcePath := discovery.InterProReleasePath(v.ExternalVersion)

	if p.cfg.UseCache && p.cache != nil {
		if data, ok := p.cache.Get(string(discovery.FamilyInterPro), v.ExternalVersion); ok {
			metrics.CacheHitsTotal.WithLabelValues(string(discovery.FamilyInterPro), "hit").Inc()
			return data, nil
		}
		metrics.CacheHitsTotal.WithLabelValues(string(discovery.FamilyInterPro), "miss").Inc()
	}

	data, err := p.ftp.FetchAndDecompress(ctx, sourcePath, ftpclient.CodecGzip)
	if err != nil {
		return nil, err
	}

	if p.cfg.UseCache && p.cache != nil {
		if err := p.cache.Put(string(discovery.FamilyInterPro), v.ExternalVersion, data); err != nil {
			apperrors.LogAndContinue("orchestrator.interpro.cache_put", err)
		}
	}
	return data, nil
}
