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
	"github.com/nishad/bdp/internal/parser/genbank"
	"github.com/nishad/bdp/internal/store"
	"github.com/nishad/bdp/internal/versioning"
)

// GenBankConfig configures the GenBank/RefSeq pipeline.
type GenBankConfig struct {
	OrganizationID uuid.UUID
	MaxWorkers     int
	BatchSize      int
	UseCache       bool
	Strategy       versioning.Strategy
}

// GenBankPipeline wires C2/C3/C4/C5/C6 together for GenBank and RefSeq
// (spec.md §4.7). Both families ship one flat-file release at a time with
// no retained historical archive (spec.md §9's open question), so this
// pipeline only ever has one version to ingest; IngestHistorical returns an
// error naming that limitation rather than silently no-opping.
type GenBankPipeline struct {
	ftp         *ftpclient.Client
	coordinator *coordinator.Coordinator
	writer      *writer.GenBankWriter
	cache       *Cache
	cfg         GenBankConfig

	family      discovery.Family
	jobType     string
	bucket      string
	cacheFamily string
	source      func(client *ftpclient.Client) discovery.Source
	releasePath func(releaseNumber int) string
}

// NewGenBankPipeline assembles a pipeline for the GenBank family.
func NewGenBankPipeline(ftp *ftpclient.Client, pool *pgxpool.Pool, gw *store.Gateway, uploadFanout int, cache *Cache, cfg GenBankConfig) *GenBankPipeline {
	return &GenBankPipeline{
		ftp:         ftp,
		coordinator: coordinator.New(pool),
		writer:      writer.NewGenBankWriter(pool, writer.NewUploader(gw, uploadFanout)),
		cache:       cache,
		cfg:         cfg,
		family:      discovery.FamilyGenBank,
		jobType:     "genbank",
		bucket:      "genbank",
		cacheFamily: string(discovery.FamilyGenBank),
		source: func(client *ftpclient.Client) discovery.Source {
			return discovery.GenBankSource{Client: client}
		},
		releasePath: discovery.GenBankReleasePath,
	}
}

// NewRefSeqPipeline assembles a pipeline for the RefSeq family, sharing
// GenBankWriter's schema (it upserts registry_entries/data_sources/
// versions/version_files for GenBank and RefSeq records alike).
func NewRefSeqPipeline(ftp *ftpclient.Client, pool *pgxpool.Pool, gw *store.Gateway, uploadFanout int, cache *Cache, cfg GenBankConfig) *GenBankPipeline {
	return &GenBankPipeline{
		ftp:         ftp,
		coordinator: coordinator.New(pool),
		writer:      writer.NewGenBankWriter(pool, writer.NewUploader(gw, uploadFanout)),
		cache:       cache,
		cfg:         cfg,
		family:      discovery.FamilyRefSeq,
		jobType:     "refseq",
		bucket:      "refseq",
		cacheFamily: string(discovery.FamilyRefSeq),
		source: func(client *ftpclient.Client) discovery.Source {
			return discovery.RefSeqSource{Client: client}
		},
		releasePath: discovery.RefSeqReleasePath,
	}
}

// IngestLatest implements spec.md §4.7's Latest mode. Both families only
// ever discover their current release, so lastExternalVersion is used
// purely to avoid redundant work, not to bound a window.
func (p *GenBankPipeline) IngestLatest(ctx context.Context, lastExternalVersion string) (*RunStats, error) {
	op := apperrors.Op(fmt.Sprintf("orchestrator.%s.ingest_latest", p.jobType))

	src := p.source(p.ftp)
	newer, err := discovery.CheckForNewerVersion(ctx, src, lastExternalVersion)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if newer == nil {
		return &RunStats{}, nil
	}
	return p.ingestVersion(ctx, *newer)
}

// IngestHistorical is not supported: per spec.md §9, neither GenBank nor
// RefSeq retains a downloadable historical archive on the public FTP — only
// the current release is ever reachable, so there is no window to replay.
func (p *GenBankPipeline) IngestHistorical(ctx context.Context, startVersion, endVersion string, alreadyIngested map[string]bool, skipExisting bool) ([]RunStats, error) {
	op := apperrors.Op(fmt.Sprintf("orchestrator.%s.ingest_historical", p.jobType))
	return nil, apperrors.E(op, apperrors.KindValidation,
		fmt.Errorf("historical ingestion is not supported for %s: only the current release is downloadable from the public FTP", p.jobType))
}

func (p *GenBankPipeline) ingestVersion(ctx context.Context, v discovery.DiscoveredVersion) (*RunStats, error) {
	op := apperrors.Op(fmt.Sprintf("orchestrator.%s.ingest_version", p.jobType))
	family := p.jobType

	jobTimer := metrics.NewTimer()
	defer func() { jobTimer.ObserveDurationVec(metrics.JobDuration, family) }()

	internalVersion, major, minor, patch, summary, err := p.nextReleaseVersion(ctx)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	releaseNumber, _ := strconv.Atoi(v.Extras["release_number"])
	sourceMeta := []byte(fmt.Sprintf(`{"release_number":%d,"changelog":%q}`, releaseNumber, summary))
	jobID, alreadyCompleted, err := p.coordinator.CreateJob(ctx, coordinator.CreateJobParams{
		OrganizationID:  p.cfg.OrganizationID,
		JobType:         p.jobType,
		ExternalVersion: v.ExternalVersion,
		InternalVersion: internalVersion,
		SourceURL:       p.releasePath(releaseNumber),
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

	data, err := p.fetch(ctx, v, releaseNumber)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(family, "failed").Inc()
		_ = p.coordinator.FailJob(ctx, jobID, err)
		return nil, apperrors.Wrap(op, err)
	}
	if err := p.coordinator.StartDownload(ctx, jobID); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	var parser genbank.Parser
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
		Bucket:          p.bucket,
		Strategy:        p.cfg.Strategy,
	}

	var recordsStored, recordsSkipped atomic.Int64
	err = RunWorkers(ctx, p.coordinator, jobID, workerCount, p.jobType, func(ctx context.Context, unit *models.WorkUnit) error {
		records, _, err := parser.ParseRange(data, int(unit.StartOffset), int(unit.EndOffset))
		if err != nil {
			return err
		}
		chunkStats, err := p.writer.WriteChunk(ctx, chunkParams, records)
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

// nextReleaseVersion always bumps MINOR: with no retained historical
// archive there is no prior release to diff against for a breaking-change
// signal, so every new release is treated as additive over the
// organization's last recorded version.
func (p *GenBankPipeline) nextReleaseVersion(ctx context.Context) (version string, major, minor, patch int, summary string, err error) {
	status, err := p.coordinator.SyncStatus(ctx, p.cfg.OrganizationID)
	if err != nil {
		return "", 0, 0, 0, "", err
	}
	if status == nil || status.LastVersion == nil || *status.LastVersion == "" {
		changelog := versioning.FirstVersion(p.jobType, fmt.Sprintf("initial %s release", p.jobType))
		return "0.1.0", 0, 1, 0, changelog.SummaryText, nil
	}
	prevMajor, prevMinor, prevPatch, ok := parseSemver(*status.LastVersion)
	if !ok {
		changelog := versioning.FirstVersion(p.jobType, fmt.Sprintf("initial %s release", p.jobType))
		return "0.1.0", 0, 1, 0, changelog.SummaryText, nil
	}
	changelog := versioning.Detect(p.jobType, p.cfg.Strategy, []versioning.ChangelogEntry{{
		Category:    versioning.CategoryModified,
		Count:       1,
		Description: fmt.Sprintf("%s release", p.jobType),
		IsBreaking:  false,
	}})
	major, minor, patch = versioning.NextVersion(prevMajor, prevMinor, prevPatch, changelog.Bump)
	return fmt.Sprintf("%d.%d.%d", major, minor, patch), major, minor, patch, changelog.SummaryText, nil
}

func (p *GenBankPipeline) fetch(ctx context.Context, v discovery.DiscoveredVersion, releaseNumber int) ([]byte, error) {
	sourcePath := p.releasePath(releaseNumber)

	if p.cfg.UseCache && p.cache != nil {
		if data, ok := p.cache.Get(p.cacheFamily, v.ExternalVersion); ok {
			metrics.CacheHitsTotal.WithLabelValues(p.cacheFamily, "hit").Inc()
			return data, nil
		}
		metrics.CacheHitsTotal.WithLabelValues(p.cacheFamily, "miss").Inc()
	}

	codec := ftpclient.CodecGzip
	if !strings.HasSuffix(sourcePath, ".gz") {
		codec = ftpclient.CodecNone
	}
	data, err := p.ftp.FetchAndDecompress(ctx, sourcePath, codec)
	if err != nil {
		return nil, err
	}

	if p.cfg.UseCache && p.cache != nil {
		if err := p.cache.Put(p.cacheFamily, v.ExternalVersion, data); err != nil {
			apperrors.LogAndContinue(fmt.Sprintf("orchestrator.%s.cache_put", p.jobType), err)
		}
	}
	return data, nil
}
