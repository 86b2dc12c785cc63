// Package writer implements the batch storage writers (C6): per-family
// upsert pipelines that take a chunk of parsed records and make the
// registry_entries/data_sources/metadata/versions/version_files rows
// converge on them, uploading artifacts to the content-addressed store in
// between. Grounded on the teacher's internal/storage batch-insert helpers,
// generalized from a single SQLite table to the multi-table upsert ladder
// spec.md §4.6 describes.
package writer

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/metrics"
	"github.com/nishad/bdp/internal/store"
)

// chunkSize bounds how many records are upserted per round trip, chosen so
// chunkSize * per-row-parameters stays well under Postgres's 65,535 bound
// parameter limit (spec.md §4.6).
const chunkSize = 500

// Artifact is one rendered file awaiting upload for a version.
type Artifact struct {
	VersionID   string
	Format      string
	Key         string
	Body        []byte
	ContentType string
}

// UploadedArtifact is the result of storing one Artifact.
type UploadedArtifact struct {
	VersionID string
	Format    string
	S3Key     string
	Checksum  string
	SizeBytes int64
}

// Uploader uploads artifacts to the content-addressed store with bounded
// concurrency, per spec.md §4.6 step 6 ("upload via C1 in parallel with
// bounded concurrency").
type Uploader struct {
	store   *store.Gateway
	fanout  int64
}

// NewUploader returns an Uploader that allows at most fanout concurrent
// uploads in flight.
func NewUploader(gw *store.Gateway, fanout int) *Uploader {
	if fanout <= 0 {
		fanout = 1
	}
	return &Uploader{store: gw, fanout: int64(fanout)}
}

// UploadAll uploads every artifact, returning results in input order. The
// first error encountered is returned; in-flight uploads are allowed to
// finish but no new ones are started.
func (u *Uploader) UploadAll(ctx context.Context, artifacts []Artifact) ([]UploadedArtifact, error) {
	const op = apperrors.Op("writer.upload_all")

	results := make([]UploadedArtifact, len(artifacts))
	sem := semaphore.NewWeighted(u.fanout)
	errs := make(chan error, len(artifacts))
	var failed atomic.Bool

	for i, a := range artifacts {
		if failed.Load() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, apperrors.E(op, apperrors.KindTransientNetwork, err)
		}
		go func(i int, a Artifact) {
			defer sem.Release(1)
			timer := metrics.NewTimer()
			res, err := u.store.Upload(ctx, a.Key, a.Body, a.ContentType)
			timer.ObserveDuration(metrics.ArtifactUploadDuration)
			if err != nil {
				failed.Store(true)
				metrics.ArtifactUploadFailuresTotal.Inc()
				errs <- apperrors.WrapMsg(op, fmt.Sprintf("upload %s", a.Key), err)
				return
			}
			results[i] = UploadedArtifact{
				VersionID: a.VersionID,
				Format:    a.Format,
				S3Key:     a.Key,
				Checksum:  res.ChecksumSHA256,
				SizeBytes: res.Size,
			}
			errs <- nil
		}(i, a)
	}

	if err := sem.Acquire(ctx, u.fanout); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientNetwork, err)
	}
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Chunks splits n items into index ranges of at most chunkSize, the same
// windowing the coordinator uses for work units.
func Chunks(n int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

