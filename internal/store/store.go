// Package store implements the content-addressed artifact gateway (C1): a
// thin, idempotent wrapper over an S3-compatible object store. Keys are
// opaque to this package; callers follow the conventions in spec.md §6.
package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/nishad/bdp/internal/apperrors"
)

// UploadResult is returned by Upload.
type UploadResult struct {
	Size           int64
	ChecksumSHA256 string
}

// HeadResult is returned by Head.
type HeadResult struct {
	Size int64
	ETag string
}

// Config is the subset of application configuration the store needs.
type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Gateway is the artifact store gateway (C1).
type Gateway struct {
	client *s3.Client
	bucket string
}

// New builds a Gateway against an S3-compatible endpoint.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Gateway{client: client, bucket: cfg.Bucket}, nil
}

// Upload writes bytes under key. Overwrite is allowed and idempotent: the
// same bytes always produce the same checksum regardless of prior state.
func (g *Gateway) Upload(ctx context.Context, key string, body []byte, contentType string) (UploadResult, error) {
	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])

	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := g.client.PutObject(ctx, input); err != nil {
		return UploadResult{}, apperrors.E(apperrors.Op("store.upload"), classifyS3Error(err), err)
	}

	return UploadResult{Size: int64(len(body)), ChecksumSHA256: checksum}, nil
}

// Download fetches the full object at key.
func (g *Gateway) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperrors.E(apperrors.Op("store.download"), classifyS3Error(err), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.WrapMsg(apperrors.Op("store.download"), "read object body", err)
	}
	return data, nil
}

// Head returns existence and integrity metadata without transferring the body.
func (g *Gateway) Head(ctx context.Context, key string) (HeadResult, error) {
	out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return HeadResult{}, apperrors.E(apperrors.Op("store.head"), classifyS3Error(err), err)
	}

	etag := ""
	if out.ETag != nil {
		etag = trimQuotes(*out.ETag)
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return HeadResult{Size: size, ETag: etag}, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// classifyS3Error maps AWS SDK errors onto the source-agnostic taxonomy.
// A 404/NoSuchKey is NotFound (non-retryable); everything else affecting
// the wire is TransientNetwork so the caller's retry loop can act on it.
func classifyS3Error(err error) apperrors.Kind {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == 404 {
			return apperrors.KindNotFound
		}
		if respErr.HTTPStatusCode() >= 500 {
			return apperrors.KindTransientNetwork
		}
	}
	return apperrors.KindTransientNetwork
}
