package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// Backend names.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint for S3-compatible providers (MinIO, R2).
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, prefix
}

// NewDataset opens the report dataset over factory.
// Write and read paths share codec and layout.
func NewDataset(factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(DatasetID),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewS3Factory builds a Lode store factory over S3.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("load AWS config: %w", err), DatasetID)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			endpoint := s3cfg.Endpoint
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = s3cfg.UsePathStyle
	})

	return func() (lode.Store, error) {
		return lodes3.New(s3Client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}, nil
}

// ReportStore writes upload reports.
type ReportStore struct {
	dataset lode.Dataset
	backend string
}

// NewReportStore creates a report store over factory.
// Use lode.NewMemoryFactory() for testing.
func NewReportStore(factory lode.StoreFactory, backend string) (*ReportStore, error) {
	ds, err := NewDataset(factory)
	if err != nil {
		return nil, WrapInitError(err, DatasetID)
	}
	return &ReportStore{dataset: ds, backend: backend}, nil
}

// NewFSReportStore creates a report store rooted at a local directory.
func NewFSReportStore(root string) (*ReportStore, error) {
	return NewReportStore(lode.NewFSFactory(root), BackendFS)
}

// NewS3ReportStore creates a report store in an S3 bucket.
func NewS3ReportStore(ctx context.Context, s3cfg S3Config) (*ReportStore, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReportStore(factory, BackendS3)
}

// Backend returns the backend name (fs, s3, or what the caller passed).
func (s *ReportStore) Backend() string {
	return s.backend
}

// Dataset returns the underlying dataset for queries.
func (s *ReportStore) Dataset() lode.Dataset {
	return s.dataset
}

// WriteReport writes one report as its own snapshot.
func (s *ReportStore) WriteReport(ctx context.Context, report UploadReport) error {
	if report.SessionID == "" {
		return errors.New("report requires a session ID")
	}
	if report.Outcome == "" {
		return errors.New("report requires an outcome")
	}
	if _, err := s.dataset.Write(ctx, []any{toRecordMap(report)}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, fmt.Sprintf("%s/day=%s/outcome=%s", DatasetID, DeriveDay(report.CompletedAt), report.Outcome))
	}
	return nil
}
