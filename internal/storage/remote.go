package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/vstore/internal/common"
)

const defaultRegion = "us-east-1"

// S3API is the subset of *s3.Client used by RemoteBackend.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// RemoteConfig describes the S3-compatible bucket backing a RemoteBackend.
//
// Fields:
//   - AccessKey / SecretKey: static credentials; both are required.
//   - Region: bucket region, "us-east-1" when empty.
//   - Bucket: bucket name; created on first write if missing.
//   - BaseEndpoint: custom endpoint for S3-compatible stores (MinIO); enables path-style addressing.
//   - PublicURL: base for generated URLs; "//{bucket}.s3.amazonaws.com" when empty.
type RemoteConfig struct {
	AccessKey    string
	SecretKey    string
	Region       string
	Bucket       string
	BaseEndpoint string
	PublicURL    string
}

// RemoteBackend stores objects in one S3 bucket. Every object is written
// with a public-read ACL.
type RemoteBackend struct {
	client    S3API
	bucket    string
	region    string
	publicURL string
}

// NewRemoteBackend builds an S3 client from cfg. Missing credentials are a
// configuration failure and yield common.ErrNoCredentials.
func NewRemoteBackend(ctx context.Context, cfg RemoteConfig) (*RemoteBackend, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, common.ErrNoCredentials
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: empty bucket name", common.ErrInvalidInput)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewRemoteBackendWithClient(client, cfg), nil
}

// NewRemoteBackendWithClient wires an existing S3 client. Credentials in
// cfg are ignored.
func NewRemoteBackendWithClient(client S3API, cfg RemoteConfig) *RemoteBackend {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	return &RemoteBackend{
		client:    client,
		bucket:    cfg.Bucket,
		region:    region,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// Bucket returns the bucket name.
func (b *RemoteBackend) Bucket() string {
	return b.bucket
}

func (b *RemoteBackend) Tier() Tier {
	return TierRemote
}

// Save uploads src under key. When the bucket does not exist it is created
// and the upload retried exactly once.
func (b *RemoteBackend) Save(ctx context.Context, key string, src io.ReadSeeker) error {
	err := b.put(ctx, key, src)
	if err == nil {
		return nil
	}
	if !isNoSuchBucket(err) {
		return fmt.Errorf("%w: put %s: %w", common.ErrWrite, key, err)
	}

	if err := b.createBucket(ctx); err != nil {
		return fmt.Errorf("%w: create bucket %s: %w", common.ErrWrite, b.bucket, err)
	}
	if err := b.put(ctx, key, src); err != nil {
		return fmt.Errorf("%w: put %s after creating bucket: %w", common.ErrWrite, key, err)
	}
	return nil
}

func (b *RemoteBackend) put(ctx context.Context, key string, src io.ReadSeeker) error {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          src,
		ContentLength: aws.Int64(size),
		ACL:           types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	_, err = b.client.PutObject(ctx, in)
	return err
}

func (b *RemoteBackend) createBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(b.bucket)}
	if b.region != defaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.region),
		}
	}

	_, err := b.client.CreateBucket(ctx, in)
	if err == nil {
		return nil
	}

	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return nil
	}
	return err
}

// Remove deletes key. Missing keys and a missing bucket are no-ops.
func (b *RemoteBackend) Remove(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) && !isNoSuchBucket(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (b *RemoteBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) || isNoSuchBucket(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}

// URL returns "//{bucket}.s3.amazonaws.com/{key}", or "{PublicURL}/{key}"
// when a public base URL is configured.
func (b *RemoteBackend) URL(key string, opts ...URLOption) string {
	key = strings.TrimPrefix(key, "/")
	if b.publicURL != "" {
		return b.publicURL + "/" + key
	}

	o := buildURLOptions(opts)
	prefix := ""
	if o.withProtocol {
		prefix = "http:"
	}
	return fmt.Sprintf("%s//%s.s3.amazonaws.com/%s", prefix, b.bucket, key)
}

func (b *RemoteBackend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) || isNoSuchBucket(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, key)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

func isNoSuchBucket(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
