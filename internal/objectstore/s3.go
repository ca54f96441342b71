package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/edvin/searchvault/internal/model"
)

// versionMetaKey is stored as x-amz-meta-snapshot-version.
const versionMetaKey = "snapshot-version"

// S3Options configures an S3Store. Endpoint is optional; when set the store
// talks path-style to an S3 compatible service (RGW, MinIO).
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Store keeps snapshot blobs in a single S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	clock  *versionClock
	logger zerolog.Logger
}

func NewS3Store(logger zerolog.Logger, opts S3Options) *S3Store {
	s3opts := s3.Options{
		Region:      opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
		s3opts.UsePathStyle = true
	}

	return &S3Store{
		client: s3.New(s3opts),
		bucket: opts.Bucket,
		clock:  newVersionClock(),
		logger: logger.With().Str("component", "s3-store").Str("bucket", opts.Bucket).Logger(),
	}
}

// Put overwrites path with content.
func (s *S3Store) Put(ctx context.Context, path string, content []byte) error {
	version := s.clock.next()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{versionMetaKey: version},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Str("version", version).Int("bytes", len(content)).Msg("blob written")
	return nil
}

func (s *S3Store) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// List returns every blob under prefix with its version id. The version is
// read from object metadata; objects written by other tools fall back to
// their LastModified time.
func (s *S3Store) List(ctx context.Context, prefix string) ([]model.BlobRef, error) {
	var refs []model.BlobRef

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			version, err := s.version(ctx, key, obj)
			if err != nil {
				return nil, err
			}
			refs = append(refs, model.BlobRef{Name: key, VersionID: version})
		}
	}
	return refs, nil
}

func (s *S3Store) version(ctx context.Context, key string, obj s3types.Object) (string, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("head %s: %w", key, err)
	}
	if v, ok := head.Metadata[versionMetaKey]; ok && v != "" {
		return v, nil
	}
	if obj.LastModified == nil {
		return "", fmt.Errorf("blob %s has neither a version nor a modification time", key)
	}
	return model.FormatVersionID(*obj.LastModified), nil
}
