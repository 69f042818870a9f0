// Package storage implements an S3-backed object store for user uploads.
// Object keys are generated identifiers (FIL-yyyyMMddHHmmss-XXXX) so keys
// sort by upload time and never collide with client-supplied names.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	goerrors "github.com/goliatone/go-errors"

	accounts "github.com/bravado-dev/go-accounts"
	"github.com/bravado-dev/go-accounts/idgen"
)

// ObjectIDPrefix tags stored object identifiers.
const ObjectIDPrefix = "FIL"

// DefaultMaxObjectSize caps uploads at 10 MiB unless overridden.
const DefaultMaxObjectSize = 10 << 20

const (
	metadataKeyFilename = "filename"

	textCodeFileNotFound    = "FILE_NOT_FOUND"
	textCodeFileTooLarge    = "FILE_TOO_LARGE"
	textCodeInvalidFileType = "INVALID_FILE_TYPE"
	textCodeUploadFailed    = "FILE_UPLOAD_FAILED"
)

// ObjectAPI is the narrow S3 surface the store depends on.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Object describes a stored file.
type Object struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store uploads, retrieves, and deletes objects in a single bucket.
type Store struct {
	client       ObjectAPI
	bucket       string
	maxSize      int64
	allowedTypes map[string]struct{}
	now          func() time.Time
	sink         accounts.ActivitySink
}

// Option customizes a Store.
type Option func(*Store)

// WithMaxObjectSize overrides the upload size cap in bytes.
func WithMaxObjectSize(limit int64) Option {
	return func(s *Store) {
		if limit > 0 {
			s.maxSize = limit
		}
	}
}

// WithAllowedContentTypes restricts uploads to the given MIME types.
// Without this option every content type is accepted.
func WithAllowedContentTypes(contentTypes ...string) Option {
	return func(s *Store) {
		if len(contentTypes) == 0 {
			return
		}
		s.allowedTypes = make(map[string]struct{}, len(contentTypes))
		for _, ct := range contentTypes {
			s.allowedTypes[ct] = struct{}{}
		}
	}
}

// WithClock overrides the wall clock. Useful in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithActivitySink publishes stored/deleted object events to the sink.
// Events are best effort: sink failures never fail the operation.
func WithActivitySink(sink accounts.ActivitySink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

// New builds a Store over static credentials, the common setup for
// self-hosted S3-compatible backends.
func New(ctx context.Context, accessKey, secretKey, region, bucket string, opts ...Option) (*Store, error) {
	creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load aws config")
	}

	return NewWithClient(s3.NewFromConfig(cfg), bucket, opts...), nil
}

// NewWithClient builds a Store over an existing client. This is the
// constructor tests use with a fake ObjectAPI.
func NewWithClient(client ObjectAPI, bucket string, opts ...Option) *Store {
	s := &Store{
		client:  client,
		bucket:  bucket,
		maxSize: DefaultMaxObjectSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Upload stores body under a freshly generated object id and returns the
// object descriptor. The declared size is validated against the cap before
// any bytes move.
func (s *Store) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*Object, error) {
	if size > s.maxSize {
		return nil, goerrors.New("file exceeds the maximum allowed size", goerrors.CategoryValidation).
			WithTextCode(textCodeFileTooLarge).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"size":  size,
				"limit": s.maxSize,
			})
	}

	if s.allowedTypes != nil {
		if _, ok := s.allowedTypes[contentType]; !ok {
			return nil, goerrors.New("file type is not allowed", goerrors.CategoryValidation).
				WithTextCode(textCodeInvalidFileType).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{
					"content_type": contentType,
				})
		}
	}

	id := idgen.Generate(ObjectIDPrefix)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(id),
		Body:          body,
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			metadataKeyFilename: filename,
		},
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to upload object").
			WithTextCode(textCodeUploadFailed)
	}

	s.recordActivity(ctx, accounts.ActivityEventObjectStored, id, map[string]any{
		"filename":     filename,
		"content_type": contentType,
		"size":         size,
	})

	return &Object{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  s.now().UTC(),
	}, nil
}

// Download streams the object body. The caller owns the returned reader.
func (s *Store) Download(ctx context.Context, id string) (io.ReadCloser, *Object, error) {
	if !idgen.IsValid(id, ObjectIDPrefix) {
		return nil, nil, s.notFound(id)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil, s.notFound(id)
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to download object")
	}

	obj := &Object{
		ID:          id,
		Filename:    out.Metadata[metadataKeyFilename],
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		obj.UploadedAt = *out.LastModified
	}

	return out.Body, obj, nil
}

// Stat returns the object descriptor without fetching the body.
func (s *Store) Stat(ctx context.Context, id string) (*Object, error) {
	if !idgen.IsValid(id, ObjectIDPrefix) {
		return nil, s.notFound(id)
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, s.notFound(id)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to stat object")
	}

	obj := &Object{
		ID:          id,
		Filename:    out.Metadata[metadataKeyFilename],
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		obj.UploadedAt = *out.LastModified
	}

	return obj, nil
}

// Delete removes the object. Deleting a missing object is a no-op success,
// matching S3 semantics.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !idgen.IsValid(id, ObjectIDPrefix) {
		return s.notFound(id)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete object")
	}

	s.recordActivity(ctx, accounts.ActivityEventObjectDeleted, id, nil)

	return nil
}

func (s *Store) recordActivity(ctx context.Context, eventType accounts.ActivityEventType, id string, metadata map[string]any) {
	if s.sink == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["object_id"] = id
	_ = s.sink.Record(ctx, accounts.ActivityEvent{
		EventType:  eventType,
		Metadata:   metadata,
		OccurredAt: s.now().UTC(),
	})
}

func (s *Store) notFound(id string) *goerrors.Error {
	return goerrors.New("file not found", goerrors.CategoryNotFound).
		WithTextCode(textCodeFileNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{
			"id": id,
		})
}

func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
