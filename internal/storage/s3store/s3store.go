// Package s3store implements storage.Provider on an S3-compatible bucket via minio-go.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/memohai/roastery/internal/storage"
)

// Options configures the S3 connection.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Store writes objects to a single bucket.
type Store struct {
	client    objectAPI
	bucket    string
	region    string
	publicURL string
	logger    *slog.Logger
}

var (
	_ storage.Provider = (*Store)(nil)
	_ storage.Lister   = (*Store)(nil)
)

// New connects to the endpoint. It does not touch the network until the first call.
func New(log *slog.Logger, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	publicURL := opts.PublicBaseURL
	if publicURL == "" {
		publicURL = storage.JoinURL(client.EndpointURL().String(), opts.Bucket)
	}
	return newStore(log, client, opts.Bucket, opts.Region, publicURL), nil
}

func newStore(log *slog.Logger, client objectAPI, bucket, region, publicURL string) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		client:    client,
		bucket:    bucket,
		region:    region,
		publicURL: publicURL,
		logger:    log.With(slog.String("storage", "s3"), slog.String("bucket", bucket)),
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	s.logger.Info("bucket created")
	return nil
}

// Put uploads reader under key. The upload carries If-None-Match: *, so the
// bucket itself refuses to overwrite and a concurrent writer of the same key
// gets storage.ErrAlreadyExists.
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if size <= 0 {
		size = -1
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	opts.SetMatchETagExcept("*")
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, opts); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, key)
		}
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Open streams the object at key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapError(key, err)
	}
	return obj, nil
}

// Delete removes key. S3 deletes are idempotent, so existence is checked first
// to report storage.ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	exists, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", mapError(key, err))
	}
	return nil
}

// AccessPath returns the public URL of key.
func (s *Store) AccessPath(key string) string {
	return storage.JoinURL(s.publicURL, key)
}

// List returns every object under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}
		out = append(out, storage.ObjectInfo{Key: info.Key, Size: info.Size, ModTime: info.LastModified})
	}
	return out, nil
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat object: %w", err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// preconditionMessage is what MinIO answers when If-None-Match fails on a
// gateway that does not set the PreconditionFailed code.
const preconditionMessage = "At least one of the pre-conditions you specified did not hold"

func isPreconditionFailed(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" ||
		resp.StatusCode == http.StatusPreconditionFailed ||
		strings.Contains(resp.Message, preconditionMessage)
}

func mapError(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return err
}
