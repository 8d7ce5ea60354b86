package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonathan/ui-builder/internal/types"
)

// BundleStore persists project bundle archives.
type BundleStore interface {
	// Save stores the bundle and returns the key it was written under.
	Save(ctx context.Context, bundle *types.ProjectBundle) (string, error)
}

// S3Config configures the S3-compatible bundle store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3BundleStore writes bundle zips to an S3-compatible bucket.
type S3BundleStore struct {
	client     *minio.Client
	bucket     string
	region     string
	bucketOnce sync.Once
	bucketErr  error
}

func NewS3BundleStore(cfg S3Config) (*S3BundleStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("bundle store endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &S3BundleStore{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func (s *S3BundleStore) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = err
			return
		}
		if !exists {
			s.bucketErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		}
	})
	return s.bucketErr
}

// BundleKey is the object key used for a bundle without an explicit ArchiveKey.
func BundleKey(bundle *types.ProjectBundle) string {
	if bundle.ArchiveKey != "" {
		return bundle.ArchiveKey
	}
	return "bundles/" + bundle.Name + ".zip"
}

func (s *S3BundleStore) Save(ctx context.Context, bundle *types.ProjectBundle) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("failed to prepare bucket %s: %w", s.bucket, err)
	}
	archive, err := Zip(bundle)
	if err != nil {
		return "", err
	}
	key := BundleKey(bundle)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(archive), int64(len(archive)), minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload bundle %s: %w", key, err)
	}
	return key, nil
}

// Load reads back a stored archive. A missing key yields (nil, nil).
func (s *S3BundleStore) Load(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", key, err)
	}
	defer func() { _ = obj.Close() }()
	data, err := io.ReadAll(obj)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bundle %s: %w", key, err)
	}
	return data, nil
}

// MemoryBundleStore keeps archives in process. Used when no bucket is configured.
type MemoryBundleStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryBundleStore() *MemoryBundleStore {
	return &MemoryBundleStore{objects: map[string][]byte{}}
}

func (s *MemoryBundleStore) Save(_ context.Context, bundle *types.ProjectBundle) (string, error) {
	archive, err := Zip(bundle)
	if err != nil {
		return "", err
	}
	key := BundleKey(bundle)
	s.mu.Lock()
	s.objects[key] = archive
	s.mu.Unlock()
	return key, nil
}

func (s *MemoryBundleStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key], nil
}
