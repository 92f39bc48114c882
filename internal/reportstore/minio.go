package reportstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type bucketAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

type objectLister interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinioStore keeps each report as an object <labId>/<runId>/<key> in one bucket
type MinioStore struct {
	client     *minio.Client
	buckets    bucketAPI
	objects    objectLister
	bucketName string
	region     string

	mu    sync.Mutex
	ready bool
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &MinioStore{
		client:     client,
		buckets:    client,
		objects:    client,
		bucketName: bucket,
		region:     region,
	}, nil
}

// ensureBucket creates the bucket on first use. Only success is remembered; a failed check is retried by the next call.
func (s *MinioStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	exists, err := s.buckets.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		err := s.buckets.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
		if err != nil && !isBucketOwned(err) {
			return err
		}
	}
	s.ready = true
	return nil
}

func (s *MinioStore) Put(ctx context.Context, labID, runID, key string, payload []byte) error {
	if err := validate(labID, runID, key); err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return apperr.Storage("ensure bucket", err)
	}

	opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
	// If-None-Match: * makes the write fail when the object already exists
	opts.SetMatchETagExcept("*")

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey(labID, runID, key), bytes.NewReader(payload), int64(len(payload)), opts)
	return putErr(err)
}

func putErr(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return ErrExists
	}
	return apperr.Storage("put report", err)
}

func (s *MinioStore) Get(ctx context.Context, labID, runID, key string) ([]byte, error) {
	if err := validate(labID, runID, key); err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, apperr.Storage("ensure bucket", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectKey(labID, runID, key), minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.Storage("get report", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, apperr.Storage("read report", err)
	}
	return data, nil
}

func (s *MinioStore) List(ctx context.Context, labID string) ([]string, error) {
	if err := validate(labID); err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, apperr.Storage("ensure bucket", err)
	}

	// stops the lister goroutine when we return early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := labID + "/"
	suffix := "/" + models.RunKey
	var ids []string
	for obj := range s.objects.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, apperr.Storage("list reports", obj.Err)
		}
		rest := strings.TrimPrefix(obj.Key, prefix)
		if !strings.HasSuffix(rest, suffix) {
			continue
		}
		if id := strings.TrimSuffix(rest, suffix); id != "" && !strings.Contains(id, "/") {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func isBucketOwned(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "BucketAlreadyOwnedByYou"
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
