package reportstore

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuckets struct {
	existsErrs []error
	exists     bool
	checks     int
	made       int
	makeErr    error
}

func (f *fakeBuckets) BucketExists(ctx context.Context, _ string) (bool, error) {
	f.checks++
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		return false, err
	}
	return f.exists, nil
}

func (f *fakeBuckets) MakeBucket(_ context.Context, _ string, _ minio.MakeBucketOptions) error {
	f.made++
	return f.makeErr
}

func TestEnsureBucketRetriesAfterFailure(t *testing.T) {
	buckets := &fakeBuckets{existsErrs: []error{errors.New("connection refused")}, exists: true}
	s := &MinioStore{buckets: buckets, bucketName: "reports"}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.ensureBucket(cancelled), context.Canceled)

	assert.Error(t, s.ensureBucket(context.Background()))
	require.NoError(t, s.ensureBucket(context.Background()))
	require.NoError(t, s.ensureBucket(context.Background()))

	assert.Equal(t, 3, buckets.checks)
	assert.Zero(t, buckets.made)
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	buckets := &fakeBuckets{}
	s := &MinioStore{buckets: buckets, bucketName: "reports"}

	require.NoError(t, s.ensureBucket(context.Background()))
	require.NoError(t, s.ensureBucket(context.Background()))
	assert.Equal(t, 1, buckets.made)

	raced := &fakeBuckets{makeErr: minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou", StatusCode: http.StatusConflict}}
	s = &MinioStore{buckets: raced, bucketName: "reports"}
	assert.NoError(t, s.ensureBucket(context.Background()))
}

func TestPutErr(t *testing.T) {
	assert.NoError(t, putErr(nil))
	assert.ErrorIs(t, putErr(minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: http.StatusPreconditionFailed}), ErrExists)

	err := putErr(minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable})
	assert.ErrorIs(t, err, apperr.ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrExists)
}

// endlessLister fails on its first object and keeps producing until its context ends
type endlessLister struct {
	stopped chan struct{}
}

func (l *endlessLister) ListObjects(ctx context.Context, _ string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(l.stopped)
		defer close(ch)
		obj := minio.ObjectInfo{Err: errors.New("access denied")}
		for {
			select {
			case ch <- obj:
				obj = minio.ObjectInfo{Key: "lab1/1/run"}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func TestListReleasesListerOnEarlyReturn(t *testing.T) {
	lister := &endlessLister{stopped: make(chan struct{})}
	s := &MinioStore{buckets: &fakeBuckets{exists: true}, objects: lister, bucketName: "reports"}

	_, err := s.List(context.Background(), "lab1")
	require.ErrorIs(t, err, apperr.ErrStorageFailure)

	select {
	case <-lister.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("lister still running after List returned")
	}
}
