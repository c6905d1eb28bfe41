package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/storage/storagetest"
)

func newRemote(t *testing.T, fake *storagetest.FakeS3) *RemoteBackend {
	t.Helper()
	return NewRemoteBackendWithClient(fake, RemoteConfig{Bucket: "vault", Region: "us-east-1"})
}

func TestNewRemoteBackend_RequiresCredentials(t *testing.T) {
	_, err := NewRemoteBackend(context.Background(), RemoteConfig{Bucket: "vault"})
	assert.ErrorIs(t, err, common.ErrNoCredentials)

	_, err = NewRemoteBackend(context.Background(), RemoteConfig{AccessKey: "a", Bucket: "vault"})
	assert.ErrorIs(t, err, common.ErrNoCredentials)
}

func TestNewRemoteBackend_RequiresBucket(t *testing.T) {
	_, err := NewRemoteBackend(context.Background(), RemoteConfig{AccessKey: "a", SecretKey: "b"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewRemoteBackend_BuildsClient(t *testing.T) {
	b, err := NewRemoteBackend(context.Background(), RemoteConfig{
		AccessKey:    "admin",
		SecretKey:    "secretpassword",
		Bucket:       "vault",
		BaseEndpoint: "http://127.0.0.1:9000/",
	})
	require.NoError(t, err)
	assert.Equal(t, "vault", b.Bucket())
	assert.Equal(t, TierRemote, b.Tier())
}

func TestRemoteBackend_SaveWritesPublicObject(t *testing.T) {
	fake := storagetest.NewFakeS3("vault")
	b := newRemote(t, fake)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "uploads/post/1/a.jpg", bytes.NewReader([]byte("img"))))

	got, ok := fake.Object("vault", "uploads/post/1/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "img", string(got))
	assert.Equal(t, types.ObjectCannedACLPublicRead, fake.ACL("vault", "uploads/post/1/a.jpg"))
	assert.Equal(t, 0, fake.Calls("CreateBucket"))
}

func TestRemoteBackend_SaveCreatesMissingBucketOnce(t *testing.T) {
	fake := storagetest.NewFakeS3()
	b := newRemote(t, fake)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "k/a.jpg", bytes.NewReader([]byte("img"))))

	assert.True(t, fake.HasBucket("vault"))
	assert.Equal(t, 1, fake.Calls("CreateBucket"))
	assert.Equal(t, 2, fake.Calls("PutObject"))
	got, ok := fake.Object("vault", "k/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "img", string(got), "retry must resend the full body")
}

func TestRemoteBackend_SaveSurfacesBucketCreationFailure(t *testing.T) {
	fake := storagetest.NewFakeS3()
	fake.CreateBucketErr = errors.New("access denied")
	b := newRemote(t, fake)

	err := b.Save(context.Background(), "k/a.jpg", bytes.NewReader([]byte("img")))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrWrite)
	assert.Equal(t, 1, fake.Calls("PutObject"))
}

func TestRemoteBackend_SaveRetriesOnlyOnce(t *testing.T) {
	fake := storagetest.NewFakeS3()
	fake.PutErr = &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "gone"}
	b := newRemote(t, fake)

	err := b.Save(context.Background(), "k/a.jpg", bytes.NewReader([]byte("img")))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrWrite)
	assert.Equal(t, 2, fake.Calls("PutObject"))
	assert.Equal(t, 1, fake.Calls("CreateBucket"))
}

func TestRemoteBackend_SaveOtherErrorsAreNotRetried(t *testing.T) {
	fake := storagetest.NewFakeS3("vault")
	fake.PutErr = errors.New("connection reset")
	b := newRemote(t, fake)

	err := b.Save(context.Background(), "k/a.jpg", bytes.NewReader([]byte("img")))
	assert.ErrorIs(t, err, common.ErrWrite)
	assert.Equal(t, 1, fake.Calls("PutObject"))
	assert.Equal(t, 0, fake.Calls("CreateBucket"))
}

func TestRemoteBackend_ExistsReadRemove(t *testing.T) {
	fake := storagetest.NewFakeS3("vault")
	b := newRemote(t, fake)
	ctx := context.Background()

	ok, err := b.Exists(ctx, "k/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Read(ctx, "k/a.jpg")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, b.Save(ctx, "k/a.jpg", bytes.NewReader([]byte("img"))))

	ok, err = b.Exists(ctx, "k/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := b.Read(ctx, "k/a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "img", string(data))

	require.NoError(t, b.Remove(ctx, "k/a.jpg"))
	require.NoError(t, b.Remove(ctx, "k/a.jpg"))

	ok, err = b.Exists(ctx, "k/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoteBackend_RemoveWithoutBucketIsNoop(t *testing.T) {
	b := newRemote(t, storagetest.NewFakeS3())
	require.NoError(t, b.Remove(context.Background(), "k/a.jpg"))
}

func TestRemoteBackend_URL(t *testing.T) {
	b := newRemote(t, storagetest.NewFakeS3())
	assert.Equal(t, "//vault.s3.amazonaws.com/uploads/a.jpg", b.URL("uploads/a.jpg"))
	assert.Equal(t, "http://vault.s3.amazonaws.com/uploads/a.jpg", b.URL("uploads/a.jpg", WithProtocol()))

	cdn := NewRemoteBackendWithClient(storagetest.NewFakeS3(), RemoteConfig{Bucket: "vault", PublicURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/uploads/a.jpg", cdn.URL("uploads/a.jpg"))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isNoSuchBucket(&types.NoSuchBucket{}))
	assert.True(t, isNoSuchBucket(&smithy.GenericAPIError{Code: "NoSuchBucket"}))
	assert.False(t, isNoSuchBucket(errors.New("NoSuchBucket")))

	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
}
