// Package storagetest provides an in-memory S3 double for tests of code
// built on storage.RemoteBackend.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// FakeS3 implements storage.S3API over in-memory buckets.
type FakeS3 struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	acls    map[string]types.ObjectCannedACL
	calls   map[string]int

	// PutErr, when set, is returned by every PutObject call.
	PutErr error
	// CreateBucketErr, when set, is returned by every CreateBucket call.
	CreateBucketErr error
}

// NewFakeS3 returns a fake with the given buckets already created.
func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{
		buckets: make(map[string]map[string][]byte),
		acls:    make(map[string]types.ObjectCannedACL),
		calls:   make(map[string]int),
	}
	for _, b := range buckets {
		f.buckets[b] = make(map[string][]byte)
	}
	return f
}

// Object returns the stored bytes of bucket/key.
func (f *FakeS3) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objs, ok := f.buckets[bucket]
	if !ok {
		return nil, false
	}
	data, ok := objs[key]
	return data, ok
}

// ACL returns the canned ACL the object was written with.
func (f *FakeS3) ACL(bucket, key string) types.ObjectCannedACL {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acls[bucket+"/"+key]
}

// Calls returns how many times the named API operation was invoked.
func (f *FakeS3) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// HasBucket reports whether bucket exists.
func (f *FakeS3) HasBucket(bucket string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.buckets[bucket]
	return ok
}

// Len returns the number of objects in bucket.
func (f *FakeS3) Len(bucket string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buckets[bucket])
}

func (f *FakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	f.calls["PutObject"]++
	putErr := f.PutErr
	objs, ok := f.buckets[aws.ToString(in.Bucket)]
	f.mu.Unlock()

	if putErr != nil {
		return nil, putErr
	}
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	objs[aws.ToString(in.Key)] = data
	f.acls[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = in.ACL
	return &s3.PutObjectOutput{}, nil
}

func (f *FakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetObject"]++

	objs, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	data, ok := objs[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *FakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["HeadObject"]++

	objs, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NotFound{}
	}
	data, ok := objs[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *FakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteObject"]++

	objs, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	delete(objs, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *FakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateBucket"]++

	if f.CreateBucketErr != nil {
		return nil, f.CreateBucketErr
	}
	name := aws.ToString(in.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}
	f.buckets[name] = make(map[string][]byte)
	return &s3.CreateBucketOutput{}, nil
}
