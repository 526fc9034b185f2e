package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/memohai/roastery/internal/storage"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	buckets map[string]bool
	putErr  error
	removed []string
	// unconditional counts uploads sent without If-None-Match.
	unconditional int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, buckets: map[string]bool{}}
}

func noSuchKey() error {
	return minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
}

func preconditionFailed() error {
	return minio.ErrorResponse{
		Code:       "PreconditionFailed",
		StatusCode: http.StatusPreconditionFailed,
		Message:    "At least one of the pre-conditions you specified did not hold",
	}
}

func (f *fakeS3) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket], nil
}

func (f *fakeS3) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket] = true
	return nil
}

func (f *fakeS3) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return minio.ObjectInfo{}, noSuchKey()
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, _, key string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if opts.Header().Get("If-None-Match") != "*" {
		f.unconditional++
	} else if _, ok := f.objects[key]; ok {
		return minio.UploadInfo{}, preconditionFailed()
	}
	f.objects[key] = data
	return minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeS3) GetObject(_ context.Context, _, _ string, _ minio.GetObjectOptions) (*minio.Object, error) {
	return nil, noSuchKey()
}

func (f *fakeS3) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeS3) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan minio.ObjectInfo, len(f.objects))
	for k, v := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			ch <- minio.ObjectInfo{Key: k, Size: int64(len(v))}
		}
	}
	close(ch)
	return ch
}

func TestPutRefusesExistingKey(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newStore(nil, fake, "coffee-images", "", "https://cdn.example.com/coffee-images")

	if err := s.Put(ctx, "a.jpg", strings.NewReader("x"), 1, "image/jpeg"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	err := s.Put(ctx, "a.jpg", strings.NewReader("y"), 1, "image/jpeg")
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("Put() error = %v, want ErrAlreadyExists", err)
	}
	if string(fake.objects["a.jpg"]) != "x" {
		t.Fatalf("object overwritten: %q", fake.objects["a.jpg"])
	}
}

func TestPutConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newStore(nil, fake, "coffee-images", "", "")

	const writers = 8
	payload := func(i int) string { return fmt.Sprintf("writer-%d", i) }
	errs := make([]error, writers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.Put(ctx, "same.jpg", strings.NewReader(payload(i)), int64(len(payload(i))), "image/jpeg")
		}(i)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("writers %d and %d both succeeded", winner, i)
			}
			winner = i
		case !errors.Is(err, storage.ErrAlreadyExists):
			t.Fatalf("writer %d error = %v, want ErrAlreadyExists", i, err)
		}
	}
	if winner < 0 {
		t.Fatal("no writer succeeded")
	}
	if got := string(fake.objects["same.jpg"]); got != payload(winner) {
		t.Fatalf("stored %q, want the winner's %q", got, payload(winner))
	}
	if fake.unconditional != 0 {
		t.Fatalf("%d uploads were sent without If-None-Match", fake.unconditional)
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"code", minio.ErrorResponse{Code: "PreconditionFailed"}, true},
		{"status", minio.ErrorResponse{StatusCode: http.StatusPreconditionFailed}, true},
		{"message", minio.ErrorResponse{Code: "InternalError", Message: "At least one of the pre-conditions you specified did not hold"}, true},
		{"not found", noSuchKey(), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isPreconditionFailed(tt.err); got != tt.want {
			t.Errorf("%s: isPreconditionFailed() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPutMapsPreconditionFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = preconditionFailed()
	s := newStore(nil, fake, "coffee-images", "", "")
	err := s.Put(context.Background(), "a.jpg", strings.NewReader("x"), 1, "image/jpeg")
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("Put() error = %v, want ErrAlreadyExists", err)
	}
}

func TestPutPropagatesFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("503 slow down")
	s := newStore(nil, fake, "coffee-images", "", "")
	err := s.Put(context.Background(), "a.jpg", strings.NewReader("x"), 1, "image/jpeg")
	if err == nil || errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("Put() error = %v, want upstream failure", err)
	}
}

func TestDeleteReportsMissing(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["a.jpg"] = []byte("x")
	s := newStore(nil, fake, "coffee-images", "", "")

	if err := s.Delete(ctx, "a.jpg"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "a.jpg"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
	if len(fake.removed) != 1 {
		t.Fatalf("RemoveObject called %d times, want 1", len(fake.removed))
	}
}

func TestOpenMissing(t *testing.T) {
	s := newStore(nil, newFakeS3(), "coffee-images", "", "")
	if _, err := s.Open(context.Background(), "a.jpg"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestEnsureBucketAndList(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newStore(nil, fake, "coffee-images", "us-east-1", "https://cdn.example.com/coffee-images")
	if err := s.EnsureBucket(ctx); err != nil {
		t.Fatal(err)
	}
	if !fake.buckets["coffee-images"] {
		t.Fatal("bucket not created")
	}
	fake.objects["p/a.jpg"] = []byte("1")
	fake.objects["q/b.jpg"] = []byte("22")
	objs, err := s.List(ctx, "p/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Key != "p/a.jpg" {
		t.Fatalf("List() = %+v", objs)
	}
	if got := s.AccessPath("p/a.jpg"); got != "https://cdn.example.com/coffee-images/p/a.jpg" {
		t.Fatalf("AccessPath() = %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(noSuchKey()) {
		t.Error("NoSuchKey should be not found")
	}
	if isNotFound(errors.New("boom")) {
		t.Error("plain error should not be not found")
	}
	if !isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}) {
		t.Error("404 should be not found")
	}
}
