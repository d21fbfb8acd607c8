package objectstore

import (
	"context"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

type object struct {
	data        []byte
	contentType string
}

type fakeBackend struct {
	mu      sync.Mutex
	buckets map[string]map[string]object
	calls   int
}

func newFakeBackend(buckets ...string) *fakeBackend {
	f := &fakeBackend{buckets: make(map[string]map[string]object)}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]object)
	}
	return f
}

func noSuch(code string) error {
	return minio.ErrorResponse{Code: code, Message: "The specified resource does not exist."}
}

func (f *fakeBackend) ListBuckets(context.Context) ([]minio.BucketInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []minio.BucketInfo
	for name := range f.buckets {
		out = append(out, minio.BucketInfo{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeBackend) ListObjects(_ context.Context, bucket, prefix string, _ bool, limit int) ([]minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	objs, ok := f.buckets[bucket]
	if !ok {
		return nil, noSuch("NoSuchBucket")
	}
	var out []minio.ObjectInfo
	for key, o := range objs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, minio.ObjectInfo{Key: key, Size: int64(len(o.data)), ContentType: o.contentType})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBackend) Put(_ context.Context, bucket, key string, data []byte, contentType string) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	objs, ok := f.buckets[bucket]
	if !ok {
		return minio.UploadInfo{}, noSuch("NoSuchBucket")
	}
	objs[key] = object{data: data, contentType: contentType}
	return minio.UploadInfo{Bucket: bucket, Key: key, ETag: "etag-" + key, Size: int64(len(data))}, nil
}

func (f *fakeBackend) Get(_ context.Context, bucket, key string, maxSize int64) ([]byte, minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	o, ok := f.buckets[bucket][key]
	if !ok {
		return nil, minio.ObjectInfo{}, noSuch("NoSuchKey")
	}
	info := minio.ObjectInfo{Key: key, Size: int64(len(o.data)), ContentType: o.contentType}
	if maxSize > 0 && info.Size > maxSize {
		return nil, info, errTooLarge{size: info.Size, max: maxSize}
	}
	return o.data, info, nil
}

func (f *fakeBackend) Stat(_ context.Context, bucket, key string) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	o, ok := f.buckets[bucket][key]
	if !ok {
		return minio.ObjectInfo{}, noSuch("NoSuchKey")
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(o.data)), ContentType: o.contentType}, nil
}

func (f *fakeBackend) Remove(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	delete(f.buckets[bucket], key)
	return nil
}

func (f *fakeBackend) PresignPut(_ context.Context, bucket, key string, expiry time.Duration) (*url.URL, error) {
	f.calls++
	return url.Parse("https://store.example/" + bucket + "/" + key + "?X-Amz-Expires=" + expiry.String())
}

func (f *fakeBackend) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, ok := f.buckets[bucket]
	return ok, nil
}

func newTestHandler(cfg Config) (*Handler, *fakeBackend) {
	if cfg.DefaultBucket == "" {
		cfg.DefaultBucket = "capgate"
	}
	backend := newFakeBackend(cfg.DefaultBucket, "archive")
	return New(backend, cfg, nil), backend
}

func call(op string, kv ...any) types.Params {
	return types.Params{Service: ServiceName, Operation: op, Args: types.NewArgs(kv...)}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNewMinioBackendRequiresEndpoint(t *testing.T) {
	_, err := NewMinioBackend(Config{})
	assert.ErrorContains(t, err, "endpoint")

	b, err := NewMinioBackend(Config{Endpoint: "localhost", Port: 9000, Region: "us-east-1"})
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestCapabilities(t *testing.T) {
	h, _ := newTestHandler(Config{})
	assert.Equal(t,
		[]string{"listBuckets", "listObjects", "upload", "download", "presignUpload", "delete", "stat", "test"},
		types.CapabilityNames(h.Capabilities()))
}

func TestValidateUploadLimits(t *testing.T) {
	h, backend := newTestHandler(Config{MaxFileSize: 16, AllowedTypes: []string{"text/plain", "image/*"}})

	tests := []struct {
		name   string
		params types.Params
		ok     bool
	}{
		{"text", call("upload", "key", "a.txt", "content", "hello"), true},
		{"png by wildcard", call("upload", "key", "a.png", "contentBase64", base64.StdEncoding.EncodeToString(pngHeader)), true},
		{"missing key", call("upload", "content", "hello"), false},
		{"missing payload", call("upload", "key", "a.txt"), false},
		{"too large", call("upload", "key", "a.txt", "content", strings.Repeat("x", 17)), false},
		{"bad base64", call("upload", "key", "a.bin", "contentBase64", "!!!"), false},
		{"disallowed type", call("upload", "key", "a.pdf", "content", "%PDF-1.4 abc"), false},
		{"presign too long", call("presignUpload", "key", "k", "expiry", 8*24*3600), false},
		{"presign ok", call("presignUpload", "key", "k", "expiry", 60), true},
		{"stat missing key", call("stat"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.ValidateParams(tt.params)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, types.IsCode(err, types.CodeInvalidParams), "got %v", err)
			}
		})
	}
	assert.Zero(t, backend.calls)
}

func TestUploadDownloadText(t *testing.T) {
	h, backend := newTestHandler(Config{})

	res, err := h.Execute(context.Background(), call("upload", "key", "notes/a.txt", "content", "hello world"))
	require.NoError(t, err)
	data := res.Data.(map[string]any)
	assert.Equal(t, "capgate", data["bucket"])
	assert.Equal(t, int64(11), data["size"])
	assert.Equal(t, "text/plain; charset=utf-8", data["contentType"])
	assert.Equal(t, "text/plain; charset=utf-8", backend.buckets["capgate"]["notes/a.txt"].contentType)

	res, err = h.Execute(context.Background(), call("download", "key", "notes/a.txt"))
	require.NoError(t, err)
	data = res.Data.(map[string]any)
	assert.Equal(t, "hello world", data["content"])
	assert.Equal(t, "utf-8", data["encoding"])
}

func TestUploadDownloadBinary(t *testing.T) {
	h, _ := newTestHandler(Config{})

	_, err := h.Execute(context.Background(), call("upload",
		"bucket", "archive", "key", "img.png",
		"contentBase64", base64.StdEncoding.EncodeToString(pngHeader),
		"contentType", "image/png"))
	require.NoError(t, err)

	res, err := h.Execute(context.Background(), call("download", "bucket", "archive", "key", "img.png"))
	require.NoError(t, err)
	data := res.Data.(map[string]any)
	assert.Equal(t, "base64", data["encoding"])
	assert.Equal(t, "image/png", data["detectedType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), data["content"])
}

func TestDownloadErrors(t *testing.T) {
	h, backend := newTestHandler(Config{MaxFileSize: 4})
	backend.buckets["capgate"]["big.txt"] = object{data: []byte("too big")}

	_, err := h.Execute(context.Background(), call("download", "key", "missing.txt"))
	gwErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeInvalidParams, gwErr.Code)
	assert.Equal(t, "NoSuchKey", gwErr.Details["code"])

	_, err = h.Execute(context.Background(), call("download", "key", "big.txt"))
	assert.True(t, types.IsCode(err, types.CodeInvalidParams))
}

func TestListStatDelete(t *testing.T) {
	h, _ := newTestHandler(Config{})
	for _, key := range []string{"a/1.txt", "a/2.txt", "b/3.txt"} {
		_, err := h.Execute(context.Background(), call("upload", "key", key, "content", key))
		require.NoError(t, err)
	}

	res, err := h.Execute(context.Background(), call("listObjects", "prefix", "a/"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Data.(map[string]any)["count"])

	_, err = h.Execute(context.Background(), call("listObjects", "bucket", "nope"))
	assert.True(t, types.IsCode(err, types.CodeInvalidParams))

	res, err = h.Execute(context.Background(), call("stat", "key", "b/3.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Data.(map[string]any)["size"])

	res, err = h.Execute(context.Background(), call("delete", "key", "b/3.txt"))
	require.NoError(t, err)
	assert.Equal(t, true, res.Data.(map[string]any)["deleted"])

	_, err = h.Execute(context.Background(), call("stat", "key", "b/3.txt"))
	assert.True(t, types.IsCode(err, types.CodeInvalidParams))
}

func TestListBuckets(t *testing.T) {
	h, _ := newTestHandler(Config{})

	res, err := h.Execute(context.Background(), call("listBuckets"))
	require.NoError(t, err)
	data := res.Data.(map[string]any)
	assert.Equal(t, 2, data["count"])
	assert.Equal(t, "archive", data["buckets"].([]map[string]any)[0]["name"])
}

func TestPresignUpload(t *testing.T) {
	h, _ := newTestHandler(Config{URLExpiry: 15 * time.Minute, MaxFileSize: 1024})

	res, err := h.Execute(context.Background(), call("presignUpload", "key", "up.bin"))
	require.NoError(t, err)
	data := res.Data.(map[string]any)
	assert.Equal(t, "PUT", data["method"])
	assert.Contains(t, data["url"], "X-Amz-Expires=15m0s")
	assert.Equal(t, int64(1024), data["maxSize"])

	res, err = h.Execute(context.Background(), call("presignUpload", "key", "up.bin", "expiry", 60))
	require.NoError(t, err)
	assert.Contains(t, res.Data.(map[string]any)["url"], "X-Amz-Expires=1m0s")
}

func TestTestAndHealth(t *testing.T) {
	h, _ := newTestHandler(Config{})

	res, err := h.Execute(context.Background(), call("test"))
	require.NoError(t, err)
	data := res.Data.(map[string]any)
	assert.Equal(t, true, data["connected"])
	assert.Equal(t, true, data["bucketExists"])
	assert.NoError(t, h.Health(context.Background()))
	assert.NoError(t, h.Shutdown(context.Background()))
}
