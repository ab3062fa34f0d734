package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeed/internal/model"
)

// blobContract checks the behaviour every backend shares.
func blobContract(t *testing.T, b Blob) {
	t.Helper()
	ctx := context.Background()
	key := Key("", "AAPL", model.Daily)

	_, err := b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := b.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Put(ctx, key, []byte("v1")))
	require.NoError(t, b.Put(ctx, key, []byte("v2")))

	got, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
	ok, err = b.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Exists(ctx, Key("", "AAPL", model.Weekly))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBlob_Contract(t *testing.T) {
	blobContract(t, NewMemoryBlob())
}

func TestRedisBlob_Contract(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBlob(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	blobContract(t, b)
	raw, err := mr.Get("data/d/AAPL.csv")
	require.NoError(t, err)
	assert.Equal(t, "v2", raw, "stored under the series key as-is")
}

func TestRedisBlob_SeriesStore(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBlob(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ss := NewSeriesStore(b, "archive")
	want := &model.Series{Symbol: "MSFT", Timeframe: model.Daily, Bars: []model.Bar{
		{Time: day(1), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
	}}
	require.NoError(t, ss.WriteSeries(context.Background(), want))
	assert.True(t, mr.Exists("archive/d/MSFT.csv"))

	got, err := ss.ReadSeries(context.Background(), "MSFT", model.Daily)
	require.NoError(t, err)
	assert.Equal(t, want.Bars, got.Bars)
}

func TestNewRedisBlob_Unreachable(t *testing.T) {
	_, err := NewRedisBlob(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "redis ping")
}

// fakeS3 serves the subset of the S3 REST API the blob uses, path-style.
type fakeS3 struct {
	bucket string

	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/"+f.bucket+"/")
	if !ok {
		http.Error(w, "wrong bucket", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key></Error>`, key)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Write(data)
	case http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestS3Blob(t *testing.T) (*S3Blob, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "prices", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	b, err := NewS3Blob(context.Background(), S3Config{
		Bucket:    "prices",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return b, fake
}

func TestS3Blob_Contract(t *testing.T) {
	b, fake := newTestS3Blob(t)
	blobContract(t, b)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "v2", string(fake.objects["data/d/AAPL.csv"]))
}

func TestS3Blob_ServerErrorIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	b, err := NewS3Blob(context.Background(), S3Config{
		Bucket: "prices", Region: "us-east-1", Endpoint: srv.URL, AccessKey: "test", SecretKey: "test",
	})
	require.NoError(t, err)

	_, err = b.Get(context.Background(), "data/d/AAPL.csv")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	_, err = b.Exists(context.Background(), "data/d/AAPL.csv")
	assert.Error(t, err)
}

func TestNewS3Blob_RequiresBucket(t *testing.T) {
	_, err := NewS3Blob(context.Background(), S3Config{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket is required")
}
