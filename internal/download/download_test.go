package download

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(5*time.Second, 3, slog.Default())
}

func TestFetchAll_DownloadsEveryURL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("data for " + r.URL.Path))
	}))
	defer srv.Close()

	dest := t.TempDir()
	urls := []string{
		srv.URL + "/grids/20051113_0000.nc",
		srv.URL + "/grids/20051113_0010.nc",
		srv.URL + "/grids/20051113_0020.nc",
	}

	results := newTestClient().FetchAll(context.Background(), urls, dest)

	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err, r.URL)
		data, err := os.ReadFile(r.Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "data for /grids/")
	}
	assert.Equal(t, int64(3), hits.Load())

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFetchAll_SkipsExistingFiles(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	existing := filepath.Join(dest, "20051113_0000.nc")
	require.NoError(t, os.WriteFile(existing, []byte("already here"), 0o644))

	results := newTestClient().FetchAll(context.Background(), []string{srv.URL + "/20051113_0000.nc"}, dest)

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, int64(0), hits.Load(), "existing file must not be re-fetched")

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))
}

func TestFetchAll_ReportsPerURLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.nc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	results := newTestClient().FetchAll(context.Background(),
		[]string{srv.URL + "/good.nc", srv.URL + "/missing.nc"}, t.TempDir())

	require.Len(t, results, 2)

	byURL := map[string]Result{}
	for _, r := range results {
		byURL[r.URL] = r
	}
	assert.NoError(t, byURL[srv.URL+"/good.nc"].Err)
	assert.ErrorContains(t, byURL[srv.URL+"/missing.nc"].Err, "status 404")
}

func TestFetchAll_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	results := newTestClient().FetchAll(ctx, []string{srv.URL + "/a.nc", srv.URL + "/b.nc"}, t.TempDir())

	// A cancelled context stops feeding workers; whatever was dispatched
	// fails with a context error.
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestFileName(t *testing.T) {
	name, err := fileName("https://archive.example.com/cpol/2005/20051113_0000.nc")
	require.NoError(t, err)
	assert.Equal(t, "20051113_0000.nc", name)

	_, err = fileName("https://archive.example.com/")
	assert.Error(t, err)
}
